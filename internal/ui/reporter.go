// Package ui reports pipeline step progress to the terminal.
package ui

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"
)

// Reporter receives step lifecycle events from the pipeline.
type Reporter interface {
	StepStart(name string)
	StepDone(name string, d time.Duration)
	StepFailed(name string, err error)
}

// NewNop returns a Reporter that discards all events, for verbose runs
// where child-process output is streamed instead.
func NewNop() Reporter { return nopReporter{} }

type nopReporter struct{}

func (nopReporter) StepStart(string)               {}
func (nopReporter) StepDone(string, time.Duration) {}
func (nopReporter) StepFailed(string, error)       {}

// NewSpinner returns a Reporter that renders each step as a pterm spinner.
func NewSpinner() Reporter { return &spinnerReporter{} }

type spinnerReporter struct {
	spinner *pterm.SpinnerPrinter
}

func (r *spinnerReporter) StepStart(name string) {
	r.spinner, _ = pterm.DefaultSpinner.Start(name)
}

func (r *spinnerReporter) StepDone(name string, d time.Duration) {
	if r.spinner != nil {
		r.spinner.Success(fmt.Sprintf("%s (%s)", name, d.Round(time.Millisecond)))
		r.spinner = nil
	}
}

func (r *spinnerReporter) StepFailed(name string, err error) {
	if r.spinner != nil {
		r.spinner.Fail(fmt.Sprintf("%s: %v", name, err))
		r.spinner = nil
	}
}
