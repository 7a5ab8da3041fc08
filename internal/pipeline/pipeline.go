// Package pipeline sequences the provisioning steps that take an empty
// output root to a built firmware with generated bindings and exported
// link facts.
//
// Execution is strictly sequential: each step blocks until its external
// process or network call returns, and a fatal failure aborts the whole
// run. Re-running is the only retry mechanism; the per-step presence
// checks make that cheap.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/psakit/tfmprov/internal/bindgen"
	"github.com/psakit/tfmprov/internal/linkplan"
	"github.com/psakit/tfmprov/internal/pyenv"
	"github.com/psakit/tfmprov/internal/tfm"
	"github.com/psakit/tfmprov/internal/toolchain"
	"github.com/psakit/tfmprov/internal/ui"
	"github.com/psakit/tfmprov/internal/vcs"
	"github.com/psakit/tfmprov/internal/workspace"
)

// ArchiveFetcher provisions the cross toolchain.
type ArchiveFetcher interface {
	Ensure(ctx context.Context, dir string, rel toolchain.Release) (toolchain.Bundle, error)
}

// EnvProvisioner provisions the Python environment.
type EnvProvisioner interface {
	Ensure(ctx context.Context, envDir, requirements string) (pyenv.Env, error)
}

// FirmwareBuilder runs the external firmware build.
type FirmwareBuilder interface {
	Build(sourceDir, buildDir, installDir string, tc toolchain.Bundle, env pyenv.Env, profile tfm.Profile) (tfm.Output, error)
}

// BindingGenerator emits the binding module for the built firmware.
type BindingGenerator interface {
	Generate(ctx context.Context, req bindgen.Request) error
}

// Options assembles a Pipeline. Workspace, Remote, Ref, Release and
// Profile are required; component fields default to the real
// implementations when nil.
type Options struct {
	Workspace *workspace.Workspace
	Remote    string
	Ref       string
	Release   toolchain.Release
	Profile   tfm.Profile

	VCS         vcs.VCS
	Fetcher     ArchiveFetcher
	Provisioner EnvProvisioner
	Builder     FirmwareBuilder
	Generator   BindingGenerator

	Logger   zerolog.Logger
	Reporter ui.Reporter
}

// Pipeline runs the provisioning steps in order.
type Pipeline struct {
	opts  Options
	state State
}

// New creates a Pipeline, filling in the default component implementations.
func New(opts Options) *Pipeline {
	if opts.VCS == nil {
		opts.VCS = vcs.NewGitVCS()
	}
	if opts.Fetcher == nil {
		opts.Fetcher = toolchain.NewFetcher()
	}
	if opts.Provisioner == nil {
		opts.Provisioner = pyenv.NewProvisioner()
	}
	if opts.Builder == nil {
		opts.Builder = tfm.NewBuilder()
	}
	if opts.Generator == nil {
		opts.Generator = bindgen.New()
	}
	if opts.Reporter == nil {
		opts.Reporter = ui.NewNop()
	}
	return &Pipeline{opts: opts, state: Start}
}

// State returns the current pipeline state.
func (p *Pipeline) State() State { return p.state }

// Run executes the whole pipeline and returns the link plan of a
// successful run. The output root is exclusively locked for the duration;
// the lock is released on every exit path.
func (p *Pipeline) Run(ctx context.Context) (*linkplan.Plan, error) {
	release, err := acquireLock(p.opts.Workspace.LockPath())
	if err != nil {
		return nil, err
	}
	defer release()

	ws := p.opts.Workspace
	profile := p.opts.Profile

	var (
		tc   toolchain.Bundle
		env  pyenv.Env
		out  tfm.Output
		plan *linkplan.Plan
	)

	steps := []struct {
		name string
		next State
		run  func(context.Context) error
	}{
		{"sync firmware source", SourceSynced, func(ctx context.Context) error {
			return p.opts.VCS.Sync(ctx, p.opts.Remote, p.opts.Ref, ws.SourceDir())
		}},
		{"fetch toolchain", ToolchainReady, func(ctx context.Context) error {
			var err error
			tc, err = p.opts.Fetcher.Ensure(ctx, ws.ToolchainDir(), p.opts.Release)
			return err
		}},
		{"provision python env", EnvReady, func(ctx context.Context) error {
			var err error
			env, err = p.opts.Provisioner.Ensure(ctx, ws.VenvDir(), tfm.RequirementsPath(ws.SourceDir()))
			return err
		}},
		{"build firmware", Built, func(context.Context) error {
			var err error
			out, err = p.opts.Builder.Build(ws.SourceDir(), ws.BuildDir(), ws.InstallDir(), tc, env, profile)
			return err
		}},
		{"generate bindings", BindingsGenerated, func(ctx context.Context) error {
			return p.opts.Generator.Generate(ctx, bindgen.Request{
				Header:      out.CryptoHeader(),
				IncludeDirs: []string{out.InterfaceInclude()},
				Defines:     profile.PreprocessorDefines(ws.SourceDir()),
				Package:     "tfm",
				LinkArgs:    []string{out.VeneerObject()},
				OutPath:     ws.BindingsPath(),
			})
		}},
		{"export link plan", Exported, func(context.Context) error {
			plan = linkplan.New()
			plan.AddLinkArg(out.VeneerObject())
			if err := plan.SetFact("TFM_BUILD_DIR", out.InstallDir); err != nil {
				return err
			}
			if err := plan.SetFact("ARM_TOOLCHAIN_DIR", tc.Dir); err != nil {
				return err
			}
			return plan.WriteFile(ws.FactsPath())
		}},
	}

	for _, step := range steps {
		p.opts.Reporter.StepStart(step.name)
		started := time.Now()
		p.opts.Logger.Info().Str("step", step.name).Str("state", p.state.String()).Msg("running")

		if err := step.run(ctx); err != nil {
			p.state = Aborted
			p.opts.Reporter.StepFailed(step.name, err)
			p.opts.Logger.Error().Err(err).Str("step", step.name).Msg("pipeline aborted")
			return nil, fmt.Errorf("%s: %w", step.name, err)
		}

		p.state = step.next
		p.opts.Reporter.StepDone(step.name, time.Since(started))
		p.opts.Logger.Debug().Str("state", p.state.String()).Dur("took", time.Since(started)).Msg("step complete")
	}

	return plan, nil
}
