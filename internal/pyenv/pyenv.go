// Package pyenv provisions the Python virtual environment the TF-M build
// scripts run in.
//
// The dependency manifest lives inside the TF-M tree (tools/requirements.txt),
// so provisioning happens after the source sync. A present environment is
// assumed fully populated; there is no partial-install detection.
package pyenv

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/psakit/tfmprov/internal/procenv"
)

// ProvisionOp names the provisioning sub-step that failed.
type ProvisionOp string

const (
	OpCreate  ProvisionOp = "create"
	OpInstall ProvisionOp = "install"
)

// ProvisionError reports a failed environment provisioning.
type ProvisionError struct {
	Op  ProvisionOp
	Dir string
	Err error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("venv %s (%s): %v", e.Op, e.Dir, e.Err)
}

func (e *ProvisionError) Unwrap() error { return e.Err }

// Env is a provisioned virtual environment rooted at Dir.
type Env struct {
	Dir string
}

// BinDir returns the environment's executable directory.
func (e Env) BinDir() string { return filepath.Join(e.Dir, "bin") }

// Pip returns the environment's pip path.
func (e Env) Pip() string { return filepath.Join(e.Dir, "bin", "pip") }

// ChildEnv returns the variables a child process needs to run inside the
// environment: VIRTUAL_ENV as the isolation marker and the env's bin
// directory prepended to PATH. The caller passes these to the spawned
// process; the parent environment is never modified.
func (e Env) ChildEnv() map[string]string {
	return map[string]string{
		"VIRTUAL_ENV": e.Dir,
		"PATH":        procenv.PrependPath("PATH", e.BinDir()),
	}
}

// Provisioner creates virtual environments.
type Provisioner struct {
	python string
	stdout io.Writer
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithPythonPath sets a custom python executable.
func WithPythonPath(path string) Option {
	return func(p *Provisioner) {
		p.python = path
	}
}

// WithOutput streams python/pip output to w.
func WithOutput(w io.Writer) Option {
	return func(p *Provisioner) {
		p.stdout = w
	}
}

// NewProvisioner creates a Provisioner.
func NewProvisioner(opts ...Option) *Provisioner {
	p := &Provisioner{python: "python3"}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ensure makes envDir hold a virtual environment with the manifest at
// requirements installed. A present envDir is a cache hit and returns
// immediately; there is no staleness check against the manifest.
func (p *Provisioner) Ensure(ctx context.Context, envDir, requirements string) (Env, error) {
	env := Env{Dir: envDir}
	if _, err := os.Stat(envDir); err == nil {
		return env, nil
	}

	if err := p.run(ctx, nil, p.python, "-m", "venv", envDir); err != nil {
		return Env{}, &ProvisionError{Op: OpCreate, Dir: envDir, Err: err}
	}

	if err := p.run(ctx, env.ChildEnv(), env.Pip(), "install", "-r", requirements); err != nil {
		return Env{}, &ProvisionError{Op: OpInstall, Dir: envDir, Err: err}
	}
	return env, nil
}

func (p *Provisioner) run(ctx context.Context, override map[string]string, bin string, args ...string) error {
	cmd := exec.CommandContext(ctx, bin, args...)
	if override != nil {
		cmd.Env = procenv.Merge(os.Environ(), override)
	}
	if p.stdout != nil {
		cmd.Stdout = p.stdout
		cmd.Stderr = p.stdout
	}
	return cmd.Run()
}
