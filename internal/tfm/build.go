package tfm

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/psakit/tfmprov/internal/buildsys/cmake"
	"github.com/psakit/tfmprov/internal/pyenv"
	"github.com/psakit/tfmprov/internal/toolchain"
)

// BuildStage names the cmake stage that failed.
type BuildStage string

const (
	StageConfigure BuildStage = "configure"
	StageBuild     BuildStage = "build"
	StageInstall   BuildStage = "install"
)

// BuildError reports a failed external build invocation.
type BuildError struct {
	Stage BuildStage
	Err   error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("tfm %s: %v", e.Stage, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// Output is the installed build tree.
type Output struct {
	InstallDir string
}

// InterfaceInclude is the public header directory of the built firmware.
func (o Output) InterfaceInclude() string {
	return filepath.Join(o.InstallDir, "interface", "include")
}

// CryptoHeader is the PSA Crypto public header the bindings are generated
// from.
func (o Output) CryptoHeader() string {
	return filepath.Join(o.InterfaceInclude(), "psa", "crypto.h")
}

// VeneerObject is the link-time glue for calls across the secure boundary.
func (o Output) VeneerObject() string {
	return filepath.Join(o.InstallDir, "interface", "lib", "s_veneers.o")
}

// Builder drives the external CMake build of TF-M.
type Builder struct {
	cmakeBin string
	stdout   io.Writer
}

// BuildOption configures a Builder.
type BuildOption func(*Builder)

// WithCMakePath sets a custom cmake executable.
func WithCMakePath(path string) BuildOption {
	return func(b *Builder) {
		b.cmakeBin = path
	}
}

// WithOutput streams cmake output to w.
func WithOutput(w io.Writer) BuildOption {
	return func(b *Builder) {
		b.stdout = w
	}
}

// NewBuilder creates a Builder.
func NewBuilder(opts ...BuildOption) *Builder {
	b := &Builder{cmakeBin: "cmake"}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build runs the configure, build and install stages against the synced
// source tree, compiling with the provisioned cross toolchain inside the
// Python environment. The external build system owns incrementality; this
// invocation neither caches nor recovers a partial build. A failed stage
// is fatal.
func (b *Builder) Build(sourceDir, buildDir, installDir string, tc toolchain.Bundle, env pyenv.Env, profile Profile) (Output, error) {
	c := cmake.New(sourceDir, buildDir, installDir)
	c.Binary(b.cmakeBin)
	if b.stdout != nil {
		c.Output(b.stdout)
	}

	c.Define("TFM_PLATFORM", profile.Platform)
	c.Define("TFM_PROFILE", profile.TFMProfile)
	c.DefineBool("TEST_S", profile.TestS)
	c.DefineBool("TEST_S_CRYPTO", profile.TestSCrypto)
	c.DefinePath("CMAKE_C_COMPILER", tc.GCC())
	c.DefinePath("CMAKE_CXX_COMPILER", tc.GXX())
	c.DefinePath("CMAKE_ASM_COMPILER", tc.GCC())

	// The TF-M build scripts must see the venv's tools first on PATH and
	// VIRTUAL_ENV as the isolation marker; both are scoped to the cmake
	// child processes.
	for k, v := range env.ChildEnv() {
		c.Env(k, v)
	}

	if err := c.Configure(); err != nil {
		return Output{}, &BuildError{Stage: StageConfigure, Err: err}
	}
	if err := c.Build(); err != nil {
		return Output{}, &BuildError{Stage: StageBuild, Err: err}
	}
	if err := c.Install(); err != nil {
		return Output{}, &BuildError{Stage: StageInstall, Err: err}
	}
	return Output{InstallDir: installDir}, nil
}
