// Package workspace defines the run-scoped output layout.
//
// Every path is a pure function of the root: no timestamps, no random
// suffixes. Re-runs against the same root therefore see the artifacts of
// earlier runs, which is what makes the per-step presence checks work.
package workspace

import (
	"os"
	"path/filepath"
)

const (
	sourceDirName    = "trusted-firmware-m"
	toolchainDirName = "gcc-arm-none-eabi"
	venvDirName      = "tfm_venv"
	installDirName   = "tfm-install"
	bindingsFileName = "tfm_bindings.go"
	factsFileName    = "tfm_facts.env"
	lockFileName     = ".tfmprov.lock"
)

// Workspace is an output root on disk. The zero value is not usable; use New.
type Workspace struct {
	root string
}

// New returns a Workspace rooted at dir. The directory is created if absent.
func New(dir string) (*Workspace, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &Workspace{root: abs}, nil
}

// Default returns the workspace under the user cache directory.
func Default() (*Workspace, error) {
	userCacheDir, err := os.UserCacheDir()
	if err != nil {
		return nil, err
	}
	return New(filepath.Join(userCacheDir, "tfmprov"))
}

func (w *Workspace) Root() string { return w.root }

// SourceDir is the TF-M checkout.
func (w *Workspace) SourceDir() string { return filepath.Join(w.root, sourceDirName) }

// ToolchainDir is the extracted Arm GNU Embedded toolchain.
func (w *Workspace) ToolchainDir() string { return filepath.Join(w.root, toolchainDirName) }

// VenvDir is the Python virtual environment used by the TF-M build.
func (w *Workspace) VenvDir() string { return filepath.Join(w.root, venvDirName) }

// InstallDir is the CMake install tree.
func (w *Workspace) InstallDir() string { return filepath.Join(w.root, installDirName) }

// BuildDir is the CMake build tree.
func (w *Workspace) BuildDir() string { return filepath.Join(w.root, "tfm-build") }

// BindingsPath is the generated cgo binding module.
func (w *Workspace) BindingsPath() string { return filepath.Join(w.root, bindingsFileName) }

// FactsPath is the exported facts file read by the enclosing build.
func (w *Workspace) FactsPath() string { return filepath.Join(w.root, factsFileName) }

// LockPath is the advisory lock taken for the duration of a run.
func (w *Workspace) LockPath() string { return filepath.Join(w.root, lockFileName) }
