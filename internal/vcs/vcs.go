// Package vcs keeps the external firmware source tree in sync with its
// upstream repository.
package vcs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// SyncOp names the git operation that failed.
type SyncOp string

const (
	OpClone SyncOp = "clone"
	OpPull  SyncOp = "pull"
)

// SyncError reports a failed repository sync.
type SyncError struct {
	Op     SyncOp
	Remote string
	Err    error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("git %s %s: %v", e.Op, e.Remote, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// VCS defines the version control operations the pipeline needs.
type VCS interface {
	// Sync ensures dir holds a checkout of remote at ref.
	// If dir doesn't exist, clones the repo. If dir exists, pulls in place;
	// a failed pull discards the tree and clones fresh.
	Sync(ctx context.Context, remote, ref, dir string) error

	// Latest returns the remote HEAD commit hash.
	Latest(ctx context.Context, remote string) (string, error)
}

// gitVCS implements VCS using the git executable.
type gitVCS struct {
	git    string
	stdout io.Writer
}

// GitOption configures gitVCS.
type GitOption func(*gitVCS)

// WithGitPath sets a custom git executable path.
func WithGitPath(path string) GitOption {
	return func(g *gitVCS) {
		g.git = path
	}
}

// WithOutput streams git's output to w in addition to error capture.
func WithOutput(w io.Writer) GitOption {
	return func(g *gitVCS) {
		g.stdout = w
	}
}

// NewGitVCS creates a new git VCS instance.
func NewGitVCS(opts ...GitOption) VCS {
	g := &gitVCS{git: "git"}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Sync implements the self-healing sync: an existing tree whose pull fails
// is treated as unusable, removed entirely and replaced by a fresh clone.
// The pipeline never modifies the tree locally, so nothing of value is
// lost in the replacement.
func (g *gitVCS) Sync(ctx context.Context, remote, ref, dir string) error {
	if _, err := os.Stat(dir); err == nil {
		if err := g.pull(ctx, remote, ref, dir); err == nil {
			return nil
		}
		// Drop the tree before the replacement clone so a second failure
		// cannot leave a half-updated checkout behind.
		if err := os.RemoveAll(dir); err != nil {
			return &SyncError{Op: OpClone, Remote: remote, Err: err}
		}
	}
	return g.clone(ctx, remote, ref, dir)
}

func (g *gitVCS) clone(ctx context.Context, remote, ref, dir string) error {
	args := []string{"clone", "--branch", ref, "--single-branch", remote, dir}
	if err := g.run(ctx, "", args...); err != nil {
		return &SyncError{Op: OpClone, Remote: remote, Err: err}
	}
	return nil
}

func (g *gitVCS) pull(ctx context.Context, remote, ref, dir string) error {
	if err := g.run(ctx, dir, "pull", "origin", ref); err != nil {
		return &SyncError{Op: OpPull, Remote: remote, Err: err}
	}
	return nil
}

func (g *gitVCS) Latest(ctx context.Context, remote string) (string, error) {
	output, err := g.output(ctx, "", "ls-remote", remote, "HEAD")
	if err != nil {
		return "", fmt.Errorf("get remote HEAD: %w", err)
	}

	output = strings.TrimSpace(output)
	if output == "" {
		return "", fmt.Errorf("no HEAD found in remote %s", remote)
	}

	// format: <hash>\tHEAD
	hash, _, _ := strings.Cut(output, "\t")
	if hash == "" {
		return "", fmt.Errorf("invalid ls-remote output")
	}
	return hash, nil
}

func (g *gitVCS) run(ctx context.Context, dir string, args ...string) error {
	_, err := g.output(ctx, dir, args...)
	return err
}

func (g *gitVCS) output(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, g.git, args...)
	if dir != "" {
		cmd.Dir = dir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if g.stdout != nil {
		cmd.Stdout = io.MultiWriter(&stdout, g.stdout)
		cmd.Stderr = io.MultiWriter(&stderr, g.stdout)
	}

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("%s", msg)
		}
		return "", err
	}
	return stdout.String(), nil
}
