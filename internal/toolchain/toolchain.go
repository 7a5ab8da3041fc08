// Package toolchain provisions the Arm GNU Embedded cross-compiler.
//
// A toolchain release is an immutable versioned archive: once extracted and
// renamed to its stable directory, it is treated as read-only and never
// re-fetched while present. There is no integrity verification of a present
// directory; remove it to force a re-fetch.
package toolchain

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// FetchOp names the fetch sub-step that failed.
type FetchOp string

const (
	OpDownload FetchOp = "download"
	OpExtract  FetchOp = "extract"
	OpRename   FetchOp = "rename"
)

// FetchError reports a failed toolchain fetch.
type FetchError struct {
	Op  FetchOp
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("toolchain %s (%s): %v", e.Op, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Bundle is an extracted toolchain rooted at Dir.
type Bundle struct {
	Dir string
}

// BinDir returns the directory holding the cross tools.
func (b Bundle) BinDir() string { return filepath.Join(b.Dir, "bin") }

// GCC returns the C (and assembler) compiler path.
func (b Bundle) GCC() string { return filepath.Join(b.Dir, "bin", "arm-none-eabi-gcc") }

// GXX returns the C++ compiler path.
func (b Bundle) GXX() string { return filepath.Join(b.Dir, "bin", "arm-none-eabi-g++") }

// Fetcher downloads and unpacks toolchain releases.
type Fetcher struct {
	client *http.Client
	tar    string
	stdout io.Writer
}

// FetchOption configures a Fetcher.
type FetchOption func(*Fetcher)

// WithHTTPClient overrides the HTTP client used for downloads.
func WithHTTPClient(c *http.Client) FetchOption {
	return func(f *Fetcher) {
		f.client = c
	}
}

// WithTarPath sets a custom tar executable path.
func WithTarPath(path string) FetchOption {
	return func(f *Fetcher) {
		f.tar = path
	}
}

// WithOutput streams tar's output to w.
func WithOutput(w io.Writer) FetchOption {
	return func(f *Fetcher) {
		f.stdout = w
	}
}

// NewFetcher creates a Fetcher. The default HTTP client has no timeout:
// toolchain archives run to hundreds of megabytes and the pipeline has no
// cancellation story beyond ctx.
func NewFetcher(opts ...FetchOption) *Fetcher {
	f := &Fetcher{
		client: &http.Client{},
		tar:    "tar",
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Ensure makes dir hold an extracted copy of rel. A present dir is a cache
// hit and returns immediately with no network access. Otherwise the archive
// is downloaded next to dir, extracted, its top-level directory renamed to
// dir, and the archive deleted. Any sub-step failure aborts; the temporary
// archive never survives a failed run.
func (f *Fetcher) Ensure(ctx context.Context, dir string, rel Release) (Bundle, error) {
	if _, err := os.Stat(dir); err == nil {
		return Bundle{Dir: dir}, nil
	}

	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return Bundle{}, &FetchError{Op: OpDownload, URL: rel.URL, Err: err}
	}
	archivePath := filepath.Join(parent, rel.Archive)

	if err := f.download(ctx, rel.URL, archivePath); err != nil {
		os.Remove(archivePath)
		return Bundle{}, &FetchError{Op: OpDownload, URL: rel.URL, Err: err}
	}

	if err := f.extract(ctx, archivePath, parent); err != nil {
		os.Remove(archivePath)
		return Bundle{}, &FetchError{Op: OpExtract, URL: rel.URL, Err: err}
	}

	if err := os.Rename(filepath.Join(parent, rel.Extracted), dir); err != nil {
		os.Remove(archivePath)
		return Bundle{}, &FetchError{Op: OpRename, URL: rel.URL, Err: err}
	}

	if err := os.Remove(archivePath); err != nil {
		return Bundle{}, &FetchError{Op: OpRename, URL: rel.URL, Err: err}
	}
	return Bundle{Dir: dir}, nil
}

func (f *Fetcher) download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	file, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func (f *Fetcher) extract(ctx context.Context, archivePath, destDir string) error {
	flag, err := tarFlag(archivePath)
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, f.tar, flag, archivePath, "-C", destDir)
	if f.stdout != nil {
		cmd.Stdout = f.stdout
		cmd.Stderr = f.stdout
	}
	return cmd.Run()
}

func tarFlag(archivePath string) (string, error) {
	switch {
	case strings.HasSuffix(archivePath, ".tar.bz2"):
		return "-xjf", nil
	case strings.HasSuffix(archivePath, ".tar.gz"), strings.HasSuffix(archivePath, ".tgz"):
		return "-xzf", nil
	case strings.HasSuffix(archivePath, ".tar.xz"):
		return "-xJf", nil
	case strings.HasSuffix(archivePath, ".tar"):
		return "-xf", nil
	default:
		return "", fmt.Errorf("unsupported archive format: %s", filepath.Base(archivePath))
	}
}
