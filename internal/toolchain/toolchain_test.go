package toolchain

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func requireTar(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("tar"); err != nil {
		t.Skip("tar not found in PATH")
	}
}

// makeTarball packs a directory tree "<topDir>/bin/arm-none-eabi-gcc" into
// a .tar.gz and returns the archive bytes.
func makeTarball(t *testing.T, topDir string) []byte {
	t.Helper()
	work := t.TempDir()
	binDir := filepath.Join(work, topDir, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(binDir, "arm-none-eabi-gcc"), []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	archive := filepath.Join(work, "bundle.tar.gz")
	cmd := exec.Command("tar", "-czf", archive, "-C", work, topDir)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("tar: %v\n%s", err, out)
	}
	data, err := os.ReadFile(archive)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func serveArchive(t *testing.T, data []byte, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEnsureDownloadsAndExtracts(t *testing.T) {
	requireTar(t)
	data := makeTarball(t, "gcc-arm-none-eabi-10.3-2021.10")
	srv := serveArchive(t, data, nil)

	dir := filepath.Join(t.TempDir(), "gcc-arm-none-eabi")
	rel := Release{
		Version:   "10.3-2021.10",
		URL:       srv.URL + "/toolchain.tar.gz",
		Archive:   "toolchain.tar.gz",
		Extracted: "gcc-arm-none-eabi-10.3-2021.10",
	}

	bundle, err := NewFetcher().Ensure(context.Background(), dir, rel)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if bundle.Dir != dir {
		t.Errorf("bundle dir = %q, want %q", bundle.Dir, dir)
	}
	if _, err := os.Stat(bundle.GCC()); err != nil {
		t.Errorf("missing gcc at fixed layout: %v", err)
	}
	// No leftover archive.
	if _, err := os.Stat(filepath.Join(filepath.Dir(dir), rel.Archive)); !os.IsNotExist(err) {
		t.Error("temporary archive left behind")
	}
}

func TestEnsurePresentDirSkipsNetwork(t *testing.T) {
	var hits atomic.Int32
	srv := serveArchive(t, nil, &hits)

	dir := filepath.Join(t.TempDir(), "gcc-arm-none-eabi")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	rel := Release{Version: "x", URL: srv.URL, Archive: "a.tar.gz", Extracted: "a"}
	if _, err := NewFetcher().Ensure(context.Background(), dir, rel); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if hits.Load() != 0 {
		t.Errorf("cache hit performed %d network calls", hits.Load())
	}
}

func TestEnsureIdempotent(t *testing.T) {
	requireTar(t)
	data := makeTarball(t, "top")
	var hits atomic.Int32
	srv := serveArchive(t, data, &hits)

	dir := filepath.Join(t.TempDir(), "gcc-arm-none-eabi")
	rel := Release{Version: "x", URL: srv.URL + "/t.tar.gz", Archive: "t.tar.gz", Extracted: "top"}

	f := NewFetcher()
	if _, err := f.Ensure(context.Background(), dir, rel); err != nil {
		t.Fatalf("first Ensure: %v", err)
	}
	if _, err := f.Ensure(context.Background(), dir, rel); err != nil {
		t.Fatalf("second Ensure: %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("expected exactly one download, got %d", hits.Load())
	}
}

func TestEnsureExtractFailureCleansArchive(t *testing.T) {
	requireTar(t)
	srv := serveArchive(t, []byte("this is not a tarball"), nil)

	dir := filepath.Join(t.TempDir(), "gcc-arm-none-eabi")
	rel := Release{Version: "x", URL: srv.URL + "/t.tar.gz", Archive: "t.tar.gz", Extracted: "top"}

	_, err := NewFetcher().Ensure(context.Background(), dir, rel)
	if err == nil {
		t.Fatal("expected extract failure")
	}
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("error type = %T, want *FetchError", err)
	}
	if fetchErr.Op != OpExtract {
		t.Errorf("op = %q, want %q", fetchErr.Op, OpExtract)
	}
	if _, statErr := os.Stat(filepath.Join(filepath.Dir(dir), rel.Archive)); !os.IsNotExist(statErr) {
		t.Error("temporary archive left behind after failed extract")
	}
}

func TestEnsureRenameFailure(t *testing.T) {
	requireTar(t)
	data := makeTarball(t, "actual-top-dir")
	srv := serveArchive(t, data, nil)

	dir := filepath.Join(t.TempDir(), "gcc-arm-none-eabi")
	// Extracted name doesn't match what the archive really contains.
	rel := Release{Version: "x", URL: srv.URL + "/t.tar.gz", Archive: "t.tar.gz", Extracted: "declared-top-dir"}

	_, err := NewFetcher().Ensure(context.Background(), dir, rel)
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) || fetchErr.Op != OpRename {
		t.Fatalf("err = %v, want *FetchError{OpRename}", err)
	}
	if _, statErr := os.Stat(filepath.Join(filepath.Dir(dir), rel.Archive)); !os.IsNotExist(statErr) {
		t.Error("temporary archive left behind after failed rename")
	}
}

func TestEnsureDownloadFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "gcc-arm-none-eabi")
	rel := Release{Version: "x", URL: srv.URL + "/missing.tar.gz", Archive: "missing.tar.gz", Extracted: "top"}

	_, err := NewFetcher().Ensure(context.Background(), dir, rel)
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) || fetchErr.Op != OpDownload {
		t.Fatalf("err = %v, want *FetchError{OpDownload}", err)
	}
	if _, statErr := os.Stat(dir); !os.IsNotExist(statErr) {
		t.Error("toolchain dir must not exist after failed download")
	}
}

func TestTarFlag(t *testing.T) {
	for archive, want := range map[string]string{
		"a.tar.bz2": "-xjf",
		"a.tar.gz":  "-xzf",
		"a.tgz":     "-xzf",
		"a.tar.xz":  "-xJf",
		"a.tar":     "-xf",
	} {
		got, err := tarFlag(archive)
		if err != nil || got != want {
			t.Errorf("tarFlag(%q) = %q, %v; want %q", archive, got, err, want)
		}
	}
	if _, err := tarFlag("a.zip"); err == nil {
		t.Error("expected error for unsupported format")
	}
}
