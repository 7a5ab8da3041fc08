package bindgen

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func stubCompiler(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs not supported on windows")
	}
	cc := filepath.Join(t.TempDir(), "cc")
	if err := os.WriteFile(cc, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return cc
}

func TestGenerateEmitsModule(t *testing.T) {
	record := filepath.Join(t.TempDir(), "record")
	cc := stubCompiler(t, "#!/bin/sh\necho \"$@\" > "+record+"\n")
	outPath := filepath.Join(t.TempDir(), "tfm_bindings.go")

	req := Request{
		Header:      "/out/interface/include/psa/crypto.h",
		IncludeDirs: []string{"/out/interface/include"},
		Defines: map[string]string{
			"MBEDTLS_CONFIG_FILE": `"/src/config.h"`,
		},
		Package:  "tfm",
		LinkArgs: []string{"/out/interface/lib/s_veneers.o"},
		OutPath:  outPath,
	}

	g := New(WithCompiler(cc))
	if err := g.Generate(context.Background(), req); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// The parse check saw the include dirs, defines and header.
	args, err := os.ReadFile(record)
	if err != nil {
		t.Fatalf("compiler not invoked: %v", err)
	}
	for _, want := range []string{
		"-fsyntax-only",
		"-ffreestanding",
		"-I/out/interface/include",
		`-DMBEDTLS_CONFIG_FILE="/src/config.h"`,
		"/out/interface/include/psa/crypto.h",
	} {
		if !strings.Contains(string(args), want) {
			t.Errorf("parse check args missing %q, got %q", want, args)
		}
	}

	module, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("module not written: %v", err)
	}
	got := string(module)
	for _, want := range []string{
		"package tfm",
		"#cgo CFLAGS: -I/out/interface/include -DMBEDTLS_CONFIG_FILE=\\\"/src/config.h\\\"",
		"#cgo LDFLAGS: /out/interface/lib/s_veneers.o",
		"#include <psa/crypto.h>",
		`import "C"`,
		"func CryptoInit() Status",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("module missing %q", want)
		}
	}
}

func TestGenerateParseFailure(t *testing.T) {
	cc := stubCompiler(t, "#!/bin/sh\necho 'crypto.h:1:1: error: unknown type' >&2\nexit 1\n")
	outPath := filepath.Join(t.TempDir(), "tfm_bindings.go")

	g := New(WithCompiler(cc))
	err := g.Generate(context.Background(), Request{Header: "h.h", OutPath: outPath})

	var genErr *GenError
	if !errors.As(err, &genErr) || genErr.Op != OpParse {
		t.Fatalf("err = %v, want *GenError{OpParse}", err)
	}
	if !strings.Contains(genErr.Error(), "unknown type") {
		t.Errorf("compiler diagnostic not propagated: %v", genErr)
	}
	// No module is written when the parse check fails.
	if _, statErr := os.Stat(outPath); !os.IsNotExist(statErr) {
		t.Error("module written despite parse failure")
	}
}

func TestGenerateWriteFailure(t *testing.T) {
	cc := stubCompiler(t, "#!/bin/sh\nexit 0\n")

	g := New(WithCompiler(cc))
	err := g.Generate(context.Background(), Request{
		Header:  "h.h",
		OutPath: filepath.Join(t.TempDir(), "no", "such", "dir", "out.go"),
	})

	var genErr *GenError
	if !errors.As(err, &genErr) || genErr.Op != OpWrite {
		t.Fatalf("err = %v, want *GenError{OpWrite}", err)
	}
}

func TestGenerateOverwritesPreviousRun(t *testing.T) {
	cc := stubCompiler(t, "#!/bin/sh\nexit 0\n")
	outPath := filepath.Join(t.TempDir(), "tfm_bindings.go")
	if err := os.WriteFile(outPath, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	g := New(WithCompiler(cc))
	if err := g.Generate(context.Background(), Request{Header: "h.h", OutPath: outPath}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	data, _ := os.ReadFile(outPath)
	if strings.Contains(string(data), "stale") {
		t.Error("previous run's module not overwritten")
	}
}

func TestDefineArgsSorted(t *testing.T) {
	args := defineArgs(map[string]string{"B": "2", "A": "1", "C": "3"})
	want := []string{"-DA=1", "-DB=2", "-DC=3"}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("defineArgs = %v, want %v", args, want)
		}
	}
}
