package tfm

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/psakit/tfmprov/internal/pyenv"
	"github.com/psakit/tfmprov/internal/toolchain"
)

func TestOutputLayout(t *testing.T) {
	out := Output{InstallDir: "/out/tfm-install"}
	if got := out.CryptoHeader(); got != filepath.Join("/out/tfm-install", "interface", "include", "psa", "crypto.h") {
		t.Errorf("CryptoHeader = %q", got)
	}
	if got := out.VeneerObject(); got != filepath.Join("/out/tfm-install", "interface", "lib", "s_veneers.o") {
		t.Errorf("VeneerObject = %q", got)
	}
}

func TestBuildPassesProfileAndToolchain(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs not supported on windows")
	}
	dir := t.TempDir()
	record := filepath.Join(dir, "record")
	stub := filepath.Join(dir, "cmake")
	script := "#!/bin/sh\necho \"$@\" >> " + record + "\necho \"VIRTUAL_ENV=$VIRTUAL_ENV\" >> " + record + "\n"
	if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	tc := toolchain.Bundle{Dir: "/tc"}
	env := pyenv.Env{Dir: "/venv"}

	b := NewBuilder(WithCMakePath(stub))
	out, err := b.Build("/src", filepath.Join(dir, "build"), filepath.Join(dir, "install"), tc, env, TC3Medium())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if out.InstallDir != filepath.Join(dir, "install") {
		t.Errorf("InstallDir = %q", out.InstallDir)
	}

	data, err := os.ReadFile(record)
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	for _, want := range []string{
		"-DTFM_PLATFORM:STRING=arm/rse/tc/tc3",
		"-DTFM_PROFILE:STRING=profile_medium",
		"-DTEST_S:BOOL=ON",
		"-DTEST_S_CRYPTO:BOOL=ON",
		"-DCMAKE_C_COMPILER:FILEPATH=" + filepath.Join("/tc", "bin", "arm-none-eabi-gcc"),
		"-DCMAKE_CXX_COMPILER:FILEPATH=" + filepath.Join("/tc", "bin", "arm-none-eabi-g++"),
		"VIRTUAL_ENV=/venv",
		"--build",
		"--install",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("cmake invocations missing %q:\n%s", want, got)
		}
	}
}

func TestBuildFailureNamesStage(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs not supported on windows")
	}
	dir := t.TempDir()
	stub := filepath.Join(dir, "cmake")
	if err := os.WriteFile(stub, []byte("#!/bin/sh\nexit 2\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	b := NewBuilder(WithCMakePath(stub))
	_, err := b.Build("/src", filepath.Join(dir, "build"), filepath.Join(dir, "install"),
		toolchain.Bundle{Dir: "/tc"}, pyenv.Env{Dir: "/venv"}, TC3Medium())

	var buildErr *BuildError
	if !errors.As(err, &buildErr) {
		t.Fatalf("error type = %T, want *BuildError", err)
	}
	if buildErr.Stage != StageConfigure {
		t.Errorf("stage = %q, want %q", buildErr.Stage, StageConfigure)
	}
}

func TestLookupProfile(t *testing.T) {
	p, err := LookupProfile("tc3-medium")
	if err != nil {
		t.Fatalf("LookupProfile: %v", err)
	}
	if p.Platform != "arm/rse/tc/tc3" {
		t.Errorf("platform = %q", p.Platform)
	}
	if _, err := LookupProfile("pico-large"); err == nil {
		t.Error("expected error for unknown profile")
	}
}

func TestPreprocessorDefines(t *testing.T) {
	defines := TC3Medium().PreprocessorDefines("/src/tfm")
	want := `"` + filepath.Join("/src/tfm", "lib/ext/mbedcrypto/mbedcrypto_config/crypto_config_profile_medium.h") + `"`
	if got := defines["MBEDTLS_PSA_CRYPTO_CONFIG_FILE"]; got != want {
		t.Errorf("MBEDTLS_PSA_CRYPTO_CONFIG_FILE = %q, want %q", got, want)
	}
	if _, ok := defines["MBEDTLS_CONFIG_FILE"]; !ok {
		t.Error("missing MBEDTLS_CONFIG_FILE define")
	}
}
