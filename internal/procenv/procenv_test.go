package procenv

import (
	"os"
	"runtime"
	"slices"
	"testing"
)

func TestMergeOverride(t *testing.T) {
	base := []string{"A=1", "B=2"}
	got := Merge(base, map[string]string{"B": "3", "C": "4"})
	want := []string{"A=1", "B=3", "C=4"}
	if !slices.Equal(got, want) {
		t.Errorf("Merge = %v, want %v", got, want)
	}
}

func TestMergeDoesNotTouchProcessEnv(t *testing.T) {
	t.Setenv("TFMPROV_MERGE_PROBE", "before")
	Merge(os.Environ(), map[string]string{"TFMPROV_MERGE_PROBE": "after"})
	if got := os.Getenv("TFMPROV_MERGE_PROBE"); got != "before" {
		t.Errorf("process env mutated: %q", got)
	}
}

func TestPrependPath(t *testing.T) {
	t.Setenv("TFMPROV_PATH_PROBE", "/existing")
	sep := ":"
	if runtime.GOOS == "windows" {
		sep = ";"
	}
	if got := PrependPath("TFMPROV_PATH_PROBE", "/new"); got != "/new"+sep+"/existing" {
		t.Errorf("PrependPath = %q", got)
	}
	if got := os.Getenv("TFMPROV_PATH_PROBE"); got != "/existing" {
		t.Errorf("process env mutated: %q", got)
	}
}

func TestPrependPathEmpty(t *testing.T) {
	t.Setenv("TFMPROV_PATH_PROBE", "")
	if got := PrependPath("TFMPROV_PATH_PROBE", "/only"); got != "/only" {
		t.Errorf("PrependPath = %q", got)
	}
}
