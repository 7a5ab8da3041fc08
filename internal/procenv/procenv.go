// Package procenv builds scoped child-process environments.
//
// The pipeline never mutates its own environment: every override is applied
// to an explicit env slice handed to the spawned process, so the isolation
// markers of one step cannot leak into another.
package procenv

import (
	"os"
	"runtime"
	"sort"
	"strings"
)

// Merge overlays override onto base (os.Environ form) and returns a sorted
// env slice suitable for exec.Cmd.Env.
func Merge(base []string, override map[string]string) []string {
	envMap := make(map[string]string, len(base))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			envMap[k] = v
		}
	}
	for k, v := range override {
		envMap[k] = v
	}
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+envMap[k])
	}
	return out
}

// PrependPath returns dir prepended to the current value of a PATH-style
// variable, without modifying the process environment.
func PrependPath(key, dir string) string {
	sep := ":"
	if runtime.GOOS == "windows" {
		sep = ";"
	}
	if cur := os.Getenv(key); cur != "" {
		return dir + sep + cur
	}
	return dir
}
