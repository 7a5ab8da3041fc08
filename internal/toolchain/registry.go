package toolchain

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// Release describes one downloadable toolchain build.
type Release struct {
	// Version is Arm's release name, e.g. "10.3-2021.10" or "13.2.rel1".
	Version string `yaml:"version"`
	// URL is the archive download location. Immutable per version.
	URL string `yaml:"url"`
	// Archive is the archive file name, used for the temporary download.
	Archive string `yaml:"archive"`
	// Extracted is the top-level directory name inside the archive.
	Extracted string `yaml:"extracted"`
}

// Registry is the set of known toolchain releases.
type Registry struct {
	Releases []Release `yaml:"releases"`
}

//go:embed registry.yaml
var defaultRegistry []byte

// DefaultRegistry returns the registry compiled into the binary.
func DefaultRegistry() (*Registry, error) {
	return parseRegistry(defaultRegistry)
}

// LoadRegistry reads a registry file, for tracking toolchains not yet in
// the built-in list.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseRegistry(data)
}

func parseRegistry(data []byte) (*Registry, error) {
	var r Registry
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse toolchain registry: %w", err)
	}
	if len(r.Releases) == 0 {
		return nil, fmt.Errorf("toolchain registry has no releases")
	}
	for _, rel := range r.Releases {
		if rel.Version == "" || rel.URL == "" || rel.Archive == "" || rel.Extracted == "" {
			return nil, fmt.Errorf("toolchain registry: incomplete release %q", rel.Version)
		}
	}
	return &r, nil
}

// Lookup returns the release with the given version name.
func (r *Registry) Lookup(version string) (Release, error) {
	for _, rel := range r.Releases {
		if rel.Version == version {
			return rel, nil
		}
	}
	return Release{}, fmt.Errorf("toolchain %q not in registry", version)
}

// Latest returns the newest release by version.
func (r *Registry) Latest() Release {
	best := r.Releases[0]
	for _, rel := range r.Releases[1:] {
		if compareVersions(rel.Version, best.Version) > 0 {
			best = rel
		}
	}
	return best
}

// compareVersions orders Arm release names. The numeric prefix carries the
// toolchain major.minor and is compared as semver; the suffix after the
// first separator is a date or rel tag and only breaks ties.
func compareVersions(a, b string) int {
	if c := semver.Compare(canonical(a), canonical(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

func canonical(version string) string {
	prefix := version
	if i := strings.IndexAny(version, "-."); i >= 0 {
		// keep major.minor, drop the release suffix
		rest := version[i+1:]
		if j := strings.IndexAny(rest, "-."); j >= 0 {
			prefix = version[:i+1+j]
		}
	}
	return "v" + prefix
}
