// Package config loads the optional tfmprov.toml configuration file.
//
// Everything has a working default; the file only exists to override the
// output root or to track a fork of TF-M. Command-line flags win over the
// file, the file wins over defaults.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Defaults mirror the upstream TF-M build this tool was written for.
const (
	DefaultRemote           = "https://git.trustedfirmware.org/TF-M/trusted-firmware-m.git"
	DefaultRef              = "main"
	DefaultToolchainVersion = "10.3-2021.10"
	DefaultProfileName      = "tc3-medium"
)

// Config is the file-level configuration.
type Config struct {
	// OutDir is the run output root. Empty means the user cache directory.
	OutDir string `toml:"out_dir"`

	Source    Source    `toml:"source"`
	Toolchain Toolchain `toml:"toolchain"`
	Build     Build     `toml:"build"`
}

// Source selects the firmware source tree to sync.
type Source struct {
	Remote string `toml:"remote"`
	Ref    string `toml:"ref"`
}

// Toolchain selects the cross-compiler release from the registry.
type Toolchain struct {
	Version string `toml:"version"`
}

// Build selects the TF-M build profile.
type Build struct {
	Profile string `toml:"profile"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Source:    Source{Remote: DefaultRemote, Ref: DefaultRef},
		Toolchain: Toolchain{Version: DefaultToolchainVersion},
		Build:     Build{Profile: DefaultProfileName},
	}
}

// Load reads path over the defaults. A missing file is not an error when
// path is empty; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		const fallback = "tfmprov.toml"
		if _, err := os.Stat(fallback); err != nil {
			return cfg, nil
		}
		path = fallback
	}
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("decode %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Source.Remote == "" {
		return fmt.Errorf("source.remote must not be empty")
	}
	if c.Source.Ref == "" {
		return fmt.Errorf("source.ref must not be empty")
	}
	if c.Toolchain.Version == "" {
		return fmt.Errorf("toolchain.version must not be empty")
	}
	return nil
}
