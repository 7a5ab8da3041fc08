package internal

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/psakit/tfmprov/internal/toolchain"
)

var (
	toolchainLatest   bool
	toolchainRegistry string
)

var toolchainCmd = &cobra.Command{
	Use:   "toolchain",
	Short: "Fetch the Arm GNU Embedded toolchain",
	Long: `Toolchain downloads and unpacks the configured cross-compiler release
into the output root. A release that is already present is never
re-fetched; remove the directory to force a fresh download.`,
	RunE: runToolchain,
}

func init() {
	toolchainCmd.Flags().BoolVar(&toolchainLatest, "latest", false, "Fetch the newest registry release instead of the configured one")
	toolchainCmd.Flags().StringVar(&toolchainRegistry, "registry", "", "Path to an alternate release registry")
	rootCmd.AddCommand(toolchainCmd)
}

func runToolchain(cmd *cobra.Command, args []string) error {
	s, err := newSetup()
	if err != nil {
		return err
	}

	release := s.release
	if toolchainRegistry != "" || toolchainLatest {
		registry, err := loadRegistry()
		if err != nil {
			return err
		}
		if toolchainLatest {
			release = registry.Latest()
		} else {
			release, err = registry.Lookup(s.cfg.Toolchain.Version)
			if err != nil {
				return err
			}
		}
	}

	f := toolchain.NewFetcher(toolchain.WithOutput(toolOutput()))
	bundle, err := f.Ensure(background(cmd), s.ws.ToolchainDir(), release)
	if err != nil {
		return err
	}
	s.log.Info().Str("version", release.Version).Str("dir", bundle.Dir).Msg("toolchain ready")
	fmt.Println(bundle.Dir)
	return nil
}

func loadRegistry() (*toolchain.Registry, error) {
	if toolchainRegistry != "" {
		return toolchain.LoadRegistry(toolchainRegistry)
	}
	return toolchain.DefaultRegistry()
}
