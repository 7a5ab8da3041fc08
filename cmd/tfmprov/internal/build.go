package internal

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/psakit/tfmprov/internal/pyenv"
	"github.com/psakit/tfmprov/internal/tfm"
	"github.com/psakit/tfmprov/internal/toolchain"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build and install the TF-M firmware",
	Long: `Build runs the CMake configure, build and install stages against the
synced source tree with the fetched cross toolchain. Incrementality is
the build system's; a repeated invocation reuses the build directory.`,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	s, err := newSetup()
	if err != nil {
		return err
	}

	for _, dir := range []string{s.ws.SourceDir(), s.ws.ToolchainDir(), s.ws.VenvDir()} {
		if _, err := os.Stat(dir); err != nil {
			return fmt.Errorf("%s not present, run the earlier steps first", dir)
		}
	}

	b := tfm.NewBuilder(tfm.WithOutput(toolOutput()))
	out, err := b.Build(
		s.ws.SourceDir(), s.ws.BuildDir(), s.ws.InstallDir(),
		toolchain.Bundle{Dir: s.ws.ToolchainDir()},
		pyenv.Env{Dir: s.ws.VenvDir()},
		s.profile,
	)
	if err != nil {
		return err
	}
	s.log.Info().Str("install", out.InstallDir).Str("profile", s.profile.Name).Msg("firmware built")
	return nil
}
