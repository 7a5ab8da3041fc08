package internal

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/psakit/tfmprov/internal/pyenv"
	"github.com/psakit/tfmprov/internal/tfm"
)

var venvCmd = &cobra.Command{
	Use:   "venv",
	Short: "Provision the Python build environment",
	Long: `Venv creates the virtual environment the TF-M build scripts run in and
installs the dependency manifest shipped inside the source tree. An
existing environment is left untouched; remove the directory to rebuild
it.`,
	RunE: runVenv,
}

func init() {
	rootCmd.AddCommand(venvCmd)
}

func runVenv(cmd *cobra.Command, args []string) error {
	s, err := newSetup()
	if err != nil {
		return err
	}

	// The manifest lives inside the checkout, so a sync has to come first.
	if _, err := os.Stat(s.ws.SourceDir()); err != nil {
		return fmt.Errorf("source tree %s not present, run sync first", s.ws.SourceDir())
	}

	p := pyenv.NewProvisioner(pyenv.WithOutput(toolOutput()))
	env, err := p.Ensure(background(cmd), s.ws.VenvDir(), tfm.RequirementsPath(s.ws.SourceDir()))
	if err != nil {
		return err
	}
	s.log.Info().Str("dir", env.Dir).Msg("python environment ready")
	return nil
}
