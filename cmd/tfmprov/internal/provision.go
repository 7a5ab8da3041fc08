package internal

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/psakit/tfmprov/internal/bindgen"
	"github.com/psakit/tfmprov/internal/pipeline"
	"github.com/psakit/tfmprov/internal/pyenv"
	"github.com/psakit/tfmprov/internal/tfm"
	"github.com/psakit/tfmprov/internal/toolchain"
	"github.com/psakit/tfmprov/internal/ui"
	"github.com/psakit/tfmprov/internal/vcs"
)

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Run the full provisioning pipeline",
	Long: `Provision syncs the TF-M source tree, fetches the Arm GNU Embedded
toolchain, prepares the Python environment, builds the firmware, generates
the cgo binding module and prints the exported link facts.

Every step skips work that a previous run already completed.`,
	RunE: runProvision,
}

func init() {
	rootCmd.AddCommand(provisionCmd)
}

func runProvision(cmd *cobra.Command, args []string) error {
	s, err := newSetup()
	if err != nil {
		return err
	}

	out := toolOutput()
	reporter := ui.NewSpinner()
	if flagVerbose {
		reporter = ui.NewNop()
	}

	p := pipeline.New(pipeline.Options{
		Workspace:   s.ws,
		Remote:      s.cfg.Source.Remote,
		Ref:         s.cfg.Source.Ref,
		Release:     s.release,
		Profile:     s.profile,
		VCS:         vcs.NewGitVCS(vcs.WithOutput(out)),
		Fetcher:     toolchain.NewFetcher(toolchain.WithOutput(out)),
		Provisioner: pyenv.NewProvisioner(pyenv.WithOutput(out)),
		Builder:     tfm.NewBuilder(tfm.WithOutput(out)),
		Generator:   bindgen.New(bindgen.WithCompiler(toolchain.Bundle{Dir: s.ws.ToolchainDir()}.GCC()), bindgen.WithOutput(out)),
		Logger:      s.log,
		Reporter:    reporter,
	})

	plan, err := p.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("provision failed: %w", err)
	}

	// The enclosing build consumes these lines; they also live in the
	// facts file under the output root.
	if err := plan.WriteEnv(os.Stdout); err != nil {
		return err
	}
	return nil
}

// background returns the context commands run under. Kept separate so the
// per-step commands read uniformly.
func background(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
