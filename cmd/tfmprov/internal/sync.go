package internal

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/psakit/tfmprov/internal/vcs"
)

var syncCheck bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync the TF-M source tree",
	Long: `Sync clones the TF-M repository into the output root, or updates an
existing checkout in place. A checkout that fails to update is discarded
and cloned fresh.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncCheck, "check", false, "Print the remote HEAD commit without syncing")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	s, err := newSetup()
	if err != nil {
		return err
	}
	g := vcs.NewGitVCS(vcs.WithOutput(toolOutput()))
	ctx := background(cmd)

	if syncCheck {
		hash, err := g.Latest(ctx, s.cfg.Source.Remote)
		if err != nil {
			return err
		}
		fmt.Println(hash)
		return nil
	}

	if err := g.Sync(ctx, s.cfg.Source.Remote, s.cfg.Source.Ref, s.ws.SourceDir()); err != nil {
		return err
	}
	s.log.Info().Str("dir", s.ws.SourceDir()).Str("ref", s.cfg.Source.Ref).Msg("source tree synced")
	return nil
}
