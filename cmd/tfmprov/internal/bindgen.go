package internal

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/psakit/tfmprov/internal/bindgen"
	"github.com/psakit/tfmprov/internal/tfm"
	"github.com/psakit/tfmprov/internal/toolchain"
)

var bindgenCmd = &cobra.Command{
	Use:   "bindgen",
	Short: "Generate the cgo binding module",
	Long: `Bindgen checks that the installed firmware's PSA Crypto header parses
under the build's exact preprocessor configuration and writes the cgo
binding module into the output root. The module is regenerated on every
run.`,
	RunE: runBindgen,
}

func init() {
	rootCmd.AddCommand(bindgenCmd)
}

func runBindgen(cmd *cobra.Command, args []string) error {
	s, err := newSetup()
	if err != nil {
		return err
	}

	out := tfm.Output{InstallDir: s.ws.InstallDir()}
	if _, err := os.Stat(out.CryptoHeader()); err != nil {
		return fmt.Errorf("header %s not present, run build first", out.CryptoHeader())
	}

	g := bindgen.New(
		bindgen.WithCompiler(toolchain.Bundle{Dir: s.ws.ToolchainDir()}.GCC()),
		bindgen.WithOutput(toolOutput()),
	)
	err = g.Generate(background(cmd), bindgen.Request{
		Header:      out.CryptoHeader(),
		IncludeDirs: []string{out.InterfaceInclude()},
		Defines:     s.profile.PreprocessorDefines(s.ws.SourceDir()),
		LinkArgs:    []string{out.VeneerObject()},
		OutPath:     s.ws.BindingsPath(),
	})
	if err != nil {
		return err
	}
	s.log.Info().Str("path", s.ws.BindingsPath()).Msg("bindings generated")
	return nil
}
