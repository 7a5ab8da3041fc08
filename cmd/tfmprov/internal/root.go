package internal

import (
	"io"
	"log"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/psakit/tfmprov/internal/config"
	"github.com/psakit/tfmprov/internal/logging"
	"github.com/psakit/tfmprov/internal/tfm"
	"github.com/psakit/tfmprov/internal/toolchain"
	"github.com/psakit/tfmprov/internal/workspace"
)

var (
	flagConfig  string
	flagOut     string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "tfmprov",
	Short: "tfmprov provisions and builds the TF-M secure firmware",
	Long: `tfmprov prepares a cross-compilation environment for Trusted Firmware-M,
builds the firmware with CMake, generates cgo bindings for its PSA Crypto
interface and exports the link facts the enclosing Go build needs.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Path to tfmprov.toml")
	rootCmd.PersistentFlags().StringVarP(&flagOut, "out", "o", "", "Output root directory")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Stream external tool output")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		log.Fatal(err)
	}
}

// setup is the resolved run context shared by all commands.
type setup struct {
	cfg     config.Config
	ws      *workspace.Workspace
	release toolchain.Release
	profile tfm.Profile
	log     zerolog.Logger
}

// newSetup resolves configuration with flag > file > default precedence.
func newSetup() (*setup, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}

	outDir := cfg.OutDir
	if flagOut != "" {
		outDir = flagOut
	}
	var ws *workspace.Workspace
	if outDir != "" {
		ws, err = workspace.New(outDir)
	} else {
		ws, err = workspace.Default()
	}
	if err != nil {
		return nil, err
	}

	registry, err := toolchain.DefaultRegistry()
	if err != nil {
		return nil, err
	}
	release, err := registry.Lookup(cfg.Toolchain.Version)
	if err != nil {
		return nil, err
	}

	profile, err := tfm.LookupProfile(cfg.Build.Profile)
	if err != nil {
		return nil, err
	}

	return &setup{
		cfg:     cfg,
		ws:      ws,
		release: release,
		profile: profile,
		log:     logging.Init("tfmprov", flagVerbose),
	}, nil
}

// toolOutput is where external tool output goes: the terminal under
// --verbose, nowhere otherwise.
func toolOutput() io.Writer {
	if flagVerbose {
		return os.Stdout
	}
	return io.Discard
}
