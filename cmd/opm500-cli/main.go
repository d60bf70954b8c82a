// Opm500-cli is a bench utility for OPM500 optical power meters.
//
// It provides instrument discovery over USB-serial, identity and
// configuration display, calibrated single and repeated measurements,
// and offset calibration commands.
//
// Usage:
//
//	opm500-cli [command] [flags]
//
// Running without a --port flag on an interactive terminal launches an
// instrument picker. See 'opm500-cli --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/artifex-eng/opm500/internal/logging"
	"github.com/artifex-eng/opm500/internal/version"
)

func main() {
	logging.InitializeFromEnv()
	defer logging.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "opm500-cli",
	Short: "OPM500 Optical Power Meter Utility",
	Long: `A bench utility for OPM500 optical power meters.

Provides instrument discovery over USB-serial, identity and
configuration display, calibrated measurements in current, power,
irradiance and dBm units, and offset calibration commands.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("opm500-cli %s\n", version.Full())
	},
}
