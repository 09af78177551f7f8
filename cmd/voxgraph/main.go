// Command voxgraph is the CLI front-end for the voxgraph pipeline: it
// loads a configuration file, reads a UTAU-style parameter set and an
// input WAV, runs the analysis->synthesis diagram, and writes the
// result back out as WAV.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// rootCommand assembles the voxgraph CLI the way the teacher assembles
// its own: one cobra.Command per mode, flags bound through viper, a
// PersistentPreRunE that brings up the ambient logger once per
// invocation.
func rootCommand() *cobra.Command {
	cfgPath := ""

	root := &cobra.Command{
		Use:   "voxgraph",
		Short: "Realtime voice analysis/resynthesis pipeline",
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "Path to the pipeline configuration file")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		initLogging()
		return nil
	}

	root.AddCommand(
		runCommand(&cfgPath),
		streamCommand(&cfgPath),
		serveCommand(&cfgPath),
	)

	root.SilenceUsage = true
	root.SilenceErrors = true

	return root
}
