package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/voxgraph/internal/audiocore"
	"github.com/tphakala/voxgraph/internal/audiocore/blocks"
	"github.com/tphakala/voxgraph/internal/conf"
)

// serveCommand builds the "serve" subcommand: runs the pipeline once
// over an input WAV and then keeps the debug HTTP server up so
// /diagram.dot and /state can be inspected (spec.md §6 "Graph
// visualization" / "State dump").
func serveCommand(cfgPath *string) *cobra.Command {
	var rp runParams
	var addr string

	cmd := &cobra.Command{
		Use:   "serve [input.wav]",
		Short: "Run the pipeline once and expose its debug HTTP surface",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := conf.Load(*cfgPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Debug.HTTPAddr = addr
			}

			samples, sampleRate, err := readWAV(args[0])
			if err != nil {
				return fmt.Errorf("read input wav: %w", err)
			}

			params := audiocore.UtauParams{
				InputWAVPath: args[0],
				TargetPitch:  rp.pitch,
				Velocity:     rp.velocity,
				Volume:       rp.volume,
				Modulation:   rp.modulation,
				SampleRate:   sampleRate,
				BitDepth:     rp.bitDepth,
				InputSamples: samples,
			}

			pipeline, err := audiocore.NewPipeline(cfg, blocks.CanonicalDiagram)
			if err != nil {
				return err
			}
			installSignalCancel(pipeline.Stop)

			if _, err := pipeline.Process(params); err != nil {
				return fmt.Errorf("pipeline process: %w", err)
			}

			httpAddr := cfg.Debug.HTTPAddr
			if httpAddr == "" {
				httpAddr = ":8089"
			}

			server := audiocore.NewDebugServer(pipeline)
			routes := "/diagram.dot, /state"
			if cfg.Performance.PrometheusEnabled {
				registerMetricsRoute(server, pipeline)
				routes += ", /metrics"
			}
			fmt.Printf("debug server listening on %s (%s)\n", httpAddr, routes)
			return server.Start(httpAddr)
		},
	}

	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	cmd.Flags().Float64Var(&rp.pitch, "pitch", 220.0, "Target pitch in Hz")
	cmd.Flags().Float64Var(&rp.velocity, "velocity", 1.0, "Consonant velocity, 0-1")
	cmd.Flags().Float64Var(&rp.volume, "volume", 1.0, "Output volume, 0-1")
	cmd.Flags().Float64Var(&rp.modulation, "modulation", 0.0, "Pitch modulation depth, 0-1")
	cmd.Flags().StringVar(&addr, "http-addr", "", "Debug HTTP server address (overrides config)")

	return cmd
}
