package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/voxgraph/internal/audiocore"
	"github.com/tphakala/voxgraph/internal/audiocore/blocks"
	"github.com/tphakala/voxgraph/internal/conf"
)

// streamCommand builds the "stream" subcommand: exercises
// ProcessStreaming over an input WAV file, printing each delivered
// chunk's size and writing the accumulated result once streaming
// completes (spec.md §4.F mode 3).
func streamCommand(cfgPath *string) *cobra.Command {
	var rp runParams
	var addr string

	cmd := &cobra.Command{
		Use:   "stream [input.wav]",
		Short: "Run the pipeline in streaming mode over a WAV file",
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
				ChunkSize:    rp.chunkSize,
			}

			pipeline, err := audiocore.NewPipeline(cfg, blocks.CanonicalDiagram)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			installSignalCancel(pipeline.Stop)

			recent, err := newRecentAudioBuffer(10*time.Second, sampleRate)
			if err != nil {
				return fmt.Errorf("recent audio buffer: %w", err)
			}

			var out []float32
			err = pipeline.ProcessStreaming(ctx, params, func(chunk []float32, n int) bool {
				out = append(out, chunk...)
				if werr := recent.write(chunk); werr != nil {
					fmt.Fprintf(os.Stderr, "recent audio buffer: %v\n", werr)
				}
				fmt.Printf("chunk: %d samples (total %d)\n", n, len(out))
				return true
			})
			if err != nil {
				return fmt.Errorf("pipeline stream: %w", err)
			}

			if err := writeWAV(rp.output, out, sampleRate); err != nil {
				return fmt.Errorf("write output wav: %w", err)
			}
			fmt.Printf("wrote %d samples to %s\n", len(out), rp.output)

			if cfg.Debug.HTTPAddr == "" {
				return nil
			}
			server := audiocore.NewDebugServer(pipeline)
			recent.registerRoute(server)
			routes := "/diagram.dot, /state, /recent-audio"
			if cfg.Performance.PrometheusEnabled {
				registerMetricsRoute(server, pipeline)
				routes += ", /metrics"
			}
			fmt.Printf("debug server listening on %s (%s)\n", cfg.Debug.HTTPAddr, routes)
			return server.Start(cfg.Debug.HTTPAddr)
		},
	}

	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.Flags().StringVar(&addr, "http-addr", "", "Serve /recent-audio and debug routes at this address after streaming completes")

	if err := setupRunFlags(cmd, &rp); err != nil {
		fmt.Fprintf(os.Stderr, "error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}
