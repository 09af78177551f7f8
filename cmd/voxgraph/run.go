package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/voxgraph/internal/audiocore"
	"github.com/tphakala/voxgraph/internal/audiocore/blocks"
	"github.com/tphakala/voxgraph/internal/conf"
)

// runParams collects the flag-bound UTAU resampler arguments shared by
// the run and stream subcommands (spec.md §6's external parameter
// list).
type runParams struct {
	output            string
	pitch             float64
	velocity          float64
	volume            float64
	modulation        float64
	consonantVelocity float64
	preUtteranceMs    float64
	overlapMs         float64
	startPointMs      float64
	bitDepth          int
	enableCache       bool
	verbose           bool
	chunkSize         int
}

// runCommand builds the one-shot "run" subcommand: analyze input.wav,
// synthesize, write output.wav.
func runCommand(cfgPath *string) *cobra.Command {
	var rp runParams

	cmd := &cobra.Command{
		Use:   "run [input.wav]",
		Short: "Run the pipeline once over a WAV file (one-shot mode)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := conf.Load(*cfgPath)
			if err != nil {
				return err
			}

			samples, sampleRate, err := readWAV(args[0])
			if err != nil {
				return fmt.Errorf("read input wav: %w", err)
			}

			params := audiocore.UtauParams{
				InputWAVPath:      args[0],
				OutputWAVPath:     rp.output,
				TargetPitch:       rp.pitch,
				Velocity:          rp.velocity,
				Volume:            rp.volume,
				Modulation:        rp.modulation,
				ConsonantVelocity: rp.consonantVelocity,
				PreUtteranceMs:    rp.preUtteranceMs,
				OverlapMs:         rp.overlapMs,
				StartPointMs:      rp.startPointMs,
				SampleRate:        sampleRate,
				BitDepth:          rp.bitDepth,
				EnableCache:       rp.enableCache,
				Verbose:           rp.verbose,
				InputSamples:      samples,
				ChunkSize:         rp.chunkSize,
			}

			pipeline, err := audiocore.NewPipeline(cfg, blocks.CanonicalDiagram)
			if err != nil {
				return err
			}
			installSignalCancel(pipeline.Stop)

			result, err := pipeline.Process(params)
			if err != nil {
				return fmt.Errorf("pipeline process: %w", err)
			}

			if err := writeWAV(rp.output, result.Samples, sampleRate); err != nil {
				return fmt.Errorf("write output wav: %w", err)
			}

			fmt.Printf("wrote %d samples to %s\n", len(result.Samples), rp.output)
			return nil
		},
	}

	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	if err := setupRunFlags(cmd, &rp); err != nil {
		fmt.Fprintf(os.Stderr, "error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func setupRunFlags(cmd *cobra.Command, rp *runParams) error {
	cmd.Flags().StringVarP(&rp.output, "output", "o", "out.wav", "Path to the output WAV file")
	cmd.Flags().Float64Var(&rp.pitch, "pitch", 220.0, "Target pitch in Hz")
	cmd.Flags().Float64Var(&rp.velocity, "velocity", 1.0, "Consonant velocity, 0-1")
	cmd.Flags().Float64Var(&rp.volume, "volume", 1.0, "Output volume, 0-1")
	cmd.Flags().Float64Var(&rp.modulation, "modulation", 0.0, "Pitch modulation depth, 0-1")
	cmd.Flags().Float64Var(&rp.consonantVelocity, "consonant-velocity", 100.0, "Consonant velocity")
	cmd.Flags().Float64Var(&rp.preUtteranceMs, "pre-utterance", 0.0, "Pre-utterance offset in ms")
	cmd.Flags().Float64Var(&rp.overlapMs, "overlap", 0.0, "Crossfade overlap in ms")
	cmd.Flags().Float64Var(&rp.startPointMs, "start-point", 0.0, "Start point offset in ms")
	cmd.Flags().IntVar(&rp.bitDepth, "bit-depth", 16, "Output bit depth: 16, 24, or 32")
	cmd.Flags().BoolVar(&rp.enableCache, "enable-cache", false, "Enable the resampler's frequency-map cache")
	cmd.Flags().BoolVarP(&rp.verbose, "verbose", "v", false, "Verbose logging")
	cmd.Flags().IntVar(&rp.chunkSize, "chunk-size", 0, "Streaming chunk size in samples (0 = config default)")

	return viper.BindPFlags(cmd.Flags())
}

// installSignalCancel wires SIGINT/SIGTERM to stop, the same
// graceful-shutdown shape the teacher's subcommands use.
func installSignalCancel(stop func()) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigChan
		fmt.Println("\nreceived interrupt, initiating graceful shutdown...")
		stop()
	}()
}
