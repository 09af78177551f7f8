package blocks

import (
	"github.com/tphakala/voxgraph/internal/audiocore"
	"github.com/tphakala/voxgraph/internal/audiocore/arena"
	"github.com/tphakala/voxgraph/internal/conf"
)

// CanonicalDiagram wires the seven DSP block adapters into spec.md
// §4.F's canonical analysis->synthesis graph:
//
//	AudioInput --audio--> F0Extraction --f0--> SpectrumAnalysis ---\
//	                              \--f0--> AperiodicityAnalysis ---+--> ParameterMerge --params--> Synthesis --audio--> AudioOutput
//	AudioInput --audio----------------------------------------------/ (also feeds SpectrumAnalysis and AperiodicityAnalysis directly)
//
// It is the concrete audiocore.DiagramFactory the composition root
// (cmd/voxgraph) supplies to audiocore.NewPipeline: this package
// already imports audiocore for Block/Port, so audiocore itself cannot
// import this package back without forming a cycle, and instead
// receives diagrams through this factory function value. a is the
// pipeline's memory arena; every block's Initialize hook allocates its
// output-port buffers from it, sized to this run's actual input length
// so no block ever reallocates mid-run (spec.md §4.C).
func CanonicalDiagram(cfg *conf.PipelineConfig, params audiocore.UtauParams, a *arena.Arena) (*audiocore.Diagram, error) {
	d := audiocore.NewDiagram()

	sampleRate := params.SampleRate
	if sampleRate <= 0 {
		sampleRate = cfg.Audio.SampleRate
	}

	outputDir := ""
	if cfg.Debug.EnableDebugOutput {
		outputDir = cfg.Debug.DebugOutputDir
	}

	hop := audiocore.HopSamples(cfg, sampleRate)
	numSamples := len(params.InputSamples)
	audioCap := sampleCapacity(numSamples, hop)
	frameCap := frameCapacity(numSamples, hop)

	if _, err := d.AddBlock(NewAudioInput("audio_input", params.InputSamples, cfg.Audio, a, audioCap)); err != nil {
		return nil, err
	}
	if _, err := d.AddBlock(NewF0Extraction("f0_extraction", cfg.F0, sampleRate, a, frameCap)); err != nil {
		return nil, err
	}
	if _, err := d.AddBlock(NewSpectrumAnalysis("spectrum_analysis", cfg.Spectrum, a, frameCap)); err != nil {
		return nil, err
	}
	if _, err := d.AddBlock(NewAperiodicityAnalysis("aperiodicity_analysis", cfg.Aperiodicity, cfg.Spectrum.FFTSize, a, frameCap)); err != nil {
		return nil, err
	}
	if _, err := d.AddBlock(NewParameterMerge("parameter_merge", cfg.Spectrum.FFTSize)); err != nil {
		return nil, err
	}
	if _, err := d.AddBlock(NewSynthesis("synthesis", cfg.Synthesis, sampleRate, cfg.F0.FramePeriodMs, a, audioCap)); err != nil {
		return nil, err
	}
	if _, err := d.AddBlock(NewAudioOutput("audio_output", sampleRate, outputDir, a, audioCap)); err != nil {
		return nil, err
	}

	connections := []struct {
		srcName string
		srcPort int
		dstName string
		dstPort int
	}{
		{"audio_input", 0, "f0_extraction", 0},
		{"audio_input", 0, "spectrum_analysis", 0},
		{"audio_input", 0, "aperiodicity_analysis", 0},
		{"f0_extraction", 0, "spectrum_analysis", 1},
		{"f0_extraction", 0, "aperiodicity_analysis", 1},
		{"f0_extraction", 0, "parameter_merge", 0},
		{"spectrum_analysis", 0, "parameter_merge", 1},
		{"aperiodicity_analysis", 0, "parameter_merge", 2},
		{"parameter_merge", 0, "synthesis", 0},
		{"synthesis", 0, "audio_output", 0},
	}
	for _, c := range connections {
		if err := d.Connect(c.srcName, c.srcPort, c.dstName, c.dstPort); err != nil {
			return nil, err
		}
	}

	return d, nil
}
