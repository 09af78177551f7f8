package blocks

import (
	"github.com/tphakala/voxgraph/internal/audiocore"
	"github.com/tphakala/voxgraph/internal/errors"
)

// parameterMergePayload holds a single reusable ParameterSet handle:
// since the handle only references the upstream blocks' own
// arena-backed slices rather than owning bulk storage itself, reusing
// the struct across Process calls avoids a per-call heap allocation
// without needing arena involvement.
type parameterMergePayload struct {
	handle audiocore.ParameterSet
}

// NewParameterMerge builds the 3-in/1-out ParameterMerge block:
// {f0, spectrum, aperiodicity} in, an opaque merged-parameter handle
// out. Validates consistent frame_count across the three streams
// (spec.md §4.G).
func NewParameterMerge(name string, fftSize int) *audiocore.Block {
	payload := &parameterMergePayload{}

	inputs := []audiocore.Port{
		audiocore.NewPort("f0_in", audiocore.Input, audiocore.TypeF0, 0),
		audiocore.NewPort("spectrum_in", audiocore.Input, audiocore.TypeSpectrum, 0),
		audiocore.NewPort("aperiodicity_in", audiocore.Input, audiocore.TypeAperiodicity, 0),
	}
	outputs := []audiocore.Port{
		audiocore.NewPort("parameters_out", audiocore.Output, audiocore.TypeParameters, 0),
	}

	b := audiocore.NewBlock(name, audiocore.KindParameterMerge, inputs, outputs, audiocore.Hooks{
		Process: func(b *audiocore.Block, frameCount int) error {
			p := b.Payload.(*parameterMergePayload)

			f0Port, err := b.InputPort(0)
			if err != nil {
				return err
			}
			specPort, err := b.InputPort(1)
			if err != nil {
				return err
			}
			apPort, err := b.InputPort(2)
			if err != nil {
				return err
			}

			f0, _ := f0Port.Data().(audiocore.F0Port)
			spectrum, _ := specPort.Data().(audiocore.SpectrumPort)
			aperiodicity, _ := apPort.Data().(audiocore.AperiodicityPort)

			if len(f0.Values) != len(spectrum.Frames) || len(f0.Values) != len(aperiodicity.Frames) {
				return errors.Newf(
					"parameter merge frame_count mismatch: f0=%d spectrum=%d aperiodicity=%d",
					len(f0.Values), len(spectrum.Frames), len(aperiodicity.Frames)).
					Component(audiocore.ComponentAudioCore).
					Category(errors.CategoryPipeline).
					Kind(errors.ParameterMismatch).
					Build()
			}

			p.handle.FrameCount = len(f0.Values)
			p.handle.FFTSize = fftSize
			p.handle.F0 = f0.Values
			p.handle.Spectrum = spectrum.Frames
			p.handle.Aperiodicity = aperiodicity.Frames

			port, err := b.OutputPort(0)
			if err != nil {
				return err
			}
			return port.SetData(audiocore.ParameterPort{Handle: &p.handle})
		},
	})
	b.Payload = payload
	return b
}
