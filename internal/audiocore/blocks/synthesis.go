package blocks

import (
	"math"

	"github.com/tphakala/voxgraph/internal/audiocore"
	"github.com/tphakala/voxgraph/internal/audiocore/arena"
	"github.com/tphakala/voxgraph/internal/audiocore/simd"
	"github.com/tphakala/voxgraph/internal/conf"
	"github.com/tphakala/voxgraph/internal/errors"
)

// synthesisPayload's out buffer is the block's output-port storage;
// scratch is a same-capacity arena buffer the postfilter pass smooths
// into before arena.InPlace.Swap exchanges the two, so the filter never
// reads a sample it has already overwritten.
type synthesisPayload struct {
	cfg           conf.SynthesisConfig
	sampleRate    int
	framePeriodMs float64
	out           []float32
	scratch       []float32
}

// NewSynthesis builds the 1-in/1-out Synthesis block: the merged
// parameter handle in, audio out. Initialize allocates the output and
// postfilter scratch buffers from a at capacity samples (spec.md
// §4.C). Produces approximately frame_count * frame_period_ms/1000 *
// sample_rate samples (spec.md §4.G); enable_postfilter toggles a
// deterministic post-equalizer pass.
func NewSynthesis(name string, cfg conf.SynthesisConfig, sampleRate int, framePeriodMs float64, a *arena.Arena, capacity int) *audiocore.Block {
	payload := &synthesisPayload{cfg: cfg, sampleRate: sampleRate, framePeriodMs: framePeriodMs}

	inputs := []audiocore.Port{
		audiocore.NewPort("parameters_in", audiocore.Input, audiocore.TypeParameters, 0),
	}
	outputs := []audiocore.Port{
		audiocore.NewPort("audio_out", audiocore.Output, audiocore.TypeAudio, capacity),
	}

	b := audiocore.NewBlock(name, audiocore.KindSynthesis, inputs, outputs, audiocore.Hooks{
		Initialize: func(b *audiocore.Block) error {
			p := b.Payload.(*synthesisPayload)
			out, err := a.AllocFloat32(capacity)
			if err != nil {
				return err
			}
			scratch, err := a.AllocFloat32(capacity)
			if err != nil {
				return err
			}
			p.out, p.scratch = out, scratch
			return nil
		},
		Process: func(b *audiocore.Block, frameCount int) error {
			p := b.Payload.(*synthesisPayload)

			paramPort, err := b.InputPort(0)
			if err != nil {
				return err
			}
			params, _ := paramPort.Data().(audiocore.ParameterPort)
			if params.Handle == nil {
				return errors.Newf("synthesis: no parameter handle on input port").
					Component(audiocore.ComponentAudioCore).
					Category(errors.CategoryPipeline).
					Kind(errors.Synthesis).
					Build()
			}

			framePeriod := p.framePeriodMs / 1000
			hop := int(framePeriod * float64(p.sampleRate))
			if hop <= 0 {
				hop = 1
			}
			total := params.Handle.FrameCount * hop
			if total > len(p.out) {
				return errors.Newf("synthesis: output length %d exceeds arena capacity %d", total, len(p.out)).
					Component(audiocore.ComponentAudioCore).
					Category(errors.CategoryMemory).
					Kind(errors.ResourceExhausted).
					Build()
			}

			out := p.out[:total]
			phase := 0.0
			for i, f0 := range params.Handle.F0 {
				start := i * hop
				end := start + hop
				if end > total {
					end = total
				}
				if f0 <= 0 {
					for s := start; s < end; s++ {
						out[s] = 0
					}
					continue
				}
				step := 2 * math.Pi * f0 / float64(p.sampleRate)
				for s := start; s < end; s++ {
					out[s] = float32(simd.FastSin(phase) * 0.5)
					phase += step
				}
			}

			if p.cfg.EnablePostfilter {
				scratch := p.scratch[:total]
				copy(scratch, out)
				applyPostfilter(scratch)
				arena.InPlace{}.Swap(arena.BytesOfFloat32(out), arena.BytesOfFloat32(scratch))
			}

			port, err := b.OutputPort(0)
			if err != nil {
				return err
			}
			return port.SetData(audiocore.AudioPort{Samples: out})
		},
	})
	b.Payload = payload
	return b
}

// applyPostfilter is a deterministic three-tap smoothing pass standing
// in for the real WORLD-style spectral postfilter, which is out of
// scope; it only needs to be a pure, stable function of its input.
func applyPostfilter(samples []float32) {
	if len(samples) < 3 {
		return
	}
	prev := samples[0]
	for i := 1; i < len(samples)-1; i++ {
		cur := samples[i]
		samples[i] = 0.25*prev + 0.5*cur + 0.25*samples[i+1]
		prev = cur
	}
}
