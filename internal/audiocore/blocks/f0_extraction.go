package blocks

import (
	"math"

	"github.com/tphakala/voxgraph/internal/audiocore"
	"github.com/tphakala/voxgraph/internal/audiocore/arena"
	"github.com/tphakala/voxgraph/internal/conf"
	"github.com/tphakala/voxgraph/internal/errors"
)

// f0ExtractionPayload holds the frame-period/range config the real
// WORLD-style extractor would consume plus the arena-backed output
// buffers Initialize allocates; this adapter implements only the
// numeric contract (spec.md §8 S1/S2), not the actual pitch-detection
// algorithm, which is out of scope.
type f0ExtractionPayload struct {
	cfg        conf.F0Config
	sampleRate int
	f0         []float64
	timeAxis   []float64
}

// voicingThreshold is the RMS level below which a frame is treated as
// unvoiced, zeroing its F0 per spec.md §4.G.
const voicingThreshold = 1e-4

// NewF0Extraction builds the 1-in/2-out F0Extraction block: audio in,
// {f0, time_axis} out. Initialize allocates both output buffers from a
// at capacity frames (spec.md §4.C).
func NewF0Extraction(name string, cfg conf.F0Config, sampleRate int, a *arena.Arena, capacity int) *audiocore.Block {
	payload := &f0ExtractionPayload{cfg: cfg, sampleRate: sampleRate}

	inputs := []audiocore.Port{
		audiocore.NewPort("audio_in", audiocore.Input, audiocore.TypeAudio, 0),
	}
	outputs := []audiocore.Port{
		audiocore.NewPort("f0_out", audiocore.Output, audiocore.TypeF0, capacity),
		audiocore.NewPort("time_axis_out", audiocore.Output, audiocore.TypeF0, capacity),
	}

	b := audiocore.NewBlock(name, audiocore.KindF0Extraction, inputs, outputs, audiocore.Hooks{
		Initialize: func(b *audiocore.Block) error {
			p := b.Payload.(*f0ExtractionPayload)
			f0, err := a.AllocFloat64(capacity)
			if err != nil {
				return err
			}
			timeAxis, err := a.AllocFloat64(capacity)
			if err != nil {
				return err
			}
			p.f0, p.timeAxis = f0, timeAxis
			return nil
		},
		Process: func(b *audiocore.Block, frameCount int) error {
			p := b.Payload.(*f0ExtractionPayload)

			inPort, err := b.InputPort(0)
			if err != nil {
				return err
			}
			audio, _ := inPort.Data().(audiocore.AudioPort)

			framePeriod := p.cfg.FramePeriodMs / 1000
			hop := int(framePeriod * float64(p.sampleRate))
			if hop <= 0 {
				hop = 1
			}
			numFrames := frameCount
			if numFrames <= 0 {
				numFrames = 1
			}
			if numFrames > len(p.f0) {
				return errors.Newf("f0_extraction: frame_count %d exceeds arena capacity %d", numFrames, len(p.f0)).
					Component(audiocore.ComponentAudioCore).
					Category(errors.CategoryMemory).
					Kind(errors.ResourceExhausted).
					Build()
			}

			f0 := p.f0[:numFrames]
			timeAxis := p.timeAxis[:numFrames]
			for i := 0; i < numFrames; i++ {
				timeAxis[i] = float64(i) * framePeriod

				start := i * hop
				end := start + hop
				if start >= len(audio.Samples) {
					f0[i] = 0
					continue
				}
				if end > len(audio.Samples) {
					end = len(audio.Samples)
				}

				rms := rmsOf(audio.Samples[start:end])
				if rms < voicingThreshold {
					f0[i] = 0
					continue
				}

				zc := zeroCrossingRate(audio.Samples[start:end])
				estimate := zc * float64(p.sampleRate) / 2
				f0[i] = clamp(estimate, p.cfg.F0Floor, p.cfg.F0Ceil)
			}

			f0Out, err := b.OutputPort(0)
			if err != nil {
				return err
			}
			if err := f0Out.SetData(audiocore.F0Port{Values: f0}); err != nil {
				return err
			}
			axisOut, err := b.OutputPort(1)
			if err != nil {
				return err
			}
			return axisOut.SetData(audiocore.F0Port{Values: timeAxis})
		},
	})
	b.Payload = payload
	return b
}

func rmsOf(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// zeroCrossingRate returns the fraction of adjacent-sample sign changes,
// a cheap deterministic proxy for fundamental frequency used only to
// satisfy this block's numeric contract, not a real pitch estimate.
func zeroCrossingRate(samples []float32) float64 {
	if len(samples) < 2 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(samples); i++ {
		if (samples[i-1] >= 0) != (samples[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(samples))
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
