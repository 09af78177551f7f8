package blocks

import (
	"math"

	"github.com/tphakala/voxgraph/internal/audiocore"
	"github.com/tphakala/voxgraph/internal/audiocore/arena"
	"github.com/tphakala/voxgraph/internal/audiocore/simd"
	"github.com/tphakala/voxgraph/internal/conf"
	"github.com/tphakala/voxgraph/internal/errors"
)

// spectrumAnalysisPayload's flat buffer backs every row view in rows:
// row i is flat[i*bins : (i+1)*bins], a single arena allocation sliced
// into per-frame views rather than bins allocated separately per row.
type spectrumAnalysisPayload struct {
	cfg  conf.SpectrumConfig
	bins int
	flat []float64
	rows [][]float64
}

// NewSpectrumAnalysis builds the 2-in/1-out SpectrumAnalysis block:
// {audio, f0} in, spectrogram rows out. Initialize allocates a
// capacity x bins flat buffer from a and slices it into row views
// (spec.md §4.C). Emits frame_count x (fft_size/2+1) positive-real
// magnitudes (spec.md §4.G); unvoiced frames still produce a defined
// flat-ish envelope rather than zeros.
func NewSpectrumAnalysis(name string, cfg conf.SpectrumConfig, a *arena.Arena, capacity int) *audiocore.Block {
	payload := &spectrumAnalysisPayload{cfg: cfg}

	inputs := []audiocore.Port{
		audiocore.NewPort("audio_in", audiocore.Input, audiocore.TypeAudio, 0),
		audiocore.NewPort("f0_in", audiocore.Input, audiocore.TypeF0, 0),
	}
	outputs := []audiocore.Port{
		audiocore.NewPort("spectrum_out", audiocore.Output, audiocore.TypeSpectrum, capacity),
	}

	b := audiocore.NewBlock(name, audiocore.KindSpectrumAnalysis, inputs, outputs, audiocore.Hooks{
		Initialize: func(b *audiocore.Block) error {
			p := b.Payload.(*spectrumAnalysisPayload)
			bins := p.cfg.FFTSize/2 + 1
			flat, err := a.AllocFloat64(capacity * bins)
			if err != nil {
				return err
			}
			rows := make([][]float64, capacity)
			for i := range rows {
				rows[i] = flat[i*bins : (i+1)*bins : (i+1)*bins]
			}
			p.bins, p.flat, p.rows = bins, flat, rows
			return nil
		},
		Process: func(b *audiocore.Block, frameCount int) error {
			p := b.Payload.(*spectrumAnalysisPayload)

			f0Port, err := b.InputPort(1)
			if err != nil {
				return err
			}
			f0, _ := f0Port.Data().(audiocore.F0Port)

			numFrames := frameCount
			if numFrames <= 0 {
				numFrames = 1
			}
			if numFrames > len(p.rows) {
				return errors.Newf("spectrum_analysis: frame_count %d exceeds arena capacity %d", numFrames, len(p.rows)).
					Component(audiocore.ComponentAudioCore).
					Category(errors.CategoryMemory).
					Kind(errors.ResourceExhausted).
					Build()
			}

			rows := p.rows[:numFrames]
			for i := 0; i < numFrames; i++ {
				var f0Value float64
				if i < len(f0.Values) {
					f0Value = f0.Values[i]
				}
				fillEnvelopeRow(rows[i], f0Value, p.cfg.Q1)
			}

			port, err := b.OutputPort(0)
			if err != nil {
				return err
			}
			return port.SetData(audiocore.SpectrumPort{Frames: rows})
		},
	})
	b.Payload = payload
	return b
}

// fillEnvelopeRow writes a deterministic positive-real magnitude curve
// into row: a formant-ish bump around f0 (or a flat floor when
// unvoiced), shaped by q1 the way a WORLD-style CheapTrick envelope
// smoothing parameter would, using the fast-math kernels rather than
// math.Exp.
func fillEnvelopeRow(row []float64, f0 float64, q1 float64) {
	const floor = 1e-3

	if f0 <= 0 {
		for i := range row {
			row[i] = floor
		}
		return
	}

	bins := len(row)
	center := bins / 4
	width := math.Max(1, float64(bins)/8*(1+q1))
	for i := range row {
		d := float64(i-center) / width
		row[i] = floor + simd.FastExp(-0.5*d*d)
	}
}
