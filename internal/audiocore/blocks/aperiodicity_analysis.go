package blocks

import (
	"github.com/tphakala/voxgraph/internal/audiocore"
	"github.com/tphakala/voxgraph/internal/audiocore/arena"
	"github.com/tphakala/voxgraph/internal/conf"
	"github.com/tphakala/voxgraph/internal/errors"
)

// aperiodicityAnalysisPayload's flat buffer backs every row view in
// rows, the same single-allocation-sliced-into-views layout
// spectrumAnalysisPayload uses.
type aperiodicityAnalysisPayload struct {
	cfg  conf.AperiodicityConfig
	fft  int
	bins int
	flat []float64
	rows [][]float64
}

// NewAperiodicityAnalysis builds the 2-in/1-out AperiodicityAnalysis
// block: {audio, f0} in, aperiodicity rows out. Initialize allocates a
// capacity x bins flat buffer from a and slices it into row views
// (spec.md §4.C). Values lie in (0, 1]; voiced frames stay near the
// configured threshold's lower side, and unvoiced frames saturate near
// 1 (spec.md §4.G).
func NewAperiodicityAnalysis(name string, cfg conf.AperiodicityConfig, fftSize int, a *arena.Arena, capacity int) *audiocore.Block {
	payload := &aperiodicityAnalysisPayload{cfg: cfg, fft: fftSize}

	inputs := []audiocore.Port{
		audiocore.NewPort("audio_in", audiocore.Input, audiocore.TypeAudio, 0),
		audiocore.NewPort("f0_in", audiocore.Input, audiocore.TypeF0, 0),
	}
	outputs := []audiocore.Port{
		audiocore.NewPort("aperiodicity_out", audiocore.Output, audiocore.TypeAperiodicity, capacity),
	}

	b := audiocore.NewBlock(name, audiocore.KindAperiodicityAnalysis, inputs, outputs, audiocore.Hooks{
		Initialize: func(b *audiocore.Block) error {
			p := b.Payload.(*aperiodicityAnalysisPayload)
			bins := p.fft/2 + 1
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
			p := b.Payload.(*aperiodicityAnalysisPayload)

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
				return errors.Newf("aperiodicity_analysis: frame_count %d exceeds arena capacity %d", numFrames, len(p.rows)).
					Component(audiocore.ComponentAudioCore).
					Category(errors.CategoryMemory).
					Kind(errors.ResourceExhausted).
					Build()
			}

			rows := p.rows[:numFrames]
			for i := 0; i < numFrames; i++ {
				var voiced bool
				if i < len(f0.Values) {
					voiced = f0.Values[i] > 0
				}
				fillAperiodicityRow(rows[i], voiced, p.cfg.Threshold)
			}

			port, err := b.OutputPort(0)
			if err != nil {
				return err
			}
			return port.SetData(audiocore.AperiodicityPort{Frames: rows})
		},
	})
	b.Payload = payload
	return b
}

func fillAperiodicityRow(row []float64, voiced bool, threshold float64) {
	value := 0.9
	if voiced {
		value = threshold * 0.2
		if value <= 0 {
			value = 0.01
		}
	}
	for i := range row {
		row[i] = value
	}
}
