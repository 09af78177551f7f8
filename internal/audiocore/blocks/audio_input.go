// Package blocks provides the DSP block adapters that implement
// spec.md §4.G's external-algorithm contracts as audiocore.Block
// instances. None call into another block or the scheduler; each wraps
// its own state behind the Block.Payload field.
package blocks

import (
	"github.com/tphakala/voxgraph/internal/audiocore"
	"github.com/tphakala/voxgraph/internal/audiocore/arena"
	"github.com/tphakala/voxgraph/internal/conf"
	"github.com/tphakala/voxgraph/internal/errors"
)

// audioInputPayload holds the owned sample buffer, the read cursor, and
// the arena-backed output buffer Initialize allocates once.
type audioInputPayload struct {
	samples []float32
	cursor  int
	out     []float32
}

// NewAudioInput builds the 0-in/1-out AudioInput block. Initialize
// allocates the output buffer from a at capacity samples (spec.md
// §4.C); Process(n) copies min(n, remaining) samples from samples into
// a view of that buffer, zero-padding the remainder and advancing the
// cursor, per spec.md §4.G.
func NewAudioInput(name string, samples []float32, cfg conf.AudioConfig, a *arena.Arena, capacity int) *audiocore.Block {
	payload := &audioInputPayload{samples: samples}

	outputs := []audiocore.Port{
		audiocore.NewPort("audio_out", audiocore.Output, audiocore.TypeAudio, capacity),
	}

	b := audiocore.NewBlock(name, audiocore.KindAudioInput, nil, outputs, audiocore.Hooks{
		Initialize: func(b *audiocore.Block) error {
			p := b.Payload.(*audioInputPayload)
			buf, err := a.AllocFloat32(capacity)
			if err != nil {
				return err
			}
			p.out = buf
			return nil
		},
		Process: func(b *audiocore.Block, frameCount int) error {
			p := b.Payload.(*audioInputPayload)
			if frameCount > len(p.out) {
				return errors.Newf("audio_input: frame_count %d exceeds arena capacity %d", frameCount, len(p.out)).
					Component(audiocore.ComponentAudioCore).
					Category(errors.CategoryMemory).
					Kind(errors.ResourceExhausted).
					Build()
			}
			out := p.out[:frameCount]

			remaining := len(p.samples) - p.cursor
			if remaining < 0 {
				remaining = 0
			}
			n := frameCount
			if remaining < n {
				n = remaining
			}
			copy(out, p.samples[p.cursor:p.cursor+n])
			for i := n; i < frameCount; i++ {
				out[i] = 0
			}
			p.cursor += n

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
