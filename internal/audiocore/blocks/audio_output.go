package blocks

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/tphakala/voxgraph/internal/audiocore"
	"github.com/tphakala/voxgraph/internal/audiocore/arena"
	"github.com/tphakala/voxgraph/internal/audiocore/export"
	"github.com/tphakala/voxgraph/internal/errors"
)

// audioOutputPayload accumulates every frame written across Process
// calls into a single arena-backed buffer, so one-shot and streaming
// runs both end with the full signal in buf[:n], the slice the caller
// reads back and the optional WAV sink writes from.
type audioOutputPayload struct {
	buf        []float32
	n          int
	sampleRate int
	outputDir  string
	exporter   *export.WAVExporter
}

// Samples returns every sample accumulated across this block's Process
// calls so far. It satisfies audiocore.SamplesProvider, letting the
// pipeline orchestrator retrieve the synthesized signal without
// importing this package (which would form an import cycle, since this
// package already imports audiocore for Block/Port).
func (p *audioOutputPayload) Samples() []float32 { return p.buf[:p.n] }

// NewAudioOutput builds the 1-in/0-out AudioOutput block. Initialize
// allocates the accumulator buffer from a at capacity samples (spec.md
// §4.C); Process copies the input port's samples into it. If outputDir
// is non-empty, Cleanup writes the accumulated buffer to a 16-bit PCM
// WAV file under it via export.WAVExporter (spec.md §4.G, §6).
func NewAudioOutput(name string, sampleRate int, outputDir string, a *arena.Arena, capacity int) *audiocore.Block {
	payload := &audioOutputPayload{
		sampleRate: sampleRate,
		outputDir:  outputDir,
		exporter:   export.NewWAVExporter(),
	}

	inputs := []audiocore.Port{
		audiocore.NewPort("audio_in", audiocore.Input, audiocore.TypeAudio, 0),
	}

	b := audiocore.NewBlock(name, audiocore.KindAudioOutput, inputs, nil, audiocore.Hooks{
		Initialize: func(b *audiocore.Block) error {
			p := b.Payload.(*audioOutputPayload)
			buf, err := a.AllocFloat32(capacity)
			if err != nil {
				return err
			}
			p.buf = buf
			return nil
		},
		Process: func(b *audiocore.Block, frameCount int) error {
			p := b.Payload.(*audioOutputPayload)

			inPort, err := b.InputPort(0)
			if err != nil {
				return err
			}
			audio, _ := inPort.Data().(audiocore.AudioPort)

			n := len(audio.Samples)
			if p.n+n > len(p.buf) {
				return errors.Newf("audio_output: accumulated output %d exceeds arena capacity %d", p.n+n, len(p.buf)).
					Component(audiocore.ComponentAudioCore).
					Category(errors.CategoryMemory).
					Kind(errors.ResourceExhausted).
					Build()
			}

			dst := arena.BytesOfFloat32(p.buf[p.n : p.n+n])
			src := arena.BytesOfFloat32(audio.Samples)
			arena.InPlace{}.Memcpy(dst, src)
			p.n += n
			return nil
		},
		Cleanup: func(b *audiocore.Block) {
			p := b.Payload.(*audioOutputPayload)
			if p.outputDir == "" || p.n == 0 {
				return
			}
			_, _ = writeWAV(p.exporter, p.buf[:p.n], p.sampleRate, p.outputDir)
		},
	})
	b.Payload = payload
	return b
}

// writeWAV converts float32 samples in [-1,1] to 16-bit signed PCM and
// exports them via export.WAVExporter into dir.
func writeWAV(exporter *export.WAVExporter, samples []float32, sampleRate int, dir string) (string, error) {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := s
		if v > 1 {
			v = 1
		}
		if v < -1 {
			v = -1
		}
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(v*32767)))
	}

	audioData := &audiocore.AudioData{
		Buffer: buf,
		Format: audiocore.AudioFormat{
			SampleRate: sampleRate,
			Channels:   1,
			BitDepth:   16,
			Encoding:   "pcm_s16le",
		},
		Timestamp: time.Now(),
		Duration:  time.Duration(len(samples)) * time.Second / time.Duration(sampleRate),
		SourceID:  "voxgraph",
	}

	cfg := &export.Config{
		OutputPath:       dir,
		FileNameTemplate: "{source}",
		Timeout:          30 * time.Second,
	}

	return exporter.ExportToFile(context.Background(), audioData, cfg)
}
