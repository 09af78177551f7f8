package audiocore

import "time"

// AudioFormat describes the shape of a raw PCM buffer, matching the
// wire format produced by AudioInput blocks and consumed by the capture
// and export subpackages.
type AudioFormat struct {
	SampleRate int    // Sample rate in Hz (e.g. 44100)
	Channels   int    // Number of channels (1 for mono, 2 for stereo)
	BitDepth   int    // Bits per sample (e.g. 16, 32)
	Encoding   string // Encoding (e.g. "pcm_s16le", "pcm_f32le")
}

// AudioData is a timestamped chunk of raw audio plus its format, the
// unit export.WAVExporter operates on.
type AudioData struct {
	Buffer    []byte
	Format    AudioFormat
	Timestamp time.Time
	Duration  time.Duration
	SourceID  string
}

// BufferPool is implemented by a reusable byte-slice allocator that the
// capture package's CircularBuffer can draw its backing storage from
// instead of a bare make([]byte, n), mirroring the arena package's
// size-class free list (internal/audiocore/arena) without forcing
// capture to import arena directly (capture is usable standalone, ahead
// of any pipeline/arena lifecycle). A nil BufferPool is valid: callers
// that don't need reuse (tests, one-shot captures) pass nil and
// CircularBuffer falls back to a plain allocation.
type BufferPool interface {
	// Get returns a byte slice with length >= size, either freshly
	// allocated or recycled from the pool.
	Get(size int) []byte
	// Put returns buf to the pool for future reuse. Implementations may
	// ignore buffers below their minimum size class.
	Put(buf []byte)
}

// SamplesProvider is implemented by a block's private payload when it
// accumulates readable PCM output (the AudioOutput adapter's role). The
// pipeline orchestrator type-asserts a terminal block's Payload against
// this interface to retrieve the synthesized signal, rather than
// importing the concrete adapter package -- which already imports
// audiocore and would make the reverse import a cycle.
type SamplesProvider interface {
	Samples() []float32
}
