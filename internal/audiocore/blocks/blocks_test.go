package blocks

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tphakala/voxgraph/internal/audiocore"
	"github.com/tphakala/voxgraph/internal/audiocore/arena"
	"github.com/tphakala/voxgraph/internal/conf"
)

// testArena returns an arena generously sized for these small test
// fixtures, destroyed automatically at test end.
func testArena(t *testing.T) *arena.Arena {
	t.Helper()
	a, err := arena.New(64 << 20)
	require.NoError(t, err)
	t.Cleanup(a.Destroy)
	return a
}

func sineWave(freq float64, seconds float64, sampleRate int, amplitude float64) []float32 {
	n := int(seconds * float64(sampleRate))
	out := make([]float32, n)
	for i := range out {
		t := float64(i) / float64(sampleRate)
		out[i] = float32(amplitude * math.Sin(2*math.Pi*freq*t))
	}
	return out
}

func process(t *testing.T, b *audiocore.Block, frameCount int) {
	t.Helper()
	require.NoError(t, b.Initialize())
	require.NoError(t, b.Process(frameCount))
}

// TestAudioInputZeroPadsRemainder covers spec.md §4.G's AudioInput
// contract: process(n) copies min(n, remaining) and zero-pads the rest.
func TestAudioInputZeroPadsRemainder(t *testing.T) {
	cfg := conf.Default().Audio
	b := NewAudioInput("audio_in", []float32{1, 2, 3}, cfg, testArena(t), 8)
	process(t, b, 5)

	port, err := b.OutputPort(0)
	require.NoError(t, err)
	audio := port.Data().(audiocore.AudioPort)
	require.Len(t, audio.Samples, 5)
	require.Equal(t, []float32{1, 2, 3, 0, 0}, audio.Samples)
}

// TestAudioInputRejectsOverCapacity covers the arena-capacity guard:
// a frame_count beyond Initialize's declared capacity must error
// instead of reallocating.
func TestAudioInputRejectsOverCapacity(t *testing.T) {
	cfg := conf.Default().Audio
	b := NewAudioInput("audio_in", []float32{1, 2, 3}, cfg, testArena(t), 4)
	require.NoError(t, b.Initialize())
	require.Error(t, b.Process(5))
}

// TestF0ExtractionSineIsVoiced exercises S1's F0 expectation: a 440 Hz
// sine should produce at least one frame in [390, 490] Hz.
func TestF0ExtractionSineIsVoiced(t *testing.T) {
	sampleRate := 44100
	samples := sineWave(440, 0.5, sampleRate, 0.5)

	f0cfg := conf.Default().F0
	hop := int(f0cfg.FramePeriodMs / 1000 * float64(sampleRate))
	capacity := frameCapacity(len(samples), hop)
	b := NewF0Extraction("f0", f0cfg, sampleRate, testArena(t), capacity)
	require.NoError(t, b.Initialize())

	audioPort, err := b.InputPort(0)
	require.NoError(t, err)
	require.NoError(t, audioPort.SetData(audiocore.AudioPort{Samples: samples}))

	numFrames := len(samples) / hop
	require.NoError(t, b.Process(numFrames))

	out, err := b.OutputPort(0)
	require.NoError(t, err)
	f0 := out.Data().(audiocore.F0Port)

	found := false
	for _, v := range f0.Values {
		if v >= 390 && v <= 490 {
			found = true
			break
		}
	}
	require.True(t, found, "expected at least one F0 frame in [390, 490] Hz, got %v", f0.Values)
}

// TestF0ExtractionSilenceIsUnvoiced covers S2: silence must yield all-zero
// F0.
func TestF0ExtractionSilenceIsUnvoiced(t *testing.T) {
	sampleRate := 44100
	samples := make([]float32, sampleRate) // 1s of zeros

	f0cfg := conf.Default().F0
	hop := int(f0cfg.FramePeriodMs / 1000 * float64(sampleRate))
	capacity := frameCapacity(len(samples), hop)
	b := NewF0Extraction("f0", f0cfg, sampleRate, testArena(t), capacity)
	require.NoError(t, b.Initialize())

	audioPort, err := b.InputPort(0)
	require.NoError(t, err)
	require.NoError(t, audioPort.SetData(audiocore.AudioPort{Samples: samples}))

	numFrames := len(samples) / hop
	require.NoError(t, b.Process(numFrames))

	out, err := b.OutputPort(0)
	require.NoError(t, err)
	f0 := out.Data().(audiocore.F0Port)
	for _, v := range f0.Values {
		require.Equal(t, 0.0, v)
	}
}

// TestSpectrumAnalysisProducesPositiveMagnitudes covers the defined,
// flat-ish envelope required even for unvoiced frames.
func TestSpectrumAnalysisProducesPositiveMagnitudes(t *testing.T) {
	specCfg := conf.Default().Spectrum
	b := NewSpectrumAnalysis("spectrum", specCfg, testArena(t), 2)
	require.NoError(t, b.Initialize())

	f0Port, err := b.InputPort(1)
	require.NoError(t, err)
	require.NoError(t, f0Port.SetData(audiocore.F0Port{Values: []float64{0, 220}}))

	require.NoError(t, b.Process(2))

	out, err := b.OutputPort(0)
	require.NoError(t, err)
	rows := out.Data().(audiocore.SpectrumPort).Frames
	require.Len(t, rows, 2)
	for _, row := range rows {
		for _, mag := range row {
			require.Greater(t, mag, 0.0)
		}
	}
}

// TestAperiodicityWithinUnitRange covers spec.md §4.G's (0,1] contract.
func TestAperiodicityWithinUnitRange(t *testing.T) {
	apCfg := conf.Default().Aperiodicity
	b := NewAperiodicityAnalysis("aperiodicity", apCfg, conf.Default().Spectrum.FFTSize, testArena(t), 2)
	require.NoError(t, b.Initialize())

	f0Port, err := b.InputPort(1)
	require.NoError(t, err)
	require.NoError(t, f0Port.SetData(audiocore.F0Port{Values: []float64{0, 220}}))
	require.NoError(t, b.Process(2))

	out, err := b.OutputPort(0)
	require.NoError(t, err)
	rows := out.Data().(audiocore.AperiodicityPort).Frames
	for _, row := range rows {
		for _, v := range row {
			require.Greater(t, v, 0.0)
			require.LessOrEqual(t, v, 1.0)
		}
	}
}

// TestParameterMergeRejectsFrameCountMismatch covers the consistency
// validation spec.md §4.G requires.
func TestParameterMergeRejectsFrameCountMismatch(t *testing.T) {
	b := NewParameterMerge("merge", 2048)
	require.NoError(t, b.Initialize())

	f0Port, _ := b.InputPort(0)
	specPort, _ := b.InputPort(1)
	apPort, _ := b.InputPort(2)

	require.NoError(t, f0Port.SetData(audiocore.F0Port{Values: []float64{1, 2, 3}}))
	require.NoError(t, specPort.SetData(audiocore.SpectrumPort{Frames: [][]float64{{1}, {2}}}))
	require.NoError(t, apPort.SetData(audiocore.AperiodicityPort{Frames: [][]float64{{1}, {2}, {3}}}))

	err := b.Process(3)
	require.Error(t, err)
}

// TestSynthesisSilenceIsSilent covers S2's synthesis expectation.
func TestSynthesisSilenceIsSilent(t *testing.T) {
	synCfg := conf.Default().Synthesis
	b := NewSynthesis("synthesis", synCfg, 44100, 5.0, testArena(t), 10*220+220)
	require.NoError(t, b.Initialize())

	paramPort, err := b.InputPort(0)
	require.NoError(t, err)
	handle := &audiocore.ParameterSet{
		FrameCount: 10,
		F0:         make([]float64, 10),
	}
	require.NoError(t, paramPort.SetData(audiocore.ParameterPort{Handle: handle}))
	require.NoError(t, b.Process(10))

	out, err := b.OutputPort(0)
	require.NoError(t, err)
	audio := out.Data().(audiocore.AudioPort)
	for _, s := range audio.Samples {
		require.LessOrEqual(t, math.Abs(float64(s)), 1e-4)
	}
}

// TestAudioOutputAccumulatesAcrossProcessCalls covers the
// arena-backed accumulator: repeated Process calls must append rather
// than overwrite, matching streaming delivery in chunks.
func TestAudioOutputAccumulatesAcrossProcessCalls(t *testing.T) {
	b := NewAudioOutput("audio_out", 44100, "", testArena(t), 8)
	require.NoError(t, b.Initialize())

	inPort, err := b.InputPort(0)
	require.NoError(t, err)

	require.NoError(t, inPort.SetData(audiocore.AudioPort{Samples: []float32{1, 2, 3}}))
	require.NoError(t, b.Process(3))
	require.NoError(t, inPort.SetData(audiocore.AudioPort{Samples: []float32{4, 5}}))
	require.NoError(t, b.Process(2))

	provider, ok := b.Payload.(audiocore.SamplesProvider)
	require.True(t, ok)
	require.Equal(t, []float32{1, 2, 3, 4, 5}, provider.Samples())
}
