package simd

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sumOfSquares(w []float64) float64 {
	var sum float64
	for _, v := range w {
		sum += v * v
	}
	return sum
}

func assertSymmetric(t *testing.T, w []float64) {
	t.Helper()
	for i, j := 0, len(w)-1; i < j; i, j = i+1, j-1 {
		assert.InDelta(t, w[i], w[j], 1e-9)
	}
}

func TestWindowsAreSymmetric(t *testing.T) {
	for _, n := range []int{256, 512, 1024, 2048, 4096} {
		assertSymmetric(t, HammingWindow(n))
		assertSymmetric(t, HannWindow(n))
		assertSymmetric(t, BlackmanWindow(n))
	}
}

func TestWindowSumOfSquaresNearAnalyticNorm(t *testing.T) {
	// Analytic mean-square norms for N -> infinity: Hamming ~0.3974*N,
	// Hann ~0.375*N, Blackman ~0.3046*N.
	cases := []struct {
		name string
		gen  func(int) []float64
		norm float64
	}{
		{"hamming", HammingWindow, 0.3974},
		{"hann", HannWindow, 0.375},
		{"blackman", BlackmanWindow, 0.3046},
	}
	for _, c := range cases {
		for _, n := range []int{256, 512, 1024, 2048, 4096} {
			w := c.gen(n)
			got := sumOfSquares(w)
			want := c.norm * float64(n)
			assert.InEpsilonf(t, want, got, 0.05, "%s window N=%d", c.name, n)
		}
	}
}

func TestMelHzRoundTrip(t *testing.T) {
	sampleRate := 44100.0
	for hz := 0.0; hz <= sampleRate/2; hz += 137.0 {
		mel := HzToMel(hz)
		back := MelToHz(mel)
		assert.InDelta(t, hz, back, 1.0)
	}
}

func TestMelToHzZeroIsZero(t *testing.T) {
	assert.InDelta(t, 0, MelToHz(0), 1e-9)
}

func TestHzToMelMonotonicallyIncreasing(t *testing.T) {
	prev := -math.MaxFloat64
	for hz := 0.0; hz <= 20000; hz += 500 {
		mel := HzToMel(hz)
		assert.Greater(t, mel, prev)
		prev = mel
	}
}
