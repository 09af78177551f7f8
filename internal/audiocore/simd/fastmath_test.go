package simd

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFastExpLogRoundTrip(t *testing.T) {
	for _, x := range []float64{1e-6, 0.001, 0.1, 1, 10, 100, 1000, 1e6} {
		got := FastExp(FastLog(x))
		rel := math.Abs(got-x) / x
		assert.LessOrEqualf(t, rel, 5e-3, "exp(log(%g)) = %g", x, got)
	}
}

func TestFastLogExpRoundTrip(t *testing.T) {
	for x := -20.0; x <= 20.0; x += 2.5 {
		got := FastLog(FastExp(x))
		assert.LessOrEqualf(t, math.Abs(got-x), 5e-3, "log(exp(%g)) = %g", x, got)
	}
}

func TestFastExpSaturatesAtClampBoundary(t *testing.T) {
	atBoundary := FastExp(88)
	beyond := FastExp(1000)
	assert.Equal(t, atBoundary, beyond)
	assert.False(t, math.IsInf(beyond, 1))
}

func TestFastSigmoidClampsBeyondTen(t *testing.T) {
	assert.Equal(t, 1.0, FastSigmoid(50))
	assert.Equal(t, 0.0, FastSigmoid(-50))
}

func TestFastTanhClampsBeyondFive(t *testing.T) {
	assert.Equal(t, 1.0, FastTanh(50))
	assert.Equal(t, -1.0, FastTanh(-50))
}

func TestFastSinMatchesMathSinWithinTolerance(t *testing.T) {
	for x := -10.0; x <= 10.0; x += 0.37 {
		want := math.Sin(x)
		got := FastSin(x)
		assert.InDelta(t, want, got, 1e-2)
	}
}

func TestFastCosIsSinShiftedByHalfPi(t *testing.T) {
	for x := -5.0; x <= 5.0; x += 0.53 {
		assert.InDelta(t, math.Cos(x), FastCos(x), 1e-2)
	}
}

func TestFastInvSqrtAccuracy(t *testing.T) {
	for _, x := range []float32{1, 4, 16, 100, 0.25, 1234.5} {
		want := 1 / math.Sqrt(float64(x))
		got := FastInvSqrt(x)
		rel := math.Abs(float64(got)-want) / want
		assert.LessOrEqual(t, rel, 5e-3)
	}
}

func TestFastSqrtAccuracy(t *testing.T) {
	for _, x := range []float32{1, 4, 16, 100, 0.25, 1234.5} {
		want := math.Sqrt(float64(x))
		got := FastSqrt(x)
		rel := math.Abs(float64(got)-want) / want
		assert.LessOrEqual(t, rel, 5e-3)
	}
}
