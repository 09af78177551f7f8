package simd

import "math"

// HammingWindow returns the N-point symmetric Hamming window
// w[n] = 0.54 - 0.46*cos(2*pi*n/(N-1)).
func HammingWindow(n int) []float64 {
	return generateWindow(n, func(x float64) float64 {
		return 0.54 - 0.46*math.Cos(2*math.Pi*x)
	})
}

// HannWindow returns the N-point symmetric Hann window
// w[n] = 0.5*(1 - cos(2*pi*n/(N-1))).
func HannWindow(n int) []float64 {
	return generateWindow(n, func(x float64) float64 {
		return 0.5 * (1 - math.Cos(2*math.Pi*x))
	})
}

// BlackmanWindow returns the N-point symmetric Blackman window
// w[n] = 0.42 - 0.5*cos(2*pi*n/(N-1)) + 0.08*cos(4*pi*n/(N-1)).
func BlackmanWindow(n int) []float64 {
	return generateWindow(n, func(x float64) float64 {
		return 0.42 - 0.5*math.Cos(2*math.Pi*x) + 0.08*math.Cos(4*math.Pi*x)
	})
}

func generateWindow(n int, fn func(x float64) float64) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := 0; i < n; i++ {
		w[i] = fn(float64(i) / float64(n-1))
	}
	return w
}
