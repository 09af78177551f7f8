package simd

import "math"

// ReLU computes dst[i] = max(0, a[i]).
func ReLU(dst, a []float32) {
	n := min(len(dst), len(a))
	for i := 0; i < n; i++ {
		if a[i] > 0 {
			dst[i] = a[i]
		} else {
			dst[i] = 0
		}
	}
}

// Sigmoid computes dst[i] = 1/(1+e^-a[i]) using the clamped fast-math
// approximation (clamps beyond ±10 per spec.md §4.B).
func Sigmoid(dst, a []float32) {
	n := min(len(dst), len(a))
	for i := 0; i < n; i++ {
		dst[i] = float32(FastSigmoid(float64(a[i])))
	}
}

// Tanh computes dst[i] = tanh(a[i]) using the clamped fast-math
// approximation (clamps beyond ±5).
func Tanh(dst, a []float32) {
	n := min(len(dst), len(a))
	for i := 0; i < n; i++ {
		dst[i] = float32(FastTanh(float64(a[i])))
	}
}

// GELU computes the Gaussian Error Linear Unit activation.
func GELU(dst, a []float32) {
	n := min(len(dst), len(a))
	for i := 0; i < n; i++ {
		dst[i] = float32(FastGELU(float64(a[i])))
	}
}

// Softmax computes a numerically stable softmax over a, writing into dst.
func Softmax(dst, a []float32) {
	n := min(len(dst), len(a))
	if n == 0 {
		return
	}
	maxV := a[0]
	for _, v := range a[:n] {
		if v > maxV {
			maxV = v
		}
	}
	var sum float32
	for i := 0; i < n; i++ {
		e := float32(FastExp(float64(a[i] - maxV)))
		dst[i] = e
		sum += e
	}
	if sum == 0 {
		return
	}
	inv := 1 / sum
	for i := 0; i < n; i++ {
		dst[i] *= inv
	}
}

// LayerNorm normalizes a to zero mean, unit variance, then applies an
// affine gamma/beta, per-row (a single row is passed per call).
func LayerNorm(dst, a, gamma, beta []float32, eps float32) {
	n := min(len(dst), len(a))
	if n == 0 {
		return
	}
	var mean float32
	for _, v := range a[:n] {
		mean += v
	}
	mean /= float32(n)

	var variance float32
	for _, v := range a[:n] {
		d := v - mean
		variance += d * d
	}
	variance /= float32(n)

	invStd := float32(1 / math.Sqrt(float64(variance)+float64(eps)))
	for i := 0; i < n; i++ {
		norm := (a[i] - mean) * invStd
		g, b := float32(1), float32(0)
		if gamma != nil && i < len(gamma) {
			g = gamma[i]
		}
		if beta != nil && i < len(beta) {
			b = beta[i]
		}
		dst[i] = norm*g + b
	}
}

// BatchNorm applies (a[i]-mean[i])/sqrt(var[i]+eps)*gamma[i]+beta[i]
// elementwise, where mean/var/gamma/beta are broadcast per feature index.
func BatchNorm(dst, a, mean, variance, gamma, beta []float32, eps float32) {
	n := min(len(dst), len(a), len(mean), len(variance))
	for i := 0; i < n; i++ {
		invStd := float32(1 / math.Sqrt(float64(variance[i])+float64(eps)))
		norm := (a[i] - mean[i]) * invStd
		g, b := float32(1), float32(0)
		if gamma != nil && i < len(gamma) {
			g = gamma[i]
		}
		if beta != nil && i < len(beta) {
			b = beta[i]
		}
		dst[i] = norm*g + b
	}
}
