// Package simd provides vector-arithmetic and activation kernels for the
// DSP block adapters' hot inner loops. Every operation exposes a single
// "optimal" entry point that dispatches, once at process startup, to the
// widest vector style the detected CPU supports; a scalar fallback always
// exists. No usable third-party vector-math API was confirmed anywhere in
// the retrieval pack (see repository DESIGN.md), so the vectorized paths
// here are hand-written unrolled Go loops keyed by the same
// cpuid-detected ISA class internal/cpuspec already uses for thread-count
// heuristics, rather than calls into an external SIMD library.
package simd

import (
	"log/slog"
	"sync"

	"github.com/tphakala/voxgraph/internal/cpuspec"
	"github.com/tphakala/voxgraph/internal/logging"
)

// ComponentSIMD identifies this package for error/log attribution.
const ComponentSIMD = "simd"

// dispatchTable holds the function values selected once at init time.
type dispatchTable struct {
	isa   cpuspec.VectorISA
	add   func(dst, a, b []float32)
	mul   func(dst, a, b []float32)
	scale func(dst, a []float32, s float32)
	dot   func(a, b []float32) float32
}

var (
	dispatchOnce sync.Once
	dispatch     dispatchTable
)

func ensureDispatch() {
	dispatchOnce.Do(func() {
		isa := cpuspec.DetectVectorISA()
		dispatch.isa = isa

		logger := logging.ForService("audiocore")
		if logger == nil {
			logger = slog.Default()
		}
		logger.With("component", "simd").Info("kernel dispatch selected", "isa", isa.String())

		switch isa {
		case cpuspec.ISAAVX2, cpuspec.ISAAVX, cpuspec.ISANEON:
			dispatch.add = addUnrolled8
			dispatch.mul = mulUnrolled8
			dispatch.scale = scaleUnrolled8
			dispatch.dot = dotUnrolled8
		default:
			dispatch.add = addScalar
			dispatch.mul = mulScalar
			dispatch.scale = scaleScalar
			dispatch.dot = dotScalar
		}
	})
}

// ActiveISA returns the vector ISA class the package dispatched to. It
// forces dispatch selection if this is the first call.
func ActiveISA() cpuspec.VectorISA {
	ensureDispatch()
	return dispatch.isa
}

// Add computes dst[i] = a[i] + b[i] for i in [0, min(len(a), len(b))).
// dst must have at least that length; it may alias a or b.
func Add(dst, a, b []float32) {
	ensureDispatch()
	dispatch.add(dst, a, b)
}

// Mul computes dst[i] = a[i] * b[i], elementwise.
func Mul(dst, a, b []float32) {
	ensureDispatch()
	dispatch.mul(dst, a, b)
}

// Scale computes dst[i] = a[i] * s, elementwise.
func Scale(dst, a []float32, s float32) {
	ensureDispatch()
	dispatch.scale(dst, a, s)
}

// Dot computes the dot product of a and b over their common length.
func Dot(a, b []float32) float32 {
	ensureDispatch()
	return dispatch.dot(a, b)
}

func addScalar(dst, a, b []float32) {
	n := min(len(dst), len(a), len(b))
	for i := 0; i < n; i++ {
		dst[i] = a[i] + b[i]
	}
}

func addUnrolled8(dst, a, b []float32) {
	n := min(len(dst), len(a), len(b))
	i := 0
	for ; i+8 <= n; i += 8 {
		dst[i+0] = a[i+0] + b[i+0]
		dst[i+1] = a[i+1] + b[i+1]
		dst[i+2] = a[i+2] + b[i+2]
		dst[i+3] = a[i+3] + b[i+3]
		dst[i+4] = a[i+4] + b[i+4]
		dst[i+5] = a[i+5] + b[i+5]
		dst[i+6] = a[i+6] + b[i+6]
		dst[i+7] = a[i+7] + b[i+7]
	}
	for ; i < n; i++ {
		dst[i] = a[i] + b[i]
	}
}

func mulScalar(dst, a, b []float32) {
	n := min(len(dst), len(a), len(b))
	for i := 0; i < n; i++ {
		dst[i] = a[i] * b[i]
	}
}

func mulUnrolled8(dst, a, b []float32) {
	n := min(len(dst), len(a), len(b))
	i := 0
	for ; i+8 <= n; i += 8 {
		dst[i+0] = a[i+0] * b[i+0]
		dst[i+1] = a[i+1] * b[i+1]
		dst[i+2] = a[i+2] * b[i+2]
		dst[i+3] = a[i+3] * b[i+3]
		dst[i+4] = a[i+4] * b[i+4]
		dst[i+5] = a[i+5] * b[i+5]
		dst[i+6] = a[i+6] * b[i+6]
		dst[i+7] = a[i+7] * b[i+7]
	}
	for ; i < n; i++ {
		dst[i] = a[i] * b[i]
	}
}

func scaleScalar(dst, a []float32, s float32) {
	n := min(len(dst), len(a))
	for i := 0; i < n; i++ {
		dst[i] = a[i] * s
	}
}

func scaleUnrolled8(dst, a []float32, s float32) {
	n := min(len(dst), len(a))
	i := 0
	for ; i+8 <= n; i += 8 {
		dst[i+0] = a[i+0] * s
		dst[i+1] = a[i+1] * s
		dst[i+2] = a[i+2] * s
		dst[i+3] = a[i+3] * s
		dst[i+4] = a[i+4] * s
		dst[i+5] = a[i+5] * s
		dst[i+6] = a[i+6] * s
		dst[i+7] = a[i+7] * s
	}
	for ; i < n; i++ {
		dst[i] = a[i] * s
	}
}

func dotScalar(a, b []float32) float32 {
	n := min(len(a), len(b))
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func dotUnrolled8(a, b []float32) float32 {
	n := min(len(a), len(b))
	var s0, s1, s2, s3 float32
	i := 0
	for ; i+4 <= n; i += 4 {
		s0 += a[i+0] * b[i+0]
		s1 += a[i+1] * b[i+1]
		s2 += a[i+2] * b[i+2]
		s3 += a[i+3] * b[i+3]
	}
	sum := s0 + s1 + s2 + s3
	for ; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// Gemm computes C := A·B for row-major A (m x k), B (k x n), C (m x n),
// with leading dimension equal to the column count on each matrix.
func Gemm(c []float32, a []float32, b []float32, m, k, n int) {
	ensureDispatch()
	for i := 0; i < m; i++ {
		arow := a[i*k : i*k+k]
		crow := c[i*n : i*n+n]
		for jj := range crow {
			crow[jj] = 0
		}
		for p := 0; p < k; p++ {
			av := arow[p]
			if av == 0 {
				continue
			}
			brow := b[p*n : p*n+n]
			for j := 0; j < n; j++ {
				crow[j] += av * brow[j]
			}
		}
	}
}
