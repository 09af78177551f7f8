package arena

import "unsafe"

// typedAlignment is the alignment requested for every typed allocation
// below: comfortably satisfies float32/float64's natural alignment and
// matches the widest SIMD vector register internal/audiocore/simd
// dispatches to (spec.md §3 "Arena ... alignment >= 32 bytes").
const typedAlignment = 32

// AllocFloat32 returns a float32 slice of length n backed by a single
// arena allocation, the typed counterpart to Alloc for blocks that own
// float32 port buffers (spec.md §4.C "initialize allocates output-port
// buffers from the arena").
func (a *Arena) AllocFloat32(n int) ([]float32, error) {
	if n <= 0 {
		n = 1
	}
	buf, err := a.Alloc(n*4, typedAlignment)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&buf[0])), n), nil
}

// AllocFloat64 returns a float64 slice of length n backed by a single
// arena allocation.
func (a *Arena) AllocFloat64(n int) ([]float64, error) {
	if n <= 0 {
		n = 1
	}
	buf, err := a.Alloc(n*8, typedAlignment)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*float64)(unsafe.Pointer(&buf[0])), n), nil
}

// BytesOfFloat32 reinterprets an arena-backed float32 slice as its
// backing bytes, letting InPlace.Memcpy/Swap operate on buffers
// AllocFloat32 returned without the caller reaching for unsafe itself.
func BytesOfFloat32(s []float32) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
}
