package arena

import "unsafe"

// InPlace exposes memcpy/swap primitives that are guaranteed to respect
// buffer overlap, for blocks that transform a buffer into itself or need
// to exchange two buffers without an intermediate allocation.
type InPlace struct{}

// Memcpy copies min(len(dst), len(src)) bytes from src to dst. Go's
// built-in copy() already tolerates overlapping src/dst, so this is a
// direct passthrough kept as a named primitive for call-site clarity in
// DSP block adapters (spec.md §3 "Arena ... memcpy/swap primitives
// guaranteed to respect overlap").
func (InPlace) Memcpy(dst, src []byte) int {
	return copy(dst, src)
}

// Swap exchanges the first min(len(a), len(b)) bytes of a and b in place.
// If the two slices overlap (share any backing bytes) it swaps byte by
// byte; the shared bytes are then written twice, so the result is not an
// exchange of the original contents, only a pass that never reads or
// writes outside the two slices. Disjoint slices are swapped in
// 4096-byte chunks through a stack buffer, avoiding a full-size
// temporary allocation.
func (InPlace) Swap(a, b []byte) {
	n := min(len(a), len(b))
	if n == 0 {
		return
	}

	if overlaps(a, b) {
		for i := range n {
			a[i], b[i] = b[i], a[i]
		}
		return
	}

	const chunk = 4096
	var tmp [chunk]byte
	for i := 0; i < n; i += chunk {
		end := min(i+chunk, n)
		width := end - i
		copy(tmp[:width], a[i:end])
		copy(a[i:end], b[i:end])
		copy(b[i:end], tmp[:width])
	}
}

func overlaps(a, b []byte) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	aStart, aEnd := sliceBounds(a)
	bStart, bEnd := sliceBounds(b)
	return aStart < bEnd && bStart < aEnd
}

func sliceBounds(s []byte) (start, end uintptr) {
	start = uintptr(unsafe.Pointer(&s[0]))
	return start, start + uintptr(len(s))
}
