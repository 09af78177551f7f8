// Package arena provides a bump-then-free-list allocator backing every
// graph/port buffer in the dataflow runtime. It never moves a live
// allocation and is reclaimed only in bulk, via Reset, between pipeline
// executions.
package arena

import (
	"log/slog"
	"sync"
	"unsafe"

	"github.com/tphakala/voxgraph/internal/errors"
	"github.com/tphakala/voxgraph/internal/logging"
)

// ComponentArena identifies this package to the errors package's
// auto-detection and to log attribution.
const ComponentArena = "arena"

// baseAlignment is the minimum alignment guaranteed for every allocation,
// sufficient for the widest SIMD vector register the kernel package
// dispatches to.
const baseAlignment = 64

// sizeClassBuckets are the free-list size classes a freed allocation is
// rounded up into, mirroring the tiered sync.Pool buckets the teacher's
// bufferPoolImpl kept for small/medium/large/custom audio buffers, but
// expressed as a plain allocator invariant instead of pool objects.
var sizeClassBuckets = []int{256, 1024, 4096, 16384, 65536, 262144}

// Arena is a linear allocator over one contiguous backing slice. Allocations
// are never individually freed in the sense of returning bytes to the OS;
// Free marks allocations of up to the largest size class reusable within
// the same generation, and Reset invalidates every outstanding allocation
// at once.
type Arena struct {
	mu       sync.Mutex
	backing  []byte
	offset   int
	capacity int

	freeList map[int][][]byte // size class -> reusable buffers

	logger *slog.Logger
}

// New allocates a contiguous region of capacityBytes, aligned at a 64-byte
// base offset so every sub-allocation can honor alignment requests up to
// 64 bytes without further padding.
func New(capacityBytes int) (*Arena, error) {
	if capacityBytes <= 0 {
		return nil, errors.Newf("arena capacity must be positive, got %d", capacityBytes).
			Component(ComponentArena).
			Category(errors.CategoryMemory).
			Kind(errors.InvalidArgument).
			Build()
	}

	logger := logging.ForService("audiocore")
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "arena")

	// Over-allocate so the first aligned offset always exists within bounds.
	raw := make([]byte, capacityBytes+baseAlignment)
	base := uintptr(unsafe.Pointer(&raw[0]))
	start := int(alignUpPtr(base, baseAlignment) - base)

	a := &Arena{
		backing:  raw[start : start+capacityBytes],
		capacity: capacityBytes,
		freeList: make(map[int][][]byte),
		logger:   logger,
	}
	return a, nil
}

// Alloc returns size bytes aligned to align (16, 32, or 64), bump-allocated
// from the arena. It first tries the free list of size's size class for a
// buffer with room for size bytes at the requested alignment (arena_free
// reuse within the same generation), falling back to bumping the offset.
// Prior allocations are never moved.
func (a *Arena) Alloc(size int, align int) ([]byte, error) {
	if size <= 0 {
		return nil, errors.Newf("alloc size must be positive, got %d", size).
			Component(ComponentArena).
			Category(errors.CategoryMemory).
			Kind(errors.InvalidArgument).
			Build()
	}
	switch align {
	case 16, 32, 64:
	default:
		return nil, errors.Newf("unsupported alignment %d (want 16, 32, or 64)", align).
			Component(ComponentArena).
			Category(errors.CategoryMemory).
			Kind(errors.InvalidArgument).
			Build()
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if buf := a.takeFromFreeList(size, align); buf != nil {
		return buf[:size], nil
	}

	alignedOffset := alignUp(a.offset, align)
	end := alignedOffset + size
	if end > a.capacity {
		return nil, errors.Newf("arena exhausted: requested %d bytes at offset %d, capacity %d", size, alignedOffset, a.capacity).
			Component(ComponentArena).
			Category(errors.CategoryMemory).
			Kind(errors.MemoryPoolExhausted).
			Context("requested_bytes", size).
			Context("capacity_bytes", a.capacity).
			Build()
	}

	buf := a.backing[alignedOffset:end:end]
	a.offset = end
	return buf, nil
}

// Free marks buf reusable if its length fits a tracked size class (at
// most the largest class, 262144 bytes); a larger buffer is a silent
// no-op, matching spec.md §4.A ("double-free of non-reusable pointers is
// a silent no-op").
func (a *Arena) Free(buf []byte) {
	if len(buf) == 0 {
		return
	}
	class := sizeClassFor(len(buf))
	if class == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.freeList[class] = append(a.freeList[class], buf)
}

// Reset invalidates every outstanding allocation by rewinding the bump
// pointer and clearing the free list. Callers must ensure no block still
// holds a reference to a prior allocation; the arena does not detect
// misuse (spec.md §4.A: "a caller bug, not detected at runtime").
func (a *Arena) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.offset = 0
	for k := range a.freeList {
		delete(a.freeList, k)
	}
}

// Destroy releases the backing slice. The Arena must not be used again.
func (a *Arena) Destroy() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.backing = nil
	a.freeList = nil
}

// Used returns the number of bytes currently bump-allocated (not counting
// free-listed buffers available for reuse).
func (a *Arena) Used() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.offset
}

// Capacity returns the arena's total capacity in bytes.
func (a *Arena) Capacity() int {
	return a.capacity
}

func (a *Arena) takeFromFreeList(size, align int) []byte {
	class := sizeClassFor(size)
	if class == 0 {
		return nil
	}
	bucket := a.freeList[class]
	for i := len(bucket) - 1; i >= 0; i-- {
		buf := bucket[i]
		if cap(buf) < size || uintptr(unsafe.Pointer(&buf[0]))%uintptr(align) != 0 {
			continue
		}
		a.freeList[class] = append(bucket[:i], bucket[i+1:]...)
		return buf
	}
	return nil
}

// sizeClassFor returns the smallest size class >= n, or 0 if n exceeds
// every tracked class. Allocations larger than 262144 bytes are therefore
// never free-listed; there is no lower size bound, so even a 1-byte
// allocation is free-listed in the 256-byte class.
func sizeClassFor(n int) int {
	for _, class := range sizeClassBuckets {
		if n <= class {
			return class
		}
	}
	return 0
}

func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

func alignUpPtr(p uintptr, align int) uintptr {
	a := uintptr(align)
	return (p + a - 1) &^ (a - 1)
}
