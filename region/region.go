package region

/*
 * Region Arena Allocator
 *
 * Bump-pointer arenas backing all per-parse data. A region owns one
 * contiguous buffer and a used watermark; allocation is O(1), there is
 * no per-allocation free, and the whole region is reclaimed at once by
 * Reset or Destroy.
 *
 * Rules:
 * - Allocations are aligned to 8 bytes
 * - Realloc is legal only for the most recent allocation and always
 *   stays in place (no interior pointer relocation)
 * - Reset rewinds the watermark without releasing the buffer
 * - Destroy releases the buffer if the region owns it; repeated
 *   destroys are logged no-ops
 */

import (
	"github.com/IreGaddr/braggi/log"
)

var regionLog = log.NamedLogger("region", "arena")

const alignment = 8

// Region is a bump-pointer arena with a typed access regime
type Region struct {
	buffer      []byte
	used        int
	regime      Regime
	ownsMemory  bool
	destroyed   bool
	lastOffset  int // offset of the most recent allocation, -1 if none
	lastSize    int // requested size of the most recent allocation
	allocCount  int
	paddingUsed int
}

// Create allocates a region with a fresh buffer of the given size
func Create(size int, regime Regime) (*Region, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	return &Region{
		buffer:     make([]byte, size),
		regime:     regime,
		ownsMemory: true,
		lastOffset: -1,
	}, nil
}

// CreateFromBuffer wraps an existing buffer. If takeOwnership is set the
// region treats the buffer as its own and releases it on Destroy.
func CreateFromBuffer(buf []byte, regime Regime, takeOwnership bool) (*Region, error) {
	if len(buf) == 0 {
		return nil, ErrInvalidSize
	}
	return &Region{
		buffer:     buf,
		regime:     regime,
		ownsMemory: takeOwnership,
		lastOffset: -1,
	}, nil
}

// Regime returns the region's access regime
func (r *Region) Regime() Regime {
	return r.regime
}

// Capacity returns the size of the backing buffer
func (r *Region) Capacity() int {
	return len(r.buffer)
}

// Used returns the current watermark
func (r *Region) Used() int {
	return r.used
}

// Alloc reserves n bytes and returns them as a sub-slice of the backing
// buffer. Fails when the aligned request does not fit.
func (r *Region) Alloc(n int) ([]byte, error) {
	if r.destroyed {
		return nil, ErrDestroyed
	}
	if n < 0 {
		return nil, ErrInvalidSize
	}

	// Align the watermark before handing out the block
	aligned := alignUp(r.used)
	if aligned+n > len(r.buffer) {
		return nil, ErrRegionFull
	}

	r.paddingUsed += aligned - r.used
	r.lastOffset = aligned
	r.lastSize = n
	r.used = aligned + n
	r.allocCount++

	return r.buffer[aligned : aligned+n : aligned+n], nil
}

// Calloc reserves n zeroed bytes. The backing buffer may hold stale data
// from a previous epoch after Reset, so the block is cleared explicitly.
func (r *Region) Calloc(n int) ([]byte, error) {
	block, err := r.Alloc(n)
	if err != nil {
		return nil, err
	}
	for i := range block {
		block[i] = 0
	}
	return block, nil
}

// Strdup copies a string into the region
func (r *Region) Strdup(s string) ([]byte, error) {
	block, err := r.Alloc(len(s))
	if err != nil {
		return nil, err
	}
	copy(block, s)
	return block, nil
}

// Memdup copies a byte slice into the region
func (r *Region) Memdup(b []byte) ([]byte, error) {
	block, err := r.Alloc(len(b))
	if err != nil {
		return nil, err
	}
	copy(block, b)
	return block, nil
}

// Realloc grows or shrinks the most recent allocation in place. Any
// other block is rejected with ErrNotLastAllocation.
func (r *Region) Realloc(block []byte, newSize int) ([]byte, error) {
	if r.destroyed {
		return nil, ErrDestroyed
	}
	if newSize < 0 {
		return nil, ErrInvalidSize
	}
	if r.lastOffset < 0 {
		return nil, ErrNotLastAllocation
	}
	if !r.isLastAllocation(block) {
		return nil, ErrNotLastAllocation
	}
	if r.lastOffset+newSize > len(r.buffer) {
		return nil, ErrRegionFull
	}

	r.used = r.lastOffset + newSize
	r.lastSize = newSize
	return r.buffer[r.lastOffset : r.lastOffset+newSize : r.lastOffset+newSize], nil
}

// isLastAllocation reports whether block is the slice handed out by the
// most recent Alloc. Zero-length blocks are matched by size alone since
// they have no addressable element.
func (r *Region) isLastAllocation(block []byte) bool {
	if len(block) != r.lastSize {
		return false
	}
	if len(block) == 0 {
		return true
	}
	return &block[0] == &r.buffer[r.lastOffset]
}

// Reset rewinds the watermark to zero without releasing the buffer.
// Blocks handed out before the reset are invalidated.
func (r *Region) Reset() {
	if r.destroyed {
		regionLog.Warnf("Reset on destroyed region ignored")
		return
	}
	r.used = 0
	r.lastOffset = -1
	r.lastSize = 0
	r.allocCount = 0
	r.paddingUsed = 0
}

// Destroy releases the backing buffer if owned. Safe to call more than
// once; repeated destroys are logged and ignored.
func (r *Region) Destroy() {
	if r.destroyed {
		regionLog.Warnf("Double destroy of region detected, ignoring")
		return
	}
	r.destroyed = true
	if r.ownsMemory {
		r.buffer = nil
	}
	r.used = 0
	r.lastOffset = -1
}

// Destroyed reports whether the region has been torn down
func (r *Region) Destroyed() bool {
	return r.destroyed
}

// Stats describes a region's memory accounting
type Stats struct {
	TotalAllocated  int // size of the backing buffer
	CurrentUsage    int // bytes below the watermark
	WastedMemory    int // alignment padding in the current epoch
	AllocationCount int // allocations in the current epoch
}

// GetStats returns the region's memory accounting
func (r *Region) GetStats() Stats {
	return Stats{
		TotalAllocated:  len(r.buffer),
		CurrentUsage:    r.used,
		WastedMemory:    r.paddingUsed,
		AllocationCount: r.allocCount,
	}
}

func alignUp(n int) int {
	return (n + alignment - 1) &^ (alignment - 1)
}
