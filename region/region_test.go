package region

import (
	"testing"
)

// Test basic allocation and watermark accounting
func TestAlloc(t *testing.T) {
	r, err := Create(1024, SEQ)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	block, err := r.Alloc(100)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	if len(block) != 100 {
		t.Errorf("Expected 100 bytes, got %d", len(block))
	}
	if r.Used() != 100 {
		t.Errorf("Expected used=100, got %d", r.Used())
	}

	// Second allocation starts at the next aligned offset
	block2, err := r.Alloc(8)
	if err != nil {
		t.Fatalf("Second alloc failed: %v", err)
	}
	if len(block2) != 8 {
		t.Errorf("Expected 8 bytes, got %d", len(block2))
	}
	if r.Used() != 104+8 {
		t.Errorf("Expected used=%d after aligned alloc, got %d", 104+8, r.Used())
	}
}

// Test alignment of consecutive allocations
func TestAllocAlignment(t *testing.T) {
	tests := []struct {
		name  string
		sizes []int
	}{
		{"single byte runs", []int{1, 1, 1}},
		{"odd sizes", []int{3, 7, 13}},
		{"aligned sizes", []int{8, 16, 64}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Create(4096, RAND)
			if err != nil {
				t.Fatalf("Create failed: %v", err)
			}
			prevEnd := 0
			for _, size := range tt.sizes {
				if _, err := r.Alloc(size); err != nil {
					t.Fatalf("Alloc(%d) failed: %v", size, err)
				}
				start := r.Used() - size
				if start%alignment != 0 {
					t.Errorf("Allocation start %d not %d-byte aligned", start, alignment)
				}
				if start < prevEnd {
					t.Errorf("Allocation overlaps previous block: start=%d prevEnd=%d", start, prevEnd)
				}
				prevEnd = r.Used()
			}
		})
	}
}

// Test allocation failure when the region is exhausted
func TestAllocExhaustion(t *testing.T) {
	r, err := Create(64, FIFO)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := r.Alloc(64); err != nil {
		t.Fatalf("Full-size alloc should succeed: %v", err)
	}
	if _, err := r.Alloc(1); err != ErrRegionFull {
		t.Errorf("Expected ErrRegionFull, got %v", err)
	}
}

// Test calloc zeroes stale bytes after a reset
func TestCallocZeroes(t *testing.T) {
	r, err := Create(128, SEQ)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	block, err := r.Alloc(64)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	for i := range block {
		block[i] = 0xFF
	}

	r.Reset()

	zeroed, err := r.Calloc(64)
	if err != nil {
		t.Fatalf("Calloc failed: %v", err)
	}
	for i, b := range zeroed {
		if b != 0 {
			t.Fatalf("Calloc byte %d not zeroed: 0x%02X", i, b)
		}
	}
}

// Test strdup and memdup copy semantics
func TestDup(t *testing.T) {
	r, err := Create(256, SEQ)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	s, err := r.Strdup("entropy")
	if err != nil {
		t.Fatalf("Strdup failed: %v", err)
	}
	if string(s) != "entropy" {
		t.Errorf("Strdup content mismatch: %q", s)
	}

	src := []byte{1, 2, 3, 4}
	d, err := r.Memdup(src)
	if err != nil {
		t.Fatalf("Memdup failed: %v", err)
	}
	src[0] = 9 // source mutation must not leak into the copy
	if d[0] != 1 {
		t.Errorf("Memdup did not copy: %v", d)
	}
}

// Test realloc grows the most recent allocation in place
func TestReallocInPlace(t *testing.T) {
	r, err := Create(1024, FILO)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	block, err := r.Alloc(16)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	block[0] = 0xAB

	grown, err := r.Realloc(block, 64)
	if err != nil {
		t.Fatalf("Realloc failed: %v", err)
	}
	if len(grown) != 64 {
		t.Errorf("Expected 64 bytes after grow, got %d", len(grown))
	}
	if grown[0] != 0xAB {
		t.Errorf("Realloc relocated the block, first byte = 0x%02X", grown[0])
	}
	if &grown[0] != &block[0] {
		t.Error("Realloc must stay in place")
	}

	shrunk, err := r.Realloc(grown, 8)
	if err != nil {
		t.Fatalf("Shrink failed: %v", err)
	}
	if len(shrunk) != 8 {
		t.Errorf("Expected 8 bytes after shrink, got %d", len(shrunk))
	}
}

// Test realloc rejects anything but the most recent allocation
func TestReallocRejectsOlderBlocks(t *testing.T) {
	r, err := Create(1024, SEQ)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	first, err := r.Alloc(16)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	if _, err := r.Alloc(16); err != nil {
		t.Fatalf("Second alloc failed: %v", err)
	}

	if _, err := r.Realloc(first, 32); err != ErrNotLastAllocation {
		t.Errorf("Expected ErrNotLastAllocation, got %v", err)
	}
}

// Test reset preserves capacity and rewinds usage (arena reuse scenario)
func TestResetReuse(t *testing.T) {
	r, err := Create(4096, SEQ)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := r.Alloc(1024); err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	before := r.GetStats()

	r.Reset()
	if r.Used() != 0 {
		t.Errorf("Expected used=0 after reset, got %d", r.Used())
	}

	if _, err := r.Alloc(1024); err != nil {
		t.Fatalf("Alloc after reset failed: %v", err)
	}
	after := r.GetStats()

	if after.TotalAllocated != before.TotalAllocated {
		t.Errorf("TotalAllocated changed across reset: %d → %d",
			before.TotalAllocated, after.TotalAllocated)
	}
	if after.CurrentUsage != 1024 {
		t.Errorf("Expected CurrentUsage=1024, got %d", after.CurrentUsage)
	}
}

// Test destroy is idempotent and blocks further allocation
func TestDestroy(t *testing.T) {
	r, err := Create(128, RAND)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	r.Destroy()
	if !r.Destroyed() {
		t.Error("Region should report destroyed")
	}

	// Second destroy is a logged no-op
	r.Destroy()

	if _, err := r.Alloc(8); err != ErrDestroyed {
		t.Errorf("Expected ErrDestroyed, got %v", err)
	}
}

// Test creating a region over a caller-supplied buffer
func TestCreateFromBuffer(t *testing.T) {
	buf := make([]byte, 256)
	r, err := CreateFromBuffer(buf, FIFO, false)
	if err != nil {
		t.Fatalf("CreateFromBuffer failed: %v", err)
	}

	block, err := r.Alloc(4)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	block[0] = 0x42
	if buf[0] != 0x42 {
		t.Error("Allocation should alias the supplied buffer")
	}
}

// Benchmark bump allocation
func BenchmarkAlloc(b *testing.B) {
	r, _ := Create(1<<20, SEQ)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := r.Alloc(32); err != nil {
			r.Reset()
		}
	}
}
