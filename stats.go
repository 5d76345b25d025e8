package blockalloc

// Stats is a point-in-time view of an allocator. Counts taken while other
// goroutines allocate or free may be mutually inconsistent.
type Stats struct {
	HeapSize  uint64
	BlockSize uint64
	NumBlocks uint64

	FreeBlocks      uint64
	LiveBlocks      uint64
	LiveAllocations int
	FreeRuns        int
	LargestFreeRun  uint64

	Pinned    bool
	HugePages bool
	Closed    bool

	// MemoryUsage is the byte count charged against the live-byte budget.
	MemoryUsage int64
	// MemoryLimit is the live-byte budget, 0 when unlimited.
	MemoryLimit int64
	// PagesTouched is the number of pages written during warm-up.
	PagesTouched uint64

	TotalAllocs  uint64
	TotalFrees   uint64
	FailedAllocs uint64
}

// Stats returns the current allocator statistics.
func (a *Allocator) Stats() Stats {
	as := a.arena.Stats()
	return Stats{
		HeapSize:        a.cfg.HeapSize,
		BlockSize:       a.cfg.BlockSize,
		NumBlocks:       a.numBlocks,
		FreeBlocks:      a.free.Free(),
		LiveBlocks:      a.live.Blocks(),
		LiveAllocations: a.live.Len(),
		FreeRuns:        a.free.Runs(),
		LargestFreeRun:  a.free.Largest(),
		Pinned:          as.Pinned,
		HugePages:       a.HugePages(),
		Closed:          a.closed.Load(),
		MemoryUsage:     a.rc.MemoryUsage(),
		MemoryLimit:     a.rc.MemoryLimit(),
		PagesTouched:    as.PagesTouched,
		TotalAllocs:     a.totalAllocs.Load(),
		TotalFrees:      a.totalFrees.Load(),
		FailedAllocs:    a.failedAllocs.Load(),
	}
}
