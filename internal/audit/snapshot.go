package audit

import (
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
)

var (
	// ErrTooManyBlocks is returned when block indices do not fit in 32 bits.
	ErrTooManyBlocks = errors.New("audit: block count exceeds 32-bit index space")
	// ErrOverlap is wrapped when a block is both free and live, or live twice.
	ErrOverlap = errors.New("audit: overlapping block ownership")
	// ErrLeak is wrapped when a block is neither free nor live.
	ErrLeak = errors.New("audit: unaccounted blocks")
)

// MaxBlocks is the largest block count a Snapshot can describe.
const MaxBlocks = 1 << 32

// Snapshot is a point-in-time view of block ownership.
type Snapshot struct {
	NumBlocks uint64
	Free      *roaring.Bitmap
	Live      *roaring.Bitmap

	// Sums of the range lengths added, used to detect overlaps inside one set.
	freeAdded uint64
	liveAdded uint64
	liveCount int
	freeRuns  int
}

// NewSnapshot returns an empty snapshot for numBlocks blocks.
func NewSnapshot(numBlocks uint64) (*Snapshot, error) {
	if numBlocks > MaxBlocks {
		return nil, fmt.Errorf("%w: %d", ErrTooManyBlocks, numBlocks)
	}
	return &Snapshot{
		NumBlocks: numBlocks,
		Free:      roaring.New(),
		Live:      roaring.New(),
	}, nil
}

// AddFree marks [start, end) as free.
func (s *Snapshot) AddFree(start, end uint64) {
	s.Free.AddRange(start, end)
	s.freeAdded += end - start
	s.freeRuns++
}

// AddLive marks the count blocks starting at start as owned by one live
// allocation.
func (s *Snapshot) AddLive(start, count uint64) {
	s.Live.AddRange(start, start+count)
	s.liveAdded += count
	s.liveCount++
}

// FreeBlocks returns the number of free blocks.
func (s *Snapshot) FreeBlocks() uint64 { return s.Free.GetCardinality() }

// LiveBlocks returns the number of blocks held by live allocations.
func (s *Snapshot) LiveBlocks() uint64 { return s.Live.GetCardinality() }

// LiveAllocations returns how many allocations were added with AddLive.
// Decoded snapshots do not carry it and report 0.
func (s *Snapshot) LiveAllocations() int { return s.liveCount }

// Check verifies that the free and live sets partition [0, NumBlocks).
func (s *Snapshot) Check() error {
	free := s.Free.GetCardinality()
	live := s.Live.GetCardinality()

	if s.freeAdded != 0 && free != s.freeAdded {
		return fmt.Errorf("%w: free runs cover %d blocks but sum to %d", ErrOverlap, free, s.freeAdded)
	}
	if s.liveAdded != 0 && live != s.liveAdded {
		return fmt.Errorf("%w: live allocations cover %d blocks but sum to %d", ErrOverlap, live, s.liveAdded)
	}

	if both := roaring.And(s.Free, s.Live); !both.IsEmpty() {
		return fmt.Errorf("%w: %d blocks are free and live, first %d", ErrOverlap, both.GetCardinality(), both.Minimum())
	}

	union := roaring.Or(s.Free, s.Live)
	if !union.IsEmpty() && uint64(union.Maximum()) >= s.NumBlocks {
		return fmt.Errorf("%w: block %d beyond %d", ErrOverlap, union.Maximum(), s.NumBlocks)
	}
	if covered := union.GetCardinality(); covered != s.NumBlocks {
		return fmt.Errorf("%w: %d of %d blocks accounted for", ErrLeak, covered, s.NumBlocks)
	}
	return nil
}

// FreeRuns returns the number of runs of free blocks. For snapshots built
// from a coalesced free list this is the number of AddFree calls; decoded
// snapshots walk the bitmap.
func (s *Snapshot) FreeRuns() int {
	if s.freeRuns > 0 {
		return s.freeRuns
	}
	runs := 0
	var prev uint32
	first := true
	it := s.Free.Iterator()
	for it.HasNext() {
		v := it.Next()
		if first || v != prev+1 {
			runs++
		}
		prev = v
		first = false
	}
	return runs
}
