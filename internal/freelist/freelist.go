package freelist

import (
	"sync"

	rbt "github.com/emirpasic/gods/trees/redblacktree"
	"github.com/emirpasic/gods/utils"
)

// List is a concurrency-safe set of free block indices kept as
// non-overlapping, non-adjacent runs.
type List struct {
	mu    sync.Mutex
	runs  *rbt.Tree // start (uint64) -> end (uint64), end exclusive
	total uint64
	free  uint64
}

// New returns a List with every block in [0, total) free.
func New(total uint64) *List {
	l := &List{
		runs:  rbt.NewWith(utils.UInt64Comparator),
		total: total,
		free:  total,
	}
	if total > 0 {
		l.runs.Put(uint64(0), total)
	}
	return l
}

// Acquire removes n contiguous blocks and returns the index of the first.
// It takes the lowest-addressed run that is long enough. When no run can
// hold n blocks it returns false and leaves the list unchanged.
func (l *List) Acquire(n uint64) (uint64, bool) {
	return l.AcquireAligned(n, 1, 0)
}

// AcquireAligned is Acquire with the extra condition that (start+phase) is a
// multiple of align. align must be a power of two. The blocks skipped in
// front of the aligned start stay free.
func (l *List) AcquireAligned(n, align, phase uint64) (uint64, bool) {
	if n == 0 || align == 0 {
		return 0, false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if n > l.free {
		return 0, false
	}

	mask := align - 1
	it := l.runs.Iterator()
	for it.Next() {
		start := it.Key().(uint64)
		end := it.Value().(uint64)
		if end-start < n {
			continue
		}

		at := ((start + phase + mask) &^ mask) - phase
		if at < start || at > end || end-at < n {
			continue
		}

		l.runs.Remove(start)
		if at > start {
			l.runs.Put(start, at)
		}
		if at+n < end {
			l.runs.Put(at+n, end)
		}
		l.free -= n
		return at, true
	}

	return 0, false
}

// Release returns [start, start+n) to the list, merging it with adjacent
// free runs. Releasing blocks that are already free, or that lie outside
// the list, is a caller bug and panics.
func (l *List) Release(start, n uint64) {
	if n == 0 {
		return
	}
	end := start + n
	if end < start || end > l.total {
		panic(&RangeError{Start: start, Count: n, Total: l.total})
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	newStart, newEnd := start, end

	if node, ok := l.runs.Floor(start); ok {
		fs, fe := node.Key.(uint64), node.Value.(uint64)
		if fe > start {
			panic(&OverlapError{Start: start, Count: n, RunStart: fs, RunEnd: fe})
		}
		if fe == start {
			newStart = fs
			l.runs.Remove(fs)
		}
	}

	if node, ok := l.runs.Ceiling(start); ok {
		cs, ce := node.Key.(uint64), node.Value.(uint64)
		if cs < end {
			panic(&OverlapError{Start: start, Count: n, RunStart: cs, RunEnd: ce})
		}
		if cs == end {
			newEnd = ce
			l.runs.Remove(cs)
		}
	}

	l.runs.Put(newStart, newEnd)
	l.free += n
}

// Total returns the number of blocks managed by the list.
func (l *List) Total() uint64 {
	return l.total
}

// Free returns the number of free blocks.
func (l *List) Free() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.free
}

// Runs returns the number of free runs.
func (l *List) Runs() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.runs.Size()
}

// Largest returns the length of the longest free run.
func (l *List) Largest() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	var largest uint64
	it := l.runs.Iterator()
	for it.Next() {
		if n := it.Value().(uint64) - it.Key().(uint64); n > largest {
			largest = n
		}
	}
	return largest
}

// Each calls fn for every free run in address order until fn returns false.
// fn runs under the list lock and must not call back into the List.
func (l *List) Each(fn func(start, end uint64) bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	it := l.runs.Iterator()
	for it.Next() {
		if !fn(it.Key().(uint64), it.Value().(uint64)) {
			return
		}
	}
}
