package blockalloc

import (
	"context"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/hupe1980/blockalloc/internal/arena"
	"github.com/hupe1980/blockalloc/internal/conv"
	"github.com/hupe1980/blockalloc/internal/freelist"
	"github.com/hupe1980/blockalloc/internal/mem"
	"github.com/hupe1980/blockalloc/internal/registry"
	"github.com/hupe1980/blockalloc/internal/resource"
)

// Allocator hands out runs of fixed-size blocks from one arena.
//
// All methods are safe for concurrent use, except that Close must not
// overlap with any other call.
type Allocator struct {
	cfg       Config
	shift     uint
	numBlocks uint64
	base      uintptr // arena address at attach, kept for frees after Close

	arena *arena.Arena
	free  *freelist.List
	live  *registry.Registry
	rc    *resource.Controller

	logger  *Logger
	metrics MetricsCollector

	closed atomic.Bool

	totalAllocs  atomic.Uint64
	totalFrees   atomic.Uint64
	failedAllocs atomic.Uint64
}

// New reserves, commits, pins and warms up an arena of cfg.HeapSize bytes
// and returns an allocator over it. Every block starts free.
//
// A failure to map the arena, or to pin it under PinRequired, is returned as
// a *BootstrapError. ctx only bounds the warm-up.
func New(ctx context.Context, cfg Config, optFns ...Option) (*Allocator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}

	rc := resource.NewController(resource.Config{
		MemoryLimitBytes:    cfg.MemoryLimitBytes,
		PrefaultBytesPerSec: cfg.PrefaultBytesPerSec,
	})

	start := time.Now()
	ar, err := arena.New(ctx, arena.Config{
		Size:            cfg.HeapSize,
		PageSize:        cfg.PageSize,
		Pin:             cfg.Pin,
		Prefault:        cfg.Prefault,
		PrefaultWorkers: cfg.PrefaultWorkers,
	}, arena.WithResourceController(rc), arena.WithLogger(o.logger.Logger))
	elapsed := time.Since(start)
	o.metricsCollector.RecordAttach(elapsed, err)
	if err != nil {
		o.logger.LogAttach(ctx, cfg, false, elapsed, err)
		return nil, err
	}
	if pinErr := ar.PinError(); pinErr != nil {
		o.logger.LogPinFailure(ctx, cfg.HeapSize, pinErr)
	}
	o.logger.LogAttach(ctx, cfg, ar.Pinned(), elapsed, nil)

	return &Allocator{
		cfg:       cfg,
		shift:     cfg.blockShift(),
		numBlocks: cfg.NumBlocks(),
		base:      uintptr(ar.Base()),
		arena:     ar,
		free:      freelist.New(cfg.NumBlocks()),
		live:      registry.New(),
		rc:        rc,
		logger:    o.logger,
		metrics:   o.metricsCollector,
	}, nil
}

// Config returns the configuration the allocator was built with.
func (a *Allocator) Config() Config {
	return a.cfg
}

// Close releases the arena. It is idempotent.
//
// IMPORTANT: Close must happen after every in-flight call has returned.
// Addresses handed out earlier are invalid afterwards.
func (a *Allocator) Close() error {
	if a.closed.Swap(true) {
		return nil
	}
	liveAllocs, liveBytes := a.live.Len(), a.live.Blocks()<<a.shift
	err := a.arena.Close()
	a.logger.LogDetach(context.Background(), liveAllocs, liveBytes, err)
	return err
}

// AllocHandle reserves max(1, ceil(size/BlockSize)) contiguous blocks.
//
// It returns ErrOutOfMemory when no free run is long enough (including any
// size above HeapSize), ErrMemoryLimitExceeded when the configured live-byte
// budget refuses, and ErrClosed after Close. A failed call changes nothing.
func (a *Allocator) AllocHandle(ctx context.Context, size uint64) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if size > a.cfg.HeapSize {
		return a.fail(ctx, time.Now(), size, 0, ErrOutOfMemory)
	}
	return a.alloc(ctx, size, a.blocksFor(size), 1)
}

// AllocAlignedHandle reserves room for size rounded up to alignment.
//
// By default only the size is rounded and the address keeps the block
// granularity. With Config.AlignAddresses the address is aligned to
// alignment as well. alignment must be a non-zero power of two, otherwise an
// *InvalidAlignmentError is returned.
func (a *Allocator) AllocAlignedHandle(ctx context.Context, size, alignment uint64) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if !mem.IsPowerOfTwo(alignment) {
		return 0, &InvalidAlignmentError{Alignment: alignment}
	}
	rounded, ok := mem.AlignUp(size, alignment)
	if !ok || rounded > a.cfg.HeapSize {
		return a.fail(ctx, time.Now(), size, 0, ErrOutOfMemory)
	}

	alignBlocks := uint64(1)
	if a.cfg.AlignAddresses && alignment > a.cfg.BlockSize {
		alignBlocks = alignment >> a.shift
	}
	return a.alloc(ctx, rounded, a.blocksFor(rounded), alignBlocks)
}

// FreeHandle returns the blocks of h to the free list.
//
// It panics with an error wrapping ErrUnknownAllocation if h is not live.
// After Close only the bookkeeping is updated, so a double free still panics.
func (a *Allocator) FreeHandle(h Handle) {
	start := time.Now()
	blocks := a.live.Remove(uint64(h))
	a.free.Release(uint64(h), blocks)
	a.rc.ReleaseMemory(a.bytes(blocks))
	a.totalFrees.Add(1)
	a.metrics.RecordFree(blocks, time.Since(start))
}

// SizeOf returns the usable size of h, a multiple of BlockSize.
//
// It panics with an error wrapping ErrUnknownAllocation if h is not live.
func (a *Allocator) SizeOf(h Handle) uint64 {
	return a.live.Lookup(uint64(h)) << a.shift
}

// Alloc returns the address of at least size bytes on a block boundary, or
// nil when the arena cannot satisfy the request. A request for zero bytes
// still occupies one block.
func (a *Allocator) Alloc(size uint64) unsafe.Pointer {
	h, err := a.AllocHandle(context.Background(), size)
	if err != nil {
		return nil
	}
	return a.Pointer(h)
}

// Free releases the allocation at p. Free(nil) does nothing.
//
// Any other pointer that Alloc did not return, or that was already freed,
// panics. This holds after Close as well: p is then resolved against the
// address the arena had while attached.
func (a *Allocator) Free(p unsafe.Pointer) {
	if p == nil {
		return
	}
	if a.closed.Load() {
		a.FreeHandle(a.handleOf(a.base, p))
		return
	}
	a.FreeHandle(a.HandleOf(p))
}

// Size returns the usable size of the live allocation at p. It panics if p
// is not live.
func (a *Allocator) Size(p unsafe.Pointer) uint64 {
	return a.SizeOf(a.HandleOf(p))
}

// AllocAligned is Alloc(roundUp(size, alignment)). Unless
// Config.AlignAddresses is set the returned address is only guaranteed to
// be BlockSize aligned. It returns nil on exhaustion or an invalid
// alignment.
func (a *Allocator) AllocAligned(size, alignment uint64) unsafe.Pointer {
	h, err := a.AllocAlignedHandle(context.Background(), size, alignment)
	if err != nil {
		return nil
	}
	return a.Pointer(h)
}

// FreeAligned is Free.
func (a *Allocator) FreeAligned(p unsafe.Pointer) {
	a.Free(p)
}

// SizeAligned returns Size(p) rounded up to alignment. It panics if p is not
// live or alignment is not a non-zero power of two.
func (a *Allocator) SizeAligned(p unsafe.Pointer, alignment uint64) uint64 {
	if !mem.IsPowerOfTwo(alignment) {
		panic(&InvalidAlignmentError{Alignment: alignment})
	}
	size, _ := mem.AlignUp(a.Size(p), alignment)
	return size
}

// TotalCommitted returns the committed arena size. It never changes.
func (a *Allocator) TotalCommitted() uint64 {
	return a.cfg.HeapSize
}

// TotalReserved returns the reserved arena size. It never changes.
func (a *Allocator) TotalReserved() uint64 {
	return a.cfg.HeapSize
}

// FlushCache returns h unchanged. There are no per-thread caches to flush.
func (a *Allocator) FlushCache(h uint64) uint64 {
	return h
}

// FlushCacheAll does nothing.
func (a *Allocator) FlushCacheAll() {}

// EnableHugePages does nothing; huge pages are always reported as enabled.
func (a *Allocator) EnableHugePages(bool) {}

// HugePages reports whether huge pages are enabled. It is always true.
func (a *Allocator) HugePages() bool {
	return true
}

func (a *Allocator) alloc(ctx context.Context, size, blocks, alignBlocks uint64) (Handle, error) {
	start := time.Now()

	// Read the base under its own lock and let go of it before touching
	// the free list.
	base := a.arena.Base()
	if base == nil || a.closed.Load() {
		return 0, ErrClosed
	}

	bytes := a.bytes(blocks)
	if err := a.rc.AcquireMemory(bytes); err != nil {
		return a.fail(ctx, start, size, blocks, err)
	}

	var (
		first uint64
		ok    bool
	)
	if alignBlocks > 1 {
		first, ok = a.free.AcquireAligned(blocks, alignBlocks, mem.Phase(uintptr(base), a.shift, alignBlocks))
	} else {
		first, ok = a.free.Acquire(blocks)
	}
	if !ok {
		a.rc.ReleaseMemory(bytes)
		return a.fail(ctx, start, size, blocks, ErrOutOfMemory)
	}

	a.live.Insert(first, blocks)
	a.totalAllocs.Add(1)
	a.metrics.RecordAlloc(blocks, time.Since(start), nil)
	return Handle(first), nil
}

func (a *Allocator) fail(ctx context.Context, start time.Time, size, blocks uint64, err error) (Handle, error) {
	a.metrics.RecordAlloc(blocks, time.Since(start), err)
	a.failedAllocs.Add(1)
	a.logger.LogExhausted(ctx, size, blocks, a.free.Free(), a.free.Largest(), err)
	return 0, err
}

// blocksFor assumes size <= HeapSize.
func (a *Allocator) blocksFor(size uint64) uint64 {
	return max(1, mem.DivCeil(size, a.shift))
}

// bytes assumes blocks <= NumBlocks.
func (a *Allocator) bytes(blocks uint64) int64 {
	n, err := conv.Uint64ToInt64(blocks << a.shift)
	if err != nil {
		panic(err)
	}
	return n
}
