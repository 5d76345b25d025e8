package blockalloc

import "unsafe"

// Handle identifies a live allocation by the index of its first block.
// Handles stay meaningful across the pointer and index APIs: Pointer maps
// a handle to its address and HandleOf maps it back.
type Handle uint64

// Block returns the index of the first block.
func (h Handle) Block() uint64 { return uint64(h) }

// Pointer returns the address of h, or nil once the allocator is closed.
// It does not check that h is live.
func (a *Allocator) Pointer(h Handle) unsafe.Pointer {
	base := a.arena.Base()
	if base == nil {
		return nil
	}
	return a.at(base, uint64(h))
}

func (a *Allocator) at(base unsafe.Pointer, block uint64) unsafe.Pointer {
	return unsafe.Add(base, block<<a.shift) //nolint:gosec // block < NumBlocks
}

// HandleOf maps an address inside the arena back to its block index.
//
// It panics with an *InvalidPointerError when p lies outside the arena, is
// not on a block boundary, or the allocator is closed. It does not check
// that the block starts a live allocation.
func (a *Allocator) HandleOf(p unsafe.Pointer) Handle {
	base := a.arena.Base()
	if base == nil {
		panic(&InvalidPointerError{Addr: uintptr(p), Size: a.cfg.HeapSize, Reason: "allocator is closed"})
	}
	return a.handleOf(uintptr(base), p)
}

func (a *Allocator) handleOf(b uintptr, p unsafe.Pointer) Handle {
	addr := uintptr(p)
	if addr < b || uint64(addr-b) >= a.cfg.HeapSize {
		panic(&InvalidPointerError{Addr: addr, Base: b, Size: a.cfg.HeapSize, Reason: "outside the arena"})
	}
	off := uint64(addr - b)
	if off&(a.cfg.BlockSize-1) != 0 {
		panic(&InvalidPointerError{Addr: addr, Base: b, Size: a.cfg.HeapSize, Reason: "not on a block boundary"})
	}
	return Handle(off >> a.shift)
}

// Bytes returns the memory of the live allocation h, SizeOf(h) bytes long.
// It panics if h is not live and returns nil once the allocator is closed.
// The slice must not be used after FreeHandle(h).
func (a *Allocator) Bytes(h Handle) []byte {
	size := a.SizeOf(h)
	b, err := a.arena.Bytes(uint64(h)<<a.shift, size)
	if err != nil {
		return nil
	}
	return b
}
