// Package blockalloc is a fixed-granularity block allocator over a single
// pre-committed, page-locked memory arena.
//
// At construction the allocator maps HeapSize bytes of anonymous memory,
// locks them into RAM and writes one byte per page so that every page is
// physically backed before the first allocation. The arena is then carved
// into BlockSize blocks. Allocations take a contiguous run of blocks from a
// coalesced free list (first fit, lowest address first) and are recorded in
// a registry keyed by their first block so that size queries and frees are
// exact.
//
// # Quick Start
//
//	cfg := blockalloc.DefaultConfig()
//	cfg.HeapSize = 1 << 30
//	a, err := blockalloc.New(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer a.Close()
//
//	p := a.Alloc(100)  // 13 blocks of 8 bytes
//	n := a.Size(p)     // 104
//	a.Free(p)
//
// # Pointer and handle APIs
//
// Alloc, Free, Size and their aligned variants mirror a C allocator: they
// return nil on exhaustion and panic on a pointer the allocator does not
// own. The handle API (AllocHandle, FreeHandle, SizeOf) works on block
// indices and reports exhaustion as ErrOutOfMemory.
//
// # Aligned allocation
//
// AllocAligned rounds the size up to the alignment. By default the address
// itself is only BlockSize aligned; set Config.AlignAddresses to align it
// as well.
//
// # Lifecycle
//
// New and Close bracket all allocation traffic. Close must not run while
// any other call is in flight, and every address handed out becomes invalid
// once it returns. Frees that arrive after Close are still checked against
// the registry, so a late double free panics like any other.
//
// # Diagnostics
//
// Stats reports free and live block counts. Verify checks that the free list
// and the registry partition the arena, and WriteSnapshot dumps the
// occupancy bitmaps (optionally LZ4 or zstd compressed) for offline
// inspection with ReadSnapshot.
package blockalloc
