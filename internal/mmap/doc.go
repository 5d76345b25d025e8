// Package mmap provides anonymous memory mappings for the block arena.
//
// # Overview
//
// The arena is a single large read-write region owned outside the Go heap.
// MapAnon reserves and commits it in one call, Lock pins it into physical
// memory and Close releases it again:
//
//	m, err := mmap.MapAnon(8<<30, 0)
//	if err != nil { ... }
//	defer m.Close()
//
//	if err := m.Lock(); err != nil { ... }
//	_ = m.Advise(mmap.AccessWillNeed)
//
//	// View a sub-range without copying
//	region, _ := m.Region(offset, size)
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2), mlock(2)/munlock(2), madvise(2)
//   - Windows: VirtualAlloc/VirtualFree, VirtualLock/VirtualUnlock (Advise is a no-op)
//
// # Thread Safety
//
// Mapping and Region are safe for concurrent reads. Close is idempotent and
// protected by an atomic flag; callers must not touch Bytes() after Close
// returns.
package mmap
