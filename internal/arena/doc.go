// Package arena owns the single large memory region the allocator carves
// into blocks.
//
// The arena is reserved and committed in one anonymous mapping, optionally
// pinned into physical memory, and warmed up by writing one byte per page so
// that the operating system backs every page before the first allocation.
// It lives from New (process attach) until Close (process detach) and is
// never resized.
//
// # Concurrency Model
//
// The base address is published behind its own read-write lock. Callers read
// it, release the lock and then do their own bookkeeping, so Close must not
// run concurrently with allocation traffic: attach and detach bracket every
// allocate and free.
package arena
