// Package registry records the live allocations of the arena.
//
// Each live allocation is keyed by the index of its first block and maps to
// the number of blocks it occupies. Asking about a key that is not live is a
// contract violation by the caller (a foreign pointer, a double free or a
// use after free) and panics instead of returning a default.
package registry

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnknown is wrapped by every UnknownError.
var ErrUnknown = errors.New("registry: no live allocation")

// UnknownError reports a lookup or removal of a block index that does not
// start a live allocation.
type UnknownError struct {
	Start uint64
	Op    string
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("registry: %s of block %d: no live allocation", e.Op, e.Start)
}

func (e *UnknownError) Unwrap() error { return ErrUnknown }

// Registry maps first block index to block count for every live allocation.
type Registry struct {
	mu     sync.Mutex
	live   map[uint64]uint64
	blocks uint64
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{live: make(map[uint64]uint64)}
}

// Insert records a new live allocation. Inserting a start that is already
// live means the free list handed the same blocks out twice and panics.
func (r *Registry) Insert(start, count uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.live[start]; ok {
		panic(fmt.Sprintf("registry: block %d already live with %d blocks", start, prev))
	}
	r.live[start] = count
	r.blocks += count
}

// Lookup returns the block count of the allocation starting at start.
func (r *Registry) Lookup(start uint64) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	count, ok := r.live[start]
	if !ok {
		panic(&UnknownError{Start: start, Op: "lookup"})
	}
	return count
}

// Remove deletes the allocation starting at start and returns its block count.
func (r *Registry) Remove(start uint64) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	count, ok := r.live[start]
	if !ok {
		panic(&UnknownError{Start: start, Op: "remove"})
	}
	delete(r.live, start)
	r.blocks -= count
	return count
}

// Contains reports whether start begins a live allocation.
func (r *Registry) Contains(start uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.live[start]
	return ok
}

// Len returns the number of live allocations.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// Blocks returns the total number of blocks held by live allocations.
func (r *Registry) Blocks() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.blocks
}

// Each calls fn for every live allocation, in no particular order, until fn
// returns false. fn runs under the registry lock.
func (r *Registry) Each(fn func(start, count uint64) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for start, count := range r.live {
		if !fn(start, count) {
			return
		}
	}
}
