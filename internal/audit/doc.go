// Package audit checks the allocator's block accounting and serializes
// occupancy snapshots.
//
// A Snapshot holds two roaring bitmaps over block indices: the free blocks
// and the blocks held by live allocations. Check verifies that every block
// is in exactly one of them. Encode and Decode move a snapshot through an
// optionally compressed stream so an operator can look at fragmentation
// after the fact.
//
// Block indices must fit in 32 bits.
package audit
