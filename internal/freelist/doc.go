// Package freelist tracks which blocks of the arena are unused.
//
// Free blocks are stored as coalesced half-open runs [start, end) in an
// ordered red-black tree keyed by run start. Acquire only ever hands out a
// genuinely contiguous run, and Release merges a returned range with its
// neighbours, so a block is never handed out twice and the number of runs
// stays proportional to fragmentation rather than to the block count.
//
// A single mutex guards every operation.
package freelist
