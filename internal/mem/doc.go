// Package mem provides the power-of-two arithmetic shared by the arena
// configuration, the free list and the aligned allocation paths.
//
// All helpers work on uint64 byte or block counts and never allocate.
package mem
