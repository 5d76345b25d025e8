// Package conv provides checked integer conversions.
//
// The allocator speaks uint64 at its API edge (block counts, byte sizes,
// addresses) while slices, mmap lengths and the resource controller use int
// and int64. Every narrowing or sign-changing conversion on those paths goes
// through this package so an oversized arena is reported as an error instead
// of silently wrapping.
package conv
