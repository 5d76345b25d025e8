package mem

import "math/bits"

// IsPowerOfTwo reports whether v is a non-zero power of two.
func IsPowerOfTwo(v uint64) bool {
	return v != 0 && v&(v-1) == 0
}

// Log2 returns log2(v) for a power of two v.
func Log2(v uint64) uint {
	return uint(bits.TrailingZeros64(v))
}

// AlignUp rounds v up to a multiple of align, which must be a power of two.
// The second result is false when the rounded value does not fit in 64 bits.
func AlignUp(v, align uint64) (uint64, bool) {
	mask := align - 1
	r := (v + mask) &^ mask
	return r, r >= v
}

// DivCeil returns ceil(v / 2^shift).
func DivCeil(v uint64, shift uint) uint64 {
	q := v >> shift
	if v&(1<<shift-1) != 0 {
		q++
	}
	return q
}

// Phase returns how many units of size 2^shift addr lies past the previous
// multiple of align units. align must be a power of two.
func Phase(addr uintptr, shift uint, align uint64) uint64 {
	return (uint64(addr) >> shift) & (align - 1)
}
