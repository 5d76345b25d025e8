package testutil

import (
	"math"
	"math/rand/v2"
	"sync"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed uint64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed uint64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewPCG(seed, seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand = rand.New(rand.NewPCG(r.seed, r.seed))
}

// Seed returns the initial seed.
func (r *RNG) Seed() uint64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.IntN(n)
}

// Uint64N returns a pseudo-random number in [0,n).
func (r *RNG) Uint64N(n uint64) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64N(n)
}

// Sizes returns n request sizes drawn uniformly from [0, maxSize].
func (r *RNG) Sizes(n int, maxSize uint64) []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uint64, n)
	for i := range out {
		out[i] = r.rand.Uint64N(maxSize + 1)
	}
	return out
}

// ZipfSizes returns n request sizes in [0, maxSize] skewed towards small
// values, the way real allocation traces are. s > 1 controls the skew.
func (r *RNG) ZipfSizes(n int, maxSize uint64, s float64) []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	z := rand.NewZipf(r.rand, math.Max(s, 1.0001), 1, maxSize)
	out := make([]uint64, n)
	for i := range out {
		out[i] = z.Uint64()
	}
	return out
}

// Fill writes a pattern derived from tag into b so that overlapping
// allocations can be detected later with Check.
func Fill(b []byte, tag uint64) {
	for i := range b {
		b[i] = patternByte(tag, i)
	}
}

// Check returns the index of the first byte of b that does not carry the
// pattern written by Fill(b, tag), or -1 if all do.
func Check(b []byte, tag uint64) int {
	for i := range b {
		if b[i] != patternByte(tag, i) {
			return i
		}
	}
	return -1
}

func patternByte(tag uint64, i int) byte {
	return byte(tag*31 + uint64(i)*7 + 1) //nolint:gosec // truncation intended
}
