package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRNG_Deterministic(t *testing.T) {
	a := NewRNG(4711)
	b := NewRNG(4711)

	assert.Equal(t, a.Sizes(64, 1024), b.Sizes(64, 1024))
	assert.Equal(t, uint64(4711), a.Seed())

	first := a.Uint64N(1 << 40)
	a.Reset()
	a.Sizes(64, 1024)
	assert.Equal(t, first, a.Uint64N(1<<40))
}

func TestRNG_Sizes(t *testing.T) {
	rng := NewRNG(1)

	for _, s := range rng.Sizes(1000, 100) {
		assert.LessOrEqual(t, s, uint64(100))
	}
	assert.Equal(t, []uint64{0, 0, 0}, rng.Sizes(3, 0))
}

func TestRNG_ZipfSizes(t *testing.T) {
	rng := NewRNG(1)
	sizes := rng.ZipfSizes(10000, 1<<20, 1.2)

	small := 0
	for _, s := range sizes {
		assert.LessOrEqual(t, s, uint64(1<<20))
		if s < 64 {
			small++
		}
	}
	assert.Greater(t, small, len(sizes)/2)
}

func TestRNG_Concurrent(t *testing.T) {
	rng := NewRNG(7)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 1000 {
				_ = rng.Intn(10)
			}
		}()
	}
	wg.Wait()
}

func TestFillCheck(t *testing.T) {
	b := make([]byte, 100)
	Fill(b, 3)
	assert.Equal(t, -1, Check(b, 3))
	assert.Equal(t, 0, Check(b, 4))

	b[42]++
	assert.Equal(t, 42, Check(b, 3))
	assert.Equal(t, -1, Check(nil, 3))
}
