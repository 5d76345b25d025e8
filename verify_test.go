package blockalloc

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/blockalloc/internal/audit"
	"github.com/hupe1980/blockalloc/internal/fs"
)

func TestAllocator_Snapshot(t *testing.T) {
	a := newTestAllocator(t, testConfig(64<<10))

	var hs []Handle
	for _, size := range []uint64{8, 100, 4096, 8, 256} {
		h, err := a.AllocHandle(context.Background(), size)
		require.NoError(t, err)
		hs = append(hs, h)
	}
	a.FreeHandle(hs[1])
	a.FreeHandle(hs[3])

	s, err := a.Snapshot()
	require.NoError(t, err)
	require.NoError(t, s.Check())

	stats := a.Stats()
	assert.Equal(t, stats.FreeBlocks, s.FreeBlocks())
	assert.Equal(t, stats.LiveBlocks, s.LiveBlocks())
	assert.Equal(t, 3, s.LiveAllocations())
	assert.Equal(t, stats.FreeRuns, s.FreeRuns())
	assert.True(t, s.Live.Contains(uint32(hs[0])))
	assert.False(t, s.Live.Contains(uint32(hs[1])))
	assert.True(t, s.Free.Contains(uint32(hs[1])))

	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, a.WriteSnapshot(&buf, c))

			got, err := ReadSnapshot(&buf)
			require.NoError(t, err)
			require.NoError(t, got.Check())
			assert.Equal(t, stats.NumBlocks, got.NumBlocks)
			assert.True(t, s.Free.Equals(got.Free))
			assert.True(t, s.Live.Equals(got.Live))
			assert.Equal(t, stats.FreeRuns, got.FreeRuns())
		})
	}
}

func TestAllocator_Verify(t *testing.T) {
	a := newTestAllocator(t, testConfig(64<<10))
	require.NoError(t, a.Verify())

	p := a.Alloc(1000)
	require.NotNil(t, p)
	require.NoError(t, a.Verify())

	// Corrupt the bookkeeping: a live record whose blocks are still free.
	a.live.Insert(4096, 1)
	require.Error(t, a.Verify())
	a.live.Remove(4096)
	require.NoError(t, a.Verify())

	// A live record at the head of the free run that follows p.
	a.live.Insert(125, 1)
	err := a.Verify()
	require.ErrorIs(t, err, audit.ErrOverlap)
	assert.Contains(t, err.Error(), "block 125 starts both")
	a.live.Remove(125)
	require.NoError(t, a.Verify())
}

func TestParseCompression(t *testing.T) {
	c, err := ParseCompression("zstd")
	require.NoError(t, err)
	assert.Equal(t, CompressionZSTD, c)

	_, err = ParseCompression("brotli")
	assert.Error(t, err)
}

func TestAllocator_SaveSnapshot(t *testing.T) {
	a := newTestAllocator(t, testConfig(64<<10))
	p := a.Alloc(4096)
	require.NotNil(t, p)

	path := filepath.Join(t.TempDir(), "occupancy.blks")
	require.NoError(t, a.SaveSnapshot(path, CompressionLZ4))

	s, err := LoadSnapshot(path)
	require.NoError(t, err)
	require.NoError(t, s.Check())
	assert.Equal(t, uint64(512), s.LiveBlocks())

	t.Run("write failure keeps old file", func(t *testing.T) {
		ffs := fs.NewFaultyFS(nil)
		ffs.AddRule(".tmp", fs.Fault{FailAfterBytes: 8})

		a.Free(p)
		err := a.saveSnapshot(ffs, path, CompressionNone)
		require.ErrorIs(t, err, fs.ErrInjected)

		s, err := LoadSnapshot(path)
		require.NoError(t, err)
		assert.Equal(t, uint64(512), s.LiveBlocks())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadSnapshot(filepath.Join(t.TempDir(), "nope"))
		assert.Error(t, err)
	})
}
