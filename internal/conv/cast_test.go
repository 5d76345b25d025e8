package conv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUint64ToInt(t *testing.T) {
	got, err := Uint64ToInt(8 << 30)
	require.NoError(t, err)
	assert.Equal(t, 8<<30, got)

	_, err = Uint64ToInt(math.MaxUint64)
	assert.Error(t, err)
}

func TestUint64ToInt64(t *testing.T) {
	got, err := Uint64ToInt64(math.MaxInt64)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), got)

	_, err = Uint64ToInt64(math.MaxInt64 + 1)
	assert.Error(t, err)
}

func TestUint64ToUint32(t *testing.T) {
	t.Run("fits", func(t *testing.T) {
		got, err := Uint64ToUint32(1 << 30)
		require.NoError(t, err)
		assert.Equal(t, uint32(1<<30), got)
	})

	t.Run("max", func(t *testing.T) {
		got, err := Uint64ToUint32(math.MaxUint32)
		require.NoError(t, err)
		assert.Equal(t, uint32(math.MaxUint32), got)
	})

	t.Run("too large", func(t *testing.T) {
		_, err := Uint64ToUint32(1 << 32)
		assert.Error(t, err)
	})
}
