package mmap

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapAnon_ReadWriteClose(t *testing.T) {
	size := 4 * os.Getpagesize()
	m, err := MapAnon(size, 0)
	require.NoError(t, err)

	assert.Equal(t, size, m.Size())
	data := m.Bytes()
	require.Len(t, data, size)

	// Fresh anonymous memory is zeroed.
	for _, b := range data[:64] {
		assert.Zero(t, b)
	}

	data[0] = 1
	data[size-1] = 2
	assert.Equal(t, byte(1), m.Bytes()[0])
	assert.Equal(t, byte(2), m.Bytes()[size-1])

	require.NoError(t, m.Close())
	require.NoError(t, m.Close(), "close must be idempotent")

	assert.Nil(t, m.Bytes())
	assert.ErrorIs(t, m.Advise(AccessRandom), ErrClosed)
	assert.ErrorIs(t, m.Lock(), ErrClosed)
}

func TestMapAnon_InvalidSize(t *testing.T) {
	_, err := MapAnon(0, 0)
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = MapAnon(-1, NoReserve)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestMapAnon_NoReserve(t *testing.T) {
	m, err := MapAnon(16*os.Getpagesize(), NoReserve)
	require.NoError(t, err)
	defer m.Close()

	m.Bytes()[0] = 42
	assert.Equal(t, byte(42), m.Bytes()[0])
}

func TestMapping_LockUnlock(t *testing.T) {
	m, err := MapAnon(os.Getpagesize(), 0)
	require.NoError(t, err)
	defer m.Close()

	// A single page fits in the default RLIMIT_MEMLOCK on every CI image we
	// know of, but the limit is host policy, so skip rather than fail.
	if err := m.Lock(); err != nil {
		t.Skipf("mlock not permitted here: %v", err)
	}
	assert.True(t, m.Locked())
	require.NoError(t, m.Lock(), "second lock is a no-op")

	require.NoError(t, m.Unlock())
	assert.False(t, m.Locked())
	require.NoError(t, m.Unlock(), "second unlock is a no-op")
}

func TestMapping_Region(t *testing.T) {
	page := os.Getpagesize()
	m, err := MapAnon(2*page, 0)
	require.NoError(t, err)

	r, err := m.Region(100, 200)
	require.NoError(t, err)
	assert.Len(t, r.Bytes(), 200)
	assert.Equal(t, 200, cap(r.Bytes()))

	r.Bytes()[0] = 7
	assert.Equal(t, byte(7), m.Bytes()[100])

	require.NoError(t, m.Advise(AccessWillNeed))

	_, err = m.Region(-1, 0)
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = m.Region(page, 2*page)
	assert.ErrorIs(t, err, ErrOutOfBounds)

	require.NoError(t, m.Close())
	assert.Nil(t, r.Bytes())
	_, err = m.Region(0, 1)
	assert.ErrorIs(t, err, ErrClosed)
}
