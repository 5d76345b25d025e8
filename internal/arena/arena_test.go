package arena

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/blockalloc/internal/resource"
)

func testConfig(size uint64) Config {
	return Config{
		Size:     size,
		PageSize: os.Getpagesize(),
		Pin:      PinNever,
		Prefault: true,
	}
}

func TestArena_New(t *testing.T) {
	t.Run("prefaulted", func(t *testing.T) {
		cfg := testConfig(1 << 20)
		a, err := New(context.Background(), cfg)
		require.NoError(t, err)
		defer a.Close()

		assert.NotNil(t, a.Base())
		assert.Equal(t, uint64(1<<20), a.Size())
		assert.False(t, a.Pinned())

		stats := a.Stats()
		assert.Equal(t, uint64(1<<20)/uint64(cfg.PageSize), stats.PagesTouched)

		// Every page carries the warm-up byte.
		data, err := a.Bytes(0, a.Size())
		require.NoError(t, err)
		for off := 0; off < len(data); off += cfg.PageSize {
			require.Equal(t, byte(1), data[off], "page at %d not touched", off)
		}
	})

	t.Run("lazy", func(t *testing.T) {
		cfg := testConfig(1 << 20)
		cfg.Prefault = false
		a, err := New(context.Background(), cfg)
		require.NoError(t, err)
		defer a.Close()

		assert.Zero(t, a.Stats().PagesTouched)
	})

	t.Run("page aligned base", func(t *testing.T) {
		a, err := New(context.Background(), testConfig(64<<10))
		require.NoError(t, err)
		defer a.Close()

		assert.Zero(t, uintptr(a.Base())%uintptr(os.Getpagesize()))
	})
}

func TestArena_InvalidConfig(t *testing.T) {
	_, err := New(context.Background(), Config{Size: 0, PageSize: 4096})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(context.Background(), Config{Size: 4096, PageSize: 0})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestArena_PinBestEffort(t *testing.T) {
	cfg := testConfig(64 << 10)
	cfg.Pin = PinBestEffort
	a, err := New(context.Background(), cfg)
	require.NoError(t, err, "best effort never fails bootstrap on pin errors")
	defer a.Close()

	// Whether the lock succeeded depends on RLIMIT_MEMLOCK; both outcomes are valid.
	t.Logf("pinned=%v", a.Pinned())
}

func TestArena_PinRequired(t *testing.T) {
	cfg := testConfig(64 << 10)
	cfg.Pin = PinRequired
	a, err := New(context.Background(), cfg)
	if err != nil {
		var be *BootstrapError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, StagePin, be.Stage)
		assert.Equal(t, cfg.Size, be.Size)
		return
	}
	defer a.Close()
	assert.True(t, a.Pinned())
}

func TestArena_MapFailure(t *testing.T) {
	// Far beyond any address space the tests run with.
	cfg := testConfig(1 << 62)
	cfg.Prefault = false
	_, err := New(context.Background(), cfg)
	require.Error(t, err)

	var be *BootstrapError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, StageMap, be.Stage)
	assert.NotNil(t, errors.Unwrap(err))
}

func TestArena_PrefaultCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(ctx, testConfig(1<<20))
	var be *BootstrapError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, StagePrefault, be.Stage)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestArena_PrefaultPaced(t *testing.T) {
	page := os.Getpagesize()
	rc := resource.NewController(resource.Config{PrefaultBytesPerSec: int64(64 * page)})

	cfg := testConfig(uint64(16 * page))
	cfg.PrefaultWorkers = 2
	a, err := New(context.Background(), cfg, WithResourceController(rc))
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, uint64(16), a.Stats().PagesTouched)
}

func TestArena_Close(t *testing.T) {
	a, err := New(context.Background(), testConfig(64<<10))
	require.NoError(t, err)

	require.NoError(t, a.Close())
	require.NoError(t, a.Close(), "close must be idempotent")

	assert.True(t, a.Closed())
	assert.Nil(t, a.Base())
	assert.False(t, a.Pinned())

	_, err = a.Bytes(0, 1)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestArena_Bytes(t *testing.T) {
	a, err := New(context.Background(), testConfig(64<<10))
	require.NoError(t, err)
	defer a.Close()

	b, err := a.Bytes(128, 16)
	require.NoError(t, err)
	assert.Len(t, b, 16)
	b[0] = 0xAB

	all, err := a.Bytes(0, a.Size())
	require.NoError(t, err)
	assert.Equal(t, byte(0xAB), all[128])

	_, err = a.Bytes(a.Size()-8, 16)
	assert.Error(t, err)
}

func TestPinPolicy_String(t *testing.T) {
	assert.Equal(t, "required", PinRequired.String())
	assert.Equal(t, "best-effort", PinBestEffort.String())
	assert.Equal(t, "never", PinNever.String())
	assert.Equal(t, "PinPolicy(9)", PinPolicy(9).String())
}
