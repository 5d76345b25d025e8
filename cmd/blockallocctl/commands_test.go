package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/blockalloc"
)

func TestLoadConfig(t *testing.T) {
	withArena(t, "2MiB")
	blockSize = "512"
	alignAddresses = true
	noPrefault = true

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, uint64(2<<20), cfg.HeapSize)
	assert.Equal(t, uint64(512), cfg.BlockSize)
	assert.Equal(t, blockalloc.PinNever, cfg.Pin)
	assert.False(t, cfg.Prefault)
	assert.True(t, cfg.AlignAddresses)

	t.Run("invalid", func(t *testing.T) {
		for _, tc := range []struct{ heap, block, pin string }{
			{"lots", "", "never"},
			{"1MiB", "24", "never"},
			{"1MiB", "", "sometimes"},
		} {
			heapSize, blockSize, pinPolicy = tc.heap, tc.block, tc.pin
			_, err := loadConfig()
			assert.Error(t, err, "%+v", tc)
		}
	})
}

func TestInfoCommand(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		withArena(t, "1MiB")

		out, err := captureOutput(t, func() error { return runInfo(context.Background()) })
		require.NoError(t, err)
		assert.Contains(t, out, "Heap size:       1.0 MiB (1048576 bytes)")
		assert.Contains(t, out, "Blocks:          131,072")
		assert.Contains(t, out, "Free runs:       1")
	})

	t.Run("json", func(t *testing.T) {
		withArena(t, "1MiB")
		jsonOut = true

		out, err := captureOutput(t, func() error { return runInfo(context.Background()) })
		require.NoError(t, err)

		var stats blockalloc.Stats
		assertJSON(t, out, &stats)
		assert.Equal(t, uint64(1<<20), stats.HeapSize)
		assert.Equal(t, uint64(1<<17), stats.FreeBlocks)
		assert.True(t, stats.HugePages)
	})

	t.Run("bad log level", func(t *testing.T) {
		withArena(t, "1MiB")
		logLevel = "chatty"

		_, err := captureOutput(t, func() error { return runInfo(context.Background()) })
		assert.Error(t, err)
	})
}

func TestStressAndInspect(t *testing.T) {
	for _, compression := range []string{"none", "lz4", "zstd"} {
		t.Run(compression, func(t *testing.T) {
			withArena(t, "4MiB")
			dump := filepath.Join(t.TempDir(), "occupancy.blks")

			opts := stressOptions{
				workers:     4,
				ops:         2000,
				maxSize:     "2KiB",
				maxLive:     16,
				seed:        7,
				dumpPath:    dump,
				compression: compression,
			}
			out, err := captureOutput(t, func() error { return runStress(context.Background(), opts) })
			require.NoError(t, err)
			assert.Contains(t, out, "Operations:   8,000")
			assert.Contains(t, out, "partition the arena")

			info, err := os.Stat(dump)
			require.NoError(t, err)
			assert.Positive(t, info.Size())

			out, err = captureOutput(t, func() error { return runInspect([]string{dump}) })
			require.NoError(t, err)
			assert.Contains(t, out, "Blocks:      524,288")
			assert.Contains(t, out, "✓ Free and live blocks partition the arena")

			jsonOut = true
			out, err = captureOutput(t, func() error { return runInspect([]string{dump}) })
			require.NoError(t, err)

			var res inspectResult
			assertJSON(t, out, &res)
			assert.True(t, res.Consistent)
			assert.Equal(t, uint64(1<<19), res.NumBlocks)
			assert.Equal(t, res.NumBlocks, res.FreeBlocks+res.LiveBlocks)
		})
	}
}

func TestStressCommand_JSON(t *testing.T) {
	withArena(t, "1MiB")
	jsonOut = true

	opts := stressOptions{workers: 2, ops: 500, maxSize: "512B", maxLive: 8, seed: 1, compression: "none"}
	out, err := captureOutput(t, func() error { return runStress(context.Background(), opts) })
	require.NoError(t, err)

	var res stressResult
	assertJSON(t, out, &res)
	assert.Equal(t, 1000, res.Ops)
	assert.Equal(t, res.Stats.NumBlocks, res.Stats.FreeBlocks)
	assert.Equal(t, res.Stats.TotalAllocs, res.Stats.TotalFrees)
}

func TestStressCommand_Exhaustion(t *testing.T) {
	withArena(t, "64KiB")

	opts := stressOptions{workers: 4, ops: 1000, maxSize: "16KiB", maxLive: 64, seed: 3, compression: "none"}
	out, err := captureOutput(t, func() error { return runStress(context.Background(), opts) })
	require.NoError(t, err)
	assert.NotContains(t, out, "Exhausted:    0\n")
}

func TestStressCommand_InvalidOptions(t *testing.T) {
	withArena(t, "1MiB")

	tests := []stressOptions{
		{workers: 0, ops: 1, maxSize: "1KiB", maxLive: 1, compression: "none"},
		{workers: 1, ops: 1, maxSize: "huge", maxLive: 1, compression: "none"},
		{workers: 1, ops: 1, maxSize: "1KiB", maxLive: 1, compression: "brotli"},
	}
	for _, opts := range tests {
		_, err := captureOutput(t, func() error { return runStress(context.Background(), opts) })
		assert.Error(t, err, "%+v", opts)
	}
}

func TestInspectCommand_Errors(t *testing.T) {
	withArena(t, "1MiB")
	dir := t.TempDir()

	_, err := captureOutput(t, func() error { return runInspect([]string{filepath.Join(dir, "missing")}) })
	assert.Error(t, err)

	garbage := filepath.Join(dir, "garbage")
	require.NoError(t, os.WriteFile(garbage, []byte("not a snapshot at all"), 0o600))
	_, err = captureOutput(t, func() error { return runInspect([]string{garbage}) })
	assert.Error(t, err)
}

func TestRootCommand(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"info", "stress", "inspect"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}
