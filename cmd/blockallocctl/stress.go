package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/blockalloc"
)

type stressOptions struct {
	workers     int
	ops         int
	maxSize     string
	maxLive     int
	seed        uint64
	dumpPath    string
	compression string
}

type stressResult struct {
	Workers    int              `json:"workers"`
	Ops        int              `json:"ops"`
	Exhausted  int64            `json:"exhausted"`
	Elapsed    time.Duration    `json:"elapsed_ns"`
	OpsPerSec  float64          `json:"ops_per_sec"`
	Stats      blockalloc.Stats `json:"stats"`
	SnapshotTo string           `json:"snapshot,omitempty"`
}

func init() {
	rootCmd.AddCommand(newStressCmd())
}

func newStressCmd() *cobra.Command {
	var opts stressOptions

	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Drive the allocator with concurrent random traffic",
		Long: `The stress command attaches an allocator and runs random allocate and free
operations from several goroutines. Every allocation is filled with a
per-worker pattern that is checked again before it is freed. At the end the
free list and the registry are verified to partition the arena, and an
occupancy snapshot can be written for later inspection.

Example:
  blockallocctl stress --heap-size 256MiB --pin never --workers 8 --ops 100000
  blockallocctl stress --dump occupancy.blks --compression zstd`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress(cmd.Context(), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.workers, "workers", "w", runtime.GOMAXPROCS(0), "Number of concurrent workers")
	cmd.Flags().IntVarP(&opts.ops, "ops", "n", 10000, "Operations per worker")
	cmd.Flags().StringVar(&opts.maxSize, "max-size", "4KiB", "Largest single request")
	cmd.Flags().IntVar(&opts.maxLive, "max-live", 64, "Allocations a worker holds before it must free")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 1, "Random seed")
	cmd.Flags().StringVar(&opts.dumpPath, "dump", "", "Write an occupancy snapshot to this file before freeing")
	cmd.Flags().StringVar(&opts.compression, "compression", "zstd", "Snapshot compression: none, lz4 or zstd")

	return cmd
}

func runStress(ctx context.Context, opts stressOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.workers <= 0 || opts.ops < 0 || opts.maxLive <= 0 {
		return fmt.Errorf("workers and max-live must be positive, ops must not be negative")
	}
	maxSize, err := humanize.ParseBytes(opts.maxSize)
	if err != nil {
		return fmt.Errorf("--max-size: %w", err)
	}
	compression, err := blockalloc.ParseCompression(opts.compression)
	if err != nil {
		return fmt.Errorf("--compression: %w", err)
	}

	a, err := openAllocator(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	held := make([][]blockalloc.Handle, opts.workers)
	exhausted := make([]int64, opts.workers)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for w := range opts.workers {
		g.Go(func() error {
			var err error
			held[w], exhausted[w], err = stressWorker(gctx, a, w, opts, maxSize)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	if err := a.Verify(); err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}
	printVerbose("Verified %d live allocations\n", a.Stats().LiveAllocations)

	if opts.dumpPath != "" {
		if err := a.SaveSnapshot(opts.dumpPath, compression); err != nil {
			return fmt.Errorf("failed to write snapshot: %w", err)
		}
		printVerbose("Snapshot written to %s (%s)\n", opts.dumpPath, compression)
	}

	for _, hs := range held {
		for _, h := range hs {
			a.FreeHandle(h)
		}
	}
	if err := a.Verify(); err != nil {
		return fmt.Errorf("verification after release failed: %w", err)
	}

	stats := a.Stats()
	if stats.FreeBlocks != stats.NumBlocks {
		return fmt.Errorf("%d blocks still in use after releasing everything", stats.NumBlocks-stats.FreeBlocks)
	}

	var total int64
	for _, n := range exhausted {
		total += n
	}
	res := stressResult{
		Workers:    opts.workers,
		Ops:        opts.workers * opts.ops,
		Exhausted:  total,
		Elapsed:    elapsed,
		OpsPerSec:  float64(opts.workers*opts.ops) / max(elapsed.Seconds(), 1e-9),
		Stats:      stats,
		SnapshotTo: opts.dumpPath,
	}
	if jsonOut {
		return printJSON(res)
	}

	printInfo("\nStress:\n")
	printInfo("  Workers:      %d\n", res.Workers)
	printInfo("  Operations:   %s\n", humanize.Comma(int64(res.Ops)))
	printInfo("  Exhausted:    %d\n", res.Exhausted)
	printInfo("  Elapsed:      %s\n", elapsed.Round(time.Millisecond))
	printInfo("  Throughput:   %s ops/s\n", humanize.Comma(int64(res.OpsPerSec)))
	printInfo("  Allocs/frees: %d / %d\n", stats.TotalAllocs, stats.TotalFrees)
	printInfo("\nValidation:\n")
	printInfo("  ✓ Free list and registry partition the arena\n")

	return nil
}

// stressWorker runs opts.ops random operations and returns the handles it
// still holds.
func stressWorker(ctx context.Context, a *blockalloc.Allocator, id int, opts stressOptions, maxSize uint64) ([]blockalloc.Handle, int64, error) {
	r := rand.New(rand.NewPCG(opts.seed, uint64(id)))
	pattern := byte(id + 1)
	var (
		held      []blockalloc.Handle
		exhausted int64
	)

	for i := range opts.ops {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return held, exhausted, err
			}
		}

		if len(held) > 0 && (len(held) >= opts.maxLive || r.IntN(2) == 0) {
			j := r.IntN(len(held))
			h := held[j]
			for k, b := range a.Bytes(h) {
				if b != pattern {
					return held, exhausted, fmt.Errorf("worker %d: allocation %d corrupted at byte %d", id, h, k)
				}
			}
			a.FreeHandle(h)
			held[j] = held[len(held)-1]
			held = held[:len(held)-1]
			continue
		}

		h, err := a.AllocHandle(ctx, r.Uint64N(maxSize+1))
		if errors.Is(err, blockalloc.ErrOutOfMemory) || errors.Is(err, blockalloc.ErrMemoryLimitExceeded) {
			exhausted++
			continue
		}
		if err != nil {
			return held, exhausted, err
		}
		b := a.Bytes(h)
		for k := range b {
			b[k] = pattern
		}
		held = append(held, h)
	}
	return held, exhausted, nil
}
