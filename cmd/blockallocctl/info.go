package main

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newInfoCmd())
}

func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Attach an arena and report its configuration",
		Long: `The info command attaches an allocator with the configured arena, prints
its layout and statistics, and detaches again.

Example:
  blockallocctl info --heap-size 1GiB --pin never
  BLOCKALLOC_HEAP_SIZE=2GiB blockallocctl info --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(cmd.Context())
		},
	}
	return cmd
}

func runInfo(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openAllocator(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	stats := a.Stats()
	if jsonOut {
		return printJSON(stats)
	}

	printInfo("\nArena:\n")
	printInfo("  Heap size:       %s (%d bytes)\n", humanize.IBytes(stats.HeapSize), stats.HeapSize)
	printInfo("  Block size:      %d bytes\n", stats.BlockSize)
	printInfo("  Blocks:          %s\n", humanize.Comma(int64(stats.NumBlocks)))
	printInfo("  Pinned:          %t\n", stats.Pinned)
	printInfo("  Pages touched:   %s\n", humanize.Comma(int64(stats.PagesTouched)))
	printInfo("  Huge pages:      %t\n", stats.HugePages)
	printInfo("  Total committed: %s\n", humanize.IBytes(a.TotalCommitted()))
	printInfo("  Total reserved:  %s\n", humanize.IBytes(a.TotalReserved()))
	printInfo("  Free runs:       %d\n", stats.FreeRuns)
	printInfo("  Largest run:     %s blocks\n", humanize.Comma(int64(stats.LargestFreeRun)))
	if stats.MemoryLimit > 0 {
		printInfo("  Memory limit:    %s\n", humanize.IBytes(uint64(stats.MemoryLimit)))
	}

	return nil
}
