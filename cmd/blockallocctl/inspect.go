package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hupe1980/blockalloc"
)

type inspectResult struct {
	File        string `json:"file"`
	NumBlocks   uint64 `json:"num_blocks"`
	FreeBlocks  uint64 `json:"free_blocks"`
	LiveBlocks  uint64 `json:"live_blocks"`
	FreeRuns    int    `json:"free_runs"`
	Consistent  bool   `json:"consistent"`
	CheckResult string `json:"check,omitempty"`
}

func init() {
	rootCmd.AddCommand(newInspectCmd())
}

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <snapshot>",
		Short: "Summarise an occupancy snapshot",
		Long: `The inspect command decodes a snapshot written by "stress --dump" and
reports block occupancy and fragmentation. It exits with an error when the
free and live sets do not partition the arena.

Example:
  blockallocctl inspect occupancy.blks
  blockallocctl inspect occupancy.blks --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(args)
		},
	}
	return cmd
}

func runInspect(args []string) error {
	path := args[0]

	printVerbose("Opening snapshot: %s\n", path)

	s, err := blockalloc.LoadSnapshot(path)
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}

	checkErr := s.Check()
	res := inspectResult{
		File:       path,
		NumBlocks:  s.NumBlocks,
		FreeBlocks: s.FreeBlocks(),
		LiveBlocks: s.LiveBlocks(),
		FreeRuns:   s.FreeRuns(),
		Consistent: checkErr == nil,
	}
	if checkErr != nil {
		res.CheckResult = checkErr.Error()
	}

	if jsonOut {
		if err := printJSON(res); err != nil {
			return err
		}
	} else {
		printInfo("\nSnapshot:\n")
		printInfo("  File:        %s\n", res.File)
		printInfo("  Blocks:      %s\n", humanize.Comma(int64(res.NumBlocks)))
		printInfo("  Free blocks: %s\n", humanize.Comma(int64(res.FreeBlocks)))
		printInfo("  Live blocks: %s\n", humanize.Comma(int64(res.LiveBlocks)))
		printInfo("  Free runs:   %d\n", res.FreeRuns)
		if res.NumBlocks > 0 {
			printInfo("  Occupancy:   %.2f%%\n", 100*float64(res.LiveBlocks)/float64(res.NumBlocks))
		}
	}

	if checkErr != nil {
		return fmt.Errorf("snapshot is inconsistent: %w", checkErr)
	}
	if !jsonOut {
		printInfo("\nValidation:\n")
		printInfo("  ✓ Free and live blocks partition the arena\n")
	}
	return nil
}
