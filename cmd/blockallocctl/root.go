package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hupe1980/blockalloc"
)

var (
	// Global flags
	verbose  bool
	quiet    bool
	jsonOut  bool
	logLevel string

	// Arena flags; empty strings keep the environment or default value.
	heapSize       string
	blockSize      string
	pinPolicy      string
	noPrefault     bool
	alignAddresses bool
)

var rootCmd = &cobra.Command{
	Use:   "blockallocctl",
	Short: "Exercise and inspect the blockalloc block allocator",
	Long: `blockallocctl builds an allocator in-process and reports on it. It can
attach an arena and print its statistics, drive it with concurrent random
traffic while checking its invariants, and inspect occupancy snapshots.

Arena settings are read from the BLOCKALLOC_* environment variables first and
then overridden by flags.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Allocator log level (debug, info, warn, error)")

	// Arena flags
	rootCmd.PersistentFlags().StringVar(&heapSize, "heap-size", "", "Arena size, e.g. 1GiB (default from env or 8GiB)")
	rootCmd.PersistentFlags().StringVar(&blockSize, "block-size", "", "Block size, e.g. 8 or 512B")
	rootCmd.PersistentFlags().StringVar(&pinPolicy, "pin", "", "Pin policy: required, best-effort or never")
	rootCmd.PersistentFlags().BoolVar(&noPrefault, "no-prefault", false, "Skip touching every page at attach")
	rootCmd.PersistentFlags().BoolVar(&alignAddresses, "align-addresses", false, "Align addresses returned by aligned allocations")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v\n", err)
		os.Exit(1)
	}
}

// loadConfig merges the environment with the arena flags.
func loadConfig() (blockalloc.Config, error) {
	cfg, err := blockalloc.ConfigFromEnv(blockalloc.DefaultEnvPrefix)
	if err != nil {
		return cfg, err
	}
	if heapSize != "" {
		if cfg.HeapSize, err = humanize.ParseBytes(heapSize); err != nil {
			return cfg, fmt.Errorf("--heap-size: %w", err)
		}
	}
	if blockSize != "" {
		if cfg.BlockSize, err = humanize.ParseBytes(blockSize); err != nil {
			return cfg, fmt.Errorf("--block-size: %w", err)
		}
	}
	if pinPolicy != "" {
		if cfg.Pin, err = blockalloc.ParsePinPolicy(pinPolicy); err != nil {
			return cfg, fmt.Errorf("--pin: %w", err)
		}
	}
	if noPrefault {
		cfg.Prefault = false
	}
	if alignAddresses {
		cfg.AlignAddresses = true
	}
	return cfg, cfg.Validate()
}

// openAllocator attaches an allocator using the merged configuration.
func openAllocator(ctx context.Context, opts ...blockalloc.Option) (*blockalloc.Allocator, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	level, err := blockalloc.ParseLogLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("--log-level: %w", err)
	}
	if verbose && level > slog.LevelInfo {
		level = slog.LevelInfo
	}

	printVerbose("Attaching %s arena of %s blocks (pin=%s, prefault=%t)\n",
		humanize.IBytes(cfg.HeapSize), humanize.Comma(int64(min(cfg.NumBlocks(), 1<<62))), cfg.Pin, cfg.Prefault)

	opts = append([]blockalloc.Option{blockalloc.WithLogger(blockalloc.NewTextLogger(level))}, opts...)
	a, err := blockalloc.New(ctx, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to attach allocator: %w", err)
	}
	return a, nil
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printError prints an error message
func printError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format, args...)
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
