package blockalloc

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/hupe1980/blockalloc/internal/arena"
	"github.com/hupe1980/blockalloc/internal/audit"
	"github.com/hupe1980/blockalloc/internal/mem"
)

const (
	// DefaultHeapSize is the arena size used when none is configured (8 GiB).
	DefaultHeapSize = 8 * 1024 * 1024 * 1024
	// DefaultBlockSize is the allocation granularity (8 bytes).
	DefaultBlockSize = 8
	// DefaultEnvPrefix prefixes the environment variables read by ConfigFromEnv.
	DefaultEnvPrefix = "BLOCKALLOC_"
)

// PinPolicy controls whether the arena is locked into physical memory.
type PinPolicy = arena.PinPolicy

const (
	// PinRequired fails New when the arena cannot be locked.
	PinRequired = arena.PinRequired
	// PinBestEffort locks the arena if the host allows it.
	PinBestEffort = arena.PinBestEffort
	// PinNever leaves the arena swappable.
	PinNever = arena.PinNever
)

// ParsePinPolicy parses "required", "best-effort" or "never".
func ParsePinPolicy(s string) (PinPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "required", "true", "1":
		return PinRequired, nil
	case "best-effort", "besteffort":
		return PinBestEffort, nil
	case "never", "false", "0":
		return PinNever, nil
	default:
		return 0, fmt.Errorf("%w: unknown pin policy %q", ErrInvalidConfig, s)
	}
}

// Config sizes and tunes an Allocator.
type Config struct {
	// HeapSize is the arena size in bytes. It must be a multiple of BlockSize.
	HeapSize uint64
	// BlockSize is the allocation granularity. It must be a power of two.
	BlockSize uint64
	// PageSize is the stride used to touch the arena during warm-up.
	PageSize int
	// Pin selects whether the arena is locked into physical memory.
	Pin PinPolicy
	// Prefault writes one byte per page at attach so every page is
	// physically backed before the first allocation.
	Prefault bool
	// PrefaultWorkers bounds the goroutines used by the warm-up (0 = GOMAXPROCS).
	PrefaultWorkers int
	// PrefaultBytesPerSec paces the warm-up (0 = unlimited).
	PrefaultBytesPerSec int64
	// MemoryLimitBytes caps the bytes held by live allocations (0 = no cap
	// beyond the arena itself).
	MemoryLimitBytes int64
	// AlignAddresses makes AllocAligned return addresses aligned to the
	// requested alignment instead of only padding the size.
	AlignAddresses bool
}

// DefaultConfig returns the reference sizing: an 8 GiB pinned, prefaulted
// arena of 8-byte blocks.
func DefaultConfig() Config {
	return Config{
		HeapSize:  DefaultHeapSize,
		BlockSize: DefaultBlockSize,
		PageSize:  os.Getpagesize(),
		Pin:       PinRequired,
		Prefault:  true,
	}
}

// NumBlocks returns HeapSize / BlockSize.
func (c Config) NumBlocks() uint64 {
	if c.BlockSize == 0 {
		return 0
	}
	return c.HeapSize / c.BlockSize
}

func (c Config) blockShift() uint {
	return mem.Log2(c.BlockSize)
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.HeapSize == 0:
		return fmt.Errorf("%w: heap size must be positive", ErrInvalidConfig)
	case !mem.IsPowerOfTwo(c.BlockSize):
		return fmt.Errorf("%w: block size %d is not a power of two", ErrInvalidConfig, c.BlockSize)
	case c.HeapSize%c.BlockSize != 0:
		return fmt.Errorf("%w: heap size %d is not a multiple of block size %d", ErrInvalidConfig, c.HeapSize, c.BlockSize)
	case c.NumBlocks() > audit.MaxBlocks:
		return fmt.Errorf("%w: %d blocks exceed the %d block limit", ErrInvalidConfig, c.NumBlocks(), uint64(audit.MaxBlocks))
	case c.PageSize <= 0:
		return fmt.Errorf("%w: page size must be positive", ErrInvalidConfig)
	case c.Pin < PinRequired || c.Pin > PinNever:
		return fmt.Errorf("%w: %s", ErrInvalidConfig, c.Pin)
	case c.PrefaultWorkers < 0:
		return fmt.Errorf("%w: negative prefault workers", ErrInvalidConfig)
	case c.PrefaultBytesPerSec < 0 || (c.PrefaultBytesPerSec > 0 && c.PrefaultBytesPerSec < int64(c.PageSize)):
		return fmt.Errorf("%w: prefault rate must be 0 or at least one page per second", ErrInvalidConfig)
	case c.MemoryLimitBytes < 0:
		return fmt.Errorf("%w: negative memory limit", ErrInvalidConfig)
	}
	return nil
}

// ConfigFromEnv starts from DefaultConfig and applies the variables
//
//	<prefix>HEAP_SIZE, <prefix>BLOCK_SIZE, <prefix>PAGE_SIZE   (e.g. "8GiB", "512", "4 KiB")
//	<prefix>PIN                                               (required | best-effort | never)
//	<prefix>PREFAULT, <prefix>ALIGN_ADDRESSES                  (bool)
//	<prefix>PREFAULT_WORKERS                                   (int)
//	<prefix>PREFAULT_RATE, <prefix>MEMORY_LIMIT                (bytes, "2GiB")
//
// Unset variables keep their defaults. The result is validated.
func ConfigFromEnv(prefix string) (Config, error) {
	cfg := DefaultConfig()
	var errs []error

	lookup := func(name string) (string, bool) {
		v, ok := os.LookupEnv(prefix + name)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}
	size := func(name string) (uint64, bool) {
		v, ok := lookup(name)
		if !ok {
			return 0, false
		}
		n, err := humanize.ParseBytes(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", prefix, name, err))
			return 0, false
		}
		return n, true
	}
	flag := func(name string) (bool, bool) {
		v, ok := lookup(name)
		if !ok {
			return false, false
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", prefix, name, err))
			return false, false
		}
		return b, true
	}

	if n, ok := size("HEAP_SIZE"); ok {
		cfg.HeapSize = n
	}
	if n, ok := size("BLOCK_SIZE"); ok {
		cfg.BlockSize = n
	}
	if n, ok := size("PAGE_SIZE"); ok {
		cfg.PageSize = int(min(n, 1<<30))
	}
	if v, ok := lookup("PIN"); ok {
		p, err := ParsePinPolicy(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sPIN: %w", prefix, err))
		} else {
			cfg.Pin = p
		}
	}
	if b, ok := flag("PREFAULT"); ok {
		cfg.Prefault = b
	}
	if b, ok := flag("ALIGN_ADDRESSES"); ok {
		cfg.AlignAddresses = b
	}
	if v, ok := lookup("PREFAULT_WORKERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sPREFAULT_WORKERS: %w", prefix, err))
		} else {
			cfg.PrefaultWorkers = n
		}
	}
	if n, ok := size("PREFAULT_RATE"); ok {
		cfg.PrefaultBytesPerSec = int64(min(n, 1<<62))
	}
	if n, ok := size("MEMORY_LIMIT"); ok {
		cfg.MemoryLimitBytes = int64(min(n, 1<<62))
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
