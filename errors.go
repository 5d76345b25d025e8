package blockalloc

import (
	"errors"
	"fmt"

	"github.com/hupe1980/blockalloc/internal/arena"
	"github.com/hupe1980/blockalloc/internal/registry"
	"github.com/hupe1980/blockalloc/internal/resource"
)

var (
	// ErrOutOfMemory is returned when no run of free blocks is long enough
	// for the request.
	ErrOutOfMemory = errors.New("out of memory")

	// ErrClosed is returned when the allocator has been closed.
	ErrClosed = errors.New("allocator is closed")

	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = arena.ErrInvalidConfig

	// ErrInvalidAlignment is returned when an alignment is zero or not a power of two.
	ErrInvalidAlignment = errors.New("invalid alignment")

	// ErrInvalidPointer is the cause of the panic raised for a pointer
	// that does not lie on a block boundary inside the arena.
	ErrInvalidPointer = errors.New("invalid pointer")

	// ErrUnknownAllocation is the cause of the panic raised when a free or
	// size query names something that is not a live allocation.
	ErrUnknownAllocation = registry.ErrUnknown

	// ErrMemoryLimitExceeded is returned when the configured live-byte
	// budget would be exceeded.
	ErrMemoryLimitExceeded = resource.ErrMemoryLimitExceeded
)

// BootstrapError reports which attach stage failed. It is always fatal for
// the process-wide allocator.
type BootstrapError = arena.BootstrapError

// InvalidPointerError describes a pointer handed back to the allocator that
// it never produced.
//
// The cause can be matched with errors.Is(err, ErrInvalidPointer).
type InvalidPointerError struct {
	Addr   uintptr
	Base   uintptr
	Size   uint64
	Reason string
}

func (e *InvalidPointerError) Error() string {
	return fmt.Sprintf("invalid pointer %#x (arena %#x+%d): %s", e.Addr, e.Base, e.Size, e.Reason)
}

func (e *InvalidPointerError) Unwrap() error { return ErrInvalidPointer }

// InvalidAlignmentError describes a rejected alignment.
type InvalidAlignmentError struct {
	Alignment uint64
}

func (e *InvalidAlignmentError) Error() string {
	return fmt.Sprintf("invalid alignment %d: must be a non-zero power of two", e.Alignment)
}

func (e *InvalidAlignmentError) Unwrap() error { return ErrInvalidAlignment }
