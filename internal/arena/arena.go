package arena

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/hupe1980/blockalloc/internal/conv"
	"github.com/hupe1980/blockalloc/internal/mmap"
	"github.com/hupe1980/blockalloc/internal/resource"
)

// PinPolicy controls whether the arena is locked into physical memory.
type PinPolicy int

const (
	// PinRequired fails bootstrap when the pages cannot be locked.
	PinRequired PinPolicy = iota
	// PinBestEffort tries to lock the pages and carries on unpinned on failure.
	PinBestEffort
	// PinNever leaves the pages swappable.
	PinNever
)

func (p PinPolicy) String() string {
	switch p {
	case PinRequired:
		return "required"
	case PinBestEffort:
		return "best-effort"
	case PinNever:
		return "never"
	default:
		return fmt.Sprintf("PinPolicy(%d)", int(p))
	}
}

// Config describes the arena to build.
type Config struct {
	// Size is the arena size in bytes.
	Size uint64
	// PageSize is the stride of the warm-up touch loop.
	PageSize int
	// Pin selects the locking behaviour.
	Pin PinPolicy
	// Prefault enables the warm-up step.
	Prefault bool
	// PrefaultWorkers bounds the goroutines used by the warm-up.
	// If <= 0, GOMAXPROCS is used.
	PrefaultWorkers int
}

// Stats describes an arena.
type Stats struct {
	Size             uint64
	Pinned           bool
	PagesTouched     uint64
	PrefaultDuration time.Duration
}

// Arena is the single reserved, committed and optionally pinned region.
type Arena struct {
	cfg Config

	mu   sync.RWMutex // guards base
	base unsafe.Pointer

	mapping *mmap.Mapping
	pinErr  error
	closed  atomic.Bool

	rc     *resource.Controller
	logger *slog.Logger

	pagesTouched     atomic.Uint64
	prefaultDuration time.Duration
}

// Option is a configuration option for Arena.
type Option func(*Arena)

// WithResourceController sets the controller used to pace the warm-up.
func WithResourceController(rc *resource.Controller) Option {
	return func(a *Arena) {
		a.rc = rc
	}
}

// WithLogger sets the logger for bootstrap and teardown events.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Arena) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New reserves, commits, pins and warms up a new arena. Any failure is
// returned as a *BootstrapError and leaves nothing mapped.
func New(ctx context.Context, cfg Config, opts ...Option) (*Arena, error) {
	if cfg.Size == 0 || cfg.PageSize <= 0 {
		return nil, fmt.Errorf("%w: size=%d page=%d", ErrInvalidConfig, cfg.Size, cfg.PageSize)
	}
	if cfg.PrefaultWorkers <= 0 {
		cfg.PrefaultWorkers = runtime.GOMAXPROCS(0)
	}

	size, err := conv.Uint64ToInt(cfg.Size)
	if err != nil {
		return nil, &BootstrapError{Stage: StageMap, Size: cfg.Size, Err: err}
	}

	a := &Arena{
		cfg:    cfg,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}

	// An arena that is neither pinned nor touched is only ever partially
	// used; do not charge the full size against the commit limit.
	var flags mmap.Flag
	if cfg.Pin == PinNever && !cfg.Prefault {
		flags |= mmap.NoReserve
	}

	mapping, err := mmap.MapAnon(size, flags)
	if err != nil {
		return nil, &BootstrapError{Stage: StageMap, Size: cfg.Size, Err: err}
	}
	a.mapping = mapping

	if cfg.Pin != PinNever {
		if err := mapping.Lock(); err != nil {
			if cfg.Pin == PinRequired {
				_ = mapping.Close()
				return nil, &BootstrapError{Stage: StagePin, Size: cfg.Size, Err: err}
			}
			a.pinErr = err
		}
	}

	if cfg.Prefault {
		start := time.Now()
		if err := a.prefault(ctx); err != nil {
			_ = mapping.Close()
			return nil, &BootstrapError{Stage: StagePrefault, Size: cfg.Size, Err: err}
		}
		a.prefaultDuration = time.Since(start)
	}

	data := mapping.Bytes()
	a.mu.Lock()
	a.base = unsafe.Pointer(unsafe.SliceData(data)) //nolint:gosec // off-heap arena memory
	a.mu.Unlock()

	a.logger.Debug("arena ready",
		"size", cfg.Size,
		"pinned", mapping.Locked(),
		"pages_touched", a.pagesTouched.Load(),
		"prefault", a.prefaultDuration,
	)

	return a, nil
}

// Base returns a pointer to the first byte of the arena, or nil once closed.
func (a *Arena) Base() unsafe.Pointer {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.base
}

// Size returns the arena size in bytes.
func (a *Arena) Size() uint64 {
	return a.cfg.Size
}

// Pinned reports whether the arena is locked into physical memory.
func (a *Arena) Pinned() bool {
	return !a.closed.Load() && a.mapping.Locked()
}

// PinError returns the lock failure tolerated under PinBestEffort, if any.
func (a *Arena) PinError() error {
	return a.pinErr
}

// Closed reports whether Close has been called.
func (a *Arena) Closed() bool {
	return a.closed.Load()
}

// Bytes returns a view of n bytes starting at offset off. The slice is only
// valid until Close.
func (a *Arena) Bytes(off, n uint64) ([]byte, error) {
	if a.closed.Load() {
		return nil, ErrClosed
	}
	o, err := conv.Uint64ToInt(off)
	if err != nil {
		return nil, err
	}
	l, err := conv.Uint64ToInt(n)
	if err != nil {
		return nil, err
	}
	r, err := a.mapping.Region(o, l)
	if err != nil {
		return nil, err
	}
	return r.Bytes(), nil
}

// Stats returns a snapshot of the arena state.
func (a *Arena) Stats() Stats {
	return Stats{
		Size:             a.cfg.Size,
		Pinned:           a.Pinned(),
		PagesTouched:     a.pagesTouched.Load(),
		PrefaultDuration: a.prefaultDuration,
	}
}

// Close unpins and releases the arena. It is idempotent; only the first call
// does any work.
//
// IMPORTANT: Close must not run concurrently with allocation traffic. Every
// address handed out from the arena is invalid afterwards.
func (a *Arena) Close() error {
	if a.closed.Swap(true) {
		return nil
	}

	a.mu.Lock()
	a.base = nil
	a.mu.Unlock()

	var firstErr error
	if a.mapping.Locked() {
		if err := a.mapping.Unlock(); err != nil {
			firstErr = fmt.Errorf("arena: unpin: %w", err)
		}
	}
	if err := a.mapping.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("arena: release: %w", err)
	}

	a.logger.Debug("arena released", "size", a.cfg.Size, "error", firstErr)
	return firstErr
}
