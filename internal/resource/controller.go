package resource

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimitExceeded is returned when memory limit would be exceeded.
var ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes is the hard limit for live allocation bytes.
	// If 0, no hard limit is enforced (only tracking).
	MemoryLimitBytes int64

	// PrefaultBytesPerSec caps how fast the arena warm-up touches pages.
	// If 0, unlimited.
	PrefaultBytesPerSec int64
}

// Controller manages allocator-wide limits.
type Controller struct {
	cfg Config

	// Memory
	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	// Prefault
	prefaultLimiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	c := &Controller{cfg: cfg}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}

	if cfg.PrefaultBytesPerSec > 0 {
		c.prefaultLimiter = rate.NewLimiter(rate.Limit(cfg.PrefaultBytesPerSec), burst(cfg.PrefaultBytesPerSec))
	}

	return c
}

// AcquireMemory attempts to reserve memory.
// Returns ErrMemoryLimitExceeded if limit would be exceeded.
// Non-blocking - an allocator never waits for another goroutine's free.
func (c *Controller) AcquireMemory(bytes int64) error {
	if c == nil {
		return nil
	}
	if bytes <= 0 {
		return nil
	}

	if c.memSem != nil {
		if !c.memSem.TryAcquire(bytes) {
			return ErrMemoryLimitExceeded
		}
	}

	c.memUsed.Add(bytes)
	return nil
}

// ReleaseMemory releases reserved memory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil {
		return
	}
	if bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the current memory usage in bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// MemoryLimit returns the configured memory limit in bytes (0 if unlimited).
func (c *Controller) MemoryLimit() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MemoryLimitBytes
}

// PrefaultBurst returns the largest span WaitPrefault accepts in one call,
// or 0 when pacing is disabled.
func (c *Controller) PrefaultBurst() int {
	if c == nil || c.prefaultLimiter == nil {
		return 0
	}
	return c.prefaultLimiter.Burst()
}

// WaitPrefault blocks until the pacing budget allows touching bytes more
// bytes of the arena. bytes must not exceed PrefaultBurst.
func (c *Controller) WaitPrefault(ctx context.Context, bytes int) error {
	if c == nil || c.prefaultLimiter == nil {
		return nil
	}
	return c.prefaultLimiter.WaitN(ctx, bytes)
}

func burst(perSec int64) int {
	const maxBurst = 1 << 30
	if perSec > maxBurst {
		return maxBurst
	}
	return int(perSec)
}
