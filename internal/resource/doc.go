// Package resource implements the Controller that governs the allocator's
// optional limits.
//
// The Controller manages two independent resources:
//
//   - Memory: a budget on live allocation bytes (non-blocking, fail-fast)
//   - Prefault: a token bucket that paces the arena warm-up so touching
//     gigabytes of pages does not saturate the host at attach time
//
// # Memory Budget
//
// Memory tracking uses a weighted semaphore for the hard limit and an atomic
// counter for usage. AcquireMemory never blocks:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 1 << 30, // 1GB of live allocations
//	})
//
//	if err := rc.AcquireMemory(4096); err != nil {
//	    // ErrMemoryLimitExceeded - reported to the caller as exhaustion
//	}
//	defer rc.ReleaseMemory(4096)
//
// # Prefault Pacing
//
//	rc := resource.NewController(resource.Config{
//	    PrefaultBytesPerSec: 2 << 30, // 2GB/s
//	})
//
//	if err := rc.WaitPrefault(ctx, span); err != nil {
//	    return err
//	}
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully - they become no-ops.
package resource
