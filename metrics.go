package blockalloc

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    allocCounter   prometheus.Counter
//	    allocHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordAlloc(blocks uint64, duration time.Duration, err error) {
//	    p.allocCounter.Inc()
//	    p.allocHistogram.Observe(duration.Seconds())
//	}
//
// Collectors are called on the allocation hot path and must be safe for
// concurrent use.
type MetricsCollector interface {
	// RecordAttach is called once after the arena has been built.
	RecordAttach(duration time.Duration, err error)

	// RecordAlloc is called after each allocation attempt.
	// blocks is the number of blocks requested, err is nil if successful.
	RecordAlloc(blocks uint64, duration time.Duration, err error)

	// RecordFree is called after each free.
	RecordFree(blocks uint64, duration time.Duration)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAttach(time.Duration, error)        {}
func (NoopMetricsCollector) RecordAlloc(uint64, time.Duration, error) {}
func (NoopMetricsCollector) RecordFree(uint64, time.Duration)         {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AttachNanos     atomic.Int64
	AttachErrors    atomic.Int64
	AllocCount      atomic.Int64
	AllocErrors     atomic.Int64
	AllocBlocks     atomic.Int64
	AllocTotalNanos atomic.Int64
	FreeCount       atomic.Int64
	FreeBlocks      atomic.Int64
	FreeTotalNanos  atomic.Int64
}

// RecordAttach implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAttach(duration time.Duration, err error) {
	b.AttachNanos.Store(duration.Nanoseconds())
	if err != nil {
		b.AttachErrors.Add(1)
	}
}

// RecordAlloc implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAlloc(blocks uint64, duration time.Duration, err error) {
	b.AllocCount.Add(1)
	b.AllocTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.AllocErrors.Add(1)
		return
	}
	b.AllocBlocks.Add(int64(min(blocks, 1<<62))) //nolint:gosec // clamped
}

// RecordFree implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFree(blocks uint64, duration time.Duration) {
	b.FreeCount.Add(1)
	b.FreeBlocks.Add(int64(min(blocks, 1<<62))) //nolint:gosec // clamped
	b.FreeTotalNanos.Add(duration.Nanoseconds())
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AttachNanos:   b.AttachNanos.Load(),
		AttachErrors:  b.AttachErrors.Load(),
		AllocCount:    b.AllocCount.Load(),
		AllocErrors:   b.AllocErrors.Load(),
		AllocBlocks:   b.AllocBlocks.Load(),
		AllocAvgNanos: avg(b.AllocTotalNanos.Load(), b.AllocCount.Load()),
		FreeCount:     b.FreeCount.Load(),
		FreeBlocks:    b.FreeBlocks.Load(),
		FreeAvgNanos:  avg(b.FreeTotalNanos.Load(), b.FreeCount.Load()),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AttachNanos   int64
	AttachErrors  int64
	AllocCount    int64
	AllocErrors   int64
	AllocBlocks   int64
	AllocAvgNanos int64
	FreeCount     int64
	FreeBlocks    int64
	FreeAvgNanos  int64
}
