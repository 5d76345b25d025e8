package blockalloc

import (
	"context"
	"fmt"
	"testing"
)

// The matrix follows the external allocator harness: sizes of 8 B and
// 1 GiB, alignments of 8, 32 and 64.
var (
	benchSizes      = []uint64{8, 1 << 30}
	benchAlignments = []uint64{8, 32, 64}
)

func newBenchAllocator(b *testing.B) *Allocator {
	b.Helper()
	cfg := testConfig(2 << 30)
	cfg.Prefault = false
	a, err := New(context.Background(), cfg)
	if err != nil {
		b.Skipf("cannot reserve a 2 GiB arena: %v", err)
	}
	b.Cleanup(func() { _ = a.Close() })
	return a
}

func BenchmarkAllocSizeFree(b *testing.B) {
	a := newBenchAllocator(b)

	for _, size := range benchSizes {
		for _, alignment := range benchAlignments {
			b.Run(fmt.Sprintf("size=%d/align=%d", size, alignment), func(b *testing.B) {
				b.ReportAllocs()
				for b.Loop() {
					p := a.AllocAligned(size, alignment)
					if p == nil {
						b.Fatal("allocation failed")
					}
					_ = a.SizeAligned(p, alignment)
					a.FreeAligned(p)
				}
			})
		}
	}
}

func BenchmarkAllocFreeFlush(b *testing.B) {
	a := newBenchAllocator(b)

	for _, size := range benchSizes {
		b.Run(fmt.Sprintf("size=%d", size), func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				p := a.Alloc(size)
				if p == nil {
					b.Fatal("allocation failed")
				}
				a.Free(p)
				a.FlushCache(0)
				a.FlushCacheAll()
			}
		})
	}
}

func BenchmarkTotalCommitted(b *testing.B) {
	a := newBenchAllocator(b)

	for b.Loop() {
		_ = a.TotalCommitted()
		_ = a.TotalReserved()
	}
}

func BenchmarkAllocParallel(b *testing.B) {
	a := newBenchAllocator(b)

	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			p := a.Alloc(64)
			if p == nil {
				b.Error("allocation failed")
				return
			}
			a.Free(p)
		}
	})
}
