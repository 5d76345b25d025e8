// Package testutil provides testing utilities for blockalloc.
//
// This package is intended for use in tests and benchmarks only.
// It provides a thread-safe seeded RNG for generating allocation workloads
// and helpers for detecting overlapping allocations.
//
// # Workloads
//
//	rng := testutil.NewRNG(seed)
//	sizes := rng.Sizes(1000, 4096)          // uniform [0, 4096]
//	skewed := rng.ZipfSizes(1000, 1<<20, 1.2) // mostly small requests
//
// # Overlap Detection
//
//	testutil.Fill(buf, id)
//	if i := testutil.Check(buf, id); i >= 0 {
//	    t.Fatalf("allocation %d overwritten at byte %d", id, i)
//	}
package testutil
