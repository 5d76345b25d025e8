package freelist

import "fmt"

// OverlapError reports a release of blocks that are already free.
type OverlapError struct {
	Start, Count     uint64
	RunStart, RunEnd uint64
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("freelist: release [%d, %d) overlaps free run [%d, %d)",
		e.Start, e.Start+e.Count, e.RunStart, e.RunEnd)
}

// RangeError reports a release that lies outside the managed blocks.
type RangeError struct {
	Start, Count, Total uint64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("freelist: release [%d, +%d) outside [0, %d)", e.Start, e.Count, e.Total)
}
