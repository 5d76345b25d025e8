package conv

import (
	"fmt"
	"math"
)

// Uint64ToInt converts uint64 to int, failing when v does not fit.
func Uint64ToInt(v uint64) (int, error) {
	if v > uint64(math.MaxInt) {
		return 0, fmt.Errorf("integer overflow: %d does not fit in int", v)
	}
	return int(v), nil
}

// Uint64ToInt64 converts uint64 to int64, failing when v does not fit.
func Uint64ToInt64(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("integer overflow: %d does not fit in int64", v)
	}
	return int64(v), nil
}

// Uint64ToUint32 converts uint64 to uint32, failing when v does not fit.
func Uint64ToUint32(v uint64) (uint32, error) {
	if v > math.MaxUint32 {
		return 0, fmt.Errorf("integer overflow: %d does not fit in uint32", v)
	}
	return uint32(v), nil
}
