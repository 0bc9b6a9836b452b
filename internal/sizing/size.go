// Package sizing provides overflow-safe arithmetic for on-disk offsets and lengths.
package sizing

import "math"

// ToInt64 converts an on-disk uint64 offset to int64, returning overflowErr
// if it doesn't fit.
func ToInt64(v uint64, overflowErr error) (int64, error) {
	if v > uint64(math.MaxInt64) {
		return 0, overflowErr
	}
	return int64(v), nil
}

// AddInt64 adds two non-negative int64 values, returning (sum, false) on
// overflow or negative input.
func AddInt64(a, b int64) (int64, bool) {
	if a < 0 || b < 0 || a > math.MaxInt64-b {
		return 0, false
	}
	return a + b, true
}

// InRange reports whether [off, off+n) lies within [0, size).
func InRange(off, n, size int64) bool {
	end, ok := AddInt64(off, n)
	return ok && end <= size
}
