package common

// Coalesce returns the first non-zero value from the provided values, or the zero value if all are zero.
// Builders use it to keep a default when an option carries an unset field.
//
// Parameters:
//   - values: a variadic list of candidates, most specific first
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// CeilDiv returns n/d rounded up. A zero divisor yields zero.
//
// Parameters:
//   - n: the item count
//   - d: the group size
//
// Returns:
//   - T: the number of groups covering n items
func CeilDiv[T ~int | ~uint32](n, d T) T {
	if d == 0 {
		return 0
	}
	return (n + d - 1) / d
}

// RowBands splits height rows into at most bands contiguous [y0, y1) ranges.
// Every range but the last has the same height and none is empty.
//
// Parameters:
//   - height: the number of rows
//   - bands: the requested number of ranges, at least 1
//
// Returns:
//   - [][2]int: the row ranges in top-to-bottom order, nil when height is not positive
func RowBands(height, bands int) [][2]int {
	if height <= 0 {
		return nil
	}
	bands = Clamp(bands, 1, height)
	rows := CeilDiv(height, bands)
	out := make([][2]int, 0, bands)
	for y0 := 0; y0 < height; y0 += rows {
		out = append(out, [2]int{y0, min(y0+rows, height)})
	}
	return out
}
