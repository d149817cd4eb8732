package internal

// SliceReuse prepares a slice for reuse with capacity at least n.
// After calling SliceReuse the slice has length 0 and capacity >= n,
// exactly n if a new allocation was needed.
func SliceReuse[T any](buf *[]T, n int) {
	if cap(*buf) < n {
		*buf = make([]T, 0, n)
	} else {
		*buf = (*buf)[:0]
	}
}
