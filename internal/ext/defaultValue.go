/*
Package ext is "language extensions", functionality that in a perfect world would be part of the golang standard library
*/
package ext

func DefaultValue[T comparable](value T, fallback T) T {
	var zero T
	if value == zero {
		return fallback
	}
	return value
}

// FirstNonEmpty returns the first value that is not the zero value, or the zero value when all are.
func FirstNonEmpty[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

func Max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
