package utils

import "strings"

// Ptr returns a pointer to a copy of v.
func Ptr[T any](v T) *T { return &v }

// OrZero dereferences p, yielding the zero value for nil.
func OrZero[T any](p *T) (v T) {
	if p != nil {
		v = *p
	}
	return v
}

// Coalesce returns the first non-zero value.
func Coalesce[T comparable](vals ...T) T {
	var zero T
	for _, v := range vals {
		if v != zero {
			return v
		}
	}
	return zero
}

// StringOrNil trims s and returns nil when nothing is left.
func StringOrNil(s string) *string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}
