package templating

import "reflect"

// add returns a + b.
func add(a, b int) int {
	return a + b
}

// sub returns a - b.
func sub(a, b int) int {
	return a - b
}

// inc returns i + 1. Handy for 1-based numbering inside range.
func inc(i int) int {
	return i + 1
}

// dec returns i - 1.
func dec(i int) int {
	return i - 1
}

// isSet returns true if a value is not its zero value.
func isSet(val any) bool {
	v := reflect.ValueOf(val)
	if !v.IsValid() {
		return false
	}
	return !v.IsZero()
}

// coalesce returns the first argument that is set, or nil.
func coalesce(vals ...any) any {
	for _, v := range vals {
		if isSet(v) {
			return v
		}
	}
	return nil
}
