// Package valuetest provides comparisons for tests over value trees.
package valuetest

import "github.com/thirteen37/slate/internal/value"

// Identical is value.Equal with mapping order taken into account.
func Identical(a, b value.Value) bool {
	if !value.Equal(a, b) {
		return false
	}
	switch x := a.(type) {
	case value.Sequence:
		y := b.(value.Sequence)
		for i := range x {
			if !Identical(x[i], y[i]) {
				return false
			}
		}
	case *value.Mapping:
		y := b.(*value.Mapping)
		xe, ye := x.Entries(), y.Entries()
		for i := range xe {
			if !Identical(xe[i].Key, ye[i].Key) || !Identical(xe[i].Value, ye[i].Value) {
				return false
			}
		}
	}
	return true
}
