package upstream

import (
	"iter"
	"sync/atomic"
)

// Sequence converts raw provider records into a lazy sequence that can be ranged
// over once. Records for which convert reports false are skipped. A second range
// yields nothing.
func Sequence[R, T any](raw []R, convert func(R) (T, bool)) iter.Seq[T] {
	var used atomic.Bool
	return func(yield func(T) bool) {
		if used.Swap(true) {
			return
		}
		for _, r := range raw {
			v, ok := convert(r)
			if !ok {
				continue
			}
			if !yield(v) {
				return
			}
		}
	}
}

// Collect drains seq into a slice, returning at most limit items when limit > 0.
func Collect[T any](seq iter.Seq[T], limit int) []T {
	out := []T{}
	if seq == nil {
		return out
	}
	for v := range seq {
		out = append(out, v)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
