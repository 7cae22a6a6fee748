// Package ref provides reference-counted strong handles and non-owning weak
// handles. A value lives while at least one Strong handle is unreleased; once
// the count reaches zero it can never be promoted again.
package ref

import "sync/atomic"

type block[T any] struct {
	value  *T
	refs   atomic.Int64
	onZero func(*T)
}

// Strong is an owning handle. Each handle must be released exactly once;
// extra Release calls are ignored.
type Strong[T any] struct {
	b        *block[T]
	released atomic.Bool
}

// Weak is a non-owning handle. The zero Weak is always expired.
type Weak[T any] struct {
	b *block[T]
}

// New wraps v in a fresh control block holding one strong reference.
// onZero, if non-nil, runs once when the last strong handle is released.
func New[T any](v *T, onZero func(*T)) *Strong[T] {
	b := &block[T]{value: v, onZero: onZero}
	b.refs.Store(1)
	return &Strong[T]{b: b}
}

// Get returns the referenced value. Calling Get on a released handle returns nil.
func (s *Strong[T]) Get() *T {
	if s == nil || s.released.Load() {
		return nil
	}
	return s.b.value
}

// Clone returns an additional strong handle to the same value.
func (s *Strong[T]) Clone() *Strong[T] {
	if s == nil || s.released.Load() {
		return nil
	}
	s.b.refs.Add(1)
	return &Strong[T]{b: s.b}
}

// Weak returns a non-owning handle to the same value.
func (s *Strong[T]) Weak() Weak[T] {
	if s == nil {
		return Weak[T]{}
	}
	return Weak[T]{b: s.b}
}

// Release drops this handle's reference.
func (s *Strong[T]) Release() {
	if s == nil || !s.released.CompareAndSwap(false, true) {
		return
	}
	if s.b.refs.Add(-1) == 0 && s.b.onZero != nil {
		s.b.onZero(s.b.value)
	}
}

// Promote returns a new strong handle if the value is still alive.
// The liveness check and the increment are a single atomic step.
func (w Weak[T]) Promote() (*Strong[T], bool) {
	if w.b == nil {
		return nil, false
	}
	for {
		n := w.b.refs.Load()
		if n <= 0 {
			return nil, false
		}
		if w.b.refs.CompareAndSwap(n, n+1) {
			return &Strong[T]{b: w.b}, true
		}
	}
}

// Expired reports whether every strong handle has been released.
func (w Weak[T]) Expired() bool {
	return w.b == nil || w.b.refs.Load() <= 0
}

// Refs returns the current strong count. Intended for diagnostics.
func (w Weak[T]) Refs() int64 {
	if w.b == nil {
		return 0
	}
	return w.b.refs.Load()
}
