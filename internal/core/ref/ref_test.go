package ref

import (
	"sync"
	"testing"
)

type payload struct{ n int }

func TestStrongCloneSharesValue(t *testing.T) {
	s := New(&payload{n: 7}, nil)
	c := s.Clone()
	if s.Get() != c.Get() {
		t.Fatal("clone should point at the same value")
	}
	s.Release()
	if c.Get() == nil || c.Get().n != 7 {
		t.Error("clone should keep value alive after original release")
	}
	c.Release()
}

func TestWeakPromote(t *testing.T) {
	zeroed := 0
	s := New(&payload{n: 1}, func(*payload) { zeroed++ })
	w := s.Weak()

	p, ok := w.Promote()
	if !ok {
		t.Fatal("Promote should succeed while a strong handle exists")
	}
	if p.Get() != s.Get() {
		t.Error("promoted handle should share the value")
	}
	s.Release()
	if w.Expired() {
		t.Error("weak should not expire while promoted handle lives")
	}
	p.Release()

	if !w.Expired() {
		t.Error("weak should expire after last release")
	}
	if _, ok := w.Promote(); ok {
		t.Error("Promote should fail after expiry")
	}
	if zeroed != 1 {
		t.Errorf("onZero called %d times, want 1", zeroed)
	}
}

func TestReleaseIdempotent(t *testing.T) {
	s := New(&payload{}, nil)
	c := s.Clone()
	s.Release()
	s.Release()
	if c.Weak().Refs() != 1 {
		t.Errorf("Refs = %d, want 1", c.Weak().Refs())
	}
	if s.Get() != nil {
		t.Error("released handle should return nil")
	}
	c.Release()
}

func TestZeroWeak(t *testing.T) {
	var w Weak[payload]
	if !w.Expired() {
		t.Error("zero Weak should be expired")
	}
	if _, ok := w.Promote(); ok {
		t.Error("zero Weak should not promote")
	}
}

func TestConcurrentPromoteRelease(t *testing.T) {
	s := New(&payload{}, nil)
	w := s.Weak()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if p, ok := w.Promote(); ok {
					p.Release()
				}
			}
		}()
	}
	wg.Wait()
	if w.Refs() != 1 {
		t.Errorf("Refs = %d, want 1", w.Refs())
	}
	s.Release()
	if !w.Expired() {
		t.Error("should be expired")
	}
}
