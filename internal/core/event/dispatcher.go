package event

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// numQueues is the number of deferred queues. One accepts new calls while
// the other drains.
const numQueues = 2

// Infinite disables the DispatchDeferred time budget.
const Infinite time.Duration = 0

// HandlerFunc handles an event and returns a result for Call.
type HandlerFunc func(e *Event) Variant

// Listener is a registered handler. Registration identity is the pointer:
// the same *Listener cannot be added twice for one type.
type Listener struct {
	fn HandlerFunc
}

// NewListener wraps fn for registration.
func NewListener(fn HandlerFunc) *Listener {
	return &Listener{fn: fn}
}

// Dispatcher is a typed publish/subscribe registry with immediate calls,
// a double-buffered deferred queue drained once per frame, and a list of
// deferred closures. It is driven from the frame loop goroutine; the mutex
// only guards registration and enqueueing so other goroutines may post work.
type Dispatcher struct {
	mu        sync.Mutex
	listeners map[Type][]*Listener
	queues    [numQueues][]*Event
	active    int
	deferList []func()

	now func() time.Time
	log *zap.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClock replaces the wall clock used for the drain budget.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

func NewDispatcher(log *zap.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		listeners: make(map[Type][]*Listener),
		now:       time.Now,
		log:       log,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// AddEvent registers an event type with no listeners. Returns false if it exists.
func (d *Dispatcher) AddEvent(t Type) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.listeners[t]; ok {
		return false
	}
	d.listeners[t] = nil
	return true
}

// RemoveEvent drops an event type and all its listeners.
func (d *Dispatcher) RemoveEvent(t Type) {
	d.mu.Lock()
	delete(d.listeners, t)
	d.mu.Unlock()
}

// Events returns the registered event types, sorted.
func (d *Dispatcher) Events() []Type {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Type, 0, len(d.listeners))
	for t := range d.listeners {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AddListener registers l for t, creating the type if needed.
// Returns false if l is already registered for t.
func (d *Dispatcher) AddListener(t Type, l *Listener) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, existing := range d.listeners[t] {
		if existing == l {
			return false
		}
	}
	d.listeners[t] = append(d.listeners[t], l)
	return true
}

// Listen wraps fn in a new Listener and registers it.
func (d *Dispatcher) Listen(t Type, fn HandlerFunc) *Listener {
	l := NewListener(fn)
	d.AddListener(t, l)
	return l
}

// RemoveListener unregisters l from t. Returns false if it was not registered.
func (d *Dispatcher) RemoveListener(t Type, l *Listener) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	ls := d.listeners[t]
	for i, existing := range ls {
		if existing == l {
			next := make([]*Listener, 0, len(ls)-1)
			next = append(next, ls[:i]...)
			d.listeners[t] = append(next, ls[i+1:]...)
			return true
		}
	}
	return false
}

// ReleaseAll drops every listener, queued call and deferred closure.
func (d *Dispatcher) ReleaseAll() {
	d.mu.Lock()
	d.listeners = make(map[Type][]*Listener)
	for i := range d.queues {
		d.queues[i] = nil
	}
	d.deferList = nil
	d.mu.Unlock()
}

// ListenerCount returns the number of listeners registered for t.
func (d *Dispatcher) ListenerCount(t Type) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.listeners[t])
}

// Call invokes every listener for t in registration order on the calling
// goroutine and returns the first listener's result, or None.
func (d *Dispatcher) Call(t Type, data Variant) Variant {
	return d.CallEvent(&Event{Type: t, Data: data})
}

// CallEvent is Call for a prepared event.
func (d *Dispatcher) CallEvent(e *Event) Variant {
	d.mu.Lock()
	ls := d.listeners[e.Type]
	d.mu.Unlock()

	// Registration copies on removal, so ls is stable even if a handler
	// adds or removes listeners while we iterate.
	result := None
	for i, l := range ls {
		r := l.fn(e)
		if i == 0 {
			result = r
		}
	}
	return result
}

// DeferredCall queues t for the next DispatchDeferred.
func (d *Dispatcher) DeferredCall(t Type, data Variant) {
	d.DeferredCallEvent(&Event{Type: t, Data: data})
}

// DeferredCallEvent is DeferredCall for a prepared event.
func (d *Dispatcher) DeferredCallEvent(e *Event) {
	d.mu.Lock()
	d.queues[d.active] = append(d.queues[d.active], e)
	d.mu.Unlock()
}

// Defer schedules fn to run at the end of the next DispatchDeferred.
func (d *Dispatcher) Defer(fn func()) {
	d.mu.Lock()
	d.deferList = append(d.deferList, fn)
	d.mu.Unlock()
}

// Pending returns the number of queued deferred calls.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, q := range d.queues {
		n += len(q)
	}
	return n
}

// DispatchDeferred drains the queue that was accepting calls and flips
// acceptance to the other one, so calls deferred while draining wait for the
// next drain. Draining stops once budget has elapsed (Infinite = no limit);
// the remainder runs first on the next drain. Deferred closures collected
// before the drain run afterwards. Returns true if the queue was flushed.
func (d *Dispatcher) DispatchDeferred(budget time.Duration) bool {
	d.mu.Lock()
	processing := d.active
	d.active = (d.active + 1) % numQueues
	pending := d.queues[processing]
	d.queues[processing] = nil
	fns := d.deferList
	d.deferList = nil
	d.mu.Unlock()

	start := d.now()
	done := 0
	for done < len(pending) {
		d.CallEvent(pending[done])
		done++
		if budget > Infinite && d.now().Sub(start) >= budget {
			break
		}
	}

	flushed := done == len(pending)
	if !flushed {
		rest := pending[done:]
		d.mu.Lock()
		merged := make([]*Event, 0, len(rest)+len(d.queues[d.active]))
		merged = append(merged, rest...)
		d.queues[d.active] = append(merged, d.queues[d.active]...)
		d.mu.Unlock()
		d.log.Debug("deferred queue not flushed",
			zap.Int("dispatched", done),
			zap.Int("remaining", len(rest)),
			zap.Duration("budget", budget),
		)
	}

	for _, fn := range fns {
		fn()
	}
	return flushed
}
