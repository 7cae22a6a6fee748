package system

import (
	"time"

	"github.com/rootexgo/rootex/internal/core/event"
	coresys "github.com/rootexgo/rootex/internal/core/system"
)

// DeferredSystem drains the deferred event queue at frame end within the
// configured budget. Phase 5 (Deferred).
type DeferredSystem struct {
	events *event.Dispatcher
	budget time.Duration
}

func NewDeferredSystem(events *event.Dispatcher, budget time.Duration) *DeferredSystem {
	return &DeferredSystem{events: events, budget: budget}
}

func (s *DeferredSystem) Phase() coresys.Phase { return coresys.PhaseDeferred }

func (s *DeferredSystem) Update(_ time.Duration) {
	s.events.DispatchDeferred(s.budget)
}
