package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/rootexgo/rootex/internal/core/event"
	coresys "github.com/rootexgo/rootex/internal/core/system"
)

// AutosaveSystem periodically requests a backup and a full save through a
// deferred Autosave event. Phase 4 (Persist).
type AutosaveSystem struct {
	events   *event.Dispatcher
	log      *zap.Logger
	interval time.Duration
	elapsed  time.Duration
}

// NewAutosaveSystem returns a system that fires every interval of frame
// time. A non-positive interval disables it.
func NewAutosaveSystem(events *event.Dispatcher, log *zap.Logger, interval time.Duration) *AutosaveSystem {
	return &AutosaveSystem{
		events:   events,
		log:      log,
		interval: interval,
	}
}

func (s *AutosaveSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *AutosaveSystem) Update(dt time.Duration) {
	if s.interval <= 0 {
		return
	}
	s.elapsed += dt
	if s.elapsed < s.interval {
		return
	}
	s.elapsed = 0
	s.log.Debug("autosave requested")
	s.events.DeferredCall(event.Autosave, nil)
}

// SaveNow saves everything immediately, ignoring the interval.
// Called on shutdown so no edits are lost.
func (s *AutosaveSystem) SaveNow() bool {
	s.elapsed = 0
	ok, _ := s.events.Call(event.SaveAll, nil).(bool)
	if !ok {
		s.log.Error("save on shutdown failed")
	}
	return ok
}
