package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/rootexgo/rootex/internal/core/event"
	coresys "github.com/rootexgo/rootex/internal/core/system"
	"github.com/rootexgo/rootex/internal/resource"
)

// ScriptReloader reruns scripts whose files changed.
type ScriptReloader interface {
	ReloadDirty() int
}

// HotReloadSystem picks up files changed on disk. Scripts are rerun
// directly; other dirty resources are reimported through a deferred
// ReimportResource event. Phase 3 (PostUpdate).
type HotReloadSystem struct {
	res     *resource.Cache
	scripts ScriptReloader
	events  *event.Dispatcher
	log     *zap.Logger
	queued  map[string]bool
}

func NewHotReloadSystem(res *resource.Cache, scripts ScriptReloader, events *event.Dispatcher, log *zap.Logger) *HotReloadSystem {
	return &HotReloadSystem{
		res:     res,
		scripts: scripts,
		events:  events,
		log:     log,
		queued:  make(map[string]bool),
	}
}

func (s *HotReloadSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *HotReloadSystem) Update(_ time.Duration) {
	if s.scripts != nil {
		if n := s.scripts.ReloadDirty(); n > 0 {
			s.log.Info("scripts reloaded", zap.Int("count", n))
		}
	}

	dirty := s.res.Dirty()
	still := make(map[string]bool, len(dirty))
	for _, p := range dirty {
		still[p] = true
		// Queue each path once until it is clean again.
		if s.queued[p] {
			continue
		}
		s.queued[p] = true
		s.events.DeferredCall(event.ReimportResource, p)
	}
	for p := range s.queued {
		if !still[p] {
			delete(s.queued, p)
		}
	}
}
