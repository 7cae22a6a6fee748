package system

import (
	"time"

	coresys "github.com/rootexgo/rootex/internal/core/system"
	"github.com/rootexgo/rootex/internal/scene"
)

// SceneUpdateSystem ticks the scene tree from the root. Phase 1 (Update).
type SceneUpdateSystem struct {
	root func() *scene.Scene
}

// NewSceneUpdateSystem takes a getter so the system follows root changes.
func NewSceneUpdateSystem(root func() *scene.Scene) *SceneUpdateSystem {
	return &SceneUpdateSystem{root: root}
}

func (s *SceneUpdateSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *SceneUpdateSystem) Update(dt time.Duration) {
	if r := s.root(); r != nil {
		r.Update(float64(dt) / float64(time.Millisecond))
	}
}
