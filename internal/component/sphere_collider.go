package component

import (
	"encoding/json"
	"fmt"

	"github.com/rootexgo/rootex/internal/core/ecs"
)

// SphereColliderName is the registered kind name of SphereCollider.
const SphereColliderName = "SphereColliderComponent"

// SphereCollider is collision data handed to the physics backend.
type SphereCollider struct {
	Radius               float32    `json:"radius"`
	Offset               [3]float32 `json:"offset"`
	Mass                 float32    `json:"mass"`
	IsGeneratesHitEvents bool       `json:"isGeneratesHitEvents"`
	IsKinematic          bool       `json:"isKinematic"`

	// Ticks counts frame updates since setup.
	Ticks int `json:"-"`
}

func NewSphereCollider() ecs.Component {
	return &SphereCollider{Radius: 1, Mass: 1}
}

func SphereColliderFromRecord(rec json.RawMessage) (ecs.Component, error) {
	s := NewSphereCollider().(*SphereCollider)
	if err := json.Unmarshal(rec, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SphereCollider) Kind() string { return SphereColliderName }

func (s *SphereCollider) Record() (json.RawMessage, error) { return json.Marshal(s) }

func (s *SphereCollider) Draw(ui ecs.Inspector) {
	ui.Field("Radius", s.Radius)
	ui.Field("Offset", s.Offset)
	ui.Field("Mass", s.Mass)
}

func (s *SphereCollider) Setup(*ecs.Entity) error {
	if s.Radius <= 0 {
		return fmt.Errorf("radius must be positive, got %v", s.Radius)
	}
	s.Ticks = 0
	return nil
}

func (s *SphereCollider) Update(float64) { s.Ticks++ }
