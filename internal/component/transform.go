package component

import (
	"encoding/json"

	"github.com/rootexgo/rootex/internal/core/ecs"
)

// TransformName is the registered kind name of Transform.
const TransformName = "TransformComponent"

// Transform positions an entity in its scene.
type Transform struct {
	Position [3]float32 `json:"position"`
	Rotation [4]float32 `json:"rotation"` // quaternion x, y, z, w
	Scale    [3]float32 `json:"scale"`
}

func NewTransform() ecs.Component {
	return &Transform{
		Rotation: [4]float32{0, 0, 0, 1},
		Scale:    [3]float32{1, 1, 1},
	}
}

func TransformFromRecord(rec json.RawMessage) (ecs.Component, error) {
	t := NewTransform().(*Transform)
	if err := json.Unmarshal(rec, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Transform) Kind() string { return TransformName }

func (t *Transform) Record() (json.RawMessage, error) { return json.Marshal(t) }

func (t *Transform) Draw(ui ecs.Inspector) {
	ui.Field("Position", t.Position)
	ui.Field("Rotation", t.Rotation)
	ui.Field("Scale", t.Scale)
}

func (t *Transform) Setup(*ecs.Entity) error { return nil }
