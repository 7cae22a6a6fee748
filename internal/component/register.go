// Package component holds the concrete component kinds shipped with the
// engine core. Rendering, physics and UI backends consume their data.
package component

import "github.com/rootexgo/rootex/internal/core/ecs"

// RegisterAll registers every built-in kind with reg.
func RegisterAll(reg *ecs.Registry) error {
	if _, err := reg.Register(TransformName, NewTransform, TransformFromRecord); err != nil {
		return err
	}
	if _, err := reg.Register(TextName, NewText, TextFromRecord); err != nil {
		return err
	}
	if _, err := reg.Register(SphereColliderName, NewSphereCollider, SphereColliderFromRecord); err != nil {
		return err
	}
	return nil
}
