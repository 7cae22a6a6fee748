package ecs

import "encoding/json"

// ComponentID identifies a registered component kind. IDs are assigned by
// the Registry in registration order starting at 1.
type ComponentID uint32

// Component is the capability set every component kind implements. Concrete
// kinds live outside this package and register themselves with a Registry.
type Component interface {
	// Kind returns the registered kind name.
	Kind() string
	// Record serializes the component's data.
	Record() (json.RawMessage, error)
	// Draw describes the component's editable fields to an inspector.
	Draw(ui Inspector)
	// Setup runs after every component of the owning entity has been added.
	Setup(owner *Entity) error
}

// Updater is implemented by components that need a per-frame hook.
type Updater interface {
	Update(dtMillis float64)
}

// Destroyer is implemented by components that hold external resources.
type Destroyer interface {
	Destroy()
}

// Inspector receives component fields for display. The editor GUI is the
// real implementation; tests record the calls.
type Inspector interface {
	Field(label string, value any)
}
