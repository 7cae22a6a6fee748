package ecs

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrDuplicateComponent is returned when an entity already holds the kind.
	ErrDuplicateComponent = errors.New("entity already has component")
	// ErrSetup is returned when a component's setup callback fails.
	ErrSetup = errors.New("entity setup failed")
)

// Owner is the scene node holding an entity.
type Owner interface {
	FullName() string
}

// Entity holds at most one component instance per kind. It is owned by
// exactly one scene node.
type Entity struct {
	registry   *Registry
	owner      Owner
	components map[ComponentID]Component
}

// SetOwner records the node that owns the entity.
func (e *Entity) SetOwner(o Owner) { e.owner = o }

// FullName returns the owning node's full name, or "" when unowned.
func (e *Entity) FullName() string {
	if e.owner == nil {
		return ""
	}
	return e.owner.FullName()
}

// Registry returns the component registry the entity was created from.
func (e *Entity) Registry() *Registry { return e.registry }

// Add attaches c. The kind must be registered and not already present.
func (e *Entity) Add(c Component) error {
	id, ok := e.registry.ID(c.Kind())
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKind, c.Kind())
	}
	if _, exists := e.components[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateComponent, c.Kind())
	}
	e.components[id] = c
	return nil
}

// Remove detaches and destroys the component with the given ID.
func (e *Entity) Remove(id ComponentID) bool {
	c, ok := e.components[id]
	if !ok {
		return false
	}
	delete(e.components, id)
	if d, ok := c.(Destroyer); ok {
		d.Destroy()
	}
	return true
}

// Component returns the component with the given ID, or nil.
func (e *Entity) Component(id ComponentID) Component {
	return e.components[id]
}

// ComponentByName returns the component of the named kind, or nil.
func (e *Entity) ComponentByName(name string) Component {
	id, ok := e.registry.ID(name)
	if !ok {
		return nil
	}
	return e.components[id]
}

// Has reports whether the entity holds the kind.
func (e *Entity) Has(id ComponentID) bool {
	_, ok := e.components[id]
	return ok
}

// Len returns the number of components.
func (e *Entity) Len() int { return len(e.components) }

// Components returns the components ordered by kind ID.
func (e *Entity) Components() []Component {
	ids := make([]ComponentID, 0, len(e.components))
	for id := range e.components {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]Component, len(ids))
	for i, id := range ids {
		out[i] = e.components[id]
	}
	return out
}

// Setup runs every component's setup callback in kind order.
func (e *Entity) Setup() error {
	for _, c := range e.Components() {
		if err := c.Setup(e); err != nil {
			return fmt.Errorf("%w: %s on %q: %v", ErrSetup, c.Kind(), e.FullName(), err)
		}
	}
	return nil
}

// Record serializes all components keyed by kind name.
func (e *Entity) Record() (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(e.components))
	for _, c := range e.Components() {
		rec, err := c.Record()
		if err != nil {
			return nil, fmt.Errorf("serialize %s: %w", c.Kind(), err)
		}
		out[c.Kind()] = rec
	}
	return out, nil
}

// Draw passes every component to the inspector in kind order.
func (e *Entity) Draw(ui Inspector) {
	for _, c := range e.Components() {
		c.Draw(ui)
	}
}

// Update forwards the frame tick to components implementing Updater.
func (e *Entity) Update(dtMillis float64) {
	for _, c := range e.Components() {
		if u, ok := c.(Updater); ok {
			u.Update(dtMillis)
		}
	}
}

// Destroy releases every component.
func (e *Entity) Destroy() {
	for id := range e.components {
		e.Remove(id)
	}
	e.owner = nil
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
