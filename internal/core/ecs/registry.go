package ecs

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrUnknownKind is returned when a component kind name is not registered.
	ErrUnknownKind = errors.New("unknown component kind")
	// ErrKindExists is returned when a kind name is registered twice.
	ErrKindExists = errors.New("component kind already registered")
)

// Kind describes a registered component kind.
type Kind struct {
	ID         ComponentID
	Name       string
	Default    func() Component
	FromRecord func(rec json.RawMessage) (Component, error)
}

// Registry maps component kind names to their constructors. It is
// populated at startup and read-only afterwards.
type Registry struct {
	byName map[string]*Kind
	kinds  []*Kind
}

func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*Kind, 16),
		kinds:  make([]*Kind, 0, 16),
	}
}

// Register adds a component kind and returns its assigned ID.
func (r *Registry) Register(name string, def func() Component, fromRecord func(json.RawMessage) (Component, error)) (ComponentID, error) {
	if _, ok := r.byName[name]; ok {
		return 0, fmt.Errorf("%w: %s", ErrKindExists, name)
	}
	k := &Kind{
		ID:         ComponentID(len(r.kinds) + 1),
		Name:       name,
		Default:    def,
		FromRecord: fromRecord,
	}
	r.byName[name] = k
	r.kinds = append(r.kinds, k)
	return k.ID, nil
}

// Kinds lists registered kinds in registration order.
func (r *Registry) Kinds() []Kind {
	out := make([]Kind, len(r.kinds))
	for i, k := range r.kinds {
		out[i] = *k
	}
	return out
}

// Lookup returns the kind registered under name.
func (r *Registry) Lookup(name string) (Kind, bool) {
	k, ok := r.byName[name]
	if !ok {
		return Kind{}, false
	}
	return *k, true
}

// Name returns the kind name for id, or "" if unknown.
func (r *Registry) Name(id ComponentID) string {
	if id == 0 || int(id) > len(r.kinds) {
		return ""
	}
	return r.kinds[id-1].Name
}

// ID returns the component ID for a kind name.
func (r *Registry) ID(name string) (ComponentID, bool) {
	k, ok := r.byName[name]
	if !ok {
		return 0, false
	}
	return k.ID, true
}

// Construct builds a component of the named kind from its record.
func (r *Registry) Construct(name string, rec json.RawMessage) (Component, error) {
	k, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, name)
	}
	c, err := k.FromRecord(rec)
	if err != nil {
		return nil, fmt.Errorf("construct %s: %w", name, err)
	}
	return c, nil
}

// CreateDefault builds a default-valued component of the named kind.
func (r *Registry) CreateDefault(name string) (Component, error) {
	k, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, name)
	}
	return k.Default(), nil
}

// NewEntity returns an empty entity bound to this registry.
func (r *Registry) NewEntity() *Entity {
	return &Entity{
		registry:   r,
		components: make(map[ComponentID]Component, 4),
	}
}

// EntityFromRecord constructs an entity from its component records and runs
// Setup. Either every component is added and set up, or an error is returned
// and nothing is kept.
func (r *Registry) EntityFromRecord(components map[string]json.RawMessage) (*Entity, error) {
	e := r.NewEntity()
	for _, name := range sortedKeys(components) {
		c, err := r.Construct(name, components[name])
		if err != nil {
			e.Destroy()
			return nil, err
		}
		if err := e.Add(c); err != nil {
			e.Destroy()
			return nil, err
		}
	}
	if err := e.Setup(); err != nil {
		e.Destroy()
		return nil, err
	}
	return e, nil
}
