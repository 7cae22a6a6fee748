package material

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/rootexgo/rootex/internal/core/ecs"
)

var (
	// ErrUnknownKind is returned for a material type with no registered kind.
	ErrUnknownKind = errors.New("unknown material kind")
	// ErrMalformedRecord is returned when a material file cannot be parsed.
	ErrMalformedRecord = errors.New("malformed material record")
)

// Material is a typed material. Record returns the type-specific fields;
// the library adds the "type" tag when persisting.
type Material interface {
	Kind() string
	Record() (json.RawMessage, error)
	Draw(ui ecs.Inspector)
}

// Kind describes one material type.
type Kind struct {
	Name        string
	DefaultPath string
	Default     func() Material
	FromRecord  func(raw json.RawMessage) (Material, error)
}

// Registry maps a material type name to its constructors.
type Registry struct {
	kinds map[string]Kind
	order []string
}

func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]Kind)}
}

// Register adds a kind. Names must be unique.
func (r *Registry) Register(k Kind) error {
	if k.Name == "" || k.Default == nil || k.FromRecord == nil {
		return fmt.Errorf("register material kind %q: incomplete", k.Name)
	}
	if _, ok := r.kinds[k.Name]; ok {
		return fmt.Errorf("register material kind %q: already registered", k.Name)
	}
	r.kinds[k.Name] = k
	r.order = append(r.order, k.Name)
	return nil
}

// Lookup returns the kind registered under name.
func (r *Registry) Lookup(name string) (Kind, error) {
	k, ok := r.kinds[name]
	if !ok {
		return Kind{}, fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
	return k, nil
}

// Names returns kind names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// DefaultPaths returns each kind's built-in path, sorted.
func (r *Registry) DefaultPaths() []string {
	var out []string
	for _, k := range r.kinds {
		if k.DefaultPath != "" {
			out = append(out, k.DefaultPath)
		}
	}
	sort.Strings(out)
	return out
}
