// Package material is the material cache. Materials are JSON files tagged
// with a "type" field naming their kind; the library holds at most one live
// instance per path and persists edited materials on SaveAll.
package material

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"

	"github.com/rootexgo/rootex/internal/core/ref"
	"github.com/rootexgo/rootex/internal/resource"
	"github.com/rootexgo/rootex/internal/store"
)

// Instance is a live material bound to its path.
type Instance struct {
	path string
	kind string
	mat  Material
	file *ref.Strong[resource.Resource]
}

func (i *Instance) Path() string       { return i.path }
func (i *Instance) Kind() string       { return i.kind }
func (i *Instance) Material() Material { return i.mat }

// IsDefault reports whether path is a built-in material shipped with the
// engine. Built-in materials are never persisted.
func IsDefault(path string) bool {
	return strings.HasPrefix(store.Normalize(path), "rootex/")
}

type slot struct {
	kind string
	weak ref.Weak[Instance]
}

// Library is the material cache service.
type Library struct {
	mu    sync.Mutex
	res   *resource.Cache
	kinds *Registry
	slots map[string]*slot
	log   *zap.Logger
}

func NewLibrary(res *resource.Cache, kinds *Registry, log *zap.Logger) *Library {
	return &Library{
		res:   res,
		kinds: kinds,
		slots: make(map[string]*slot),
		log:   log,
	}
}

// Kinds returns the registered material kinds.
func (l *Library) Kinds() []string { return l.kinds.Names() }

// Load returns the material at path. A live instance is shared; otherwise
// the file is read and constructed by the kind named in its "type" field.
func (l *Library) Load(path string) (*ref.Strong[Instance], error) {
	key := store.Normalize(path)

	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.slots[key]; ok {
		if h, ok := s.weak.Promote(); ok {
			return h, nil
		}
	}

	file, err := l.res.Get(key)
	if err != nil {
		return nil, err
	}
	raw := file.Get().Data()
	kindName, err := typeOf(raw)
	if err != nil {
		file.Release()
		return nil, fmt.Errorf("load material %s: %w", key, err)
	}
	kind, err := l.kinds.Lookup(kindName)
	if err != nil {
		file.Release()
		return nil, fmt.Errorf("load material %s: %w", key, err)
	}
	mat, err := kind.FromRecord(raw)
	if err != nil {
		file.Release()
		return nil, fmt.Errorf("load material %s: %w", key, err)
	}
	return l.installLocked(key, kindName, mat, file), nil
}

// Get is Load with a fallback: a missing or unreadable material is reported
// as a warning and the default Basic material is returned.
func (l *Library) Get(path string) *ref.Strong[Instance] {
	h, err := l.Load(path)
	if err == nil {
		return h
	}
	l.log.Warn("material not loaded, using default",
		zap.String("path", path), zap.Error(err))
	d, err := l.Default(BasicName)
	if err != nil {
		l.log.Error("no default material", zap.Error(err))
		return nil
	}
	return d
}

// Default returns the shared built-in material of a kind. It is built from
// the kind's default constructor when no instance is live.
func (l *Library) Default(kindName string) (*ref.Strong[Instance], error) {
	kind, err := l.kinds.Lookup(kindName)
	if err != nil {
		return nil, err
	}
	key := store.Normalize(kind.DefaultPath)

	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.slots[key]; ok {
		if h, ok := s.weak.Promote(); ok {
			return h, nil
		}
	}
	return l.installLocked(key, kind.Name, kind.Default(), nil), nil
}

func (l *Library) installLocked(key, kind string, mat Material, file *ref.Strong[resource.Resource]) *ref.Strong[Instance] {
	inst := &Instance{path: key, kind: kind, mat: mat, file: file}
	h := ref.New(inst, func(i *Instance) {
		if i.file != nil {
			i.file.Release()
		}
	})
	s, ok := l.slots[key]
	if !ok {
		s = &slot{}
		l.slots[key] = s
	}
	s.kind = kind
	s.weak = h.Weak()
	return h
}

// CreateNewFile writes a default material of the given kind to path. It is
// a no-op if the path already exists. The new slot holds only the kind
// until the material is first loaded.
func (l *Library) CreateNewFile(path, kindName string) error {
	key := store.Normalize(path)
	if IsDefault(key) {
		return nil
	}
	if l.res.Store().Exists(key) {
		l.log.Debug("material already exists", zap.String("path", key))
		return nil
	}
	kind, err := l.kinds.Lookup(kindName)
	if err != nil {
		return err
	}
	raw, err := encode(kind.Default())
	if err != nil {
		return fmt.Errorf("create material %s: %w", key, err)
	}
	if err := l.res.Save(key, raw); err != nil {
		return fmt.Errorf("create material %s: %w", key, err)
	}

	l.mu.Lock()
	if _, ok := l.slots[key]; !ok {
		l.slots[key] = &slot{kind: kindName}
	}
	l.mu.Unlock()
	l.log.Info("material created", zap.String("path", key), zap.String("type", kindName))
	return nil
}

// SaveAll persists every live user material and returns how many were
// written. Built-in materials and slots with no live instance are skipped.
func (l *Library) SaveAll() (int, error) {
	l.mu.Lock()
	keys := make([]string, 0, len(l.slots))
	for k := range l.slots {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var live []*ref.Strong[Instance]
	for _, k := range keys {
		if IsDefault(k) {
			continue
		}
		if h, ok := l.slots[k].weak.Promote(); ok {
			live = append(live, h)
		}
	}
	l.mu.Unlock()

	var errs []error
	saved := 0
	for _, h := range live {
		inst := h.Get()
		raw, err := encode(inst.mat)
		if err == nil {
			err = l.res.Save(inst.path, raw)
		}
		h.Release()
		if err != nil {
			errs = append(errs, fmt.Errorf("save material %s: %w", inst.path, err))
			continue
		}
		saved++
	}
	return saved, errors.Join(errs...)
}

// Slots returns every known material path with its kind.
func (l *Library) Slots() map[string]string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]string, len(l.slots))
	for k, s := range l.slots {
		out[k] = s.kind
	}
	return out
}

func typeOf(raw []byte) (string, error) {
	if !gjson.ValidBytes(raw) {
		return "", fmt.Errorf("%w: invalid JSON", ErrMalformedRecord)
	}
	t := gjson.GetBytes(raw, "type")
	if t.Type != gjson.String || t.Str == "" {
		return "", fmt.Errorf("%w: missing type", ErrMalformedRecord)
	}
	return t.Str, nil
}

func encode(m Material) ([]byte, error) {
	rec, err := m.Record()
	if err != nil {
		return nil, err
	}
	out, err := sjson.SetBytes(rec, "type", m.Kind())
	if err != nil {
		return nil, err
	}
	var pretty json.RawMessage = out
	return json.MarshalIndent(pretty, "", "    ")
}
