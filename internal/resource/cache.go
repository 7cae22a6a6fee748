// Package resource caches file content by normalized path. The cache keeps
// only weak handles, so a resource lives exactly as long as some caller
// holds a strong handle to it, and every caller asking for a path while it
// is alive shares one instance.
package resource

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rootexgo/rootex/internal/core/ref"
	"github.com/rootexgo/rootex/internal/data"
	"github.com/rootexgo/rootex/internal/store"
)

type entry struct {
	weak ref.Weak[Resource]
	stop func()
}

// Cache is the resource cache service.
type Cache struct {
	mu      sync.Mutex
	store   store.Store
	types   *data.AssetTypeTable
	entries map[string]*entry
	log     *zap.Logger
}

// NewCache creates a cache over st. A nil types table uses the built-in one.
func NewCache(st store.Store, types *data.AssetTypeTable, log *zap.Logger) *Cache {
	if types == nil {
		types = data.DefaultAssetTypeTable()
	}
	return &Cache{
		store:   st,
		types:   types,
		entries: make(map[string]*entry),
		log:     log,
	}
}

// Store returns the backing store.
func (c *Cache) Store() store.Store { return c.store }

// Kind resolves the asset kind of path without loading it.
func (c *Cache) Kind(path string) string { return c.types.KindOf(path) }

// Get returns a strong handle to the resource at path, loading it from the
// store on a miss. It returns store.ErrNotFound if the file is absent.
func (c *Cache) Get(path string) (*ref.Strong[Resource], error) {
	key := store.Normalize(path)

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		if s, ok := e.weak.Promote(); ok {
			return s, nil
		}
	}
	raw, err := c.store.Read(key)
	if err != nil {
		return nil, fmt.Errorf("load resource %s: %w", key, err)
	}
	return c.installLocked(key, raw), nil
}

// Peek returns a strong handle only if the resource is already live.
func (c *Cache) Peek(path string) (*ref.Strong[Resource], bool) {
	key := store.Normalize(path)
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e.weak.Promote()
	}
	return nil, false
}

func (c *Cache) installLocked(key string, raw []byte) *ref.Strong[Resource] {
	if old, ok := c.entries[key]; ok && old.stop != nil {
		old.stop()
	}
	modTime, err := c.store.ModTime(key)
	if err != nil {
		modTime = time.Now()
	}
	r := newResource(key, c.types.KindOf(key), raw, modTime)

	e := &entry{}
	s := ref.New(r, func(*Resource) { c.evict(key, e) })
	e.weak = s.Weak()
	stop, err := c.store.Watch(key, c.Notify)
	if err != nil {
		c.log.Warn("watch resource", zap.String("path", key), zap.Error(err))
	} else {
		e.stop = stop
	}
	c.entries[key] = e
	c.log.Debug("resource loaded", zap.String("path", key), zap.String("kind", r.kind))
	return s
}

func (c *Cache) evict(key string, e *entry) {
	c.mu.Lock()
	cur, ok := c.entries[key]
	if !ok || cur != e {
		c.mu.Unlock()
		return
	}
	delete(c.entries, key)
	c.mu.Unlock()
	if e.stop != nil {
		e.stop()
	}
	c.log.Debug("resource released", zap.String("path", key))
}

// CreateNew writes content to a path that does not exist yet and returns the
// new resource. It fails with store.ErrAlreadyExists otherwise.
func (c *Cache) CreateNew(path string, content []byte) (*ref.Strong[Resource], error) {
	key := store.Normalize(path)
	if c.store.Exists(key) {
		return nil, fmt.Errorf("create resource %s: %w", key, store.ErrAlreadyExists)
	}
	if err := c.store.Write(key, content); err != nil {
		return nil, fmt.Errorf("create resource %s: %w", key, err)
	}
	return c.Get(key)
}

// Reimport reloads a live resource from the store in place and clears its
// dirty flag. A path with no live resource is left alone. On a read error
// the previous content is kept.
func (c *Cache) Reimport(path string) error {
	s, ok := c.Peek(path)
	if !ok {
		return nil
	}
	defer s.Release()
	r := s.Get()
	raw, err := c.store.Read(r.path)
	if err != nil {
		return fmt.Errorf("reimport %s: %w", r.path, err)
	}
	modTime, err := c.store.ModTime(r.path)
	if err != nil {
		modTime = time.Now()
	}
	r.replace(raw, modTime)
	c.log.Info("resource reimported", zap.String("path", r.path))
	return nil
}

// MarkDirty flags a live resource as changed on disk.
func (c *Cache) MarkDirty(path string) {
	if s, ok := c.Peek(path); ok {
		s.Get().dirty.Store(true)
		s.Release()
	}
}

// Notify is the change callback registered with the store. The resource is
// marked dirty only if the stored content differs from the cached content.
func (c *Cache) Notify(path string) {
	s, ok := c.Peek(path)
	if !ok {
		return
	}
	defer s.Release()
	r := s.Get()
	raw, err := c.store.Read(r.path)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			r.dirty.Store(true)
		}
		return
	}
	if digestOf(raw) != r.Digest() {
		r.dirty.Store(true)
		c.log.Info("resource changed on disk", zap.String("path", r.path))
	}
}

// Save writes content through to the store and updates a live resource in
// place.
func (c *Cache) Save(path string, content []byte) error {
	key := store.Normalize(path)
	if err := c.store.Write(key, content); err != nil {
		return fmt.Errorf("save resource %s: %w", key, err)
	}
	if s, ok := c.Peek(key); ok {
		modTime, err := c.store.ModTime(key)
		if err != nil {
			modTime = time.Now()
		}
		s.Get().replace(content, modTime)
		s.Release()
	}
	return nil
}

// Resources returns the live resource paths grouped by kind.
func (c *Cache) Resources() map[string][]string {
	out := make(map[string][]string)
	for _, r := range c.live() {
		out[r.kind] = append(out[r.kind], r.path)
	}
	for k := range out {
		sort.Strings(out[k])
	}
	return out
}

// Dirty returns the paths of live resources flagged dirty.
func (c *Cache) Dirty() []string {
	var out []string
	for _, r := range c.live() {
		if r.Dirty() {
			out = append(out, r.path)
		}
	}
	sort.Strings(out)
	return out
}

// Len returns the number of cache entries, live or not yet evicted.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) live() []*Resource {
	c.mu.Lock()
	handles := make([]*ref.Strong[Resource], 0, len(c.entries))
	for _, e := range c.entries {
		if s, ok := e.weak.Promote(); ok {
			handles = append(handles, s)
		}
	}
	c.mu.Unlock()

	out := make([]*Resource, 0, len(handles))
	for _, s := range handles {
		out = append(out, s.Get())
		s.Release()
	}
	return out
}

// Close stops every change watch.
func (c *Cache) Close() {
	c.mu.Lock()
	entries := c.entries
	c.entries = make(map[string]*entry)
	c.mu.Unlock()
	for _, e := range entries {
		if e.stop != nil {
			e.stop()
		}
	}
}
