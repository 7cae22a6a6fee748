package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

type memFile struct {
	data    []byte
	modTime time.Time
}

type memWatch struct {
	fn func(string)
}

// Mem is an in-memory Store. Writes notify watchers of the written path,
// standing in for a file system watcher.
type Mem struct {
	mu       sync.RWMutex
	files    map[string]*memFile
	watchers map[string][]*memWatch
	now      func() time.Time
}

func NewMem() *Mem {
	return &Mem{
		files:    make(map[string]*memFile),
		watchers: make(map[string][]*memWatch),
		now:      time.Now,
	}
}

var (
	_ Store   = (*Mem)(nil)
	_ Remover = (*Mem)(nil)
)

func (m *Mem) Read(p string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[Normalize(p)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	out := make([]byte, len(f.data))
	copy(out, f.data)
	return out, nil
}

func (m *Mem) Write(p string, data []byte) error {
	key := Normalize(p)
	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	m.files[key] = &memFile{data: buf, modTime: m.now()}
	ws := append([]*memWatch(nil), m.watchers[key]...)
	m.mu.Unlock()

	for _, w := range ws {
		w.fn(key)
	}
	return nil
}

// Remove deletes p. Watchers are notified.
func (m *Mem) Remove(p string) error {
	key := Normalize(p)
	m.mu.Lock()
	_, ok := m.files[key]
	delete(m.files, key)
	ws := append([]*memWatch(nil), m.watchers[key]...)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	for _, w := range ws {
		w.fn(key)
	}
	return nil
}

func (m *Mem) Exists(p string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.files[Normalize(p)]
	return ok
}

func (m *Mem) ModTime(p string) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[Normalize(p)]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	return f.modTime, nil
}

func (m *Mem) List(dir string) ([]string, error) {
	prefix := Normalize(dir) + "/"
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for k := range m.files {
		if rest, ok := strings.CutPrefix(k, prefix); ok && !strings.Contains(rest, "/") {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *Mem) Watch(p string, onChange func(path string)) (func(), error) {
	key := Normalize(p)
	w := &memWatch{fn: onChange}
	m.mu.Lock()
	m.watchers[key] = append(m.watchers[key], w)
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			ws := m.watchers[key]
			for i, x := range ws {
				if x == w {
					m.watchers[key] = append(ws[:i:i], ws[i+1:]...)
					break
				}
			}
		})
	}, nil
}
