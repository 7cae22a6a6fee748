package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rootexgo/rootex/internal/watcher"
)

// FS is a Store over a directory of the local file system.
type FS struct {
	root string
	w    *watcher.Watcher
}

// NewFS returns a store rooted at root. w may be nil, in which case Watch
// is a no-op.
func NewFS(root string, w *watcher.Watcher) *FS {
	return &FS{root: root, w: w}
}

var (
	_ Store   = (*FS)(nil)
	_ Remover = (*FS)(nil)
)

// Root returns the directory the store is rooted at.
func (s *FS) Root() string { return s.root }

func (s *FS) abs(p string) string {
	return filepath.Join(s.root, filepath.FromSlash(Normalize(p)))
}

func (s *FS) Read(p string) ([]byte, error) {
	data, err := os.ReadFile(s.abs(p))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return data, nil
}

// Write replaces the file atomically through a temp file in the same directory.
func (s *FS) Write(p string, data []byte) error {
	dst := s.abs(p)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", p, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".rootex-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", p, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", p, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", p, err)
	}
	return nil
}

// Remove deletes the file at p.
func (s *FS) Remove(p string) error {
	if err := os.Remove(s.abs(p)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return fmt.Errorf("remove %s: %w", p, err)
	}
	return nil
}

func (s *FS) Exists(p string) bool {
	info, err := os.Stat(s.abs(p))
	return err == nil && !info.IsDir()
}

func (s *FS) ModTime(p string) (time.Time, error) {
	info, err := os.Stat(s.abs(p))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return time.Time{}, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

func (s *FS) List(dir string) ([]string, error) {
	entries, err := os.ReadDir(s.abs(dir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		out = append(out, Normalize(dir+"/"+e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

func (s *FS) Watch(p string, onChange func(path string)) (func(), error) {
	if s.w == nil {
		return func() {}, nil
	}
	key := Normalize(p)
	return s.w.Watch(s.abs(key), func(string) { onChange(key) })
}
