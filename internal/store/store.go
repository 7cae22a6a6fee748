// Package store defines the backing store the caches read from and write to,
// with a local file system implementation and an in-memory one for tests.
package store

import (
	"errors"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

var (
	// ErrNotFound is returned when a path is absent from the store.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when creating a path that exists.
	ErrAlreadyExists = errors.New("already exists")
)

// Store is the backing store collaborator. Paths are slash-separated and
// relative to the store root.
type Store interface {
	// Read returns the content at path, or ErrNotFound.
	Read(path string) ([]byte, error)
	// Write creates or replaces the content at path.
	Write(path string, data []byte) error
	// Exists reports whether path holds content.
	Exists(path string) bool
	// ModTime returns the last modification time of path.
	ModTime(path string) (time.Time, error)
	// List returns the paths directly under dir, sorted.
	List(dir string) ([]string, error)
	// Watch calls onChange, possibly from another goroutine, whenever the
	// content at path changes outside the caller's control. stop ends the watch.
	Watch(path string, onChange func(path string)) (stop func(), err error)
}

// Remover is implemented by stores that can delete content.
type Remover interface {
	Remove(path string) error
}

// Normalize returns the canonical cache key for p: slash-separated, cleaned,
// without a leading "./", in Unicode NFC.
func Normalize(p string) string {
	p = path.Clean(filepath.ToSlash(p))
	p = strings.TrimPrefix(p, "./")
	return norm.NFC.String(p)
}
