package resource

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/blake2b"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Digest identifies resource content.
type Digest [blake2b.Size256]byte

func digestOf(b []byte) Digest { return blake2b.Sum256(b) }

// Resource is the cached content of one file. Its identity is stable across
// reimports; only the content changes.
type Resource struct {
	path string
	kind string

	mu      sync.RWMutex
	data    []byte
	modTime time.Time
	digest  Digest

	dirty atomic.Bool
}

func newResource(path, kind string, data []byte, modTime time.Time) *Resource {
	r := &Resource{path: path, kind: kind}
	r.replace(data, modTime)
	return r
}

// Path returns the normalized cache key.
func (r *Resource) Path() string { return r.path }

// Kind returns the asset kind resolved from the path's extension.
func (r *Resource) Kind() string { return r.kind }

// Data returns a copy of the current content.
func (r *Resource) Data() []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]byte(nil), r.data...)
}

// String returns the content as text.
func (r *Resource) String() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return string(r.data)
}

// ModTime returns the last-known modification time.
func (r *Resource) ModTime() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.modTime
}

// Digest returns the digest of the current content.
func (r *Resource) Digest() Digest {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.digest
}

// Dirty reports whether the backing file changed since the last load.
func (r *Resource) Dirty() bool { return r.dirty.Load() }

func (r *Resource) replace(data []byte, modTime time.Time) {
	buf := append([]byte(nil), data...)
	d := digestOf(buf)
	r.mu.Lock()
	r.data = buf
	r.modTime = modTime
	r.digest = d
	r.mu.Unlock()
	r.dirty.Store(false)
}

// ImageInfo describes an image resource without decoding its pixels.
type ImageInfo struct {
	Width  int
	Height int
	Format string
}

// ImageInfo decodes the image header of the resource.
func (r *Resource) ImageInfo() (ImageInfo, error) {
	r.mu.RLock()
	cfg, format, err := image.DecodeConfig(bytes.NewReader(r.data))
	r.mu.RUnlock()
	if err != nil {
		return ImageInfo{}, fmt.Errorf("decode image %s: %w", r.path, err)
	}
	return ImageInfo{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}
