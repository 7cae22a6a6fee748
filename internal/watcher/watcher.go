// Package watcher turns file system notifications into per-path callbacks.
// Parent directories are watched rather than files so that editors which
// save by rename are still observed. Bursts of events for one path are
// coalesced by a debounce window.
package watcher

import (
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ErrClosed is returned by Watch after Close.
var ErrClosed = errors.New("watcher is closed")

type callback struct {
	fn func(path string)
}

// Watcher dispatches change callbacks for individual files.
type Watcher struct {
	mu        sync.Mutex
	fsw       *fsnotify.Watcher
	dirs      map[string]int
	callbacks map[string][]*callback
	timers    map[string]*time.Timer
	debounce  time.Duration
	closed    bool

	log     *zap.Logger
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// New starts a watcher. debounce <= 0 delivers every event immediately.
func New(debounce time.Duration, log *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsw:       fsw,
		dirs:      make(map[string]int),
		callbacks: make(map[string][]*callback),
		timers:    make(map[string]*time.Timer),
		debounce:  debounce,
		log:       log,
		closeCh:   make(chan struct{}),
	}
	w.wg.Add(1)
	go w.processLoop()
	return w, nil
}

// Watch registers fn for changes to the file at path. The returned stop
// function unregisters it.
func (w *Watcher) Watch(path string, fn func(path string)) (func(), error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, ErrClosed
	}
	if w.dirs[dir] == 0 {
		if err := w.fsw.Add(dir); err != nil {
			return nil, err
		}
	}
	w.dirs[dir]++
	cb := &callback{fn: fn}
	w.callbacks[abs] = append(w.callbacks[abs], cb)

	var once sync.Once
	return func() {
		once.Do(func() { w.unwatch(abs, dir, cb) })
	}, nil
}

func (w *Watcher) unwatch(abs, dir string, cb *callback) {
	w.mu.Lock()
	defer w.mu.Unlock()
	cbs := w.callbacks[abs]
	for i, c := range cbs {
		if c == cb {
			w.callbacks[abs] = append(cbs[:i:i], cbs[i+1:]...)
			break
		}
	}
	if len(w.callbacks[abs]) == 0 {
		delete(w.callbacks, abs)
	}
	if w.closed {
		return
	}
	w.dirs[dir]--
	if w.dirs[dir] <= 0 {
		delete(w.dirs, dir)
		if err := w.fsw.Remove(dir); err != nil {
			w.log.Debug("unwatch dir", zap.String("dir", dir), zap.Error(err))
		}
	}
}

// Watching returns the number of files with at least one callback.
func (w *Watcher) Watching() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.callbacks)
}

// Close stops the watcher. Pending debounced callbacks are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for _, t := range w.timers {
		t.Stop()
	}
	w.timers = nil
	w.mu.Unlock()

	close(w.closeCh)
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) processLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.closeCh:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			w.schedule(filepath.Clean(ev.Name))
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("file watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || len(w.callbacks[path]) == 0 {
		return
	}
	if w.debounce <= 0 {
		go w.fire(path)
		return
	}
	if t, ok := w.timers[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.fire(path)
	})
}

func (w *Watcher) fire(path string) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	cbs := append([]*callback(nil), w.callbacks[path]...)
	w.mu.Unlock()
	for _, c := range cbs {
		c.fn(path)
	}
}
