package persist

import "sync"

type watch struct {
	fn func(string)
}

// watchers maps asset paths to change callbacks.
type watchers struct {
	mu sync.Mutex
	m  map[string][]*watch
}

func newWatchers() *watchers {
	return &watchers{m: make(map[string][]*watch)}
}

func (w *watchers) add(path string, fn func(string)) func() {
	x := &watch{fn: fn}
	w.mu.Lock()
	w.m[path] = append(w.m[path], x)
	w.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			ws := w.m[path]
			for i, y := range ws {
				if y == x {
					w.m[path] = append(ws[:i:i], ws[i+1:]...)
					break
				}
			}
			if len(w.m[path]) == 0 {
				delete(w.m, path)
			}
		})
	}
}

// fire calls the callbacks of path outside the lock.
func (w *watchers) fire(path string) {
	w.mu.Lock()
	ws := append([]*watch(nil), w.m[path]...)
	w.mu.Unlock()
	for _, x := range ws {
		x.fn(path)
	}
}
