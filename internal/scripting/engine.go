package scripting

import (
	"fmt"
	"path"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/rootexgo/rootex/internal/core/event"
	"github.com/rootexgo/rootex/internal/core/ref"
	"github.com/rootexgo/rootex/internal/resource"
	"github.com/rootexgo/rootex/internal/scene"
	"github.com/rootexgo/rootex/internal/store"
)

// APIVersion is exposed to scripts as the API_VERSION global.
const APIVersion = 1

// scriptKind is the asset kind of lua resources.
const scriptKind = "lua"

// Deps are the engine services scripts can reach.
type Deps struct {
	Events    *event.Dispatcher
	Graph     *scene.Graph
	Resources *resource.Cache
	Log       *zap.Logger
}

type binding struct {
	typ event.Type
	l   *event.Listener
}

// script is a loaded lua resource and the listeners it registered.
type script struct {
	path     string
	file     *ref.Strong[resource.Resource]
	bindings []binding
}

// Engine wraps a single gopher-lua VM for editor and game scripts.
// Single-goroutine access only (frame loop).
type Engine struct {
	vm      *lua.LState
	events  *event.Dispatcher
	graph   *scene.Graph
	res     *resource.Cache
	log     *zap.Logger
	scripts map[string]*script
	// running is the script whose chunk is executing; listeners added
	// outside any chunk belong to the engine itself.
	running *script
	loose   []binding
}

// NewEngine creates a Lua VM with the events module preloaded.
func NewEngine(deps Deps) *Engine {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(APIVersion))

	e := &Engine{
		vm:      vm,
		events:  deps.Events,
		graph:   deps.Graph,
		res:     deps.Resources,
		log:     deps.Log,
		scripts: make(map[string]*script),
	}
	vm.PreloadModule("events", e.loadEventsModule)
	return e
}

// LoadDir loads every lua resource directly inside dir, in path order.
func (e *Engine) LoadDir(dir string) (int, error) {
	paths, err := e.res.Store().List(dir)
	if err != nil {
		return 0, fmt.Errorf("list scripts %s: %w", dir, err)
	}
	n := 0
	for _, p := range paths {
		if e.res.Kind(p) != scriptKind {
			continue
		}
		if err := e.Load(p); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Load runs the script at p. A script that is already loaded is reloaded.
func (e *Engine) Load(p string) error {
	p = store.Normalize(p)
	if s, ok := e.scripts[p]; ok {
		return e.reload(s)
	}
	h, err := e.res.Get(p)
	if err != nil {
		return fmt.Errorf("load script %s: %w", p, err)
	}
	s := &script{path: h.Get().Path(), file: h}
	if err := e.run(s); err != nil {
		h.Release()
		return err
	}
	e.scripts[s.path] = s
	e.log.Debug("loaded lua script", zap.String("file", s.path))
	return nil
}

// Unload removes the script's listeners and releases its resource.
func (e *Engine) Unload(p string) bool {
	p = store.Normalize(p)
	s, ok := e.scripts[p]
	if !ok {
		return false
	}
	e.unbind(s.bindings)
	s.bindings = nil
	s.file.Release()
	delete(e.scripts, p)
	return true
}

// Scripts returns the loaded script paths, sorted.
func (e *Engine) Scripts() []string {
	out := make([]string, 0, len(e.scripts))
	for p := range e.scripts {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// ReloadDirty reimports every script whose file changed on disk and runs it
// again. It returns how many scripts were reloaded.
func (e *Engine) ReloadDirty() int {
	n := 0
	for _, p := range e.Scripts() {
		s := e.scripts[p]
		if !s.file.Get().Dirty() {
			continue
		}
		if err := e.res.Reimport(p); err != nil {
			e.log.Warn("reimport script failed", zap.String("file", p), zap.Error(err))
			continue
		}
		if err := e.reload(s); err != nil {
			e.log.Error("reload script failed", zap.String("file", p), zap.Error(err))
			continue
		}
		n++
	}
	return n
}

func (e *Engine) reload(s *script) error {
	e.unbind(s.bindings)
	s.bindings = nil
	if err := e.run(s); err != nil {
		return err
	}
	e.log.Info("reloaded lua script", zap.String("file", s.path))
	return nil
}

// run executes the script chunk. Listeners registered by a chunk that
// fails are removed again.
func (e *Engine) run(s *script) error {
	fn, err := e.vm.Load(strings.NewReader(s.file.Get().String()), "@"+path.Base(s.path))
	if err != nil {
		return fmt.Errorf("compile %s: %w", s.path, err)
	}
	prev := e.running
	e.running = s
	defer func() { e.running = prev }()

	e.vm.Push(fn)
	if err := e.vm.PCall(0, 0, nil); err != nil {
		e.unbind(s.bindings)
		s.bindings = nil
		return fmt.Errorf("run %s: %w", s.path, err)
	}
	return nil
}

func (e *Engine) unbind(bs []binding) {
	for _, b := range bs {
		e.events.RemoveListener(b.typ, b.l)
	}
}

// DoString runs a chunk that is not backed by a resource. Listeners it
// registers live until Close.
func (e *Engine) DoString(src string) error {
	prev := e.running
	e.running = nil
	defer func() { e.running = prev }()
	return e.vm.DoString(src)
}

// Close removes every script listener, releases the script files and shuts
// down the VM.
func (e *Engine) Close() {
	for _, p := range e.Scripts() {
		e.Unload(p)
	}
	e.unbind(e.loose)
	e.loose = nil
	e.vm.Close()
}

// --- events module ---

func (e *Engine) loadEventsModule(L *lua.LState) int {
	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"listen":        e.luaListen,
		"call":          e.luaCall,
		"deferred_call": e.luaDeferredCall,
		"add":           e.luaAddEvent,
	})
	L.Push(mod)
	return 1
}

// events.listen(type, fn)
func (e *Engine) luaListen(L *lua.LState) int {
	typ := event.Type(L.CheckString(1))
	fn := L.CheckFunction(2)
	owner := e.running
	l := e.events.Listen(typ, func(ev *event.Event) event.Variant {
		return e.invoke(fn, owner, ev)
	})
	b := binding{typ: typ, l: l}
	if owner != nil {
		owner.bindings = append(owner.bindings, b)
	} else {
		e.loose = append(e.loose, b)
	}
	return 0
}

// events.call(type, data) -> result
func (e *Engine) luaCall(L *lua.LState) int {
	typ := event.Type(L.CheckString(1))
	out := e.events.Call(typ, e.fromLua(L.Get(2)))
	L.Push(e.toLua(out))
	return 1
}

// events.deferred_call(type, data)
func (e *Engine) luaDeferredCall(L *lua.LState) int {
	typ := event.Type(L.CheckString(1))
	e.events.DeferredCall(typ, e.fromLua(L.Get(2)))
	return 0
}

// events.add(type) -> bool
func (e *Engine) luaAddEvent(L *lua.LState) int {
	L.Push(lua.LBool(e.events.AddEvent(event.Type(L.CheckString(1)))))
	return 1
}

// invoke calls a lua listener. Errors are logged and yield nil.
func (e *Engine) invoke(fn *lua.LFunction, owner *script, ev *event.Event) event.Variant {
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, e.toLua(ev.Data)); err != nil {
		file := ""
		if owner != nil {
			file = owner.path
		}
		e.log.Error("lua listener error",
			zap.String("event", string(ev.Type)), zap.String("file", file), zap.Error(err))
		return nil
	}
	result := e.vm.Get(-1)
	e.vm.Pop(1)
	return e.fromLua(result)
}
