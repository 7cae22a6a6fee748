package handler

import (
	"go.uber.org/zap"

	"github.com/rootexgo/rootex/internal/core/event"
	"github.com/rootexgo/rootex/internal/scene"
)

// HandleCreateScene creates a scene file named by the string payload and
// opens it. An existing file is not touched and nothing is opened.
func HandleCreateScene(e *event.Event, deps *Deps) event.Variant {
	name, ok := payload[string](e, deps)
	if !ok || name == "" {
		return false
	}
	file, created, err := deps.Session.CreateScene(name)
	if err != nil {
		deps.Log.Warn("create scene failed", zap.String("name", name), zap.Error(err))
		return false
	}
	if !created {
		return false
	}
	if _, err := deps.Session.LoadScene(file); err != nil {
		deps.Log.Warn("open new scene failed", zap.String("file", file), zap.Error(err))
		return false
	}
	return file
}

// HandleOpenScene selects the payload scene in the inspector.
func HandleOpenScene(e *event.Event, deps *Deps) event.Variant {
	sc, ok := payload[*scene.Scene](e, deps)
	if !ok {
		return false
	}
	deps.Session.Select(sc)
	return true
}

// HandleCloseScene clears the inspector selection.
func HandleCloseScene(e *event.Event, deps *Deps) event.Variant {
	deps.Session.Select(nil)
	return true
}

// HandleDeleteScene removes the payload scene from its parent. The root
// cannot be deleted; deleting the open scene closes it.
func HandleDeleteScene(e *event.Event, deps *Deps) event.Variant {
	sc, ok := payload[*scene.Scene](e, deps)
	if !ok {
		return false
	}
	if sc == deps.Session.Root() {
		deps.Log.Warn("cannot delete the root scene")
		return false
	}
	if sc == deps.Session.Current() {
		deps.Session.CloseScene()
		return true
	}
	parent := sc.Parent()
	if parent == nil {
		sc.Destroy()
		return true
	}
	if err := parent.RemoveChild(sc); err != nil {
		deps.Log.Warn("delete scene failed", zap.String("scene", sc.FullName()), zap.Error(err))
		return false
	}
	return true
}

// HandleCopyScene copies the payload scene next to the original. The copy
// is made after the current handlers return, since the caller may be
// iterating the parent's children.
func HandleCopyScene(e *event.Event, deps *Deps) event.Variant {
	sc, ok := payload[*scene.Scene](e, deps)
	if !ok {
		return false
	}
	id := sc.ID()
	graph := deps.Session.Graph()
	deps.Events.Defer(func() {
		src := graph.FindByID(id)
		if src == nil {
			return
		}
		cp, err := graph.Copy(src)
		if err != nil {
			deps.Log.Warn("copy scene failed", zap.String("scene", src.FullName()), zap.Error(err))
			return
		}
		parent := src.Parent()
		if parent == nil {
			parent = deps.Session.Root()
		}
		if err := parent.AddChild(cp); err != nil {
			cp.Destroy()
			deps.Log.Warn("attach scene copy failed", zap.Error(err))
			return
		}
		deps.Session.Select(cp)
	})
	return true
}

// HandleReimportScene reloads the payload scene, or the current scene when
// the payload is nil, from its file.
func HandleReimportScene(e *event.Event, deps *Deps) event.Variant {
	var sc *scene.Scene
	if e.Data == nil {
		sc = deps.Session.Current()
	} else {
		var ok bool
		if sc, ok = payload[*scene.Scene](e, deps); !ok {
			return false
		}
	}
	if sc == nil {
		return false
	}
	return sc.Reimport() == nil
}
