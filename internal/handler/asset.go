package handler

import (
	"go.uber.org/zap"

	"github.com/rootexgo/rootex/internal/core/event"
	"github.com/rootexgo/rootex/internal/scene"
	"github.com/rootexgo/rootex/internal/store"
)

// HandleCreateMaterial creates a material file. The payload is
// []string{path, kind}.
func HandleCreateMaterial(e *event.Event, deps *Deps) event.Variant {
	args, ok := payload[[]string](e, deps)
	if !ok || len(args) != 2 {
		deps.Log.Warn("create material expects [path, kind]", zap.Strings("args", args))
		return false
	}
	if err := deps.Session.Materials().CreateNewFile(args[0], args[1]); err != nil {
		deps.Log.Warn("create material failed", zap.String("path", args[0]), zap.Error(err))
		return false
	}
	return true
}

// HandleReimportResource reloads the resource at the string payload. Scenes
// linked to that file are reimported as well.
func HandleReimportResource(e *event.Event, deps *Deps) event.Variant {
	path, ok := payload[string](e, deps)
	if !ok {
		return false
	}
	path = store.Normalize(path)
	if err := deps.Session.Resources().Reimport(path); err != nil {
		deps.Log.Warn("reimport resource failed", zap.String("path", path), zap.Error(err))
		return false
	}
	ok = true
	for _, sc := range deps.Session.Graph().All() {
		if sc.ImportStyle() == scene.External && sc.SceneFile() == path {
			if err := sc.Reimport(); err != nil {
				ok = false
			}
		}
	}
	return ok
}
