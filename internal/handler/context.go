package handler

import (
	"go.uber.org/zap"

	"github.com/rootexgo/rootex/internal/core/event"
	"github.com/rootexgo/rootex/internal/session"
)

// Deps holds shared dependencies injected into all event handlers.
type Deps struct {
	Session *session.Session
	Events  *event.Dispatcher
	Log     *zap.Logger
}

// RegisterAll binds the editor request handlers to the dispatcher.
func RegisterAll(d *event.Dispatcher, deps *Deps) {
	for _, t := range []event.Type{
		event.ApplicationExit, event.DeleteScene, event.SceneOpened, event.SceneClosed,
		event.WindowGetScreenState, event.WindowToggleFullscreen, event.QuitEditorWindow,
		event.OpenScene, event.CloseScene, event.SaveAll, event.Autosave, event.SaveBeforeQuit,
		event.CreateScene, event.CreateMaterial, event.CopyScene, event.ReimportScene,
		event.ReimportResource, event.AddComponent, event.RemoveComponent,
	} {
		d.AddEvent(t)
	}

	// Persistence
	d.Listen(event.SaveAll, func(e *event.Event) event.Variant {
		return HandleSaveAll(e, deps)
	})
	d.Listen(event.Autosave, func(e *event.Event) event.Variant {
		return HandleAutosave(e, deps)
	})
	d.Listen(event.SaveBeforeQuit, func(e *event.Event) event.Variant {
		return HandleSaveBeforeQuit(e, deps)
	})

	// Scenes
	d.Listen(event.CreateScene, func(e *event.Event) event.Variant {
		return HandleCreateScene(e, deps)
	})
	d.Listen(event.OpenScene, func(e *event.Event) event.Variant {
		return HandleOpenScene(e, deps)
	})
	d.Listen(event.CloseScene, func(e *event.Event) event.Variant {
		return HandleCloseScene(e, deps)
	})
	d.Listen(event.DeleteScene, func(e *event.Event) event.Variant {
		return HandleDeleteScene(e, deps)
	})
	d.Listen(event.CopyScene, func(e *event.Event) event.Variant {
		return HandleCopyScene(e, deps)
	})
	d.Listen(event.ReimportScene, func(e *event.Event) event.Variant {
		return HandleReimportScene(e, deps)
	})

	// Assets
	d.Listen(event.CreateMaterial, func(e *event.Event) event.Variant {
		return HandleCreateMaterial(e, deps)
	})
	d.Listen(event.ReimportResource, func(e *event.Event) event.Variant {
		return HandleReimportResource(e, deps)
	})

	// Components
	d.Listen(event.AddComponent, func(e *event.Event) event.Variant {
		return HandleAddComponent(e, deps)
	})
	d.Listen(event.RemoveComponent, func(e *event.Event) event.Variant {
		return HandleRemoveComponent(e, deps)
	})
}

// payload extracts the event data as T. A mismatch is a caller bug and is
// logged as an error.
func payload[T any](e *event.Event, deps *Deps) (T, bool) {
	v, err := event.Extract[T](e.Data)
	if err != nil {
		deps.Log.Error("bad event payload", zap.String("event", string(e.Type)), zap.Error(err))
		return v, false
	}
	return v, true
}
