package handler

import (
	"go.uber.org/zap"

	"github.com/rootexgo/rootex/internal/core/event"
)

// HandleSaveAll saves every user material and the current scene.
func HandleSaveAll(e *event.Event, deps *Deps) event.Variant {
	if err := deps.Session.SaveAll(); err != nil {
		deps.Log.Warn("save all failed", zap.Error(err))
		return false
	}
	return true
}

// HandleAutosave snapshots the current scene into the backups directory
// and then saves everything. It returns false if either step fails.
func HandleAutosave(e *event.Event, deps *Deps) event.Variant {
	file, backupErr := deps.Session.Backup()
	if backupErr != nil {
		deps.Log.Warn("autosave backup failed", zap.Error(backupErr))
	}
	saveErr := deps.Session.SaveAll()
	if saveErr != nil {
		deps.Log.Warn("autosave failed", zap.Error(saveErr))
	}
	if backupErr != nil || saveErr != nil {
		return false
	}
	deps.Log.Info("autosaved", zap.String("backup", file))
	return true
}

// HandleSaveBeforeQuit saves everything and asks the editor window to close.
func HandleSaveBeforeQuit(e *event.Event, deps *Deps) event.Variant {
	ok := HandleSaveAll(e, deps)
	deps.Events.Call(event.QuitEditorWindow, nil)
	return ok
}
