package event

// Type names an event kind. The set below is the engine and editor namespace;
// scripts and tools may register additional types with AddEvent.
type Type string

// Engine events.
const (
	ApplicationExit        Type = "ApplicationExit"
	DeleteScene            Type = "DeleteScene"
	SceneOpened            Type = "SceneOpened"
	SceneClosed            Type = "SceneClosed"
	WindowGetScreenState   Type = "WindowGetScreenState"
	WindowToggleFullscreen Type = "WindowToggleFullscreen"
	QuitEditorWindow       Type = "QuitEditorWindow"
)

// Editor events.
const (
	OpenScene        Type = "EditorOpenScene"
	CloseScene       Type = "EditorCloseScene"
	SaveAll          Type = "EditorSaveAll"
	Autosave         Type = "EditorAutosave"
	SaveBeforeQuit   Type = "EditorSaveBeforeQuit"
	CreateScene      Type = "EditorCreateNewScene"
	CreateMaterial   Type = "EditorCreateNewMaterial"
	CopyScene        Type = "EditorCopyScene"
	ReimportScene    Type = "EditorReimportScene"
	ReimportResource Type = "EditorReimportResource"
	AddComponent     Type = "EditorAddComponent"
	RemoveComponent  Type = "EditorRemoveComponent"
)

// Variant is an event payload or handler result. Expected dynamic types are
// bool, string, numeric kinds, []string, a scene pointer, or nil.
type Variant any

// Event is a typed payload delivered to listeners.
type Event struct {
	Type Type
	Data Variant
}

type none struct{}

// None is returned by Call when no listener is registered for the type.
var None Variant = none{}

// IsNone reports whether v is the None sentinel.
func IsNone(v Variant) bool {
	_, ok := v.(none)
	return ok
}
