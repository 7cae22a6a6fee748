package system

import "time"

// Phase defines execution ordering within a single frame.
type Phase int

const (
	PhaseInput      Phase = iota // 0: poll input, watcher results
	PhaseUpdate                  // 1: scene and component updates
	PhaseEditor                  // 2: editor requests raised as events
	PhasePostUpdate              // 3: reimport dirty resources and scripts
	PhasePersist                 // 4: autosave
	PhaseDeferred                // 5: drain the deferred event queue
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "Input"
	case PhaseUpdate:
		return "Update"
	case PhaseEditor:
		return "Editor"
	case PhasePostUpdate:
		return "PostUpdate"
	case PhasePersist:
		return "Persist"
	case PhaseDeferred:
		return "Deferred"
	default:
		return "Unknown"
	}
}

// System is the interface every frame system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
