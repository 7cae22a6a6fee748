package scene

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// ID identifies a scene node for the lifetime of a graph.
type ID uint32

// RootID is reserved for the root scene.
const RootID ID = 1

// ImportStyle says where a node's content comes from.
type ImportStyle int

const (
	// Local nodes are authored inline under their parent.
	Local ImportStyle = iota
	// External nodes mirror another scene file.
	External
)

func (s ImportStyle) String() string {
	switch s {
	case Local:
		return "Local"
	case External:
		return "External"
	default:
		return fmt.Sprintf("ImportStyle(%d)", int(s))
	}
}

func (s ImportStyle) MarshalJSON() ([]byte, error) {
	if s != Local && s != External {
		return nil, fmt.Errorf("invalid import style %d", int(s))
	}
	return json.Marshal(s.String())
}

func (s *ImportStyle) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	switch name {
	case "Local":
		*s = Local
	case "External":
		*s = External
	default:
		return fmt.Errorf("unknown import style %q", name)
	}
	return nil
}

// State is a node's import lifetime.
type State int

const (
	Unloaded State = iota
	Loaded
	Reimporting
	Destroyed
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "Unloaded"
	case Loaded:
		return "Loaded"
	case Reimporting:
		return "Reimporting"
	case Destroyed:
		return "Destroyed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Settings are per-scene options. Camera and Listener name scenes in the
// same tree; InputSchemes is kept as authored.
type Settings struct {
	Preloads     []string        `json:"preloads"`
	Camera       ID              `json:"camera"`
	Listener     ID              `json:"listener"`
	InputSchemes json.RawMessage `json:"inputSchemes,omitempty"`
	StartScheme  string          `json:"startScheme"`
}

// DefaultSettings points the camera and listener at the root.
func DefaultSettings() Settings {
	return Settings{
		Preloads: []string{},
		Camera:   RootID,
		Listener: RootID,
	}
}

func (s Settings) clone() Settings {
	out := s
	out.Preloads = append([]string{}, s.Preloads...)
	if s.InputSchemes != nil {
		out.InputSchemes = append(json.RawMessage(nil), s.InputSchemes...)
	}
	return out
}

// EntityRecord is the persisted form of an entity.
type EntityRecord struct {
	Components map[string]json.RawMessage `json:"components"`
}

// Record is the persisted form of a scene node and its subtree.
type Record struct {
	ID          ID            `json:"id,omitempty"`
	Name        string        `json:"name"`
	ImportStyle ImportStyle   `json:"importStyle"`
	SceneFile   string        `json:"sceneFile,omitempty"`
	Settings    Settings      `json:"settings"`
	Entity      *EntityRecord `json:"entity,omitempty"`
	Children    []Record      `json:"children"`
}

// ParseRecord decodes a scene record. Decoding failures wrap
// ErrMalformedRecord.
func ParseRecord(raw []byte) (Record, error) {
	if !gjson.ValidBytes(raw) {
		return Record{}, fmt.Errorf("%w: invalid JSON", ErrMalformedRecord)
	}
	if root := gjson.ParseBytes(raw); !root.IsObject() {
		return Record{}, fmt.Errorf("%w: record is not an object", ErrMalformedRecord)
	}
	rec := Record{Settings: DefaultSettings()}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if err := rec.validate(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (r *Record) validate() error {
	if r.ImportStyle == External && r.SceneFile == "" {
		return fmt.Errorf("%w: external scene %q has no sceneFile", ErrMalformedRecord, r.Name)
	}
	for i := range r.Children {
		if err := r.Children[i].validate(); err != nil {
			return err
		}
	}
	return nil
}
