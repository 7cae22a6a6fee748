package component

import (
	"encoding/json"
	"fmt"

	"github.com/rootexgo/rootex/internal/core/ecs"
)

// TextName is the registered kind name of Text.
const TextName = "TextUIComponent"

// Text is a UI text label. It requires a Transform on the same entity.
type Text struct {
	FontResource string     `json:"fontResource"`
	Text         string     `json:"text"`
	Color        [4]float32 `json:"color"`
	Origin       [2]float32 `json:"origin"`
	Mode         int        `json:"mode"`

	transform *Transform
}

func NewText() ecs.Component {
	return &Text{
		FontResource: "rootex/assets/fonts/lato_30_regular.spritefont",
		Text:         "Hello Rootex!",
		Color:        [4]float32{1, 1, 1, 1},
	}
}

func TextFromRecord(rec json.RawMessage) (ecs.Component, error) {
	t := NewText().(*Text)
	if err := json.Unmarshal(rec, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Text) Kind() string { return TextName }

func (t *Text) Record() (json.RawMessage, error) { return json.Marshal(t) }

func (t *Text) Draw(ui ecs.Inspector) {
	ui.Field("Font", t.FontResource)
	ui.Field("Text", t.Text)
	ui.Field("Color", t.Color)
	ui.Field("Origin", t.Origin)
	ui.Field("Mode", t.Mode)
}

// Setup binds the sibling Transform.
func (t *Text) Setup(owner *ecs.Entity) error {
	tr, ok := ecs.Get[*Transform](owner)
	if !ok {
		return fmt.Errorf("%s requires %s", TextName, TransformName)
	}
	t.transform = tr
	return nil
}

// Transform returns the sibling transform bound during Setup.
func (t *Text) Transform() *Transform { return t.transform }
