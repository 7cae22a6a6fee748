package component

import (
	"encoding/json"
	"testing"

	"github.com/rootexgo/rootex/internal/core/ecs"
)

func newRegistry(t *testing.T) *ecs.Registry {
	t.Helper()
	reg := ecs.NewRegistry()
	if err := RegisterAll(reg); err != nil {
		t.Fatalf("RegisterAll error = %v", err)
	}
	return reg
}

func TestRegisterAllKinds(t *testing.T) {
	reg := newRegistry(t)
	for _, name := range []string{TransformName, TextName, SphereColliderName} {
		if _, ok := reg.Lookup(name); !ok {
			t.Errorf("%s not registered", name)
		}
	}
}

func TestTextBindsTransform(t *testing.T) {
	reg := newRegistry(t)
	e, err := reg.EntityFromRecord(map[string]json.RawMessage{
		TransformName: json.RawMessage(`{"position":[1,2,3]}`),
		TextName:      json.RawMessage(`{"text":"hi"}`),
	})
	if err != nil {
		t.Fatalf("EntityFromRecord error = %v", err)
	}
	text, ok := ecs.Get[*Text](e)
	if !ok {
		t.Fatal("no Text component")
	}
	if text.Text != "hi" || text.FontResource == "" {
		t.Errorf("Text = %+v", text)
	}
	tr := text.Transform()
	if tr == nil || tr.Position != [3]float32{1, 2, 3} {
		t.Fatalf("bound transform = %+v", tr)
	}
	if tr.Scale != [3]float32{1, 1, 1} {
		t.Errorf("Scale default lost: %v", tr.Scale)
	}
}

func TestTextWithoutTransformFails(t *testing.T) {
	reg := newRegistry(t)
	_, err := reg.EntityFromRecord(map[string]json.RawMessage{
		TextName: json.RawMessage(`{}`),
	})
	if err == nil {
		t.Fatal("EntityFromRecord succeeded without a Transform")
	}
}

func TestSphereColliderSetup(t *testing.T) {
	reg := newRegistry(t)
	if _, err := reg.EntityFromRecord(map[string]json.RawMessage{
		SphereColliderName: json.RawMessage(`{"radius":0}`),
	}); err == nil {
		t.Error("zero radius accepted")
	}

	e, err := reg.EntityFromRecord(map[string]json.RawMessage{
		SphereColliderName: json.RawMessage(`{"radius":2.5}`),
	})
	if err != nil {
		t.Fatalf("EntityFromRecord error = %v", err)
	}
	e.Update(16)
	col, _ := ecs.Get[*SphereCollider](e)
	if col.Radius != 2.5 || col.Mass != 1 || col.Ticks != 1 {
		t.Errorf("collider = %+v", col)
	}

	raw, err := col.Record()
	if err != nil {
		t.Fatal(err)
	}
	var back map[string]any
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatal(err)
	}
	if _, ok := back["Ticks"]; ok {
		t.Error("Ticks persisted")
	}
}
