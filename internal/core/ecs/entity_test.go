package ecs

import (
	"encoding/json"
	"errors"
	"testing"
)

type fakeComponent struct {
	kind      string
	Value     int `json:"value"`
	setupErr  error
	setups    int
	destroyed bool
	updates   int
}

func (f *fakeComponent) Kind() string                     { return f.kind }
func (f *fakeComponent) Record() (json.RawMessage, error) { return json.Marshal(f) }
func (f *fakeComponent) Draw(ui Inspector)                { ui.Field("Value", f.Value) }
func (f *fakeComponent) Setup(*Entity) error              { f.setups++; return f.setupErr }
func (f *fakeComponent) Destroy()                         { f.destroyed = true }
func (f *fakeComponent) Update(float64)                   { f.updates++ }

type recordingInspector struct{ labels []string }

func (r *recordingInspector) Field(label string, _ any) { r.labels = append(r.labels, label) }

type namedOwner string

func (n namedOwner) FullName() string { return string(n) }

func newTestRegistry(t *testing.T, kinds ...string) *Registry {
	t.Helper()
	r := NewRegistry()
	for _, k := range kinds {
		k := k
		_, err := r.Register(k,
			func() Component { return &fakeComponent{kind: k} },
			func(rec json.RawMessage) (Component, error) {
				c := &fakeComponent{kind: k}
				if err := json.Unmarshal(rec, c); err != nil {
					return nil, err
				}
				return c, nil
			})
		if err != nil {
			t.Fatalf("Register(%s) error = %v", k, err)
		}
	}
	return r
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := newTestRegistry(t, "A", "B")
	if _, err := r.Register("A", nil, nil); !errors.Is(err, ErrKindExists) {
		t.Errorf("duplicate Register error = %v, want ErrKindExists", err)
	}
	kinds := r.Kinds()
	if len(kinds) != 2 || kinds[0].ID != 1 || kinds[1].Name != "B" {
		t.Errorf("Kinds = %+v", kinds)
	}
	if r.Name(2) != "B" || r.Name(0) != "" || r.Name(9) != "" {
		t.Error("Name lookup mismatch")
	}
	if _, err := r.Construct("Nope", nil); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("Construct unknown error = %v", err)
	}
	c, err := r.Construct("A", json.RawMessage(`{"value":3}`))
	if err != nil {
		t.Fatalf("Construct error = %v", err)
	}
	if c.(*fakeComponent).Value != 3 {
		t.Error("Construct did not apply record")
	}
}

func TestEntity_OnePerKind(t *testing.T) {
	r := newTestRegistry(t, "A", "B")
	e := r.NewEntity()
	if err := e.Add(&fakeComponent{kind: "A"}); err != nil {
		t.Fatalf("Add error = %v", err)
	}
	if err := e.Add(&fakeComponent{kind: "A"}); !errors.Is(err, ErrDuplicateComponent) {
		t.Errorf("second Add error = %v, want ErrDuplicateComponent", err)
	}
	if err := e.Add(&fakeComponent{kind: "Z"}); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("unknown Add error = %v, want ErrUnknownKind", err)
	}
	if e.Len() != 1 {
		t.Errorf("Len = %d, want 1", e.Len())
	}
}

func TestEntity_RemoveDestroys(t *testing.T) {
	r := newTestRegistry(t, "A")
	e := r.NewEntity()
	c := &fakeComponent{kind: "A"}
	_ = e.Add(c)
	id, _ := r.ID("A")
	if !e.Remove(id) {
		t.Fatal("Remove should succeed")
	}
	if !c.destroyed {
		t.Error("removed component should be destroyed")
	}
	if e.Remove(id) {
		t.Error("second Remove should fail")
	}
}

func TestEntity_RecordAndDraw(t *testing.T) {
	r := newTestRegistry(t, "A", "B")
	e := r.NewEntity()
	_ = e.Add(&fakeComponent{kind: "B", Value: 2})
	_ = e.Add(&fakeComponent{kind: "A", Value: 1})

	rec, err := e.Record()
	if err != nil {
		t.Fatalf("Record error = %v", err)
	}
	if string(rec["A"]) != `{"value":1}` || string(rec["B"]) != `{"value":2}` {
		t.Errorf("Record = %s / %s", rec["A"], rec["B"])
	}

	ui := &recordingInspector{}
	e.Draw(ui)
	if len(ui.labels) != 2 {
		t.Errorf("Draw fields = %v", ui.labels)
	}
}

func TestEntityFromRecord_SetupFailureDiscards(t *testing.T) {
	r := NewRegistry()
	failing := &fakeComponent{kind: "Bad", setupErr: errors.New("boom")}
	_, _ = r.Register("Bad",
		func() Component { return failing },
		func(json.RawMessage) (Component, error) { return failing, nil })

	_, err := r.EntityFromRecord(map[string]json.RawMessage{"Bad": json.RawMessage(`{}`)})
	if !errors.Is(err, ErrSetup) {
		t.Fatalf("EntityFromRecord error = %v, want ErrSetup", err)
	}
	if !failing.destroyed {
		t.Error("components of a failed entity should be destroyed")
	}
}

func TestEntity_OwnerAndUpdate(t *testing.T) {
	r := newTestRegistry(t, "A")
	e := r.NewEntity()
	c := &fakeComponent{kind: "A"}
	_ = e.Add(c)
	e.SetOwner(namedOwner("Level/Player"))
	if e.FullName() != "Level/Player" {
		t.Errorf("FullName = %q", e.FullName())
	}
	e.Update(16)
	e.Update(16)
	if c.updates != 2 {
		t.Errorf("updates = %d, want 2", c.updates)
	}
	got, ok := Get[*fakeComponent](e)
	if !ok || got != c {
		t.Error("Get should return the fake component")
	}
}
