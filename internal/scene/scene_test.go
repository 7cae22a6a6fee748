package scene

import (
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/rootexgo/rootex/internal/component"
	"github.com/rootexgo/rootex/internal/core/ecs"
	"github.com/rootexgo/rootex/internal/resource"
	"github.com/rootexgo/rootex/internal/store"
)

func newTestGraph(t *testing.T) (*Graph, *store.Mem) {
	t.Helper()
	log := zaptest.NewLogger(t)
	reg := ecs.NewRegistry()
	if err := component.RegisterAll(reg); err != nil {
		t.Fatal(err)
	}
	st := store.NewMem()
	res := resource.NewCache(st, nil, log)
	t.Cleanup(res.Close)
	return NewGraph(reg, res, log), st
}

func named(g *Graph, name string) *Scene {
	s := g.CreateEmpty()
	s.SetName(name)
	return s
}

// chain builds root -> a -> b -> c and returns the nodes.
func chain(t *testing.T, g *Graph) (root, a, b, c *Scene) {
	t.Helper()
	root, err := g.CreateRoot()
	if err != nil {
		t.Fatal(err)
	}
	a, b, c = named(g, "a"), named(g, "b"), named(g, "c")
	for _, step := range []struct{ parent, child *Scene }{{root, a}, {a, b}, {b, c}} {
		if err := step.parent.AddChild(step.child); err != nil {
			t.Fatal(err)
		}
	}
	return root, a, b, c
}

func TestAddChildCycle(t *testing.T) {
	g, _ := newTestGraph(t)
	root, a, b, c := chain(t, g)
	nodes := []*Scene{root, a, b, c}

	// AddChild(A, B) is a cycle iff A is B or A is a descendant of B.
	for i, parent := range nodes {
		for j, child := range nodes {
			err := parent.AddChild(child)
			wantCycle := i >= j
			if got := errors.Is(err, ErrCycleDetected); got != wantCycle {
				t.Errorf("AddChild(%s, %s) cycle = %v, want %v (err %v)",
					parent.Name(), child.Name(), got, wantCycle, err)
			}
			if !wantCycle && !errors.Is(err, ErrAlreadyOwned) && child != root {
				t.Errorf("AddChild(%s, %s) err = %v, want ErrAlreadyOwned", parent.Name(), child.Name(), err)
			}
		}
	}
}

func TestAddChildAlreadyOwned(t *testing.T) {
	g, _ := newTestGraph(t)
	p1, p2, child := named(g, "p1"), named(g, "p2"), named(g, "child")
	if err := p1.AddChild(child); err != nil {
		t.Fatal(err)
	}
	if err := p2.AddChild(child); !errors.Is(err, ErrAlreadyOwned) {
		t.Fatalf("err = %v, want ErrAlreadyOwned", err)
	}
	if child.Parent() != p1 {
		t.Error("failed AddChild moved the child")
	}
	if err := p2.SnatchChild(child); err != nil {
		t.Fatalf("SnatchChild error = %v", err)
	}
	if child.Parent() != p2 || len(p1.Children()) != 0 {
		t.Error("SnatchChild did not move the child")
	}
}

func TestRemoveChild(t *testing.T) {
	g, _ := newTestGraph(t)
	root, a, b, c := chain(t, g)
	if err := root.RemoveChild(b); !errors.Is(err, ErrNotChild) {
		t.Fatalf("removing grandchild err = %v, want ErrNotChild", err)
	}
	if err := a.RemoveChild(b); err != nil {
		t.Fatalf("RemoveChild error = %v", err)
	}
	if b.State() != Destroyed || c.State() != Destroyed {
		t.Error("removed subtree not destroyed")
	}
	if g.FindByID(c.ID()) != nil {
		t.Error("destroyed node still registered")
	}
	if len(a.Children()) != 0 {
		t.Error("child still listed")
	}
}

func TestRenameUpdatesFullNames(t *testing.T) {
	g, _ := newTestGraph(t)
	root, _ := g.CreateRoot()
	foo := named(g, "Foo")
	child, grandchild := named(g, "child"), named(g, "grandchild")
	_ = root.AddChild(foo)
	_ = foo.AddChild(child)
	_ = child.AddChild(grandchild)

	if got := grandchild.FullName(); got != "Foo/child/grandchild" {
		t.Fatalf("FullName = %q", got)
	}
	foo.SetName("Bar")
	want := map[*Scene]string{foo: "Bar", child: "Bar/child", grandchild: "Bar/child/grandchild"}
	for s, name := range want {
		if s.FullName() != name {
			t.Errorf("FullName = %q, want %q", s.FullName(), name)
		}
	}
}

func populated(t *testing.T, g *Graph) *Scene {
	t.Helper()
	top := g.CreateEmptyWithEntity()
	top.SetName("level")
	top.Settings().Preloads = []string{"game/assets/a.png"}

	player := g.CreateEmptyWithEntity()
	player.SetName("player")
	tr, _ := g.Components().CreateDefault(component.TransformName)
	tr.(*component.Transform).Position = [3]float32{1, 2, 3}
	if err := player.Entity().Add(tr); err != nil {
		t.Fatal(err)
	}
	sc, _ := g.Components().CreateDefault(component.SphereColliderName)
	if err := player.Entity().Add(sc); err != nil {
		t.Fatal(err)
	}
	if err := player.Entity().Setup(); err != nil {
		t.Fatal(err)
	}
	_ = top.AddChild(player)
	_ = top.AddChild(named(g, "empty"))
	top.Settings().Camera = player.ID()
	return top
}

type summary struct {
	Name       string
	Style      ImportStyle
	Components map[string]string
	Children   []summary
}

func summarize(t *testing.T, s *Scene) summary {
	t.Helper()
	out := summary{Name: s.Name(), Style: s.ImportStyle()}
	if e := s.Entity(); e != nil {
		rec, err := e.Record()
		if err != nil {
			t.Fatal(err)
		}
		out.Components = make(map[string]string)
		for k, v := range rec {
			out.Components[k] = string(v)
		}
	}
	for _, c := range s.Children() {
		out.Children = append(out.Children, summarize(t, c))
	}
	return out
}

func TestRoundTrip(t *testing.T) {
	g, _ := newTestGraph(t)
	src := populated(t, g)

	raw, err := g.JSON(src)
	if err != nil {
		t.Fatal(err)
	}
	copied, err := g.CreateFromJSON(raw, false)
	if err != nil {
		t.Fatalf("CreateFromJSON error = %v", err)
	}
	a, b := summarize(t, src), summarize(t, copied)
	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	if string(ja) != string(jb) {
		t.Errorf("round trip differs:\n%s\n%s", ja, jb)
	}
}

func TestRoundTripEmptyName(t *testing.T) {
	g, _ := newTestGraph(t)
	s := g.CreateEmpty()
	s.SetName("")
	_ = s.AddChild(named(g, "kid"))

	raw, err := g.JSON(s)
	if err != nil {
		t.Fatal(err)
	}
	back, err := g.CreateFromJSON(raw, false)
	if err != nil {
		t.Fatalf("CreateFromJSON error = %v", err)
	}
	if back.Name() != "" || len(back.Children()) != 1 || back.Children()[0].Name() != "kid" {
		t.Errorf("round trip = %q %v", back.Name(), back.Children())
	}
}

func TestExternalLinkTakesFileName(t *testing.T) {
	g, st := newTestGraph(t)
	_ = st.Write("lamp.scene.json", []byte(`{"name": "lamp", "importStyle": "Local", "children": []}`))
	s, err := g.CreateFromJSON([]byte(`{"name": "room", "importStyle": "Local", "children": [
		{"importStyle": "External", "sceneFile": "lamp.scene.json"}]}`), false)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Children()[0].Name(); got != "lamp" {
		t.Errorf("link name = %q, want lamp", got)
	}
}

func TestCopyAssignsFreshIDs(t *testing.T) {
	g, _ := newTestGraph(t)
	src := populated(t, g)
	srcIDs := map[ID]bool{}
	src.Walk(func(s *Scene) bool {
		srcIDs[s.ID()] = true
		return true
	})

	cp, err := g.Copy(src)
	if err != nil {
		t.Fatalf("Copy error = %v", err)
	}
	cp.Walk(func(s *Scene) bool {
		if srcIDs[s.ID()] {
			t.Errorf("copy reused id %d", s.ID())
		}
		if g.FindByID(s.ID()) != s {
			t.Errorf("copy node %d not registered", s.ID())
		}
		return true
	})
	player := cp.Children()[0]
	if cp.Settings().Camera != player.ID() {
		t.Errorf("camera = %d, want remapped %d", cp.Settings().Camera, player.ID())
	}
	if got := len(g.FindByName("player")); got != 2 {
		t.Errorf("FindByName(player) = %d nodes, want 2", got)
	}
}

func TestCreateKeepsRecordedIDs(t *testing.T) {
	g, _ := newTestGraph(t)
	raw := []byte(`{"id": 40, "name": "x", "importStyle": "Local", "settings": {},
		"children": [{"id": 41, "name": "y", "importStyle": "Local", "settings": {}, "children": []}]}`)
	s, err := g.CreateFromJSON(raw, false)
	if err != nil {
		t.Fatal(err)
	}
	if s.ID() != 40 || s.Children()[0].ID() != 41 {
		t.Errorf("ids = %d %d, want 40 41", s.ID(), s.Children()[0].ID())
	}
	if next := g.CreateEmpty(); next.ID() != 42 {
		t.Errorf("next id = %d, want 42", next.ID())
	}
	again, err := g.CreateFromJSON(raw, false)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID() == 40 {
		t.Error("taken id reused")
	}
}

func TestCreateRemapsTakenIDsInSettings(t *testing.T) {
	g, st := newTestGraph(t)
	_ = st.Write("cam.scene.json", []byte(`{"id": 50, "name": "stage", "importStyle": "Local",
		"settings": {"camera": 51, "listener": 51},
		"children": [{"id": 51, "name": "eye", "importStyle": "Local", "children": []}]}`))

	first, err := g.CreateFromFile("cam.scene.json")
	if err != nil {
		t.Fatal(err)
	}
	if first.Settings().Camera != 51 {
		t.Fatalf("first camera = %d, want 51", first.Settings().Camera)
	}
	second, err := g.CreateFromFile("cam.scene.json")
	if err != nil {
		t.Fatal(err)
	}
	eye := second.Children()[0]
	if eye.ID() == 51 {
		t.Fatal("taken id reused")
	}
	if second.Settings().Camera != eye.ID() || second.Settings().Listener != eye.ID() {
		t.Errorf("camera/listener = %d/%d, want %d",
			second.Settings().Camera, second.Settings().Listener, eye.ID())
	}
	if first.Settings().Camera != 51 {
		t.Error("first instance settings changed")
	}
}

func TestExternalNodeKeepsFileWatched(t *testing.T) {
	g, st := newTestGraph(t)
	_ = st.Write("prop.scene.json", []byte(`{"name": "prop", "importStyle": "Local", "children": []}`))
	prop, err := g.CreateFromFile("prop.scene.json")
	if err != nil {
		t.Fatal(err)
	}
	h, ok := g.res.Peek("prop.scene.json")
	if !ok {
		t.Fatal("scene file not cached while the node is loaded")
	}
	h.Release()

	_ = st.Write("prop.scene.json", []byte(`{"name": "prop", "importStyle": "Local", "children": [
		{"name": "new", "importStyle": "Local", "children": []}]}`))
	if dirty := g.res.Dirty(); len(dirty) != 1 || dirty[0] != "prop.scene.json" {
		t.Fatalf("Dirty = %v", dirty)
	}
	if err := prop.Reimport(); err != nil {
		t.Fatal(err)
	}
	if len(prop.Children()) != 1 || len(g.res.Dirty()) != 0 {
		t.Errorf("after reimport: children %v, dirty %v", prop.Children(), g.res.Dirty())
	}

	prop.Destroy()
	if g.res.Len() != 0 {
		t.Errorf("cache holds %d entries after destroy", g.res.Len())
	}
}

func TestCreateMalformed(t *testing.T) {
	g, _ := newTestGraph(t)
	before := len(g.All())
	cases := map[string]string{
		"syntax":       `{"name": `,
		"no file":      `{"name": "x", "importStyle": "External"}`,
		"bad style":    `{"name": "x", "importStyle": "Linked"}`,
		"bad setup":    `{"name": "x", "importStyle": "Local", "children": [{"name": "y", "importStyle": "Local", "entity": {"components": {"SphereColliderComponent": {"radius": 0}}}}]}`,
		"unknown kind": `{"name": "x", "importStyle": "Local", "entity": {"components": {"NopeComponent": {}}}}`,
	}
	for name, raw := range cases {
		if _, err := g.CreateFromJSON([]byte(raw), false); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
	if _, err := g.CreateFromJSON([]byte(cases["syntax"]), false); !errors.Is(err, ErrMalformedRecord) {
		t.Errorf("syntax error = %v, want ErrMalformedRecord", err)
	}
	if after := len(g.All()); after != before {
		t.Errorf("failed creates left %d nodes registered", after-before)
	}
}

func TestExternalImport(t *testing.T) {
	g, st := newTestGraph(t)
	_ = st.Write("game/assets/scenes/lamp.scene.json", []byte(`{
		"name": "lamp", "importStyle": "Local", "settings": {},
		"children": [{"name": "bulb", "importStyle": "Local", "settings": {}, "children": []}]}`))
	_ = st.Write("game/assets/scenes/room.scene.json", []byte(`{
		"name": "room", "importStyle": "Local", "settings": {},
		"children": [
			{"name": "lamp1", "importStyle": "External", "sceneFile": "game/assets/scenes/lamp.scene.json"},
			{"name": "lamp2", "importStyle": "External", "sceneFile": "game/assets/scenes/lamp.scene.json"}
		]}`))

	room, err := g.CreateFromFile("game/assets/scenes/room.scene.json")
	if err != nil {
		t.Fatalf("CreateFromFile error = %v", err)
	}
	if room.ImportStyle() != External || room.SceneFile() != "game/assets/scenes/room.scene.json" {
		t.Errorf("room = %s %q", room.ImportStyle(), room.SceneFile())
	}
	lamps := room.Children()
	if len(lamps) != 2 || lamps[0].Name() != "lamp1" || lamps[1].Name() != "lamp2" {
		t.Fatalf("lamps = %v", lamps)
	}
	for _, l := range lamps {
		if kids := l.Children(); len(kids) != 1 || kids[0].Name() != "bulb" {
			t.Errorf("%s children = %v", l.Name(), kids)
		}
	}

	rec, err := room.Record()
	if err != nil {
		t.Fatal(err)
	}
	if link := rec.Children[0]; link.ImportStyle != External || len(link.Children) != 0 {
		t.Errorf("external child serialized with content: %+v", link)
	}
}

func TestExternalCycle(t *testing.T) {
	g, st := newTestGraph(t)
	_ = st.Write("a.scene.json", []byte(`{"name": "a", "importStyle": "Local", "children": [
		{"name": "b", "importStyle": "External", "sceneFile": "b.scene.json"}]}`))
	_ = st.Write("b.scene.json", []byte(`{"name": "b", "importStyle": "Local", "children": [
		{"name": "a", "importStyle": "External", "sceneFile": "a.scene.json"}]}`))

	_, err := g.CreateFromFile("a.scene.json")
	if !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("err = %v, want ErrCycleDetected", err)
	}
	var recErr *RecordError
	if !errors.As(err, &recErr) {
		t.Errorf("err %T is not a *RecordError", err)
	}
	if n := len(g.All()); n != 0 {
		t.Errorf("%d nodes left after failed load", n)
	}
}

func TestReimport(t *testing.T) {
	g, st := newTestGraph(t)
	root, _ := g.CreateRoot()
	_ = st.Write("prop.scene.json", []byte(`{"name": "prop", "importStyle": "Local",
		"children": [{"id": 30, "name": "v1", "importStyle": "Local", "children": []}]}`))

	prop, err := g.CreateFromFile("prop.scene.json")
	if err != nil {
		t.Fatal(err)
	}
	_ = root.AddChild(prop)
	id := prop.ID()

	_ = st.Write("prop.scene.json", []byte(`{"name": "prop", "importStyle": "Local",
		"children": [{"id": 30, "name": "v2", "importStyle": "Local", "children": []}]}`))
	if err := prop.Reimport(); err != nil {
		t.Fatalf("Reimport error = %v", err)
	}
	kids := prop.Children()
	if len(kids) != 1 || kids[0].Name() != "v2" || kids[0].ID() != 30 {
		t.Fatalf("children after reimport = %+v", kids)
	}
	if prop.ID() != id || prop.Parent() != root || prop.State() != Loaded {
		t.Error("reimport changed identity, position or state")
	}
	if g.FindByID(30) != kids[0] {
		t.Error("reimported child not registered")
	}

	_ = st.Write("prop.scene.json", []byte(`{"name": `))
	if err := prop.Reimport(); err == nil {
		t.Fatal("Reimport of broken file should fail")
	}
	if kids := prop.Children(); len(kids) != 1 || kids[0].Name() != "v2" {
		t.Error("failed reimport changed the subtree")
	}
	if g.FindByID(30) == nil {
		t.Error("failed reimport unregistered the subtree")
	}

	local := named(g, "local")
	if err := local.Reimport(); err != nil {
		t.Errorf("Reimport of local node = %v", err)
	}
}

func TestSetEntityReplaces(t *testing.T) {
	g, _ := newTestGraph(t)
	s := g.CreateEmptyWithEntity()
	s.SetName("holder")
	first := s.Entity()
	sc, _ := g.Components().CreateDefault(component.SphereColliderName)
	_ = first.Add(sc)

	second := g.Components().NewEntity()
	s.SetEntity(second)
	if s.Entity() != second || first.Len() != 0 {
		t.Error("previous entity not destroyed")
	}
	if second.FullName() != "holder" {
		t.Errorf("entity owner name = %q", second.FullName())
	}
}

func TestUpdateAndDestroyAll(t *testing.T) {
	g, _ := newTestGraph(t)
	root, _ := g.CreateRoot()
	lvl := populated(t, g)
	_ = root.AddChild(lvl)

	root.Update(16)
	player := lvl.Children()[0]
	sc, ok := ecs.Get[*component.SphereCollider](player.Entity())
	if !ok || sc.Ticks != 1 {
		t.Errorf("collider ticks = %v", sc)
	}
	if _, err := g.CreateRoot(); !errors.Is(err, ErrRootExists) {
		t.Errorf("second root err = %v", err)
	}

	g.DestroyAll()
	if n := len(g.All()); n != 0 {
		t.Errorf("%d nodes after DestroyAll", n)
	}
	if root.State() != Destroyed {
		t.Error("root not destroyed")
	}
	g.ResetNextID()
	if s := g.CreateEmpty(); s.ID() != RootID+1 {
		t.Errorf("id after reset = %d", s.ID())
	}
}
