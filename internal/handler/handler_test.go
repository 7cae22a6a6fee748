package handler

import (
	"strconv"
	"testing"

	"github.com/tidwall/gjson"
	"go.uber.org/zap/zaptest"

	"github.com/rootexgo/rootex/internal/component"
	"github.com/rootexgo/rootex/internal/config"
	"github.com/rootexgo/rootex/internal/core/ecs"
	"github.com/rootexgo/rootex/internal/core/event"
	"github.com/rootexgo/rootex/internal/material"
	"github.com/rootexgo/rootex/internal/resource"
	"github.com/rootexgo/rootex/internal/scene"
	"github.com/rootexgo/rootex/internal/session"
	"github.com/rootexgo/rootex/internal/store"
)

type harness struct {
	d    *event.Dispatcher
	sess *session.Session
	st   *store.Mem
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := zaptest.NewLogger(t)
	st := store.NewMem()
	res := resource.NewCache(st, nil, log)
	t.Cleanup(res.Close)
	comps := ecs.NewRegistry()
	if err := component.RegisterAll(comps); err != nil {
		t.Fatal(err)
	}
	kinds := material.NewRegistry()
	if err := material.RegisterBuiltins(kinds); err != nil {
		t.Fatal(err)
	}
	d := event.NewDispatcher(log)
	sess, err := session.New(session.Deps{
		Project:   config.ProjectConfig{ScenesDir: "scenes"},
		Editor:    config.EditorConfig{KeepBackups: 3, BackupsDir: "scenes/.backups"},
		Graph:     scene.NewGraph(comps, res, log),
		Resources: res,
		Materials: material.NewLibrary(res, kinds, log),
		Events:    d,
		Log:       log,
	})
	if err != nil {
		t.Fatal(err)
	}
	RegisterAll(d, &Deps{Session: sess, Events: d, Log: log})
	return &harness{d: d, sess: sess, st: st}
}

func TestCreateSceneOpensIt(t *testing.T) {
	h := newHarness(t)
	got := h.d.Call(event.CreateScene, "intro")
	if got != "scenes/intro.scene.json" {
		t.Fatalf("CreateScene = %v", got)
	}
	if cur := h.sess.Current(); cur == nil || cur.Name() != "intro" {
		t.Fatalf("current = %v", cur)
	}
	if got := h.d.Call(event.CreateScene, "intro"); got != false {
		t.Errorf("second CreateScene = %v, want false", got)
	}
	if got := h.d.Call(event.CreateScene, 42); got != false {
		t.Errorf("CreateScene with int payload = %v, want false", got)
	}
}

func TestCreateMaterial(t *testing.T) {
	h := newHarness(t)
	if got := h.d.Call(event.CreateMaterial, []string{"m.rmat", "Basic"}); got != true {
		t.Fatalf("CreateMaterial = %v", got)
	}
	raw, err := h.st.Read("m.rmat")
	if err != nil {
		t.Fatal(err)
	}
	if gjson.GetBytes(raw, "type").String() != "Basic" {
		t.Errorf("record = %s", raw)
	}
	if got := h.d.Call(event.CreateMaterial, []string{"m.rmat"}); got != false {
		t.Errorf("short payload = %v, want false", got)
	}
}

func TestComponentEvents(t *testing.T) {
	h := newHarness(t)
	sc := h.sess.Graph().CreateEmpty()
	_ = h.sess.Root().AddChild(sc)

	args := []string{strconv.FormatUint(uint64(sc.ID()), 10), component.TransformName}
	if got := h.d.Call(event.AddComponent, args); got != true {
		t.Fatalf("AddComponent = %v", got)
	}
	if sc.Entity() == nil || sc.Entity().ComponentByName(component.TransformName) == nil {
		t.Fatal("component not added")
	}
	if got := h.d.Call(event.AddComponent, args); got != false {
		t.Error("duplicate AddComponent succeeded")
	}
	if got := h.d.Call(event.RemoveComponent, args); got != true {
		t.Errorf("RemoveComponent = %v", got)
	}

	// Text requires a transform on the same entity.
	textArgs := []string{strconv.FormatUint(uint64(sc.ID()), 10), component.TextName}
	if got := h.d.Call(event.AddComponent, textArgs); got != false {
		t.Error("AddComponent with failing setup succeeded")
	}
	if sc.Entity().ComponentByName(component.TextName) != nil {
		t.Error("component kept after failed setup")
	}
	if got := h.d.Call(event.AddComponent, []string{"999", component.TransformName}); got != false {
		t.Error("AddComponent on missing scene succeeded")
	}
}

func TestCopyAndDeleteScene(t *testing.T) {
	h := newHarness(t)
	sc := h.sess.Graph().CreateEmpty()
	sc.SetName("crate")
	_ = h.sess.Root().AddChild(sc)

	if got := h.d.Call(event.CopyScene, sc); got != true {
		t.Fatalf("CopyScene = %v", got)
	}
	if n := len(h.sess.Root().Children()); n != 1 {
		t.Fatalf("copy made before drain: %d children", n)
	}
	h.d.DispatchDeferred(event.Infinite)
	kids := h.sess.Root().Children()
	if len(kids) != 2 || kids[1].Name() != "crate" || kids[1].ID() == sc.ID() {
		t.Fatalf("children after drain = %v", kids)
	}
	if h.sess.Selected() != kids[1] {
		t.Error("copy not selected")
	}

	if got := h.d.Call(event.DeleteScene, kids[1]); got != true {
		t.Fatalf("DeleteScene = %v", got)
	}
	if len(h.sess.Root().Children()) != 1 {
		t.Error("scene not deleted")
	}
	if got := h.d.Call(event.DeleteScene, h.sess.Root()); got != false {
		t.Error("root deleted")
	}
}

func TestSaveAllAndAutosave(t *testing.T) {
	h := newHarness(t)
	h.d.Call(event.CreateScene, "yard")
	if got := h.d.Call(event.SaveAll, nil); got != true {
		t.Fatalf("SaveAll = %v", got)
	}
	shed := h.sess.Graph().CreateEmpty()
	shed.SetName("shed")
	if err := h.sess.Current().AddChild(shed); err != nil {
		t.Fatal(err)
	}
	if got := h.d.Call(event.Autosave, nil); got != true {
		t.Fatalf("Autosave = %v", got)
	}
	backups, err := h.sess.Backups()
	if err != nil || len(backups) != 1 || !h.st.Exists(backups[0]) {
		t.Fatalf("backups = %v, %v", backups, err)
	}
	raw, err := h.st.Read("scenes/yard.scene.json")
	if err != nil {
		t.Fatal(err)
	}
	if got := gjson.GetBytes(raw, "children.0.name").String(); got != "shed" {
		t.Errorf("saved scene child = %q, want shed", got)
	}
	old, _ := h.st.Read(backups[0])
	if gjson.GetBytes(old, "children.#").Int() != 1 {
		t.Errorf("backup misses the edited scene: %s", old)
	}

	quit := 0
	h.d.Listen(event.QuitEditorWindow, func(*event.Event) event.Variant {
		quit++
		return nil
	})
	h.d.Call(event.SaveBeforeQuit, nil)
	if quit != 1 {
		t.Errorf("quit called %d times", quit)
	}
}

func TestReimportResourceReimportsLinkedScenes(t *testing.T) {
	h := newHarness(t)
	_ = h.st.Write("prop.scene.json", []byte(`{"name": "prop", "importStyle": "Local", "children": [
		{"name": "a", "importStyle": "Local"}]}`))
	sc, err := h.sess.LoadScene("prop.scene.json")
	if err != nil {
		t.Fatal(err)
	}
	_ = h.st.Write("prop.scene.json", []byte(`{"name": "prop", "importStyle": "Local", "children": [
		{"name": "b", "importStyle": "Local"}]}`))
	if got := h.d.Call(event.ReimportResource, "prop.scene.json"); got != true {
		t.Fatalf("ReimportResource = %v", got)
	}
	if kids := sc.Children(); len(kids) != 1 || kids[0].Name() != "b" {
		t.Errorf("children = %v", kids)
	}

	if got := h.d.Call(event.ReimportScene, nil); got != true {
		t.Errorf("ReimportScene(current) = %v", got)
	}
	if got := h.d.Call(event.OpenScene, sc); got != true || h.sess.Selected() != sc {
		t.Error("OpenScene did not select")
	}
	h.d.Call(event.CloseScene, nil)
	if h.sess.Selected() != nil {
		t.Error("CloseScene kept selection")
	}
}
