// Package scene implements the scene tree. A Graph allocates node IDs,
// indexes live nodes and builds subtrees from records and scene files.
// The tree has a single owner and is not safe for concurrent mutation.
package scene

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"

	"go.uber.org/zap"

	"github.com/rootexgo/rootex/internal/core/ecs"
	"github.com/rootexgo/rootex/internal/core/ref"
	"github.com/rootexgo/rootex/internal/resource"
	"github.com/rootexgo/rootex/internal/store"
)

const untitled = "Untitled"

// Graph is the scene service.
type Graph struct {
	nextID     ID
	nodes      map[ID]*Scene
	components *ecs.Registry
	res        *resource.Cache
	loading    []string
	log        *zap.Logger
}

func NewGraph(components *ecs.Registry, res *resource.Cache, log *zap.Logger) *Graph {
	return &Graph{
		nextID:     RootID + 1,
		nodes:      make(map[ID]*Scene),
		components: components,
		res:        res,
		log:        log,
	}
}

// Components returns the component registry entities are built from.
func (g *Graph) Components() *ecs.Registry { return g.components }

// ResetNextID restarts ID allocation, as when a new project is opened.
func (g *Graph) ResetNextID() { g.nextID = RootID + 1 }

// FindByID returns the live node with id, or nil.
func (g *Graph) FindByID(id ID) *Scene { return g.nodes[id] }

// FindByName returns the live nodes named name, ordered by ID.
func (g *Graph) FindByName(name string) []*Scene {
	var out []*Scene
	for _, s := range g.nodes {
		if s.name == name {
			out = append(out, s)
		}
	}
	sortByID(out)
	return out
}

// All returns every live node ordered by ID.
func (g *Graph) All() []*Scene {
	out := make([]*Scene, 0, len(g.nodes))
	for _, s := range g.nodes {
		out = append(out, s)
	}
	sortByID(out)
	return out
}

func sortByID(s []*Scene) {
	sort.Slice(s, func(i, j int) bool { return s[i].id < s[j].id })
}

func (g *Graph) allocID() ID {
	for {
		id := g.nextID
		g.nextID++
		if _, taken := g.nodes[id]; !taken {
			return id
		}
	}
}

// claimID keeps a recorded ID when it is free and allocates a fresh one
// otherwise.
func (g *Graph) claimID(want ID) ID {
	if want == 0 || want == RootID {
		return g.allocID()
	}
	if _, taken := g.nodes[want]; taken {
		return g.allocID()
	}
	if want >= g.nextID {
		g.nextID = want + 1
	}
	return want
}

func (g *Graph) newScene(id ID, name string, style ImportStyle, file string, settings Settings) *Scene {
	s := &Scene{
		graph:     g,
		id:        id,
		name:      name,
		style:     style,
		sceneFile: file,
		settings:  settings,
	}
	s.fullName = name
	if id != 0 {
		g.nodes[id] = s
	}
	return s
}

func (g *Graph) unregister(s *Scene) {
	if cur, ok := g.nodes[s.id]; ok && cur == s {
		delete(g.nodes, s.id)
	}
}

// CreateRoot creates the root node. Only one root may exist.
func (g *Graph) CreateRoot() (*Scene, error) {
	if _, ok := g.nodes[RootID]; ok {
		return nil, ErrRootExists
	}
	s := g.newScene(RootID, "Root", Local, "", DefaultSettings())
	s.SetEntity(g.components.NewEntity())
	s.state = Loaded
	return s, nil
}

// CreateEmpty creates a detached local node with no entity.
func (g *Graph) CreateEmpty() *Scene {
	s := g.newScene(g.allocID(), untitled, Local, "", DefaultSettings())
	s.state = Loaded
	return s
}

// CreateEmptyAtPath creates a detached node that saves to file.
func (g *Graph) CreateEmptyAtPath(file string) *Scene {
	s := g.CreateEmpty()
	s.sceneFile = store.Normalize(file)
	return s
}

// CreateEmptyWithEntity creates a detached node holding an empty entity.
func (g *Graph) CreateEmptyWithEntity() *Scene {
	s := g.CreateEmpty()
	s.SetEntity(g.components.NewEntity())
	return s
}

// Create builds a detached subtree from rec. With isACopy every node gets
// a fresh ID. Recorded IDs that are already taken are replaced as well, and
// settings naming nodes inside the subtree follow the new IDs. Nothing is
// left registered if building fails.
func (g *Graph) Create(rec Record, isACopy bool) (*Scene, error) {
	if err := rec.validate(); err != nil {
		return nil, err
	}
	remap := make(map[ID]ID)
	s, err := g.build(&rec, remap, isACopy)
	if err != nil {
		return nil, err
	}
	remapSettings(s, remap)
	return s, nil
}

// remapSettings points camera and listener settings at the IDs the
// subtree's nodes were given.
func remapSettings(s *Scene, remap map[ID]ID) {
	if len(remap) == 0 {
		return
	}
	s.Walk(func(n *Scene) bool {
		if id, ok := remap[n.settings.Camera]; ok {
			n.settings.Camera = id
		}
		if id, ok := remap[n.settings.Listener]; ok {
			n.settings.Listener = id
		}
		return true
	})
}

// CreateFromJSON parses raw and builds it with Create.
func (g *Graph) CreateFromJSON(raw []byte, isACopy bool) (*Scene, error) {
	rec, err := ParseRecord(raw)
	if err != nil {
		return nil, err
	}
	return g.Create(rec, isACopy)
}

// CreateFromFile loads a scene file into a detached External node.
func (g *Graph) CreateFromFile(file string) (*Scene, error) {
	file = store.Normalize(file)
	leave, err := g.enter(file)
	if err != nil {
		return nil, err
	}
	defer leave()

	rec, h, err := g.readRecord(file)
	if err != nil {
		return nil, err
	}
	rec.ImportStyle = Local
	remap := make(map[ID]ID)
	s, err := g.build(&rec, remap, false)
	if err != nil {
		h.Release()
		return nil, err
	}
	s.style = External
	s.sceneFile = file
	s.file = h
	remapSettings(s, remap)
	return s, nil
}

// Copy returns a detached copy of s's subtree with fresh IDs.
func (g *Graph) Copy(s *Scene) (*Scene, error) {
	rec, err := s.Record()
	if err != nil {
		return nil, err
	}
	return g.Create(rec, true)
}

// JSON returns the indented record of s.
func (g *Graph) JSON(s *Scene) ([]byte, error) {
	rec, err := s.Record()
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(rec, "", "\t")
}

// DestroyAll tears down every live node.
func (g *Graph) DestroyAll() {
	for _, s := range g.All() {
		if s.state != Destroyed && s.Parent() == nil {
			s.destroy()
		}
	}
}

func (g *Graph) build(rec *Record, remap map[ID]ID, fresh bool) (*Scene, error) {
	var file string
	if rec.SceneFile != "" {
		file = store.Normalize(rec.SceneFile)
	}
	content := rec
	var fileRes *ref.Strong[resource.Resource]
	if rec.ImportStyle == External {
		leave, err := g.enter(file)
		if err != nil {
			return nil, err
		}
		defer leave()
		fileRec, h, err := g.readRecord(file)
		if err != nil {
			return nil, err
		}
		content = &fileRec
		fileRes = h
	}

	var id ID
	if fresh {
		id = g.allocID()
	} else {
		id = g.claimID(rec.ID)
	}
	if rec.ID != 0 && rec.ID != RootID && id != rec.ID {
		remap[rec.ID] = id
	}
	name := rec.Name
	if name == "" && rec.ImportStyle == External {
		name = content.Name
	}
	s := g.newScene(id, name, rec.ImportStyle, file, content.Settings.clone())
	s.file = fileRes
	if err := g.fill(s, content, remap, fresh); err != nil {
		s.destroy()
		return nil, err
	}
	s.state = Loaded
	return s, nil
}

// fill builds the entity and children of content into s.
func (g *Graph) fill(s *Scene, content *Record, remap map[ID]ID, fresh bool) error {
	if content.Entity != nil {
		e, err := g.components.EntityFromRecord(content.Entity.Components)
		if err != nil {
			return &RecordError{File: g.currentFile(), Scene: s.name, Err: err}
		}
		s.SetEntity(e)
	}
	for i := range content.Children {
		c, err := g.build(&content.Children[i], remap, fresh)
		if err != nil {
			return err
		}
		s.attach(c)
	}
	return nil
}

// loadContent builds the content of file into an unregistered node.
func (g *Graph) loadContent(file string) (*Scene, error) {
	leave, err := g.enter(file)
	if err != nil {
		return nil, err
	}
	defer leave()
	rec, h, err := g.readRecord(file)
	if err != nil {
		return nil, err
	}
	h.Release()
	remap := make(map[ID]ID)
	tmp := g.newScene(0, rec.Name, Local, file, rec.Settings.clone())
	if err := g.fill(tmp, &rec, remap, false); err != nil {
		tmp.destroy()
		return nil, err
	}
	remapSettings(tmp, remap)
	return tmp, nil
}

// readRecord parses the scene file at file. The returned handle keeps the
// file cached; the caller releases it.
func (g *Graph) readRecord(file string) (Record, *ref.Strong[resource.Resource], error) {
	h, err := g.res.Get(file)
	if err != nil {
		return Record{}, nil, &RecordError{File: file, Err: err}
	}
	rec, err := ParseRecord(h.Get().Data())
	if err != nil {
		h.Release()
		return Record{}, nil, &RecordError{File: file, Err: err}
	}
	return rec, h, nil
}

// enter pushes file onto the stack of files being loaded.
func (g *Graph) enter(file string) (func(), error) {
	if slices.Contains(g.loading, file) {
		return nil, &RecordError{
			File: file,
			Err:  fmt.Errorf("%w: %s imports itself", ErrCycleDetected, file),
		}
	}
	g.loading = append(g.loading, file)
	return func() { g.loading = g.loading[:len(g.loading)-1] }, nil
}

func (g *Graph) currentFile() string {
	if len(g.loading) == 0 {
		return ""
	}
	return g.loading[len(g.loading)-1]
}
