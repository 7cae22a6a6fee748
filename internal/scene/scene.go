package scene

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/rootexgo/rootex/internal/core/ecs"
	"github.com/rootexgo/rootex/internal/core/ref"
	"github.com/rootexgo/rootex/internal/resource"
)

// Scene is a node of the scene tree. A node owns its children and at most
// one entity. The parent link is an ID looked up through the graph, so
// ownership only runs downward.
type Scene struct {
	graph     *Graph
	id        ID
	name      string
	fullName  string
	style     ImportStyle
	sceneFile string
	settings  Settings
	entity    *ecs.Entity
	parent    ID
	children  []*Scene
	state     State
	// file keeps the scene file of an External node cached and watched
	// while the node is alive.
	file      *ref.Strong[resource.Resource]
}

func (s *Scene) ID() ID                   { return s.id }
func (s *Scene) Name() string             { return s.name }
func (s *Scene) FullName() string         { return s.fullName }
func (s *Scene) ImportStyle() ImportStyle { return s.style }
func (s *Scene) SceneFile() string        { return s.sceneFile }
func (s *Scene) Settings() *Settings      { return &s.settings }
func (s *Scene) Entity() *ecs.Entity      { return s.entity }
func (s *Scene) State() State             { return s.state }

// Parent returns the owning node, or nil for a detached node.
func (s *Scene) Parent() *Scene {
	if s.parent == 0 {
		return nil
	}
	return s.graph.nodes[s.parent]
}

// Children returns the child nodes in order.
func (s *Scene) Children() []*Scene {
	return append([]*Scene(nil), s.children...)
}

// SetName renames the node and recomputes the full name of its subtree.
func (s *Scene) SetName(name string) {
	s.name = name
	s.updateFullNames()
}

// SetSceneFile changes the file the node is saved to.
func (s *Scene) SetSceneFile(path string) { s.sceneFile = path }

// SetEntity replaces the node's entity. The previous entity is destroyed.
func (s *Scene) SetEntity(e *ecs.Entity) {
	if s.entity != nil && s.entity != e {
		s.entity.Destroy()
	}
	s.entity = e
	if e != nil {
		e.SetOwner(s)
	}
}

// AddChild moves a detached node under s. It fails with ErrCycleDetected
// if child is s or an ancestor of s, and with ErrAlreadyOwned if child
// already has a parent.
func (s *Scene) AddChild(child *Scene) error {
	if err := s.checkCycle(child); err != nil {
		return err
	}
	if child.parent != 0 {
		return fmt.Errorf("add %q under %q: %w", child.name, s.name, ErrAlreadyOwned)
	}
	s.attach(child)
	return nil
}

// SnatchChild moves child from its current parent, if any, to s.
func (s *Scene) SnatchChild(child *Scene) error {
	if err := s.checkCycle(child); err != nil {
		return err
	}
	if p := child.Parent(); p != nil {
		p.detach(child)
	}
	s.attach(child)
	return nil
}

// RemoveChild detaches target from s and destroys its subtree.
func (s *Scene) RemoveChild(target *Scene) error {
	if !s.detach(target) {
		return fmt.Errorf("remove %q from %q: %w", target.name, s.name, ErrNotChild)
	}
	target.destroy()
	return nil
}

// Destroy detaches the node from its parent and destroys its subtree.
func (s *Scene) Destroy() {
	if p := s.Parent(); p != nil {
		p.detach(s)
	}
	s.destroy()
}

// Find returns the node with id in the subtree rooted at s.
func (s *Scene) Find(id ID) *Scene {
	if s.id == id {
		return s
	}
	for _, c := range s.children {
		if f := c.Find(id); f != nil {
			return f
		}
	}
	return nil
}

// Walk visits the subtree depth first, parents before children. Returning
// false from fn skips the node's children.
func (s *Scene) Walk(fn func(*Scene) bool) {
	if !fn(s) {
		return
	}
	for _, c := range s.children {
		c.Walk(fn)
	}
}

// Update runs the per-frame update of every entity in the subtree.
func (s *Scene) Update(dtMillis float64) {
	s.Walk(func(n *Scene) bool {
		if n.entity != nil {
			n.entity.Update(dtMillis)
		}
		return true
	})
}

// Reimport rebuilds the content of an External node from its scene file.
// The cached file is refreshed from the store first. The node keeps its ID,
// name and position. If the file cannot be loaded the current subtree is
// left as it was. Local nodes are not affected.
func (s *Scene) Reimport() error {
	if s.style != External || s.state != Loaded {
		return nil
	}
	g := s.graph
	s.state = Reimporting
	defer func() { s.state = Loaded }()

	if err := g.res.Reimport(s.sceneFile); err != nil {
		g.log.Warn("scene reimport failed, keeping current content",
			zap.String("scene", s.fullName), zap.String("file", s.sceneFile), zap.Error(err))
		return err
	}

	// Old descendants give up their IDs so that an unchanged file maps
	// back onto the same identities.
	var old []*Scene
	for _, c := range s.children {
		c.Walk(func(n *Scene) bool {
			old = append(old, n)
			return true
		})
	}
	for _, n := range old {
		delete(g.nodes, n.id)
	}

	fresh, err := g.loadContent(s.sceneFile)
	if err != nil {
		for _, n := range old {
			g.nodes[n.id] = n
		}
		g.log.Warn("scene reimport failed, keeping current content",
			zap.String("scene", s.fullName), zap.String("file", s.sceneFile), zap.Error(err))
		return err
	}

	for _, c := range s.children {
		c.parent = 0
		c.destroy()
	}
	s.children = nil
	s.settings = fresh.settings
	s.SetEntity(fresh.entity)
	fresh.entity = nil
	for _, c := range fresh.children {
		c.parent = 0
		s.attach(c)
	}
	fresh.children = nil
	g.log.Info("scene reimported", zap.String("scene", s.fullName), zap.String("file", s.sceneFile))
	return nil
}

// Record serializes the node with its full content. External descendants
// are written as links to their files.
func (s *Scene) Record() (Record, error) {
	rec := Record{
		ID:          s.id,
		Name:        s.name,
		ImportStyle: s.style,
		SceneFile:   s.sceneFile,
		Settings:    s.settings.clone(),
		Children:    make([]Record, 0, len(s.children)),
	}
	if s.entity != nil {
		comps, err := s.entity.Record()
		if err != nil {
			return Record{}, fmt.Errorf("scene %q: %w", s.fullName, err)
		}
		rec.Entity = &EntityRecord{Components: comps}
	}
	for _, c := range s.children {
		if c.style == External {
			rec.Children = append(rec.Children, Record{
				ID:          c.id,
				Name:        c.name,
				ImportStyle: External,
				SceneFile:   c.sceneFile,
				Settings:    DefaultSettings(),
				Children:    []Record{},
			})
			continue
		}
		cr, err := c.Record()
		if err != nil {
			return Record{}, err
		}
		rec.Children = append(rec.Children, cr)
	}
	return rec, nil
}

func (s *Scene) checkCycle(child *Scene) error {
	for n := s; n != nil; n = n.Parent() {
		if n == child {
			return fmt.Errorf("add %q under %q: %w", child.name, s.name, ErrCycleDetected)
		}
	}
	return nil
}

func (s *Scene) attach(child *Scene) {
	child.parent = s.id
	s.children = append(s.children, child)
	child.updateFullNames()
}

func (s *Scene) detach(child *Scene) bool {
	for i, c := range s.children {
		if c == child {
			s.children = append(s.children[:i:i], s.children[i+1:]...)
			child.parent = 0
			child.updateFullNames()
			return true
		}
	}
	return false
}

func (s *Scene) updateFullNames() {
	if p := s.Parent(); p == nil || p.id == RootID {
		s.fullName = s.name
	} else {
		s.fullName = p.fullName + "/" + s.name
	}
	for _, c := range s.children {
		c.updateFullNames()
	}
}

func (s *Scene) destroy() {
	for _, c := range s.children {
		c.destroy()
	}
	s.children = nil
	if s.entity != nil {
		s.entity.Destroy()
		s.entity = nil
	}
	if s.file != nil {
		s.file.Release()
		s.file = nil
	}
	s.graph.unregister(s)
	s.state = Destroyed
}
