// Package session owns the live editing session: the root scene, the open
// scene, and the services every editor request goes through.
package session

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/rootexgo/rootex/internal/config"
	"github.com/rootexgo/rootex/internal/core/event"
	"github.com/rootexgo/rootex/internal/core/ref"
	"github.com/rootexgo/rootex/internal/material"
	"github.com/rootexgo/rootex/internal/resource"
	"github.com/rootexgo/rootex/internal/scene"
	"github.com/rootexgo/rootex/internal/store"
)

// ErrNoSceneFile is returned when saving a scene that has no file.
var ErrNoSceneFile = errors.New("scene has no file")

// Deps are the services a session is built from.
type Deps struct {
	Project   config.ProjectConfig
	Editor    config.EditorConfig
	Graph     *scene.Graph
	Resources *resource.Cache
	Materials *material.Library
	Events    *event.Dispatcher
	Log       *zap.Logger
}

// Session is the editing session. It is driven from the frame loop and is
// not safe for concurrent use.
type Session struct {
	id        uuid.UUID
	project   config.ProjectConfig
	editor    config.EditorConfig
	graph     *scene.Graph
	res       *resource.Cache
	mats      *material.Library
	events    *event.Dispatcher
	log       *zap.Logger
	root      *scene.Scene
	current   *scene.Scene
	selected  scene.ID
	preloaded []*ref.Strong[resource.Resource]
}

// New creates the session and its root scene.
func New(deps Deps) (*Session, error) {
	id := uuid.New()
	s := &Session{
		id:      id,
		project: deps.Project,
		editor:  deps.Editor,
		graph:   deps.Graph,
		res:     deps.Resources,
		mats:    deps.Materials,
		events:  deps.Events,
		log:     deps.Log.With(zap.String("session", id.String())),
	}
	root, err := s.graph.CreateRoot()
	if err != nil {
		return nil, fmt.Errorf("create root: %w", err)
	}
	s.root = root
	return s, nil
}

func (s *Session) ID() uuid.UUID                 { return s.id }
func (s *Session) Log() *zap.Logger              { return s.log }
func (s *Session) Root() *scene.Scene            { return s.root }
func (s *Session) Current() *scene.Scene         { return s.current }
func (s *Session) Graph() *scene.Graph           { return s.graph }
func (s *Session) Resources() *resource.Cache    { return s.res }
func (s *Session) Materials() *material.Library  { return s.mats }
func (s *Session) Events() *event.Dispatcher     { return s.events }
func (s *Session) Project() config.ProjectConfig { return s.project }

// Select sets the scene shown in the inspector.
func (s *Session) Select(sc *scene.Scene) {
	if sc == nil {
		s.selected = 0
		return
	}
	s.selected = sc.ID()
}

// Selected returns the inspected scene, or nil.
func (s *Session) Selected() *scene.Scene {
	if s.selected == 0 {
		return nil
	}
	sc := s.graph.FindByID(s.selected)
	if sc == nil {
		s.selected = 0
	}
	return sc
}

// LoadScene loads the scene file at file and makes it the current scene.
// The new scene is fully built before the current one is closed, so a
// failed load leaves the session unchanged.
func (s *Session) LoadScene(file string) (*scene.Scene, error) {
	next, err := s.graph.CreateFromFile(file)
	if err != nil {
		return nil, fmt.Errorf("load scene %s: %w", file, err)
	}
	s.closeCurrent()
	if err := s.root.AddChild(next); err != nil {
		next.Destroy()
		return nil, fmt.Errorf("load scene %s: %w", file, err)
	}
	s.current = next
	n := s.Preload(next)
	s.log.Info("scene loaded",
		zap.String("file", next.SceneFile()), zap.Int("preloaded", n))
	s.events.Call(event.SceneOpened, next)
	return next, nil
}

// CloseScene closes the current scene, if any.
func (s *Session) CloseScene() {
	s.closeCurrent()
}

func (s *Session) closeCurrent() {
	if s.current == nil {
		return
	}
	s.events.Call(event.SceneClosed, s.current)
	s.releasePreloads()
	s.current.Destroy()
	s.current = nil
	s.selected = 0
}

// SaveScene writes sc to its scene file.
func (s *Session) SaveScene(sc *scene.Scene) error {
	if sc.SceneFile() == "" {
		return fmt.Errorf("save scene %q: %w", sc.Name(), ErrNoSceneFile)
	}
	raw, err := s.graph.JSON(sc)
	if err != nil {
		return fmt.Errorf("save scene %q: %w", sc.Name(), err)
	}
	if err := s.res.Save(sc.SceneFile(), raw); err != nil {
		return fmt.Errorf("save scene %q: %w", sc.Name(), err)
	}
	s.log.Info("scene saved", zap.String("file", sc.SceneFile()))
	return nil
}

// SaveAll saves every user material and the current scene.
func (s *Session) SaveAll() error {
	n, matErr := s.mats.SaveAll()
	s.log.Info("materials saved", zap.Int("count", n))
	var sceneErr error
	if s.current != nil {
		sceneErr = s.SaveScene(s.current)
	}
	return errors.Join(matErr, sceneErr)
}

// CreateScene writes an empty scene called name into the scenes directory
// and returns its path. An existing file is left alone and created is false.
func (s *Session) CreateScene(name string) (file string, created bool, err error) {
	file = store.Normalize(path.Join(s.project.ScenesDir, name+".scene.json"))
	if s.res.Store().Exists(file) {
		s.log.Warn("scene already exists", zap.String("file", file))
		return file, false, nil
	}
	sc := s.graph.CreateEmptyAtPath(file)
	defer sc.Destroy()
	sc.SetName(name)
	sc.SetEntity(s.graph.Components().NewEntity())
	if err := s.SaveScene(sc); err != nil {
		return file, false, err
	}
	return file, true, nil
}

// Preload warms the resource cache with the scene's preloads and keeps
// them alive until the scene is closed. It returns how many were loaded.
func (s *Session) Preload(sc *scene.Scene) int {
	n := 0
	for _, p := range sc.Settings().Preloads {
		h, err := s.res.Get(p)
		if err != nil {
			s.log.Warn("preload failed", zap.String("path", p), zap.Error(err))
			continue
		}
		s.preloaded = append(s.preloaded, h)
		n++
	}
	return n
}

func (s *Session) releasePreloads() {
	for _, h := range s.preloaded {
		h.Release()
	}
	s.preloaded = nil
}

// DestroyAll closes the current scene and tears down the whole tree.
func (s *Session) DestroyAll() {
	s.closeCurrent()
	s.graph.DestroyAll()
	s.root = nil
}

// Backup writes a snapshot of the current scene into the backups
// directory and prunes the oldest snapshots beyond the configured count.
// It returns the snapshot path, or "" when no scene is open.
func (s *Session) Backup() (string, error) {
	if s.current == nil {
		return "", nil
	}
	raw, err := s.graph.JSON(s.current)
	if err != nil {
		return "", fmt.Errorf("backup: %w", err)
	}
	prefix := backupPrefix(s.current)
	file := store.Normalize(path.Join(s.editor.BackupsDir, prefix+ulid.Make().String()+".scene.json"))
	if err := s.res.Store().Write(file, raw); err != nil {
		return "", fmt.Errorf("backup: %w", err)
	}
	s.log.Info("scene backup written", zap.String("file", file))
	s.pruneBackups(prefix)
	return file, nil
}

func backupPrefix(sc *scene.Scene) string {
	base := path.Base(sc.SceneFile())
	if sc.SceneFile() == "" {
		base = sc.Name()
	}
	return strings.TrimSuffix(base, ".scene.json") + "."
}

// Backups returns the snapshot paths of the current scene, oldest first.
func (s *Session) Backups() ([]string, error) {
	if s.current == nil {
		return nil, nil
	}
	return s.listBackups(backupPrefix(s.current))
}

func (s *Session) listBackups(prefix string) ([]string, error) {
	all, err := s.res.Store().List(s.editor.BackupsDir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, p := range all {
		if strings.HasPrefix(path.Base(p), prefix) {
			out = append(out, p)
		}
	}
	// ULIDs sort by creation time.
	sort.Strings(out)
	return out, nil
}

func (s *Session) pruneBackups(prefix string) {
	rm, ok := s.res.Store().(store.Remover)
	if !ok || s.editor.KeepBackups <= 0 {
		return
	}
	backups, err := s.listBackups(prefix)
	if err != nil {
		s.log.Warn("list backups", zap.Error(err))
		return
	}
	for len(backups) > s.editor.KeepBackups {
		if err := rm.Remove(backups[0]); err != nil {
			s.log.Warn("remove backup", zap.String("file", backups[0]), zap.Error(err))
		}
		backups = backups[1:]
	}
}
