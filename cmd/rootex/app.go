package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rootexgo/rootex/internal/component"
	"github.com/rootexgo/rootex/internal/config"
	"github.com/rootexgo/rootex/internal/core/ecs"
	"github.com/rootexgo/rootex/internal/core/event"
	"github.com/rootexgo/rootex/internal/data"
	"github.com/rootexgo/rootex/internal/handler"
	"github.com/rootexgo/rootex/internal/material"
	"github.com/rootexgo/rootex/internal/persist"
	"github.com/rootexgo/rootex/internal/resource"
	"github.com/rootexgo/rootex/internal/scene"
	"github.com/rootexgo/rootex/internal/session"
	"github.com/rootexgo/rootex/internal/store"
	"github.com/rootexgo/rootex/internal/watcher"
)

// app is the wired engine core shared by every command.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	store   store.Store
	pg      *persist.PGStore // nil unless the postgres backend is used
	res     *resource.Cache
	graph   *scene.Graph
	mats    *material.Library
	events  *event.Dispatcher
	sess    *session.Session
	closers []func()
}

// openApp loads the config and wires the store, caches, scene graph,
// dispatcher and editor session.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a := &app{cfg: cfg, log: log}
	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	types, err := data.LoadAssetTypeTable(a.cfg.Data.AssetTypes)
	if err != nil {
		return fmt.Errorf("load asset types: %w", err)
	}
	if err := a.openStore(ctx); err != nil {
		return err
	}

	a.res = resource.NewCache(a.store, types, a.log)
	a.closers = append(a.closers, a.res.Close)

	comps := ecs.NewRegistry()
	if err := component.RegisterAll(comps); err != nil {
		return fmt.Errorf("register components: %w", err)
	}
	kinds := material.NewRegistry()
	if err := material.RegisterBuiltins(kinds); err != nil {
		return fmt.Errorf("register materials: %w", err)
	}

	a.graph = scene.NewGraph(comps, a.res, a.log)
	a.mats = material.NewLibrary(a.res, kinds, a.log)
	a.events = event.NewDispatcher(a.log)
	a.sess, err = session.New(session.Deps{
		Project:   a.cfg.Project,
		Editor:    a.cfg.Editor,
		Graph:     a.graph,
		Resources: a.res,
		Materials: a.mats,
		Events:    a.events,
		Log:       a.log,
	})
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}
	handler.RegisterAll(a.events, &handler.Deps{
		Session: a.sess,
		Events:  a.events,
		Log:     a.log,
	})
	return nil
}

// openStore selects the backing store named by the config.
func (a *app) openStore(ctx context.Context) error {
	switch a.cfg.Store.Backend {
	case "sqlite":
		db, err := persist.OpenSQLite(ctx, a.cfg.Store.SQLitePath)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { db.Close() })
		if err := persist.RunSQLiteMigrations(ctx, db); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		a.store = persist.NewSQLiteStore(db, a.log)

	case "postgres":
		db, err := persist.NewDB(ctx, a.cfg.Store, a.log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		if err := persist.RunMigrations(ctx, db.Pool); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		a.pg = persist.NewPGStore(db, a.log)
		a.store = a.pg

	default:
		var w *watcher.Watcher
		if a.cfg.Watcher.Enabled {
			var err error
			if w, err = watcher.New(a.cfg.Watcher.Debounce, a.log); err != nil {
				return fmt.Errorf("watcher: %w", err)
			}
			a.closers = append(a.closers, func() { w.Close() })
		}
		a.store = store.NewFS(a.cfg.Project.AssetRoot, w)
	}
	return nil
}

// Close tears down in reverse order of construction.
func (a *app) Close() {
	if a.sess != nil {
		a.sess.DestroyAll()
	}
	if a.events != nil {
		a.events.ReleaseAll()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	_ = a.log.Sync()
}
