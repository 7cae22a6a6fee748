package handler

import (
	"strconv"

	"go.uber.org/zap"

	"github.com/rootexgo/rootex/internal/core/event"
	"github.com/rootexgo/rootex/internal/scene"
)

// componentTarget resolves a []string{sceneID, kind} payload.
func componentTarget(e *event.Event, deps *Deps) (*scene.Scene, string, bool) {
	args, ok := payload[[]string](e, deps)
	if !ok || len(args) != 2 {
		deps.Log.Warn("component event expects [sceneID, kind]",
			zap.String("event", string(e.Type)), zap.Strings("args", args))
		return nil, "", false
	}
	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		deps.Log.Warn("bad scene id", zap.String("id", args[0]), zap.Error(err))
		return nil, "", false
	}
	sc := deps.Session.Graph().FindByID(scene.ID(id))
	if sc == nil {
		deps.Log.Warn("scene not found", zap.Uint64("id", id))
		return nil, "", false
	}
	return sc, args[1], true
}

// HandleAddComponent adds a default component of a kind to a scene's
// entity, creating the entity if needed. The component is dropped again if
// the entity's setup fails with it.
func HandleAddComponent(e *event.Event, deps *Deps) event.Variant {
	sc, kind, ok := componentTarget(e, deps)
	if !ok {
		return false
	}
	reg := deps.Session.Graph().Components()
	c, err := reg.CreateDefault(kind)
	if err != nil {
		deps.Log.Warn("add component failed", zap.String("kind", kind), zap.Error(err))
		return false
	}
	ent := sc.Entity()
	if ent == nil {
		ent = reg.NewEntity()
		sc.SetEntity(ent)
	}
	if err := ent.Add(c); err != nil {
		deps.Log.Warn("add component failed", zap.String("scene", sc.FullName()), zap.Error(err))
		return false
	}
	if err := ent.Setup(); err != nil {
		id, _ := reg.ID(kind)
		ent.Remove(id)
		deps.Log.Warn("component setup failed", zap.String("scene", sc.FullName()),
			zap.String("kind", kind), zap.Error(err))
		return false
	}
	return true
}

// HandleRemoveComponent removes the component of a kind from a scene's
// entity.
func HandleRemoveComponent(e *event.Event, deps *Deps) event.Variant {
	sc, kind, ok := componentTarget(e, deps)
	if !ok || sc.Entity() == nil {
		return false
	}
	id, found := sc.Entity().Registry().ID(kind)
	if !found {
		deps.Log.Warn("unknown component kind", zap.String("kind", kind))
		return false
	}
	return sc.Entity().Remove(id)
}
