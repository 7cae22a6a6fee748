package scripting

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/rootexgo/rootex/internal/core/event"
	"github.com/rootexgo/rootex/internal/scene"
)

// toLua converts an event payload for a script. Scenes become tables with
// id, name, full_name and file fields.
func (e *Engine) toLua(v event.Variant) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(x)
	case string:
		return lua.LString(x)
	case int:
		return lua.LNumber(x)
	case int32:
		return lua.LNumber(x)
	case int64:
		return lua.LNumber(x)
	case uint32:
		return lua.LNumber(x)
	case float32:
		return lua.LNumber(x)
	case float64:
		return lua.LNumber(x)
	case scene.ID:
		return lua.LNumber(x)
	case []string:
		t := e.vm.NewTable()
		for _, s := range x {
			t.Append(lua.LString(s))
		}
		return t
	case *scene.Scene:
		if x == nil {
			return lua.LNil
		}
		t := e.vm.NewTable()
		t.RawSetString("id", lua.LNumber(x.ID()))
		t.RawSetString("name", lua.LString(x.Name()))
		t.RawSetString("full_name", lua.LString(x.FullName()))
		t.RawSetString("file", lua.LString(x.SceneFile()))
		return t
	}
	if event.IsNone(v) {
		return lua.LNil
	}
	e.log.Debug("lua payload passed as string", zap.String("type", fmt.Sprintf("%T", v)))
	return lua.LString(fmt.Sprint(v))
}

// fromLua converts a script value into an event payload. A table with a
// numeric id naming a live scene becomes that scene; any other table is
// read as a list of strings.
func (e *Engine) fromLua(v lua.LValue) event.Variant {
	switch x := v.(type) {
	case lua.LBool:
		return bool(x)
	case lua.LString:
		return string(x)
	case lua.LNumber:
		return float64(x)
	case *lua.LTable:
		if id, ok := x.RawGetString("id").(lua.LNumber); ok {
			if sc := e.graph.FindByID(scene.ID(id)); sc != nil {
				return sc
			}
		}
		out := make([]string, 0, x.Len())
		for i := 1; i <= x.Len(); i++ {
			out = append(out, lStr(x.RawGetInt(i)))
		}
		return out
	}
	return nil
}

// lStr reads a Lua value as a string.
func lStr(v lua.LValue) string {
	return lua.LVAsString(v)
}
