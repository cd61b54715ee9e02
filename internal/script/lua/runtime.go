package lua

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/revscript/internal/event"
)

// CallbackTableKey is the registry key of the table mapping listener IDs to
// their callback functions.
const CallbackTableKey = "_revscript_callbacks"

// Runtime implements event.Runtime over a State. It owns the callback
// table: listeners registered from Lua keep their function there, keyed by
// listener ID, so it survives garbage collection until the listener is
// removed.
type Runtime struct {
	state     *State
	callbacks *lua.LTable
}

var _ event.Runtime = (*Runtime)(nil)

// NewRuntime creates a runtime over state.
func NewRuntime(state *State) *Runtime {
	L := state.LuaState()
	callbacks := L.NewTable()
	L.SetField(L.Get(lua.RegistryIndex), CallbackTableKey, callbacks)

	return &Runtime{
		state:     state,
		callbacks: callbacks,
	}
}

// State returns the underlying state.
func (r *Runtime) State() *State {
	return r.state
}

// NewExecutionContext implements event.Runtime. Each context runs on its
// own Lua thread sharing the state's globals and registry.
func (r *Runtime) NewExecutionContext(label string) event.Context {
	return newThread(r, label)
}

// BindCallback stores fn as the callback of the listener with the given ID.
func (r *Runtime) BindCallback(id string, fn *lua.LFunction) {
	r.callbacks.RawSetString(id, fn)
}

// UnbindCallback removes the callback of a listener. A listener whose
// callback is unbound is stale: calls to it fail without running any code.
func (r *Runtime) UnbindCallback(id string) {
	r.callbacks.RawSetString(id, lua.LNil)
}

// Callback returns the function bound to a listener ID, or LNil.
func (r *Runtime) Callback(id string) lua.LValue {
	return r.callbacks.RawGetString(id)
}

// RegistrySlot returns the value stored in a registry slot, or LNil.
func (r *Runtime) RegistrySlot(key string) lua.LValue {
	L := r.state.LuaState()
	return L.GetField(L.Get(lua.RegistryIndex), key)
}
