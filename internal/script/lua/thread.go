package lua

import (
	"context"
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/revscript/internal/event"
)

// Thread is an isolated execution context for one listener call. It has its
// own stack and shares globals and the registry with the parent state.
//
// A Thread must be used from the goroutine that owns the state.
type Thread struct {
	runtime  *Runtime
	L        *lua.LState
	cancel   context.CancelFunc
	label    string
	bridge   *Bridge
	registry *lua.LTable
}

var _ event.Context = (*Thread)(nil)

func newThread(r *Runtime, label string) *Thread {
	parent := r.state.LuaState()
	L, cancel := parent.NewThread()
	return &Thread{
		runtime:  r,
		L:        L,
		cancel:   cancel,
		label:    label,
		bridge:   NewBridge(L),
		registry: parent.Get(lua.RegistryIndex).(*lua.LTable),
	}
}

// PushCallback implements event.Context.
func (t *Thread) PushCallback(l event.Listener) {
	t.L.Push(t.runtime.Callback(l.ID()))
}

// IsCallbackResolved implements event.Context.
func (t *Thread) IsCallbackResolved() bool {
	return t.L.GetTop() > 0 && t.L.Get(-1).Type() == lua.LTFunction
}

// PushValue implements event.Context.
func (t *Thread) PushValue(v any) {
	t.L.Push(t.bridge.ToLuaValue(v))
}

// DuplicateTop implements event.Context.
func (t *Thread) DuplicateTop() {
	t.L.Push(t.L.Get(-1))
}

// SetRegistrySlot implements event.Context.
func (t *Thread) SetRegistrySlot(key string) {
	v := t.L.Get(-1)
	t.L.Pop(1)
	t.registry.RawSetString(key, v)
}

// GetRegistrySlot implements event.Context.
func (t *Thread) GetRegistrySlot(key string) {
	t.L.Push(t.registry.RawGetString(key))
}

// ClearRegistrySlot implements event.Context.
func (t *Thread) ClearRegistrySlot(key string) {
	t.registry.RawSetString(key, lua.LNil)
}

// Run implements event.Context. The call is bounded by ctx and the state's
// execution timeout.
func (t *Thread) Run(ctx context.Context, argCount int) error {
	err := t.runtime.state.withTimeout(ctx, t.L, func() error {
		return t.L.PCall(argCount, 0, nil)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", t.label, err)
	}
	return nil
}

// Pop implements event.Context.
func (t *Thread) Pop() {
	t.L.Pop(1)
}

// Field implements event.FieldReader for the table on top of the stack.
// Functions, threads and channels are returned as their Lua values.
//
// Reads are raw: metamethods the script installed on the table do not run,
// since the call has already returned and nothing bounds them here.
func (t *Thread) Field(name string) (any, bool) {
	if t.L.GetTop() == 0 {
		return nil, false
	}
	tbl, ok := t.L.Get(-1).(*lua.LTable)
	if !ok {
		return nil, false
	}

	v := tbl.RawGetString(name)
	switch v.Type() {
	case lua.LTNil:
		return nil, false
	case lua.LTFunction, lua.LTThread, lua.LTChannel:
		return v, true
	default:
		return t.bridge.ToGoValue(v), true
	}
}

// Close implements event.Context.
func (t *Thread) Close() {
	t.L.SetTop(0)
	if t.cancel != nil {
		t.cancel()
	}
}
