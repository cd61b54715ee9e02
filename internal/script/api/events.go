package api

import (
	"strings"
	"sync"

	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/revscript/internal/event"
	"github.com/dshills/revscript/internal/listener"
	plua "github.com/dshills/revscript/internal/script/lua"
)

// EventsModule implements the events API module. Listeners registered
// through it keep their callback in the runtime's callback table.
type EventsModule struct {
	registry *listener.Registry
	runtime  *plua.Runtime
	log      zerolog.Logger

	mu    sync.Mutex
	owned map[string]struct{}
}

// NewEventsModule creates the module. Removing a listener from registry,
// from scripts or from Go, unbinds its callback, so the removal must happen
// on the goroutine that owns the Lua state.
func NewEventsModule(registry *listener.Registry, runtime *plua.Runtime, log zerolog.Logger) *EventsModule {
	m := &EventsModule{
		registry: registry,
		runtime:  runtime,
		log:      log.With().Str("component", "script.events").Logger(),
		owned:    make(map[string]struct{}),
	}
	registry.OnRemove(m.removed)
	return m
}

// Name returns the module name.
func (m *EventsModule) Name() string {
	return "events"
}

// Register creates the module table.
func (m *EventsModule) Register(L *lua.LState) (*lua.LTable, error) {
	mod := L.NewTable()
	L.SetField(mod, "on_say", L.NewFunction(m.onSay))
	L.SetField(mod, "on_creature_say", L.NewFunction(m.onCreatureSay))
	L.SetField(mod, "stop", L.NewFunction(m.stop))
	return mod, nil
}

// Cleanup removes every listener registered through the module.
func (m *EventsModule) Cleanup() int {
	m.mu.Lock()
	ids := make([]string, 0, len(m.owned))
	for id := range m.owned {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	n := 0
	for _, id := range ids {
		if m.registry.Remove(id) {
			n++
		}
	}
	return n
}

// Owned returns the number of live listeners registered through the module.
func (m *EventsModule) Owned() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.owned)
}

// on_say(filter, fn) -> id
// Registers a global speech listener. filter may be nil.
func (m *EventsModule) onSay(L *lua.LState) int {
	filter := checkTextFilter(L, 1)
	fn := L.CheckFunction(2)
	L.Push(lua.LString(m.add(L, event.GlobalSource, filter, fn)))
	return 1
}

// on_creature_say(creature, filter, fn) -> id
// Registers a listener for speech by one creature.
func (m *EventsModule) onCreatureSay(L *lua.LState) int {
	c := checkCreature(L, 1)
	filter := checkTextFilter(L, 2)
	fn := L.CheckFunction(3)
	L.Push(lua.LString(m.add(L, c.SourceKey(), filter, fn)))
	return 1
}

// stop(id) -> bool
// Removes a listener. Returns true if it existed.
func (m *EventsModule) stop(L *lua.LState) int {
	id := L.CheckString(1)
	if id == "" {
		L.ArgError(1, "listener ID cannot be empty")
		return 0
	}
	L.Push(lua.LBool(m.registry.Remove(id)))
	return 1
}

func (m *EventsModule) add(L *lua.LState, source string, filter event.TextFilter, fn *lua.LFunction) string {
	where := strings.TrimSuffix(L.Where(1), ":")

	l, err := m.registry.Add(event.KindSay, source, filter, listener.WithName(where))
	if err != nil {
		L.RaiseError("%v", err)
		return ""
	}
	m.runtime.BindCallback(l.ID(), fn)

	m.mu.Lock()
	m.owned[l.ID()] = struct{}{}
	m.mu.Unlock()

	m.log.Debug().
		Str("listener", l.ID()).
		Str("script", where).
		Str("source", source).
		Str("method", filter.Method.String()).
		Msg("listener registered")
	return l.ID()
}

func (m *EventsModule) removed(l *listener.Listener) {
	m.mu.Lock()
	_, ok := m.owned[l.ID()]
	delete(m.owned, l.ID())
	m.mu.Unlock()

	if ok {
		m.runtime.UnbindCallback(l.ID())
	}
}

// checkTextFilter reads a filter table at stack index n:
//
//	{ method = "substring", filter = "hello", case_sensitive = false }
//
// nil selects the "all" method.
func checkTextFilter(L *lua.LState, n int) event.TextFilter {
	v := L.Get(n)
	if v == lua.LNil {
		return event.NewTextFilter(event.MethodAll, "", false)
	}

	tbl, ok := v.(*lua.LTable)
	if !ok {
		L.ArgError(n, "filter table expected")
		return event.TextFilter{}
	}

	b := plua.NewBridge(L)
	name, _ := b.GetTableString(tbl, "method")
	method, err := event.ParseMethod(name)
	if err != nil {
		L.ArgError(n, err.Error())
		return event.TextFilter{}
	}

	text, ok := b.GetTableString(tbl, "filter")
	if !ok && method != event.MethodAll {
		L.ArgError(n, "filter text required for method "+method.String())
		return event.TextFilter{}
	}
	caseSensitive, _ := b.GetTableBool(tbl, "case_sensitive")

	return event.NewTextFilter(method, text, caseSensitive)
}
