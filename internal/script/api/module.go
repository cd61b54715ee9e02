package api

import (
	"fmt"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"

	plua "github.com/dshills/revscript/internal/script/lua"
)

// RootModule is the name scripts require to reach every host module. States
// that host these modules must allow it as their module prefix.
const RootModule = "revscript"

// Module is a Lua API module that can be installed into a state.
type Module interface {
	// Name returns the module name, which is also its global name.
	Name() string

	// Register creates the module table in L.
	Register(L *lua.LState) (*lua.LTable, error)
}

// Registry manages API modules and their installation.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]Module
}

// NewRegistry creates a new API registry.
func NewRegistry() *Registry {
	return &Registry{
		modules: make(map[string]Module),
	}
}

// Register adds a module to the registry.
func (r *Registry) Register(mod Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.modules[mod.Name()]; exists {
		return fmt.Errorf("module %q already registered", mod.Name())
	}

	r.modules[mod.Name()] = mod
	return nil
}

// Get returns a module by name.
func (r *Registry) Get(name string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mod, ok := r.modules[name]
	return mod, ok
}

// List returns all registered module names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InjectAll registers every module into state, sets each module table as a
// global and preloads RootModule and "RootModule.<name>" for require.
func (r *Registry) InjectAll(state *plua.State) error {
	L := state.LuaState()
	root := L.NewTable()

	for _, name := range r.List() {
		mod, _ := r.Get(name)

		tbl, err := mod.Register(L)
		if err != nil {
			return fmt.Errorf("register module %q: %w", name, err)
		}

		L.SetField(root, name, tbl)
		state.SetGlobal(name, tbl)
		state.PreloadModule(RootModule+"."+name, tableLoader(tbl))
	}

	state.PreloadModule(RootModule, tableLoader(root))
	return nil
}

func tableLoader(tbl *lua.LTable) lua.LGFunction {
	return func(L *lua.LState) int {
		L.Push(tbl)
		return 1
	}
}
