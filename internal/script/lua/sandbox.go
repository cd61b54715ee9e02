package lua

import (
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// DefaultModulePrefix is the prefix of modules provided by the host.
const DefaultModulePrefix = "revscript"

// Sandbox restricts Lua execution to safe operations.
type Sandbox struct {
	L *lua.LState

	modulePrefix string
	safeModules  map[string]bool
}

// NewSandbox creates a new sandbox for the Lua state. Host modules whose
// name starts with modulePrefix may be required.
func NewSandbox(L *lua.LState, modulePrefix string) *Sandbox {
	return &Sandbox{
		L:            L,
		modulePrefix: modulePrefix,
		safeModules: map[string]bool{
			"string": true,
			"table":  true,
			"math":   true,
		},
	}
}

// Install sets up the sandbox restrictions.
func (s *Sandbox) Install() {
	for _, name := range []string{
		"dofile",     // Load and execute file
		"loadfile",   // Load file as function
		"load",       // Load string as function
		"loadstring", // Load string as function
	} {
		s.L.SetGlobal(name, lua.LNil)
	}

	s.installSafeRequire()
}

// AllowsModule reports whether require may load the named module.
func (s *Sandbox) AllowsModule(name string) bool {
	if s.safeModules[name] {
		return true
	}
	if s.modulePrefix == "" {
		return false
	}
	return name == s.modulePrefix || strings.HasPrefix(name, s.modulePrefix+".")
}

// installSafeRequire clears the package search paths so nothing is loaded
// from disk and replaces require with a version that only resolves safe
// built-ins and preloaded host modules.
func (s *Sandbox) installSafeRequire() {
	if pkg, ok := s.L.GetGlobal("package").(*lua.LTable); ok {
		s.L.SetField(pkg, "path", lua.LString(""))
		s.L.SetField(pkg, "cpath", lua.LString(""))
	}

	originalRequire := s.L.GetGlobal("require")
	if originalRequire.Type() != lua.LTFunction {
		return
	}

	s.L.SetGlobal("require", s.L.NewFunction(func(L *lua.LState) int {
		modName := L.CheckString(1)
		if !s.AllowsModule(modName) {
			L.RaiseError("module %q is not available", modName)
			return 0
		}

		L.Push(originalRequire)
		L.Push(lua.LString(modName))
		L.Call(1, 1)
		return 1
	}))
}
