package lua

import (
	"strings"
	"testing"

	glua "github.com/yuin/gopher-lua"
)

func TestSandboxDangerousFunctionsRemoved(t *testing.T) {
	state := newTestState(t)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		if state.L.GetGlobal(name) != glua.LNil {
			t.Errorf("%s should be removed", name)
		}
	}
	for _, name := range []string{"io", "os", "debug"} {
		if state.L.GetGlobal(name) != glua.LNil {
			t.Errorf("library %s should not be opened", name)
		}
	}
	for _, name := range []string{"string", "table", "math", "print", "pcall"} {
		if state.L.GetGlobal(name) == glua.LNil {
			t.Errorf("%s should be available", name)
		}
	}
}

func TestSandboxAllowsModule(t *testing.T) {
	L := glua.NewState(glua.Options{SkipOpenLibs: true})
	defer L.Close()

	s := NewSandbox(L, "revscript")

	tests := []struct {
		name string
		want bool
	}{
		{"string", true},
		{"table", true},
		{"math", true},
		{"revscript", true},
		{"revscript.events", true},
		{"revscriptx", false},
		{"os", false},
		{"io", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := s.AllowsModule(tt.name); got != tt.want {
			t.Errorf("AllowsModule(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}

	none := NewSandbox(L, "")
	if none.AllowsModule("revscript") {
		t.Error("empty prefix should not allow host modules")
	}
}

func TestSandboxSafeRequire(t *testing.T) {
	state := newTestState(t)

	if err := state.DoString(`s = require("string")`); err != nil {
		t.Errorf("require(string) error = %v", err)
	}

	err := state.DoString(`require("os")`)
	if err == nil || !strings.Contains(err.Error(), "not available") {
		t.Errorf("require(os) error = %v, want not available", err)
	}
}

func TestSandboxClearsSearchPaths(t *testing.T) {
	state := newTestState(t)

	pkg, ok := state.L.GetGlobal("package").(*glua.LTable)
	if !ok {
		t.Fatal("package table missing")
	}
	for _, field := range []string{"path", "cpath"} {
		if got := glua.LVAsString(pkg.RawGetString(field)); got != "" {
			t.Errorf("package.%s = %q, want empty", field, got)
		}
	}

	err := state.DoString(`require("revscript.missing")`)
	if err == nil {
		t.Error("require of an unregistered host module should fail")
	}
}
