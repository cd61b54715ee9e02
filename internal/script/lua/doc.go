// Package lua provides the gopher-lua runtime behind script listeners.
//
// This package wraps the gopher-lua library to provide:
//   - Sandboxed Lua state management with execution timeouts
//   - Go-Lua value conversion, including event records and object handles
//   - A Runtime implementing event.Runtime, with one Lua thread per call
//   - An Executor that serialises all Lua work on one goroutine
//
// # State
//
//	state, err := lua.NewState(lua.WithExecutionTimeout(2 * time.Second))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer state.Close()
//
//	if err := state.DoFile("scripts/greeter.lua"); err != nil {
//	    log.Fatal(err)
//	}
//
// # Sandbox
//
// Only the base, package, table, string and math libraries are opened.
// dofile, loadfile, load and loadstring are removed and require resolves
// only built-in modules and preloaded host modules (prefix "revscript").
//
// # Runtime and threads
//
// The Runtime keeps listener callbacks in a table stored in the Lua registry
// and hands out Threads as execution contexts:
//
//	rt := lua.NewRuntime(state)
//	rt.BindCallback(listener.ID(), fn)
//	ctx := rt.NewExecutionContext("OnSay")
//	defer ctx.Close()
//
// Registry slots written through a Thread live in the shared Lua registry,
// so a value stored by one call stays reachable after the thread's stack is
// gone, until the slot is cleared.
package lua
