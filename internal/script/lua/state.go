package lua

import (
	"context"
	"fmt"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// DefaultExecutionTimeout bounds a single script execution: loading a file,
// calling a global, or running one listener callback.
const DefaultExecutionTimeout = 5 * time.Second

// State wraps gopher-lua with a sandbox and execution timeouts.
//
// gopher-lua's LState is not goroutine-safe. The mutex serialises the State
// methods, but execution contexts created by a Runtime use the LState
// without locking; all script work should go through one goroutine (see
// Executor).
type State struct {
	L *lua.LState

	mu sync.Mutex

	executionTimeout time.Duration
	modulePrefix     string

	sandbox *Sandbox
	closed  bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithExecutionTimeout sets the timeout of one script execution. Zero
// disables the timeout.
func WithExecutionTimeout(d time.Duration) StateOption {
	return func(s *State) {
		s.executionTimeout = d
	}
}

// WithModulePrefix sets the prefix of preloaded modules scripts may require.
func WithModulePrefix(prefix string) StateOption {
	return func(s *State) {
		s.modulePrefix = prefix
	}
}

// NewState creates a new sandboxed Lua state.
func NewState(opts ...StateOption) (*State, error) {
	state := &State{
		executionTimeout: DefaultExecutionTimeout,
		modulePrefix:     DefaultModulePrefix,
	}
	for _, opt := range opts {
		opt(state)
	}
	if state.executionTimeout < 0 {
		return nil, fmt.Errorf("%w: negative execution timeout", ErrInvalidOption)
	}

	L := lua.NewState(lua.Options{
		SkipOpenLibs: true,
	})
	state.L = L

	openSafeLibraries(L)

	state.sandbox = NewSandbox(L, state.modulePrefix)
	state.sandbox.Install()

	return state, nil
}

// openSafeLibraries opens only safe Lua standard libraries.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenPackage(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// Each opener leaves its module table on the stack.
	L.SetTop(0)

	// io, os and debug stay closed.
}

// DoFile executes a Lua file.
func (s *State) DoFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}

	return s.withTimeout(context.Background(), s.L, func() error {
		return s.L.DoFile(path)
	})
}

// DoString executes a Lua chunk.
func (s *State) DoString(code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}

	return s.withTimeout(context.Background(), s.L, func() error {
		return s.L.DoString(code)
	})
}

// withTimeout runs fn with ctx, bounded by the execution timeout, installed
// on L and recovers panics raised by the Lua VM. Cancelling ctx stops the
// running script.
func (s *State) withTimeout(ctx context.Context, L *lua.LState, fn func() error) (err error) {
	cancel := context.CancelFunc(func() {})
	if s.executionTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.executionTimeout)
	}
	L.SetContext(ctx)
	defer func() {
		L.RemoveContext()
		cancel()
	}()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// SetGlobal sets a global variable.
func (s *State) SetGlobal(name string, value lua.LValue) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.L.SetGlobal(name, value)
}

// PreloadModule makes a module available to require. The name must carry
// the module prefix to pass the sandbox.
func (s *State) PreloadModule(name string, loader lua.LGFunction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.L.PreloadModule(name, loader)
}

// LuaState returns the underlying gopher-lua state.
//
// Direct access bypasses the mutex. The caller is responsible for running
// on the goroutine that owns the state.
func (s *State) LuaState() *lua.LState {
	return s.L
}

// ExecutionTimeout returns the per-execution timeout.
func (s *State) ExecutionTimeout() time.Duration {
	return s.executionTimeout
}

// IsClosed returns true if the state has been closed.
func (s *State) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close releases all resources associated with the Lua state.
// After Close is called, all other methods will return ErrStateClosed.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.L.Close()
	s.closed = true
	return nil
}
