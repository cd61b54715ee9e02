package dispatch

import (
	"context"
	"fmt"
	"strconv"

	"github.com/stretchr/testify/mock"

	"github.com/dshills/revscript/internal/event"
)

// script is a fake listener callback. It receives the marshalled event as a
// map it may modify.
type script func(fields map[string]any) error

// panicOnRead makes reading any field of the returned map panic, the way a
// faulting runtime would.
const panicOnRead = "__panic"

// fakeRuntime is a stack machine standing in for the Lua runtime.
type fakeRuntime struct {
	callbacks map[string]script
	registry  map[string]any
	contexts  []*fakeContext
	labels    []string
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{
		callbacks: make(map[string]script),
		registry:  make(map[string]any),
	}
}

func (r *fakeRuntime) bind(id string, fn script) {
	r.callbacks[id] = fn
}

func (r *fakeRuntime) NewExecutionContext(label string) event.Context {
	c := &fakeContext{runtime: r}
	r.contexts = append(r.contexts, c)
	r.labels = append(r.labels, label)
	return c
}

func (r *fakeRuntime) allClosed() bool {
	for _, c := range r.contexts {
		if !c.closed {
			return false
		}
	}
	return true
}

type fakeContext struct {
	runtime *fakeRuntime
	stack   []any
	closed  bool
}

func (c *fakeContext) push(v any) { c.stack = append(c.stack, v) }

func (c *fakeContext) top() any {
	if len(c.stack) == 0 {
		return nil
	}
	return c.stack[len(c.stack)-1]
}

func (c *fakeContext) PushCallback(l event.Listener) {
	if fn, ok := c.runtime.callbacks[l.ID()]; ok {
		c.push(fn)
		return
	}
	c.push(nil)
}

func (c *fakeContext) IsCallbackResolved() bool {
	_, ok := c.top().(script)
	return ok
}

func (c *fakeContext) PushValue(v any) {
	rec, ok := v.(event.Record)
	if !ok {
		c.push(v)
		return
	}
	fields := make(map[string]any, len(rec.Fields))
	for _, f := range rec.Fields {
		if n, isInt := f.Value.(int); isInt {
			fields[f.Name] = float64(n)
			continue
		}
		fields[f.Name] = f.Value
	}
	c.push(fields)
}

func (c *fakeContext) DuplicateTop() { c.push(c.top()) }

func (c *fakeContext) SetRegistrySlot(key string) {
	c.runtime.registry[key] = c.top()
	c.Pop()
}

func (c *fakeContext) GetRegistrySlot(key string) { c.push(c.runtime.registry[key]) }

func (c *fakeContext) ClearRegistrySlot(key string) { delete(c.runtime.registry, key) }

func (c *fakeContext) Run(ctx context.Context, argCount int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n := len(c.stack)
	if n < argCount+1 {
		return fmt.Errorf("stack underflow")
	}
	fn, _ := c.stack[n-argCount-1].(script)
	arg, _ := c.stack[n-1].(map[string]any)
	c.stack = c.stack[:n-argCount-1]
	if fn == nil {
		return fmt.Errorf("attempt to call a nil value")
	}
	return fn(arg)
}

func (c *fakeContext) Pop() {
	if len(c.stack) > 0 {
		c.stack = c.stack[:len(c.stack)-1]
	}
}

func (c *fakeContext) Field(name string) (any, bool) {
	fields, ok := c.top().(map[string]any)
	if !ok {
		return nil, false
	}
	if msg, bad := fields[panicOnRead]; bad {
		panic(msg)
	}
	v, ok := fields[name]
	return v, ok && v != nil
}

func (c *fakeContext) Close() {
	c.stack = nil
	c.closed = true
}

// fakeListeners is an in-memory event.ListenerSource.
type fakeListeners map[string][]event.Listener

func (f fakeListeners) add(source string, l event.Listener) {
	key := strconv.Itoa(int(event.KindSay)) + "|" + source
	f[key] = append(f[key], l)
}

func (f fakeListeners) Listeners(kind event.Kind, source string) []event.Listener {
	return f[strconv.Itoa(int(kind))+"|"+source]
}

// staticListener is an always-active listener.
type staticListener struct {
	id     string
	name   string
	filter event.Filter
}

func (l staticListener) ID() string           { return l.id }
func (l staticListener) Name() string         { return l.name }
func (l staticListener) IsActive() bool       { return true }
func (l staticListener) Filter() event.Filter { return l.filter }

// mockListener is a testify mock of event.Listener.
type mockListener struct {
	mock.Mock
}

func (m *mockListener) ID() string {
	return m.Called().String(0)
}

func (m *mockListener) Name() string {
	return m.Called().String(0)
}

func (m *mockListener) IsActive() bool {
	return m.Called().Bool(0)
}

func (m *mockListener) Filter() event.Filter {
	args := m.Called()
	f, _ := args.Get(0).(event.Filter)
	return f
}
