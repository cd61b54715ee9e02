package dispatch

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/revscript/internal/event"
	"github.com/dshills/revscript/internal/event/events"
	"github.com/dshills/revscript/internal/world"
)

type failure struct {
	event event.Event
	err   error
}

type harness struct {
	runtime   *fakeRuntime
	listeners fakeListeners
	failures  []failure
	d         *Dispatcher
	ids       *event.Sequence
	guard     *world.Creature
}

func newHarness() *harness {
	h := &harness{
		runtime:   newFakeRuntime(),
		listeners: fakeListeners{},
		ids:       event.NewSequence(),
		guard:     world.NewCreature(1, "Guard"),
	}
	h.d = New(h.runtime, h.listeners, WithFailureHandler(func(e event.Event, err error) {
		h.failures = append(h.failures, failure{event: e, err: err})
	}))
	return h
}

func (h *harness) say(text string) *events.Say {
	return events.NewSay(h.ids, h.guard, world.SpeakSay, "", text)
}

func (h *harness) listen(source, id string, filter event.TextFilter, fn script) {
	h.listeners.add(source, staticListener{id: id, filter: filter})
	if fn != nil {
		h.runtime.bind(id, fn)
	}
}

func all() event.TextFilter {
	return event.NewTextFilter(event.MethodAll, "", false)
}

func setText(text string) script {
	return func(fields map[string]any) error {
		fields["text"] = text
		return nil
	}
}

func TestDispatchNoListeners(t *testing.T) {
	h := newHarness()
	e := h.say("hello")

	assert.False(t, h.d.Dispatch(context.Background(), e))
	assert.Equal(t, "hello", e.Text)
	assert.Empty(t, h.runtime.contexts)
	assert.Empty(t, h.failures)
}

func TestDispatchSubstringRewritesText(t *testing.T) {
	h := newHarness()
	h.listen(event.GlobalSource, "g1",
		event.NewTextFilter(event.MethodSubstring, "hello", false),
		setText("greeting acknowledged"))

	e := h.say("Well HELLO there")
	require.True(t, h.d.Dispatch(context.Background(), e))
	assert.Equal(t, "greeting acknowledged", e.Text)
	assert.Equal(t, world.SpeakSay, e.Class)
	assert.Equal(t, []string{"OnSay"}, h.runtime.labels)
}

func TestDispatchSpecificBeforeGeneric(t *testing.T) {
	h := newHarness()
	var order []string
	record := func(id string) script {
		return func(fields map[string]any) error {
			order = append(order, id)
			return nil
		}
	}
	h.listen(event.GlobalSource, "generic", all(), record("generic"))
	h.listen(h.guard.SourceKey(), "specific", all(), record("specific"))

	assert.True(t, h.d.Dispatch(context.Background(), h.say("hi")))
	assert.Equal(t, []string{"specific"}, order)
}

func TestDispatchFallsBackToGeneric(t *testing.T) {
	h := newHarness()
	h.listen(h.guard.SourceKey(), "specific",
		event.NewTextFilter(event.MethodExact, "trade", false), setText("specific"))
	h.listen(event.GlobalSource, "generic", all(), setText("generic"))

	e := h.say("hello")
	assert.True(t, h.d.Dispatch(context.Background(), e))
	assert.Equal(t, "generic", e.Text)
}

func TestDispatchFirstMatchShortCircuits(t *testing.T) {
	h := newHarness()
	h.listen(event.GlobalSource, "first", all(), setText("first"))
	h.listen(event.GlobalSource, "second", all(), setText("second"))

	e := h.say("hello")
	assert.True(t, h.d.Dispatch(context.Background(), e))
	assert.Equal(t, "first", e.Text)
	assert.Len(t, h.runtime.contexts, 1)
}

func TestDispatchWithoutSpeakerUsesGenericTier(t *testing.T) {
	h := newHarness()
	h.listen(h.guard.SourceKey(), "specific", all(), setText("specific"))
	h.listen(event.GlobalSource, "generic", all(), setText("generic"))

	e := events.NewSay(h.ids, nil, world.SpeakBroadcast, "", "server restart")
	assert.True(t, h.d.Dispatch(context.Background(), e))
	assert.Equal(t, "generic", e.Text)
}

func TestDispatchInactiveListenerNeverMatched(t *testing.T) {
	h := newHarness()

	inactive := &mockListener{}
	inactive.On("IsActive").Return(false)
	h.listeners.add(event.GlobalSource, inactive)

	assert.False(t, h.d.Dispatch(context.Background(), h.say("hello")))
	inactive.AssertExpectations(t)
	inactive.AssertNotCalled(t, "Filter")
	inactive.AssertNotCalled(t, "ID")
	inactive.AssertNotCalled(t, "Name")
	assert.Empty(t, h.runtime.contexts)
}

func TestDispatchStaleListenerContinues(t *testing.T) {
	h := newHarness()
	h.listen(h.guard.SourceKey(), "stale", all(), nil)
	h.listen(event.GlobalSource, "generic", all(), setText("handled"))

	e := h.say("hello")
	require.True(t, h.d.Dispatch(context.Background(), e))
	assert.Equal(t, "handled", e.Text)

	require.Len(t, h.failures, 1)
	assert.True(t, errors.Is(h.failures[0].err, event.ErrStaleListener))
	var cf *event.CallFailure
	require.ErrorAs(t, h.failures[0].err, &cf)
	assert.Equal(t, "stale", cf.Listener)
	assert.Equal(t, "attempt to call destroyed 'OnSay' listener stale", cf.Error())
	assert.Equal(t, uint64(1), h.d.Stats().StaleListeners)
}

func TestDispatchScriptErrorContinues(t *testing.T) {
	h := newHarness()
	boom := errors.New("boom")
	h.listen(event.GlobalSource, "broken", all(), func(fields map[string]any) error {
		fields["text"] = "half-written"
		return boom
	})
	h.listen(event.GlobalSource, "working", all(), func(fields map[string]any) error {
		fields["receiver"] = "Bob"
		return nil
	})

	e := h.say("hello")
	require.True(t, h.d.Dispatch(context.Background(), e))
	assert.Equal(t, "hello", e.Text, "a failed call must not write back")
	assert.Equal(t, "Bob", e.Receiver)

	require.Len(t, h.failures, 1)
	assert.ErrorIs(t, h.failures[0].err, event.ErrScriptError)
	assert.ErrorIs(t, h.failures[0].err, boom)
	assert.Equal(t, uint64(1), h.d.Stats().ScriptErrors)
}

func TestDispatchPartialMarshalFailure(t *testing.T) {
	h := newHarness()
	h.listen(event.GlobalSource, "g1", all(), func(fields map[string]any) error {
		fields["class"] = "loud"
		fields["text"] = "ok"
		return nil
	})

	e := h.say("hello")
	require.True(t, h.d.Dispatch(context.Background(), e))
	assert.Equal(t, "ok", e.Text)
	assert.Equal(t, world.SpeakSay, e.Class)

	require.Len(t, h.failures, 1)
	var me *event.MarshalError
	require.ErrorAs(t, h.failures[0].err, &me)
	assert.Equal(t, "class", me.Field)
	assert.Equal(t, "g1", me.Listener)
	assert.Equal(t, uint64(1), h.d.Stats().MarshalErrors)
}

func TestDispatchClearsRegistrySlot(t *testing.T) {
	tests := []struct {
		name string
		fn   script
	}{
		{"handled", setText("x")},
		{"script error", func(map[string]any) error { return errors.New("boom") }},
		{"stale", nil},
		{"marshal error", func(fields map[string]any) error {
			fields["text"] = 42.0
			return nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.listen(event.GlobalSource, "l1", all(), tt.fn)

			h.d.Dispatch(context.Background(), h.say("hello"))

			require.Len(t, h.runtime.contexts, 1)
			assert.Empty(t, h.runtime.registry)
			assert.True(t, h.runtime.allClosed())
		})
	}
}

func TestDispatchReentrantRefused(t *testing.T) {
	h := newHarness()
	e := h.say("hello")

	var inner bool
	h.listen(event.GlobalSource, "g1", all(), func(fields map[string]any) error {
		inner = h.d.Dispatch(context.Background(), e)
		return nil
	})

	assert.True(t, h.d.Dispatch(context.Background(), e))
	assert.False(t, inner)

	require.Len(t, h.failures, 1)
	assert.ErrorIs(t, h.failures[0].err, ErrReentrantDispatch)
	assert.Equal(t, uint64(1), h.d.Stats().Refused)

	// The guard is released once the outer dispatch returns.
	assert.True(t, h.d.Dispatch(context.Background(), e))
}

type unknownEvent struct {
	*events.Say
}

func (unknownEvent) Kind() event.Kind { return event.KindUnknown }

func TestDispatchUnknownKindRefused(t *testing.T) {
	h := newHarness()
	h.listen(event.GlobalSource, "g1", all(), setText("x"))

	assert.False(t, h.d.Dispatch(context.Background(), unknownEvent{h.say("hello")}))
	require.Len(t, h.failures, 1)
	assert.ErrorIs(t, h.failures[0].err, ErrUnknownKind)
}

func TestDispatchStats(t *testing.T) {
	h := newHarness()
	h.listen(event.GlobalSource, "g1",
		event.NewTextFilter(event.MethodPrefix, "hi", false), setText("x"))

	h.d.Dispatch(context.Background(), h.say("hi there"))
	h.d.Dispatch(context.Background(), h.say("bye"))

	stats := h.d.Stats()
	assert.Equal(t, uint64(2), stats.Dispatched)
	assert.Equal(t, uint64(1), stats.Handled)
	assert.Equal(t, uint64(1), stats.Unhandled)
	assert.Equal(t, uint64(0), stats.Refused)
	assert.True(t, stats.TotalDuration >= stats.AvgDuration)
}

func TestDispatchReadBackPanicContinues(t *testing.T) {
	h := newHarness()
	h.listen(event.GlobalSource, "faulty", all(), func(fields map[string]any) error {
		fields[panicOnRead] = "boom in __index"
		return nil
	})
	h.listen(event.GlobalSource, "working", all(), setText("handled"))

	e := h.say("hello")
	require.True(t, h.d.Dispatch(context.Background(), e))
	assert.Equal(t, "handled", e.Text)

	require.Len(t, h.failures, 1)
	var cf *event.CallFailure
	require.ErrorAs(t, h.failures[0].err, &cf)
	assert.Equal(t, event.ScriptError, cf.Reason)
	assert.Equal(t, "faulty", cf.Listener)
	assert.Contains(t, cf.Error(), "boom in __index")

	assert.Empty(t, h.runtime.registry)
	assert.True(t, h.runtime.allClosed())
}

func TestDispatchCancelledContext(t *testing.T) {
	h := newHarness()
	h.listen(event.GlobalSource, "g1", all(), setText("never"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := h.say("hello")
	assert.False(t, h.d.Dispatch(ctx, e))
	assert.Equal(t, "hello", e.Text)

	require.Len(t, h.failures, 1)
	assert.ErrorIs(t, h.failures[0].err, event.ErrScriptError)
	assert.ErrorIs(t, h.failures[0].err, context.Canceled)
}

func TestDispatchReportsScriptName(t *testing.T) {
	var buf bytes.Buffer
	h := newHarness()
	h.d = New(h.runtime, h.listeners,
		WithLogger(zerolog.New(&buf)),
		WithFailureHandler(func(e event.Event, err error) {
			h.failures = append(h.failures, failure{event: e, err: err})
		}),
	)

	h.listeners.add(event.GlobalSource, staticListener{id: "stale", name: "guard.lua:4", filter: all()})
	h.listeners.add(event.GlobalSource, staticListener{id: "g2", name: "greeter.lua:7", filter: all()})
	h.runtime.bind("g2", func(fields map[string]any) error {
		fields["text"] = 42.0
		return nil
	})

	require.True(t, h.d.Dispatch(context.Background(), h.say("hello")))
	require.Len(t, h.failures, 2)

	var cf *event.CallFailure
	require.ErrorAs(t, h.failures[0].err, &cf)
	assert.Equal(t, "guard.lua:4", cf.Script)
	assert.Contains(t, cf.Error(), "guard.lua:4")

	var me *event.MarshalError
	require.ErrorAs(t, h.failures[1].err, &me)
	assert.Equal(t, "g2", me.Listener)
	assert.Equal(t, "greeter.lua:7", me.Script)

	out := buf.String()
	assert.Contains(t, out, `"script":"guard.lua:4"`)
	assert.Contains(t, out, `"script":"greeter.lua:7"`)
}
