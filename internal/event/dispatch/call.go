package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/revscript/internal/event"
)

// invoke calls one listener with e and copies the script's changes back into
// e. A nil result means the listener handled the event.
//
// Marshal errors do not fail the call; they are reported per field and the
// affected attributes keep their previous values. A panic raised while the
// listener runs or while its result is read back becomes a script error.
func (d *Dispatcher) invoke(ctx context.Context, e event.Event, l event.Listener) (err error) {
	thread := d.runtime.NewExecutionContext(e.Kind().String())
	tag := e.Tag()
	defer func() {
		if r := recover(); r != nil {
			err = d.failure(event.ScriptError, e, l, fmt.Errorf("panic: %v", r))
		}
	}()
	defer func() {
		thread.ClearRegistrySlot(tag)
		thread.Close()
	}()

	thread.PushCallback(l)
	if !thread.IsCallbackResolved() {
		thread.Pop()
		return d.failure(event.StaleListener, e, l, nil)
	}

	thread.PushValue(e.Marshal())
	thread.DuplicateTop()
	thread.SetRegistrySlot(tag)

	if err := thread.Run(ctx, 1); err != nil {
		return d.failure(event.ScriptError, e, l, err)
	}

	thread.GetRegistrySlot(tag)
	for _, err := range e.Unmarshal(thread) {
		var me *event.MarshalError
		if errors.As(err, &me) && me.Listener == "" {
			me.Listener = l.ID()
			me.Script = l.Name()
		}
		d.report(ctx, e, err)
	}
	thread.Pop()

	return nil
}

func (d *Dispatcher) failure(reason event.FailureReason, e event.Event, l event.Listener, err error) *event.CallFailure {
	return &event.CallFailure{
		Reason:   reason,
		Kind:     e.Kind(),
		Listener: l.ID(),
		Script:   l.Name(),
		Err:      err,
	}
}
