package event

import (
	"errors"
	"fmt"
)

// Sentinel errors for event calls.
var (
	// ErrStaleListener is matched by CallFailures whose callback was gone.
	ErrStaleListener = errors.New("stale listener")

	// ErrScriptError is matched by CallFailures raised by the script.
	ErrScriptError = errors.New("script error")

	// ErrMarshal is matched by every MarshalError.
	ErrMarshal = errors.New("invalid event field")

	// ErrUnknownMethod is returned when a filter method name is not known.
	ErrUnknownMethod = errors.New("unknown filter method")
)

// FailureReason classifies a CallFailure.
type FailureReason int

// Call failure reasons.
const (
	// StaleListener means the listener's callback was destroyed.
	StaleListener FailureReason = iota + 1

	// ScriptError means the callback raised an error or did not finish.
	ScriptError
)

// String returns the reason name.
func (r FailureReason) String() string {
	switch r {
	case StaleListener:
		return "stale listener"
	case ScriptError:
		return "script error"
	default:
		return "unknown"
	}
}

// CallFailure reports a listener call that did not handle the event. It is
// recoverable: the dispatcher moves on to the next listener.
type CallFailure struct {
	Reason   FailureReason
	Kind     Kind
	Listener string

	// Script names where the listener was registered, when known.
	Script string

	Err error
}

// Error implements the error interface.
func (e *CallFailure) Error() string {
	who := describeListener(e.Listener, e.Script)
	switch e.Reason {
	case StaleListener:
		return fmt.Sprintf("attempt to call destroyed '%s' listener %s", e.Kind, who)
	default:
		if e.Err != nil {
			return fmt.Sprintf("event '%s' listener %s: %v", e.Kind, who, e.Err)
		}
		return fmt.Sprintf("event '%s' listener %s failed", e.Kind, who)
	}
}

func describeListener(id, script string) string {
	if script == "" || script == id {
		return id
	}
	return id + " (" + script + ")"
}

// Unwrap returns the underlying script error, if any.
func (e *CallFailure) Unwrap() error {
	return e.Err
}

// Is matches the reason sentinels.
func (e *CallFailure) Is(target error) bool {
	switch target {
	case ErrStaleListener:
		return e.Reason == StaleListener
	case ErrScriptError:
		return e.Reason == ScriptError
	}
	return false
}

// MarshalError reports one event field that could not be read back from a
// script. The field keeps its previous value.
type MarshalError struct {
	Kind  Kind
	Field string

	// Listener is the listener whose call produced the value, when known.
	Listener string

	// Script names where that listener was registered, when known.
	Script string

	Message string
}

// Error implements the error interface.
func (e *MarshalError) Error() string {
	msg := fmt.Sprintf("event '%s' invalid value of '%s': %s", e.Kind, e.Field, e.Message)
	if e.Script != "" {
		msg += " (set by " + e.Script + ")"
	}
	return msg
}

// Is matches ErrMarshal.
func (e *MarshalError) Is(target error) bool {
	return target == ErrMarshal
}
