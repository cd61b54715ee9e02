package event

import "context"

// Listener is a registered script callback together with its filter. The
// dispatcher only reads listeners; creation and removal belong to the
// registry that owns them.
type Listener interface {
	// ID identifies the listener in diagnostics. Script runtimes also use
	// it to look up the callback bound to the listener.
	ID() string

	// Name is the human-readable origin of the listener, such as the
	// script location that registered it. It may be empty.
	Name() string

	// IsActive reports whether the listener may be invoked.
	IsActive() bool

	// Filter returns the matching configuration.
	Filter() Filter
}

// ListenerSource provides ordered listener lists. Registration order is
// search order.
type ListenerSource interface {
	// Listeners returns the listeners of kind bound to source. Use
	// GlobalSource for the generic tier. The result may be empty and must
	// not be modified by the caller.
	Listeners(kind Kind, source string) []Listener
}

// Runtime creates isolated execution contexts for script calls.
type Runtime interface {
	// NewExecutionContext returns a fresh context. The label names the
	// context in diagnostics.
	NewExecutionContext(label string) Context
}

// Context is a stack-based script execution context, one per call.
type Context interface {
	FieldReader

	// PushCallback pushes the callback bound to the listener. If the
	// callback no longer exists a nil value is pushed.
	PushCallback(l Listener)

	// IsCallbackResolved reports whether the value on top of the stack is
	// a callable function.
	IsCallbackResolved() bool

	// PushValue pushes a Go value. Records become structured values and
	// Objects become handles.
	PushValue(v any)

	// DuplicateTop pushes a copy of the top value.
	DuplicateTop()

	// SetRegistrySlot pops the top value and stores it under key.
	SetRegistrySlot(key string)

	// GetRegistrySlot pushes the value stored under key.
	GetRegistrySlot(key string)

	// ClearRegistrySlot empties the slot under key.
	ClearRegistrySlot(key string)

	// Run calls the function below the top argCount values with those
	// values as arguments and waits for it to complete. Cancelling ctx
	// aborts the call.
	Run(ctx context.Context, argCount int) error

	// Pop removes the top value.
	Pop()

	// Close releases the context.
	Close()
}
