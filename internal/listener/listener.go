// Package listener is the registry of script listeners.
//
// Listeners are grouped by event kind and source. The generic tier of a kind
// uses event.GlobalSource. Each group keeps registration order, which is the
// order the dispatcher tries listeners in.
package listener

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dshills/revscript/internal/event"
)

// Listener is a registered script callback. The callback itself lives in the
// script runtime and is looked up by ID.
type Listener struct {
	id     string
	name   string
	kind   event.Kind
	source string
	filter event.Filter
	active atomic.Bool

	// removed is set once, by the Remove call that unregisters it.
	removed atomic.Bool
}

var _ event.Listener = (*Listener)(nil)

// Option configures a Listener.
type Option func(*Listener)

// WithName sets a human readable name used in diagnostics, typically the
// script that registered the listener.
func WithName(name string) Option {
	return func(l *Listener) {
		l.name = name
	}
}

func newListener(kind event.Kind, source string, filter event.Filter, opts ...Option) *Listener {
	l := &Listener{
		id:     uuid.Must(uuid.NewV7()).String(),
		kind:   kind,
		source: source,
		filter: filter,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.active.Store(true)
	return l
}

// ID implements event.Listener.
func (l *Listener) ID() string { return l.id }

// Name implements event.Listener. It returns the diagnostic name, or the
// ID when no name was given.
func (l *Listener) Name() string {
	if l.name == "" {
		return l.id
	}
	return l.name
}

// Kind returns the event kind listened to.
func (l *Listener) Kind() event.Kind { return l.kind }

// Source returns the source key, event.GlobalSource for generic listeners.
func (l *Listener) Source() string { return l.source }

// Filter implements event.Listener.
func (l *Listener) Filter() event.Filter { return l.filter }

// IsActive implements event.Listener.
func (l *Listener) IsActive() bool { return l.active.Load() }

// Deactivate stops the listener from being invoked. It stays registered.
func (l *Listener) Deactivate() { l.active.Store(false) }

// Activate re-enables a deactivated listener.
func (l *Listener) Activate() { l.active.Store(true) }
