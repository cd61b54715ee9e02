package dispatch

import "errors"

// Sentinel errors for the dispatch package.
var (
	// ErrReentrantDispatch is reported when an event is dispatched while a
	// dispatch of the same event is still in flight.
	ErrReentrantDispatch = errors.New("event is already being dispatched")

	// ErrUnknownKind is reported when an event has no valid kind.
	ErrUnknownKind = errors.New("event kind is unknown")
)
