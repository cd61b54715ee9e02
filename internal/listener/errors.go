package listener

import "errors"

// Registry errors.
var (
	// ErrNilFilter is returned when a listener is added without a filter.
	ErrNilFilter = errors.New("listener filter is nil")

	// ErrFilterKind is returned when a filter belongs to another event kind.
	ErrFilterKind = errors.New("listener filter does not match event kind")

	// ErrUnknownKind is returned when a listener is added for an unknown kind.
	ErrUnknownKind = errors.New("unknown event kind")
)
