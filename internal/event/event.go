package event

import (
	"strconv"
	"sync/atomic"
)

// Kind identifies an event type.
type Kind int

// Known event kinds.
const (
	// KindUnknown is the zero value and never dispatched.
	KindUnknown Kind = iota

	// KindSay is raised when a creature speaks.
	KindSay
)

// String returns the script-facing name of the kind. It is also used as
// the label of the execution context created for a call.
func (k Kind) String() string {
	switch k {
	case KindSay:
		return "OnSay"
	default:
		return "Unknown"
	}
}

// TagPrefix prefixes the registry slot key of every event instance.
const TagPrefix = "EI_"

// GlobalSource is the source key of the generic listener tier.
const GlobalSource = ""

// Event is a typed occurrence that can be matched against listener filters
// and marshalled to and from a script.
//
// Implementations are mutable: Unmarshal overwrites payload fields with the
// values a script wrote.
type Event interface {
	// ID returns the unique identifier assigned at construction.
	ID() uint64

	// Kind returns the event kind.
	Kind() Kind

	// Tag returns the registry slot key for this instance.
	Tag() string

	// Source returns the object that raised the event, or nil if the
	// event has no source and only global listeners apply.
	Source() Source

	// Matches reports whether the event satisfies a listener filter.
	// It never fails; a filter of the wrong kind does not match.
	Matches(f Filter) bool

	// Marshal builds the script-visible value of the event.
	Marshal() Record

	// Unmarshal updates the payload from the value currently on top of
	// the reader. Each field is handled independently; every field that
	// could not be applied produces one *MarshalError.
	Unmarshal(r FieldReader) []error
}

// Source is an object that owns source-specific listeners.
type Source interface {
	// SourceKey returns the registry key of the object's listeners.
	SourceKey() string
}

// Object is a native object handed to scripts as an opaque handle.
type Object interface {
	// ObjectType names the script type (and metatable) of the handle.
	ObjectType() string
}

// IDAllocator hands out event identifiers.
type IDAllocator interface {
	Next() uint64
}

// Sequence is an atomic, process-wide IDAllocator. The first identifier is 1.
// A Sequence is created once at startup and never reset, so identifiers are
// not reused while a dispatch may still reference them.
type Sequence struct {
	last atomic.Uint64
}

// NewSequence returns a sequence starting at 1.
func NewSequence() *Sequence {
	return &Sequence{}
}

// Next returns the next identifier.
func (s *Sequence) Next() uint64 {
	return s.last.Add(1)
}

// Base carries the identity shared by all event kinds. Concrete events embed
// it.
type Base struct {
	id  uint64
	tag string
}

// NewBase allocates an identifier and derives the registry tag from it.
func NewBase(ids IDAllocator) Base {
	id := ids.Next()
	return Base{id: id, tag: TagPrefix + strconv.FormatUint(id, 10)}
}

// ID returns the event identifier.
func (b Base) ID() uint64 { return b.id }

// Tag returns the registry slot key.
func (b Base) Tag() string { return b.tag }
