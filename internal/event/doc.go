// Package event defines the core types of the script event bridge.
//
// An Event is a typed occurrence raised by the engine (a creature speaking,
// for example). Scripts register listeners for an event kind, either bound to
// a specific source object or globally. When an event is raised the
// dispatcher (package dispatch) searches the source-specific listeners first
// and the global listeners second, calls the first active listener whose
// filter matches, and then copies back whatever the script changed on the
// event.
//
// This package holds the pieces shared by every event kind:
//
//   - Kind, Filter and TextFilter: what a listener listens to and how its
//     filter is matched.
//   - Event and Listener: the contracts implemented by concrete event kinds
//     (package events) and by the listener registry (package listener).
//   - Record and FieldReader: the two directions of the marshal codec.
//   - Runtime and Context: the call contract the dispatcher needs from a
//     script runtime (implemented over gopher-lua in package script/lua).
//   - CallFailure and MarshalError: recoverable failures reported through
//     diagnostics and never propagated to the raising caller.
//
// # Event identity
//
// Every event receives a unique, monotonically increasing identifier from an
// IDAllocator when it is constructed. The identifier doubles as the key of
// the temporary registry slot that keeps the marshalled event reachable in
// the script runtime for the duration of one call:
//
//	ids := event.NewSequence()
//	e := events.NewSay(ids, speaker, world.SpeakSay, "", "hello")
//	e.Tag() // "EI_1"
package event
