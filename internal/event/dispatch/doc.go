// Package dispatch delivers events to script listeners.
//
// A Dispatcher searches two listener tiers in a fixed order: the listeners
// bound to the event's source object first, then the global listeners. In
// each tier listeners are tried in registration order; inactive listeners
// are skipped and the first listener whose filter matches is called. A
// successful call handles the event and ends the search. A failed call
// (stale callback or script error) is reported and the search continues.
//
// # Call protocol
//
// Each call runs in a fresh execution context:
//
//  1. The listener's callback is pushed; a destroyed callback is a stale
//     listener and the call is abandoned.
//  2. The event is marshalled, passed as the only argument and also stored
//     in a registry slot keyed by the event tag.
//  3. The callback runs to completion.
//  4. On success the value is fetched back from the slot and unmarshalled
//     into the event, field by field.
//
// The registry slot is cleared by a deferred function on every exit path.
//
// # Diagnostics
//
// Failures never reach the caller of Dispatch; they are logged with zerolog,
// counted in Stats, recorded on the dispatch span and passed to the optional
// FailureHandler:
//
//	d := dispatch.New(runtime, registry,
//	    dispatch.WithLogger(logger),
//	    dispatch.WithFailureHandler(func(e event.Event, err error) {
//	        metrics.Inc(err)
//	    }),
//	)
//	handled := d.Dispatch(ctx, say)
package dispatch
