package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dshills/revscript/internal/event"
)

// TracerName is the instrumentation name of dispatch spans.
const TracerName = "github.com/dshills/revscript/internal/event/dispatch"

// FailureHandler receives every recoverable failure of a dispatch: a
// *event.CallFailure, a *event.MarshalError or ErrReentrantDispatch.
type FailureHandler func(e event.Event, err error)

// Dispatcher delivers events to the first matching active listener.
//
// A Dispatcher is safe to share, but the script runtime it calls into
// usually is not; callers must serialise dispatches that use the same
// runtime (see lua.Executor).
type Dispatcher struct {
	runtime   event.Runtime
	listeners event.ListenerSource

	log       zerolog.Logger
	tracer    trace.Tracer
	onFailure FailureHandler

	inflight *haxmap.Map[uint64, struct{}]
	stats    counters
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger used for diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Dispatcher) {
		d.log = l.With().Str("component", "dispatch").Logger()
	}
}

// WithTracer sets the tracer used for dispatch spans.
func WithTracer(t trace.Tracer) Option {
	return func(d *Dispatcher) {
		d.tracer = t
	}
}

// WithFailureHandler sets a handler called for every recoverable failure.
func WithFailureHandler(h FailureHandler) Option {
	return func(d *Dispatcher) {
		d.onFailure = h
	}
}

// New creates a dispatcher calling into runtime for listeners found in
// listeners.
func New(runtime event.Runtime, listeners event.ListenerSource, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		runtime:   runtime,
		listeners: listeners,
		log:       zerolog.Nop(),
		tracer:    otel.Tracer(TracerName),
		inflight:  haxmap.New[uint64, struct{}](),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch delivers e and reports whether a listener handled it.
//
// Listeners bound to e's source are tried before global listeners. Failures
// of individual listeners are reported through diagnostics and do not stop
// the search; Dispatch itself never fails. Each listener call runs under ctx,
// so cancelling ctx aborts the running script and the search continues with
// the next listener, which fails the same way.
func (d *Dispatcher) Dispatch(ctx context.Context, e event.Event) bool {
	start := time.Now()
	d.stats.dispatched.Add(1)
	defer func() {
		d.stats.totalTimeNs.Add(time.Since(start).Nanoseconds())
	}()

	ctx, span := d.tracer.Start(ctx, "dispatch "+e.Kind().String(),
		trace.WithAttributes(
			attribute.String("event.kind", e.Kind().String()),
			attribute.Int64("event.id", int64(e.ID())),
		),
	)
	defer span.End()

	if e.Kind() == event.KindUnknown {
		d.refuse(ctx, e, ErrUnknownKind)
		return false
	}

	if _, busy := d.inflight.GetOrSet(e.ID(), struct{}{}); busy {
		d.refuse(ctx, e, ErrReentrantDispatch)
		return false
	}
	defer d.inflight.Del(e.ID())

	handled := d.dispatch(ctx, e)
	span.SetAttributes(attribute.Bool("dispatch.handled", handled))

	if handled {
		d.stats.handled.Add(1)
	} else {
		d.stats.unhandled.Add(1)
	}
	return handled
}

// dispatch searches the specific tier, then the generic tier.
func (d *Dispatcher) dispatch(ctx context.Context, e event.Event) bool {
	if src := e.Source(); src != nil {
		specific := d.listeners.Listeners(e.Kind(), src.SourceKey())
		if d.dispatchList(ctx, e, specific) {
			return true
		}
	}
	return d.dispatchList(ctx, e, d.listeners.Listeners(e.Kind(), event.GlobalSource))
}

// dispatchList tries the listeners of one tier in order.
func (d *Dispatcher) dispatchList(ctx context.Context, e event.Event, list []event.Listener) bool {
	if len(list) == 0 {
		return false
	}

	for _, l := range list {
		if !l.IsActive() {
			continue
		}
		if !e.Matches(l.Filter()) {
			continue
		}

		err := d.invoke(ctx, e, l)
		if err == nil {
			d.log.Debug().
				Str("kind", e.Kind().String()).
				Uint64("event", e.ID()).
				Str("listener", l.ID()).
				Str("script", l.Name()).
				Msg("event handled")
			return true
		}
		d.report(ctx, e, err)
	}
	return false
}

// refuse reports a dispatch that was not attempted.
func (d *Dispatcher) refuse(ctx context.Context, e event.Event, err error) {
	d.stats.refused.Add(1)
	d.report(ctx, e, err)
}

// report logs a recoverable failure, counts it and hands it to the failure
// handler.
func (d *Dispatcher) report(ctx context.Context, e event.Event, err error) {
	var (
		callErr    *event.CallFailure
		marshalErr *event.MarshalError
	)

	level := zerolog.WarnLevel
	var listener, script, field, reason string
	switch {
	case errors.As(err, &callErr):
		listener, script, reason = callErr.Listener, callErr.Script, callErr.Reason.String()
		if callErr.Reason == event.StaleListener {
			d.stats.staleCalls.Add(1)
		} else {
			d.stats.scriptErrors.Add(1)
			level = zerolog.ErrorLevel
		}
	case errors.As(err, &marshalErr):
		d.stats.marshalErrors.Add(1)
		listener, script, field = marshalErr.Listener, marshalErr.Script, marshalErr.Field
	}

	entry := d.log.WithLevel(level).
		Str("kind", e.Kind().String()).
		Uint64("event", e.ID())
	if listener != "" {
		entry = entry.Str("listener", listener)
	}
	if script != "" {
		entry = entry.Str("script", script)
	}
	if field != "" {
		entry = entry.Str("field", field)
	}
	if reason != "" {
		entry = entry.Str("reason", reason)
	}
	entry.Err(err).Msg("event listener failure")

	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	if errors.Is(err, event.ErrScriptError) {
		span.SetStatus(codes.Error, err.Error())
	}

	if d.onFailure != nil {
		d.onFailure(e, err)
	}
}
