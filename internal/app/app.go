// Package app wires the script runtime, listener registry and dispatcher
// into one application and manages its lifecycle.
package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/revscript/internal/config"
	"github.com/dshills/revscript/internal/event"
	"github.com/dshills/revscript/internal/event/dispatch"
	"github.com/dshills/revscript/internal/event/events"
	"github.com/dshills/revscript/internal/listener"
	"github.com/dshills/revscript/internal/script"
	"github.com/dshills/revscript/internal/script/api"
	plua "github.com/dshills/revscript/internal/script/lua"
	"github.com/dshills/revscript/internal/world"
)

// App is the central coordinator. All script work, loading and dispatch
// alike, runs on the executor goroutine.
type App struct {
	cfg *config.Config
	log zerolog.Logger

	state     *plua.State
	runtime   *plua.Runtime
	executor  *plua.Executor
	listeners *listener.Registry
	roster    *world.Roster
	events    *api.EventsModule

	dispatcher *dispatch.Dispatcher
	loader     *script.Loader
	ids        *event.Sequence

	cancel   context.CancelFunc
	done     chan struct{}
	shutdown atomic.Bool
	once     sync.Once
}

// Option configures an App.
type Option func(*options)

type options struct {
	onFailure dispatch.FailureHandler
}

// WithFailureHandler receives every recoverable dispatch failure in
// addition to the log.
func WithFailureHandler(h dispatch.FailureHandler) Option {
	return func(o *options) {
		o.onFailure = h
	}
}

// New creates an application and starts its executor.
func New(cfg *config.Config, log zerolog.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	state, err := plua.NewState(
		plua.WithExecutionTimeout(cfg.Lua.Timeout),
		plua.WithModulePrefix(api.RootModule),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInitialization, err)
	}

	a := &App{
		cfg:       cfg,
		log:       log.With().Str("component", "app").Logger(),
		state:     state,
		runtime:   plua.NewRuntime(state),
		executor:  plua.NewExecutor(state, cfg.Lua.QueueSize),
		listeners: listener.NewRegistry(),
		roster:    world.NewRoster(),
		ids:       event.NewSequence(),
		done:      make(chan struct{}),
	}
	a.events = api.NewEventsModule(a.listeners, a.runtime, log)

	apis := api.NewRegistry()
	for _, mod := range []api.Module{a.events, api.NewCreatureModule(a.roster)} {
		if err := apis.Register(mod); err != nil {
			_ = state.Close()
			return nil, fmt.Errorf("%w: %v", ErrInitialization, err)
		}
	}
	if err := apis.InjectAll(state); err != nil {
		_ = state.Close()
		return nil, fmt.Errorf("%w: %v", ErrInitialization, err)
	}

	dopts := []dispatch.Option{dispatch.WithLogger(log)}
	if o.onFailure != nil {
		dopts = append(dopts, dispatch.WithFailureHandler(o.onFailure))
	}
	a.dispatcher = dispatch.New(a.runtime, a.listeners, dopts...)

	a.loader = script.NewLoader(
		script.WithPaths(cfg.Scripts.Paths...),
		script.WithLogger(log),
	)

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	go func() {
		defer close(a.done)
		a.executor.Run(ctx)
	}()

	a.log.Debug().
		Strs("scripts", cfg.Scripts.Paths).
		Dur("timeout", state.ExecutionTimeout()).
		Msg("application initialized")
	return a, nil
}

// LoadScripts discovers and runs every script in the configured paths.
// Scripts that fail to load are reported in the joined error; the rest stay
// loaded.
func (a *App) LoadScripts(ctx context.Context) ([]*script.Script, error) {
	var (
		scripts []*script.Script
		loadErr error
	)
	err := a.exec(ctx, func(*lua.LState) error {
		scripts, loadErr = a.loader.LoadAll(a.state)
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.log.Info().
		Int("scripts", len(scripts)).
		Int("listeners", a.listeners.Len()).
		Msg("scripts loaded")
	return scripts, loadErr
}

// Creature returns the named creature, spawning it if needed.
func (a *App) Creature(name string) *world.Creature {
	return a.roster.Spawn(name)
}

// Despawn removes a creature from the world together with every listener
// bound to it. It returns the number of listeners removed.
func (a *App) Despawn(ctx context.Context, name string) (int, error) {
	c, ok := a.roster.Remove(name)
	if !ok {
		return 0, nil
	}

	var n int
	err := a.exec(ctx, func(*lua.LState) error {
		n = a.listeners.RemoveSource(c.SourceKey())
		return nil
	})
	return n, err
}

// Say raises a speech event and reports whether a listener handled it. The
// returned event carries the values scripts wrote back. When err is not
// nil the event was not dispatched.
func (a *App) Say(ctx context.Context, speaker *world.Creature, class world.SpeakClass, receiver, text string) (*events.Say, bool, error) {
	e := events.NewSay(a.ids, speaker, class, receiver, text)

	var handled bool
	err := a.exec(ctx, func(*lua.LState) error {
		handled = a.dispatcher.Dispatch(ctx, e)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return e, handled, nil
}

// Stats returns the dispatcher statistics.
func (a *App) Stats() dispatch.Stats {
	return a.dispatcher.Stats()
}

// Listeners returns the number of registered listeners.
func (a *App) Listeners() int {
	return a.listeners.Len()
}

func (a *App) exec(ctx context.Context, fn func(*lua.LState) error) error {
	if a.shutdown.Load() {
		return ErrShutdown
	}
	err := a.executor.Execute(ctx, fn)
	if plua.IsClosedErr(err) {
		return fmt.Errorf("%w: %v", ErrShutdown, err)
	}
	return err
}

// Shutdown stops the executor, removes all script listeners and closes the
// Lua state. It is safe to call more than once.
func (a *App) Shutdown() {
	a.once.Do(func() {
		a.shutdown.Store(true)
		a.executor.Close()
		a.cancel()
		<-a.done

		// The executor has stopped, so this goroutine owns the state.
		removed := a.events.Cleanup()
		if err := a.state.Close(); err != nil {
			a.log.Error().Err(err).Msg("close lua state")
		}

		stats := a.dispatcher.Stats()
		a.log.Info().
			Int("listeners_removed", removed).
			Uint64("dispatched", stats.Dispatched).
			Uint64("handled", stats.Handled).
			Msg("application shut down")
	})
}
