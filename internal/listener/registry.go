package listener

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/alphadose/haxmap"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/dshills/revscript/internal/event"
)

// list is the ordered listener group of one (kind, source) pair.
type list struct {
	mu    sync.RWMutex
	items *orderedmap.OrderedMap[string, *Listener]
}

// Registry owns all listeners.
type Registry struct {
	groups *haxmap.Map[string, *list]
	byID   *haxmap.Map[string, *Listener]

	hookMu   sync.RWMutex
	onRemove []func(*Listener)
}

var _ event.ListenerSource = (*Registry)(nil)

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		groups: haxmap.New[string, *list](),
		byID:   haxmap.New[string, *Listener](),
	}
}

func groupKey(kind event.Kind, source string) string {
	return strconv.Itoa(int(kind)) + "|" + source
}

// Add registers a listener of kind on source (event.GlobalSource for the
// generic tier). The filter must belong to kind.
func (r *Registry) Add(kind event.Kind, source string, filter event.Filter, opts ...Option) (*Listener, error) {
	if kind == event.KindUnknown {
		return nil, ErrUnknownKind
	}
	if filter == nil {
		return nil, ErrNilFilter
	}
	if fk := filter.FilterKind(); fk != kind {
		return nil, fmt.Errorf("%w: %s filter for %s listener", ErrFilterKind, fk, kind)
	}

	l := newListener(kind, source, filter, opts...)

	g, _ := r.groups.GetOrCompute(groupKey(kind, source), func() *list {
		return &list{items: orderedmap.New[string, *Listener]()}
	})
	g.mu.Lock()
	g.items.Set(l.id, l)
	g.mu.Unlock()

	r.byID.Set(l.id, l)
	return l, nil
}

// Get returns a listener by ID.
func (r *Registry) Get(id string) (*Listener, bool) {
	return r.byID.Get(id)
}

// Remove deactivates and unregisters a listener. It returns false if the
// listener does not exist.
func (r *Registry) Remove(id string) bool {
	l, ok := r.byID.GetAndDel(id)
	if !ok || !l.removed.CompareAndSwap(false, true) {
		return false
	}
	l.Deactivate()

	if g, ok := r.groups.Get(groupKey(l.kind, l.source)); ok {
		g.mu.Lock()
		g.items.Delete(id)
		g.mu.Unlock()
	}

	r.notifyRemoved(l)
	return true
}

// RemoveSource removes every listener bound to source, for example when a
// creature leaves the world. It returns the number removed.
func (r *Registry) RemoveSource(source string) int {
	var ids []string
	r.byID.ForEach(func(id string, l *Listener) bool {
		if l.source == source {
			ids = append(ids, id)
		}
		return true
	})

	n := 0
	for _, id := range ids {
		if r.Remove(id) {
			n++
		}
	}
	return n
}

// Listeners implements event.ListenerSource. The returned slice is a
// snapshot in registration order.
func (r *Registry) Listeners(kind event.Kind, source string) []event.Listener {
	g, ok := r.groups.Get(groupKey(kind, source))
	if !ok {
		return nil
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]event.Listener, 0, g.items.Len())
	for pair := g.items.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// Len returns the number of registered listeners.
func (r *Registry) Len() int {
	return int(r.byID.Len())
}

// OnRemove registers a function called after a listener is removed.
func (r *Registry) OnRemove(fn func(*Listener)) {
	r.hookMu.Lock()
	defer r.hookMu.Unlock()
	r.onRemove = append(r.onRemove, fn)
}

func (r *Registry) notifyRemoved(l *Listener) {
	r.hookMu.RLock()
	hooks := make([]func(*Listener), len(r.onRemove))
	copy(hooks, r.onRemove)
	r.hookMu.RUnlock()

	for _, fn := range hooks {
		fn(l)
	}
}
