package world

import (
	"sync/atomic"

	"github.com/alphadose/haxmap"
)

// Roster tracks the creatures present in the world by name.
type Roster struct {
	byName *haxmap.Map[string, *Creature]
	nextID atomic.Uint32
}

// NewRoster creates an empty roster.
func NewRoster() *Roster {
	return &Roster{byName: haxmap.New[string, *Creature]()}
}

// Spawn returns the creature with the given name, creating it with a new ID
// if it is not present.
func (r *Roster) Spawn(name string) *Creature {
	c, _ := r.byName.GetOrCompute(name, func() *Creature {
		return NewCreature(r.nextID.Add(1), name)
	})
	return c
}

// Find returns the creature with the given name.
func (r *Roster) Find(name string) (*Creature, bool) {
	return r.byName.Get(name)
}

// Remove takes a creature out of the world.
func (r *Roster) Remove(name string) (*Creature, bool) {
	c, ok := r.byName.Get(name)
	if !ok {
		return nil, false
	}
	r.byName.Del(name)
	return c, true
}

// Len returns the number of creatures present.
func (r *Roster) Len() int {
	return int(r.byName.Len())
}
