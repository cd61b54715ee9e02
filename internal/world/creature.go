// Package world holds the slice of the game-world object model that scripts
// see through events: creatures and the classes of speech.
package world

import (
	"strconv"
)

// CreatureType is the script type name of creature handles.
const CreatureType = "Creature"

// Creature is a speaking actor. It owns listeners bound to it and is passed
// to scripts as an opaque handle.
type Creature struct {
	ID   uint32
	Name string
}

// NewCreature creates a creature.
func NewCreature(id uint32, name string) *Creature {
	return &Creature{ID: id, Name: name}
}

// ObjectType implements event.Object.
func (c *Creature) ObjectType() string {
	return CreatureType
}

// SourceKey implements event.Source.
func (c *Creature) SourceKey() string {
	return "creature:" + strconv.FormatUint(uint64(c.ID), 10)
}

// String returns the creature's name.
func (c *Creature) String() string {
	return c.Name
}
