// Package events contains the concrete event kinds raised by the engine.
package events

import (
	"github.com/dshills/revscript/internal/event"
	"github.com/dshills/revscript/internal/world"
)

// SayRecordType is the script type name of a marshalled Say event.
const SayRecordType = "OnSayEvent"

// Script field names of a Say event.
const (
	FieldSpeaker  = "speaker"
	FieldClass    = "class"
	FieldReceiver = "receiver"
	FieldText     = "text"
)

var _ event.Event = (*Say)(nil)

// Say is raised when a creature speaks. Scripts may rewrite Class, Receiver
// and Text; Speaker is read-only.
type Say struct {
	event.Base

	Speaker  *world.Creature
	Class    world.SpeakClass
	Receiver string
	Text     string
}

// NewSay creates a speech event with a fresh identifier.
func NewSay(ids event.IDAllocator, speaker *world.Creature, class world.SpeakClass, receiver, text string) *Say {
	return &Say{
		Base:     event.NewBase(ids),
		Speaker:  speaker,
		Class:    class,
		Receiver: receiver,
		Text:     text,
	}
}

// Kind implements event.Event.
func (e *Say) Kind() event.Kind {
	return event.KindSay
}

// Source implements event.Event. Events without a speaker only reach global
// listeners.
func (e *Say) Source() event.Source {
	if e.Speaker == nil {
		return nil
	}
	return e.Speaker
}

// Matches implements event.Event by testing the text against a TextFilter.
func (e *Say) Matches(f event.Filter) bool {
	tf, ok := f.(event.TextFilter)
	if !ok {
		return false
	}
	return tf.Match(e.Text)
}

// Marshal implements event.Event.
func (e *Say) Marshal() event.Record {
	var speaker any
	if e.Speaker != nil {
		speaker = e.Speaker
	}
	return event.Record{
		Type: SayRecordType,
		Fields: []event.Field{
			{Name: FieldSpeaker, Value: speaker},
			{Name: FieldClass, Value: int(e.Class)},
			{Name: FieldReceiver, Value: e.Receiver},
			{Name: FieldText, Value: e.Text},
		},
	}
}

// Unmarshal implements event.Event. Each writable field is read on its own;
// a bad field keeps its previous value and does not stop the others.
func (e *Say) Unmarshal(r event.FieldReader) []error {
	var errs []error

	if n, err := event.ReadInt(r, event.KindSay, FieldClass); err != nil {
		errs = append(errs, err)
	} else if class := world.SpeakClass(n); !class.Valid() {
		errs = append(errs, &event.MarshalError{Kind: event.KindSay, Field: FieldClass, Message: "unknown speak class " + class.String()})
	} else {
		e.Class = class
	}

	if s, err := event.ReadString(r, event.KindSay, FieldReceiver); err != nil {
		errs = append(errs, err)
	} else {
		e.Receiver = s
	}

	if s, err := event.ReadString(r, event.KindSay, FieldText); err != nil {
		errs = append(errs, err)
	} else {
		e.Text = s
	}

	return errs
}
