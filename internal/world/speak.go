package world

import "fmt"

// SpeakClass is the channel a creature speaks on.
type SpeakClass int

// Speak classes. Values are visible to scripts and must stay stable.
const (
	SpeakSay SpeakClass = iota + 1
	SpeakWhisper
	SpeakYell
	SpeakPrivate
	SpeakChannel
	SpeakBroadcast
)

// SpeakClasses lists every valid class in script constant order.
var SpeakClasses = []SpeakClass{
	SpeakSay,
	SpeakWhisper,
	SpeakYell,
	SpeakPrivate,
	SpeakChannel,
	SpeakBroadcast,
}

// Valid reports whether c is a known class.
func (c SpeakClass) Valid() bool {
	return c >= SpeakSay && c <= SpeakBroadcast
}

// String returns the class name.
func (c SpeakClass) String() string {
	switch c {
	case SpeakSay:
		return "say"
	case SpeakWhisper:
		return "whisper"
	case SpeakYell:
		return "yell"
	case SpeakPrivate:
		return "private"
	case SpeakChannel:
		return "channel"
	case SpeakBroadcast:
		return "broadcast"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// ScriptConstant returns the global name scripts use for the class.
func (c SpeakClass) ScriptConstant() string {
	switch c {
	case SpeakSay:
		return "SPEAK_SAY"
	case SpeakWhisper:
		return "SPEAK_WHISPER"
	case SpeakYell:
		return "SPEAK_YELL"
	case SpeakPrivate:
		return "SPEAK_PRIVATE"
	case SpeakChannel:
		return "SPEAK_CHANNEL"
	case SpeakBroadcast:
		return "SPEAK_BROADCAST"
	default:
		return ""
	}
}
