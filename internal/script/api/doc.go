// Package api exposes the host to scripts.
//
// Modules register their functions into a Lua state. Each module's table is
// available as a global of the same name and as a field of the "revscript"
// module:
//
//	local rs = require("revscript")
//	local guard = rs.creatures.get("Guard")
//
//	events.on_creature_say(guard, { method = "prefix", filter = "hi" }, function(e)
//	    e.text = "Halt!"
//	end)
//
// # Modules
//
//   - events: on_say, on_creature_say, stop
//   - creatures: get, find; Creature handles with getName and getID
//
// Speak classes are exported as the globals SPEAK_SAY, SPEAK_WHISPER,
// SPEAK_YELL, SPEAK_PRIVATE, SPEAK_CHANNEL and SPEAK_BROADCAST.
package api
