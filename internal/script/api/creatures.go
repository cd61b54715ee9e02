package api

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/revscript/internal/world"
)

// CreatureModule implements the creatures API module and the Creature
// handle type.
type CreatureModule struct {
	roster *world.Roster
}

// NewCreatureModule creates the module over roster.
func NewCreatureModule(roster *world.Roster) *CreatureModule {
	return &CreatureModule{roster: roster}
}

// Name returns the module name.
func (m *CreatureModule) Name() string {
	return "creatures"
}

// Register installs the Creature metatable, the speak class globals and the
// module functions.
func (m *CreatureModule) Register(L *lua.LState) (*lua.LTable, error) {
	mt := L.NewTypeMetatable(world.CreatureType)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"getName": creatureGetName,
		"getID":   creatureGetID,
	}))
	L.SetField(mt, "__tostring", L.NewFunction(creatureToString))
	L.SetField(mt, "__eq", L.NewFunction(creatureEq))

	for _, c := range world.SpeakClasses {
		L.SetGlobal(c.ScriptConstant(), lua.LNumber(c))
	}

	mod := L.NewTable()
	L.SetField(mod, "get", L.NewFunction(m.get))
	L.SetField(mod, "find", L.NewFunction(m.find))
	return mod, nil
}

// get(name) -> Creature
// Returns the named creature, spawning it if needed.
func (m *CreatureModule) get(L *lua.LState) int {
	name := L.CheckString(1)
	if name == "" {
		L.ArgError(1, "creature name cannot be empty")
		return 0
	}
	L.Push(pushCreature(L, m.roster.Spawn(name)))
	return 1
}

// find(name) -> Creature|nil
func (m *CreatureModule) find(L *lua.LState) int {
	name := L.CheckString(1)
	c, ok := m.roster.Find(name)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(pushCreature(L, c))
	return 1
}

func pushCreature(L *lua.LState, c *world.Creature) *lua.LUserData {
	ud := L.NewUserData()
	ud.Value = c
	L.SetMetatable(ud, L.GetTypeMetatable(world.CreatureType))
	return ud
}

// checkCreature returns the creature handle at stack index n or raises an
// argument error.
func checkCreature(L *lua.LState, n int) *world.Creature {
	ud := L.CheckUserData(n)
	if c, ok := ud.Value.(*world.Creature); ok && c != nil {
		return c
	}
	L.ArgError(n, "Creature expected")
	return nil
}

func creatureGetName(L *lua.LState) int {
	L.Push(lua.LString(checkCreature(L, 1).Name))
	return 1
}

func creatureGetID(L *lua.LState) int {
	L.Push(lua.LNumber(checkCreature(L, 1).ID))
	return 1
}

func creatureToString(L *lua.LState) int {
	L.Push(lua.LString(checkCreature(L, 1).String()))
	return 1
}

func creatureEq(L *lua.LState) int {
	a := checkCreature(L, 1)
	b := checkCreature(L, 2)
	L.Push(lua.LBool(a.ID == b.ID))
	return 1
}
