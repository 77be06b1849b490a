package model

// World state variable scope constants (spec.md §3, §6). A variable's key
// is (Scope, Name); Scope 0 is world-wide, -1 is system, >0 names a map.
const (
	ScopeWorld  int32 = 0
	ScopeSystem int32 = -1
)

// WorldStateVar is one persisted (scope, name) -> value pair.
type WorldStateVar struct {
	Scope int32 // 0 = world, -1 = system, >0 = specific map id
	Name  string
	Value string
}

// FloorItem is a persistent item stack dropped on a map. Identity is the
// full tuple including Amount (spec.md §9 Open Questions — preserved as
// observed: two stacks of the same item at the same tile with different
// amounts coexist).
type FloorItem struct {
	MapID  int16
	ItemID int32
	Amount int16
	X      int16
	Y      int16
}
