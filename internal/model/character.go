package model

// Gender of a Character, bounded by config.CharacterRules.NumGenders.
type Gender int8

// Position is a character's location on a single map.
type Position struct {
	MapID int16
	X     int16
	Y     int16
}

// Attribute holds a base value and a modified (buffed/debuffed) value for
// one attribute id. Wire representation multiplies both by 256 (spec.md §6).
type Attribute struct {
	Base     float64
	Modified float64
}

// InventoryItem is one stack occupying one inventory slot. EquipSlot is
// non-zero when the stack is currently equipped.
type InventoryItem struct {
	Slot      int16
	ItemID    int16
	Amount    int16
	EquipSlot int16
}

// QuestEntry is one row of a character's quest log.
type QuestEntry struct {
	QuestID     int16
	State       int8
	Title       string
	Description string
}

// Character is a playable persona bound to one map and position, owned by
// exactly one Account (spec.md §3).
type Character struct {
	ID        int64
	AccountID int64
	Name      string
	Slot      int // 1..N, unique within the owning account

	Gender     Gender
	HairStyle  int8
	HairColor  int8

	AttrPoints int32 // unspent attribute-point budget
	CorrPoints int32 // unspent correction-point budget

	Position Position

	Attributes   map[int16]Attribute
	StatusEffect map[int16]int32 // status id -> ticks remaining
	KillCount    map[int16]int32 // monster id -> kills
	Abilities    map[int32]struct{}
	QuestLog     []QuestEntry

	Inventory []InventoryItem

	DeletedAt *int64 // unix seconds; storage never fills it: CharDelete stamps the deleted_at column and character loads skip stamped rows
}

// Equipped returns the inventory items currently marked as equipped.
func (c *Character) Equipped() []InventoryItem {
	var out []InventoryItem
	for _, it := range c.Inventory {
		if it.EquipSlot != 0 {
			out = append(out, it)
		}
	}
	return out
}

// AttributeSum totals the base value of every modifiable attribute, used to
// validate the starting-point budget at creation time (spec.md invariant 2).
func (c *Character) AttributeSum() float64 {
	var sum float64
	for _, a := range c.Attributes {
		sum += a.Base
	}
	return sum
}
