package inventory

import "satchel/server/internal/catalog"

// Slot is either empty or occupied by exactly one ItemInstance.
type Slot struct {
	instance ItemInstance
	occupied bool
}

// EmptySlot returns the empty variant.
func EmptySlot() Slot {
	return Slot{}
}

// OccupiedSlot returns a slot holding inst.
func OccupiedSlot(inst ItemInstance) Slot {
	return Slot{instance: inst, occupied: true}
}

// Empty reports whether the slot holds nothing.
func (s Slot) Empty() bool {
	return !s.occupied
}

// Instance returns a copy of the occupant.
func (s Slot) Instance() (ItemInstance, bool) {
	if !s.occupied {
		return ItemInstance{}, false
	}
	return s.instance.Clone(), true
}

// Item returns the occupant's definition, or nil for an empty slot.
func (s Slot) Item() *catalog.Item {
	if !s.occupied {
		return nil
	}
	return s.instance.Item
}

// Amount returns the occupant's amount, or 0 for an empty slot.
func (s Slot) Amount() int {
	if !s.occupied {
		return 0
	}
	return s.instance.Amount
}

// Holds reports whether the slot is occupied by item.
func (s Slot) Holds(item *catalog.Item) bool {
	return s.occupied && s.instance.Item == item
}

func (s Slot) clone() Slot {
	s.instance = s.instance.Clone()
	return s
}

func (s Slot) equal(other Slot) bool {
	if s.occupied != other.occupied {
		return false
	}
	if !s.occupied {
		return true
	}
	return s.instance.Item == other.instance.Item &&
		s.instance.Amount == other.instance.Amount &&
		equalDynamic(s.instance.Dynamic, other.instance.Dynamic)
}

func (s Slot) String() string {
	if !s.occupied {
		return "<empty>"
	}
	return s.instance.String()
}
