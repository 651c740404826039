package inventory

import (
	"fmt"

	"satchel/server/internal/catalog"
)

// Dynamic is per-instance mutable state that the catalog definition does not carry.
type Dynamic struct {
	Durability int `json:"durability"`
}

// Clone returns a copy that shares nothing with d.
func (d *Dynamic) Clone() *Dynamic {
	if d == nil {
		return nil
	}
	copied := *d
	return &copied
}

// ItemInstance is an amount of one catalog item plus optional dynamic state.
type ItemInstance struct {
	Item    *catalog.Item
	Amount  int
	Dynamic *Dynamic
}

// NewInstance builds an instance without dynamic state.
func NewInstance(item *catalog.Item, amount int) ItemInstance {
	return ItemInstance{Item: item, Amount: amount}
}

// NewEquipment builds a single unit of item with its durability at the catalog ceiling.
func NewEquipment(item *catalog.Item) ItemInstance {
	inst := ItemInstance{Item: item, Amount: 1}
	if item != nil && item.Durability > 0 {
		inst.Dynamic = &Dynamic{Durability: item.Durability}
	}
	return inst
}

// Clone deep-copies the dynamic state.
func (i ItemInstance) Clone() ItemInstance {
	i.Dynamic = i.Dynamic.Clone()
	return i
}

// DurabilityFraction reports current durability over the catalog ceiling for
// equipment that tracks it.
func (i ItemInstance) DurabilityFraction() (float64, bool) {
	if i.Item == nil || i.Dynamic == nil || !i.Item.Category.IsEquipment() || i.Item.Durability <= 0 {
		return 0, false
	}
	return float64(i.Dynamic.Durability) / float64(i.Item.Durability), true
}

func (i ItemInstance) valid() bool {
	return i.Item != nil && i.Item.MaxStackSize > 0 && i.Amount > 0
}

func (i ItemInstance) String() string {
	if i.Item == nil {
		return "<empty>"
	}
	return fmt.Sprintf("%s x%d", i.Item.ID, i.Amount)
}

func equalDynamic(a, b *Dynamic) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
