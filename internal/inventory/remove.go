package inventory

import (
	"context"

	"satchel/server/internal/catalog"
	"satchel/server/logging"
	"satchel/server/logging/economy"
)

// RemoveItemAtIndex empties slot index whatever its amount. It returns false
// when the slot is already empty.
func (inv *Inventory) RemoveItemAtIndex(index int) bool {
	inv.mustIndex(index)
	slot := inv.slots[index]
	if slot.Empty() {
		return false
	}
	inv.clearSlot(index)
	inv.committed()
	inv.removed(slot.instance.Item, slot.instance.Amount, &index)
	return true
}

// RemoveItemFromIndex takes amount units out of slot index, emptying the slot
// when amount covers the whole stack. It returns false for an empty slot or a
// non-positive amount.
func (inv *Inventory) RemoveItemFromIndex(index, amount int) bool {
	inv.mustIndex(index)
	slot := inv.slots[index]
	if slot.Empty() || amount <= 0 {
		return false
	}
	taken := amount
	if amount >= slot.instance.Amount {
		taken = slot.instance.Amount
		inv.clearSlot(index)
	} else {
		inv.setAmount(index, slot.instance.Amount-amount)
	}
	inv.committed()
	inv.removed(slot.instance.Item, taken, &index)
	return true
}

// RemoveItem takes exactly amount units of item, lowest slot index first.
// Nothing changes and false is returned when fewer than amount units are held
// or amount is not positive.
func (inv *Inventory) RemoveItem(item *catalog.Item, amount int) bool {
	if item == nil || amount <= 0 {
		return false
	}
	if inv.TotalAmount(item) < amount {
		return false
	}

	left := amount
	for i := range inv.slots {
		if left == 0 {
			break
		}
		if !inv.slots[i].Holds(item) {
			continue
		}
		held := inv.slots[i].instance.Amount
		if held <= left {
			inv.clearSlot(i)
			left -= held
			continue
		}
		inv.setAmount(i, held-left)
		left = 0
	}
	inv.committed()
	inv.removed(item, amount, nil)
	return true
}

// Clear empties every occupied slot, notifying in slot order.
func (inv *Inventory) Clear() {
	cleared := 0
	for i := range inv.slots {
		if inv.slots[i].Empty() {
			continue
		}
		inv.record(MetricItemsRemoved, inv.slots[i].instance.Amount)
		inv.clearSlot(i)
		cleared++
	}
	if cleared == 0 {
		return
	}
	inv.committed()
	inv.event(func(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef) {
		economy.InventoryCleared(ctx, pub, tick, actor, economy.InventoryClearedPayload{Slots: cleared}, nil)
	})
}

// SplitStack detaches amount units from slot index and returns them as a new
// instance carrying a copy of the slot's dynamic state. The slot is emptied
// when nothing is left in it. It fails without changes when the slot is empty,
// amount is not in [1, held], or the item does not stack and amount is less
// than the held amount.
func (inv *Inventory) SplitStack(index, amount int) (ItemInstance, bool) {
	inv.mustIndex(index)
	slot := inv.slots[index]
	if slot.Empty() || amount <= 0 || amount > slot.instance.Amount {
		return ItemInstance{}, false
	}
	if !slot.instance.Item.Stackable() && amount < slot.instance.Amount {
		return ItemInstance{}, false
	}

	split := ItemInstance{
		Item:    slot.instance.Item,
		Amount:  amount,
		Dynamic: slot.instance.Dynamic.Clone(),
	}
	left := slot.instance.Amount - amount
	if left == 0 {
		inv.clearSlot(index)
	} else {
		inv.setAmount(index, left)
	}
	inv.committed()
	inv.record(MetricSplits, 1)
	inv.event(func(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef) {
		economy.StackSplit(ctx, pub, tick, actor, economy.StackSplitPayload{
			ItemID:   split.Item.ID,
			Slot:     index,
			Quantity: amount,
			Left:     left,
		}, nil)
	})
	return split, true
}

func (inv *Inventory) removed(item *catalog.Item, amount int, index *int) {
	inv.record(MetricItemsRemoved, amount)
	inv.event(func(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef) {
		economy.ItemsRemoved(ctx, pub, tick, actor, economy.ItemsRemovedPayload{
			ItemID:   item.ID,
			Quantity: amount,
			Slot:     index,
		}, nil)
	})
}
