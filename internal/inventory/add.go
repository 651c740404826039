package inventory

import (
	"context"

	"satchel/server/logging"
	"satchel/server/logging/economy"
)

const (
	reasonInventoryFull = "inventory_full"
	reasonSlotOccupied  = "slot_occupied"
	reasonExceedsStack  = "exceeds_stack"
)

// AddItem places as much of inst as fits. Stackable items top up existing
// stacks of the same item before opening empty slots; non-stackable items take
// one empty slot per unit. remaining is the amount that could not be placed.
// Slots filled before running out of room stay filled.
//
// An instance without an item or with a non-positive amount is rejected
// without touching any slot.
func (inv *Inventory) AddItem(inst ItemInstance) (accepted bool, remaining int) {
	if !inst.valid() {
		return false, 0
	}

	var touched []int
	if inst.Item.Stackable() {
		accepted, remaining, touched = inv.addStackable(inst)
	} else {
		accepted, remaining, touched = inv.addSingles(inst)
	}

	placed := inst.Amount - remaining
	if len(touched) > 0 {
		inv.committed()
		inv.record(MetricItemsAdded, placed)
		inv.event(func(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef) {
			economy.ItemsGranted(ctx, pub, tick, actor, economy.ItemsGrantedPayload{
				ItemID:   inst.Item.ID,
				Quantity: placed,
				Slots:    touched,
			}, nil)
		})
	}
	if !accepted {
		inv.record(MetricItemsRejected, remaining)
		inv.event(func(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef) {
			economy.ItemGrantFailed(ctx, pub, tick, actor, economy.ItemGrantFailedPayload{
				ItemID:    inst.Item.ID,
				Quantity:  inst.Amount,
				Remaining: remaining,
				Reason:    reasonInventoryFull,
			}, nil)
		})
	}
	return accepted, remaining
}

// addStackable merges into free stacks first, then fills empty slots, until
// nothing is left to place or neither kind of slot remains.
func (inv *Inventory) addStackable(inst ItemInstance) (bool, int, []int) {
	item := inst.Item
	left := inst.Amount
	var touched []int

	for left > 0 {
		if index, ok := inv.FindFreeStack(item); ok {
			merged := inv.slots[index].instance.Amount + left
			if merged > item.MaxStackSize {
				inv.setAmount(index, item.MaxStackSize)
				left = merged - item.MaxStackSize
			} else {
				inv.setAmount(index, merged)
				left = 0
			}
			touched = append(touched, index)
			continue
		}

		index, ok := inv.FindEmptySlot()
		if !ok {
			return false, left, touched
		}
		amount := min(left, item.MaxStackSize)
		inv.put(index, ItemInstance{Item: item, Amount: amount, Dynamic: inst.Dynamic.Clone()})
		left -= amount
		touched = append(touched, index)
	}
	return true, 0, touched
}

func (inv *Inventory) addSingles(inst ItemInstance) (bool, int, []int) {
	left := inst.Amount
	var touched []int
	for left > 0 {
		index, ok := inv.FindEmptySlot()
		if !ok {
			return false, left, touched
		}
		inv.put(index, ItemInstance{Item: inst.Item, Amount: 1, Dynamic: inst.Dynamic.Clone()})
		left--
		touched = append(touched, index)
	}
	return true, 0, touched
}

// AddItemToIndex places inst into slot index only; it never spills into other
// slots. An empty target takes the instance when it fits in one stack. A
// target holding the same item absorbs as much as fits; in that case remaining
// is reported as the absolute difference between the incoming amount and the
// amount the slot held before, which is not the true overflow in general.
// Any other target rejects with remaining equal to inst.Amount. An out of
// range index panics.
func (inv *Inventory) AddItemToIndex(inst ItemInstance, index int) (accepted bool, remaining int) {
	inv.mustIndex(index)
	if !inst.valid() {
		return false, 0
	}
	item := inst.Item
	slot := inv.slots[index]

	switch {
	case slot.Empty() && inst.Amount <= item.MaxStackSize:
		inv.put(index, inst.Clone())
		remaining = 0
	case slot.Holds(item):
		before := slot.instance.Amount
		merged := before + inst.Amount
		if merged > item.MaxStackSize {
			inv.setAmount(index, item.MaxStackSize)
			remaining = absInt(inst.Amount - before)
		} else {
			inv.setAmount(index, merged)
			remaining = 0
		}
	default:
		reason := reasonSlotOccupied
		if slot.Empty() {
			reason = reasonExceedsStack
		}
		inv.record(MetricItemsRejected, inst.Amount)
		inv.event(func(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef) {
			economy.ItemGrantFailed(ctx, pub, tick, actor, economy.ItemGrantFailedPayload{
				ItemID:    item.ID,
				Quantity:  inst.Amount,
				Remaining: inst.Amount,
				Reason:    reason,
			}, map[string]any{"slot": index})
		})
		return false, inst.Amount
	}

	inv.committed()
	placed := inv.slots[index].instance.Amount - slot.Amount()
	inv.record(MetricItemsAdded, placed)
	inv.event(func(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef) {
		economy.ItemsGranted(ctx, pub, tick, actor, economy.ItemsGrantedPayload{
			ItemID:   item.ID,
			Quantity: placed,
			Slots:    []int{index},
		}, nil)
	})
	return true, remaining
}

// IncreaseAmountAtIndex adds amount units to the occupied slot index when the
// result stays within the item's stack ceiling.
func (inv *Inventory) IncreaseAmountAtIndex(index, amount int) bool {
	inv.mustIndex(index)
	slot := inv.slots[index]
	if slot.Empty() || amount <= 0 {
		return false
	}
	item := slot.instance.Item
	if slot.instance.Amount+amount > item.MaxStackSize {
		return false
	}
	inv.setAmount(index, slot.instance.Amount+amount)
	inv.committed()
	inv.record(MetricItemsAdded, amount)
	inv.event(func(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef) {
		economy.ItemsGranted(ctx, pub, tick, actor, economy.ItemsGrantedPayload{
			ItemID:   item.ID,
			Quantity: amount,
			Slots:    []int{index},
		}, nil)
	})
	return true
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
