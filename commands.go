package server

import (
	"context"
	"errors"
	"fmt"

	"satchel/server/internal/catalog"
	"satchel/server/internal/inventory"
	"satchel/server/internal/net/proto"
	"satchel/server/logging/economy"
)

// errRejected aborts an Apply when a step cannot complete; it is reported as
// Accepted=false rather than as an error.
var errRejected = errors.New("rejected")

const reasonStackFull = "stack_full"

// Execute applies cmd to inventory id. The returned error is non-nil only when
// the command is malformed or addresses something that does not exist; an
// operation the inventory declines is reported through result.Accepted.
func (h *Hub) Execute(id string, cmd proto.Command) (proto.CommandResult, error) {
	result := proto.CommandResult{Seq: cmd.Seq, Kind: cmd.Kind}

	h.mu.Lock()
	e, ok := h.inventories[id]
	if !ok {
		h.mu.Unlock()
		err := fmt.Errorf("%w: %s", ErrUnknownInventory, id)
		result.Error = err.Error()
		return result, err
	}
	err := h.executeLocked(e.inv, cmd, &result)
	result.Version = e.inv.Version()
	h.unlockAndDispatch()

	if err != nil {
		result.Error = err.Error()
		return result, err
	}
	h.cfg.Metrics.Add(MetricHubCommands, 1)
	return result, nil
}

func (h *Hub) executeLocked(inv *inventory.Inventory, cmd proto.Command, result *proto.CommandResult) error {
	switch cmd.Kind {
	case proto.CommandAdd:
		inst, err := h.instance(cmd.Item, cmd.Amount, cmd.Durability)
		if err != nil {
			return err
		}
		result.Accepted, result.Remaining = inv.AddItem(inst)

	case proto.CommandAddToIndex:
		if err := checkIndex(inv, cmd.Index); err != nil {
			return err
		}
		inst, err := h.instance(cmd.Item, cmd.Amount, cmd.Durability)
		if err != nil {
			return err
		}
		if slot := inv.Slot(cmd.Index); slot.Holds(inst.Item) && !fits(slot, inst) {
			h.topUp(inv, cmd.Index, inst, result)
			break
		}
		result.Accepted, result.Remaining = inv.AddItemToIndex(inst, cmd.Index)

	case proto.CommandRemoveAt:
		if err := checkIndex(inv, cmd.Index); err != nil {
			return err
		}
		result.Accepted = inv.RemoveItemAtIndex(cmd.Index)

	case proto.CommandRemove:
		item, err := h.resolve(cmd.Item)
		if err != nil {
			return err
		}
		if cmd.Amount <= 0 {
			return fmt.Errorf("%w: %d", ErrInvalidAmount, cmd.Amount)
		}
		result.Accepted = inv.RemoveItem(item, cmd.Amount)

	case proto.CommandRemoveFromIndex:
		if err := checkIndex(inv, cmd.Index); err != nil {
			return err
		}
		if cmd.Amount <= 0 {
			return fmt.Errorf("%w: %d", ErrInvalidAmount, cmd.Amount)
		}
		result.Accepted = inv.RemoveItemFromIndex(cmd.Index, cmd.Amount)

	case proto.CommandSplit:
		return splitInto(inv, cmd, result)

	case proto.CommandIncrease:
		if err := checkIndex(inv, cmd.Index); err != nil {
			return err
		}
		if cmd.Amount <= 0 {
			return fmt.Errorf("%w: %d", ErrInvalidAmount, cmd.Amount)
		}
		result.Accepted = inv.IncreaseAmountAtIndex(cmd.Index, cmd.Amount)

	case proto.CommandClear:
		inv.Clear()
		result.Accepted = true

	case proto.CommandGrantAll:
		return h.grantAll(inv, cmd.Grants, result)

	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Kind)
	}
	return nil
}

// splitInto moves cmd.Amount units from cmd.Index to cmd.Target, or to the
// first empty slot when no target is given. The destination must hold the
// whole split; otherwise nothing changes.
func splitInto(inv *inventory.Inventory, cmd proto.Command, result *proto.CommandResult) error {
	if err := checkIndex(inv, cmd.Index); err != nil {
		return err
	}
	if cmd.Amount <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, cmd.Amount)
	}
	if cmd.Target != nil {
		if err := checkIndex(inv, *cmd.Target); err != nil {
			return err
		}
	}

	dst := -1
	err := inv.Apply(func(inv *inventory.Inventory) error {
		if cmd.Target != nil {
			dst = *cmd.Target
		} else if index, found := firstEmptyExcept(inv, cmd.Index); found {
			dst = index
		} else {
			return errRejected
		}
		if dst == cmd.Index {
			return errRejected
		}
		split, ok := inv.SplitStack(cmd.Index, cmd.Amount)
		if !ok {
			return errRejected
		}
		if !fits(inv.Slot(dst), split) {
			return errRejected
		}
		if accepted, _ := inv.AddItemToIndex(split, dst); !accepted {
			return errRejected
		}
		return nil
	})
	if errors.Is(err, errRejected) {
		result.Accepted = false
		return nil
	}
	if err != nil {
		return err
	}
	result.Accepted = true
	result.Index = &dst
	return nil
}

// firstEmptyExcept returns the lowest empty slot other than skip.
func firstEmptyExcept(inv *inventory.Inventory, skip int) (int, bool) {
	for i := 0; i < inv.Size(); i++ {
		if i != skip && inv.IsSlotEmpty(i) {
			return i, true
		}
	}
	return -1, false
}

// fits reports whether slot can absorb all of inst without overflow.
func fits(slot inventory.Slot, inst inventory.ItemInstance) bool {
	if slot.Empty() {
		return inst.Amount <= inst.Item.MaxStackSize
	}
	return slot.Holds(inst.Item) && slot.Amount()+inst.Amount <= inst.Item.MaxStackSize
}

// topUp fills the stack at index to its ceiling with units of inst and
// reports the units that did not fit. A full stack takes nothing.
func (h *Hub) topUp(inv *inventory.Inventory, index int, inst inventory.ItemInstance, result *proto.CommandResult) {
	room := inst.Item.MaxStackSize - inv.Slot(index).Amount()
	if room <= 0 {
		result.Accepted, result.Remaining = false, inst.Amount
		economy.ItemGrantFailed(context.Background(), h.cfg.Publisher, inv.Version(), inv.Owner(), economy.ItemGrantFailedPayload{
			ItemID:    inst.Item.ID,
			Quantity:  inst.Amount,
			Remaining: inst.Amount,
			Reason:    reasonStackFull,
		}, nil)
		h.cfg.Metrics.Add(inventory.MetricItemsRejected, uint64(inst.Amount))
		return
	}
	result.Accepted = inv.IncreaseAmountAtIndex(index, room)
	result.Remaining = inst.Amount - room
	h.cfg.Metrics.Add(inventory.MetricItemsRejected, uint64(result.Remaining))
}

// grantAll adds every grant or none of them.
func (h *Hub) grantAll(inv *inventory.Inventory, grants []proto.Grant, result *proto.CommandResult) error {
	if len(grants) == 0 {
		return fmt.Errorf("%w: no grants", ErrInvalidAmount)
	}
	instances := make([]inventory.ItemInstance, 0, len(grants))
	for _, grant := range grants {
		inst, err := h.instance(grant.Item, grant.Amount, nil)
		if err != nil {
			return err
		}
		instances = append(instances, inst)
	}

	err := inv.Apply(func(inv *inventory.Inventory) error {
		for _, inst := range instances {
			accepted, remaining := inv.AddItem(inst)
			if !accepted {
				result.Remaining = remaining
				return errRejected
			}
		}
		return nil
	})
	if errors.Is(err, errRejected) {
		result.Accepted = false
		return nil
	}
	if err != nil {
		return err
	}
	result.Accepted = true
	return nil
}

func (h *Hub) resolve(itemID string) (*catalog.Item, error) {
	return h.cfg.Catalog.Resolve(itemID)
}

// instance builds what a command adds. Equipment starts at full durability
// unless the command names a value, which is clamped to the catalog ceiling.
func (h *Hub) instance(itemID string, amount int, durability *int) (inventory.ItemInstance, error) {
	item, err := h.resolve(itemID)
	if err != nil {
		return inventory.ItemInstance{}, err
	}
	if amount <= 0 {
		return inventory.ItemInstance{}, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	if !item.Category.IsEquipment() || item.Durability <= 0 {
		return inventory.NewInstance(item, amount), nil
	}
	inst := inventory.NewEquipment(item)
	inst.Amount = amount
	if durability != nil {
		inst.Dynamic.Durability = min(max(*durability, 0), item.Durability)
	}
	return inst, nil
}

func checkIndex(inv *inventory.Inventory, index int) error {
	if !inv.IsIndexInBounds(index) {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, index, inv.Size())
	}
	return nil
}

func slotView(index int, slot inventory.Slot) proto.SlotView {
	view := proto.SlotView{Index: index, Empty: slot.Empty()}
	inst, ok := slot.Instance()
	if !ok {
		return view
	}
	view.ItemID = inst.Item.ID
	view.Name = inst.Item.Name
	view.Category = string(inst.Item.Category)
	view.Amount = inst.Amount
	view.MaxStack = inst.Item.MaxStackSize
	if fraction, ok := inst.DurabilityFraction(); ok {
		view.Durability = &fraction
	}
	return view
}

func snapshotOf(e *entry) proto.Snapshot {
	slots := e.inv.Slots()
	views := make([]proto.SlotView, len(slots))
	for i, slot := range slots {
		views[i] = slotView(i, slot)
	}
	return proto.Snapshot{
		ID:      e.id,
		Size:    e.inv.Size(),
		Version: e.inv.Version(),
		Slots:   views,
	}
}
