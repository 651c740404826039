package inventory

import (
	"slices"
	"testing"
)

func TestAddItemToIndexEmptySlot(t *testing.T) {
	items := newTestItems(t)
	inv := New(3)

	accepted, remaining := inv.AddItemToIndex(NewInstance(items.a, 4), 2)
	if !accepted || remaining != 0 {
		t.Fatalf("expected accepted with 0 remaining, got %t/%d", accepted, remaining)
	}
	assertSlot(t, inv, 2, items.a, 4)
	assertSlot(t, inv, 0, nil, 0)

	accepted, remaining = inv.AddItemToIndex(NewInstance(items.a, 11), 0)
	if accepted || remaining != 11 {
		t.Fatalf("expected oversized placement rejected with 11 remaining, got %t/%d", accepted, remaining)
	}
	assertSlot(t, inv, 0, nil, 0)
}

func TestAddItemToIndexRejectsDifferentItem(t *testing.T) {
	items := newTestItems(t)
	inv := New(2)
	inv.AddItemToIndex(NewInstance(items.a, 4), 0)
	seen := recordNotifications(inv)

	accepted, remaining := inv.AddItemToIndex(NewInstance(items.c, 3), 0)
	if accepted || remaining != 3 {
		t.Fatalf("expected rejection with 3 remaining, got %t/%d", accepted, remaining)
	}
	assertSlot(t, inv, 0, items.a, 4)
	if len(*seen) != 0 {
		t.Fatalf("expected no notifications, got %v", *seen)
	}
}

func TestAddItemToIndexMergeReportsAbsoluteDifference(t *testing.T) {
	items := newTestItems(t)
	tests := []struct {
		name          string
		held          int
		incoming      int
		wantAmount    int
		wantRemaining int
	}{
		{name: "fits", held: 3, incoming: 5, wantAmount: 8, wantRemaining: 0},
		{name: "exact", held: 4, incoming: 6, wantAmount: 10, wantRemaining: 0},
		{name: "overflow incoming smaller", held: 7, incoming: 5, wantAmount: 10, wantRemaining: 2},
		{name: "overflow incoming larger", held: 2, incoming: 9, wantAmount: 10, wantRemaining: 7},
		{name: "overflow near full", held: 9, incoming: 8, wantAmount: 10, wantRemaining: 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			inv := New(1)
			inv.AddItemToIndex(NewInstance(items.a, tc.held), 0)

			accepted, remaining := inv.AddItemToIndex(NewInstance(items.a, tc.incoming), 0)
			if !accepted {
				t.Fatalf("expected merge to be accepted")
			}
			if remaining != tc.wantRemaining {
				t.Fatalf("expected remaining %d, got %d", tc.wantRemaining, remaining)
			}
			assertSlot(t, inv, 0, items.a, tc.wantAmount)
		})
	}
}

func TestAddItemToIndexOutOfRangePanics(t *testing.T) {
	items := newTestItems(t)
	inv := New(2)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for index 5")
		}
	}()
	inv.AddItemToIndex(NewInstance(items.a, 1), 5)
}

func TestIncreaseAmountAtIndex(t *testing.T) {
	items := newTestItems(t)
	inv := New(2)
	inv.AddItemToIndex(NewInstance(items.a, 6), 0)

	if !inv.IncreaseAmountAtIndex(0, 4) {
		t.Fatalf("expected increase to the ceiling to succeed")
	}
	assertSlot(t, inv, 0, items.a, 10)
	if inv.IncreaseAmountAtIndex(0, 1) {
		t.Fatalf("expected increase past the ceiling to fail")
	}
	if inv.IncreaseAmountAtIndex(1, 1) {
		t.Fatalf("expected increase on an empty slot to fail")
	}
	if inv.IncreaseAmountAtIndex(0, 0) {
		t.Fatalf("expected non-positive increase to fail")
	}
	assertSlot(t, inv, 0, items.a, 10)
}

func TestRemoveItemByTypeScenario(t *testing.T) {
	items := newTestItems(t)
	inv := New(3)
	inv.AddItemToIndex(NewInstance(items.a, 3), 0)
	inv.AddItemToIndex(NewInstance(items.a, 4), 1)
	seen := recordNotifications(inv)

	if !inv.RemoveItem(items.a, 5) {
		t.Fatalf("expected removal of 5 to succeed")
	}
	assertSlot(t, inv, 0, nil, 0)
	assertSlot(t, inv, 1, items.a, 2)
	if !slices.Equal(*seen, []int{0, 1}) {
		t.Fatalf("expected notifications [0 1], got %v", *seen)
	}
}

func TestRemoveItemInsufficientLeavesInventoryUntouched(t *testing.T) {
	items := newTestItems(t)
	inv := New(3)
	inv.AddItemToIndex(NewInstance(items.a, 3), 0)
	inv.AddItemToIndex(NewInstance(items.a, 4), 2)
	before := inv.Slots()
	version := inv.Version()

	for _, amount := range []int{8, 0, -1} {
		if inv.RemoveItem(items.a, amount) {
			t.Fatalf("expected RemoveItem(%d) to fail", amount)
		}
	}
	if inv.RemoveItem(nil, 1) {
		t.Fatalf("expected RemoveItem(nil) to fail")
	}
	if !slotsEqual(before, inv.Slots()) || inv.Version() != version {
		t.Fatalf("expected failed removals to leave the inventory untouched")
	}
}

func TestRemoveItemExactTotalEmptiesAllStacks(t *testing.T) {
	items := newTestItems(t)
	inv := New(4)
	inv.AddItem(NewInstance(items.a, 23))
	inv.AddItem(NewInstance(items.c, 2))

	if !inv.RemoveItem(items.a, 23) {
		t.Fatalf("expected removal of the full total to succeed")
	}
	if got := inv.TotalAmount(items.a); got != 0 {
		t.Fatalf("expected no a left, got %d", got)
	}
	if got := inv.TotalAmount(items.c); got != 2 {
		t.Fatalf("expected c untouched, got %d", got)
	}
	for i, slot := range inv.Slots() {
		if !slot.Empty() && slot.Amount() == 0 {
			t.Fatalf("slot %d left occupied with zero amount", i)
		}
	}
}

func TestRemoveItemAtIndexAndFromIndex(t *testing.T) {
	items := newTestItems(t)
	inv := New(3)
	inv.AddItemToIndex(NewInstance(items.a, 8), 0)
	inv.AddItemToIndex(NewInstance(items.c, 5), 1)

	if !inv.RemoveItemFromIndex(0, 3) {
		t.Fatalf("expected partial removal to succeed")
	}
	assertSlot(t, inv, 0, items.a, 5)
	if !inv.RemoveItemFromIndex(0, 9) {
		t.Fatalf("expected over-removal to empty the slot")
	}
	assertSlot(t, inv, 0, nil, 0)
	if inv.RemoveItemFromIndex(0, 1) {
		t.Fatalf("expected removal from an empty slot to fail")
	}

	if !inv.RemoveItemAtIndex(1) {
		t.Fatalf("expected RemoveItemAtIndex to succeed")
	}
	assertSlot(t, inv, 1, nil, 0)
	if inv.RemoveItemAtIndex(1) {
		t.Fatalf("expected RemoveItemAtIndex on an empty slot to fail")
	}
}

func TestClearNotifiesOccupiedSlotsInOrder(t *testing.T) {
	items := newTestItems(t)
	inv := New(5)
	inv.AddItemToIndex(NewInstance(items.a, 1), 3)
	inv.AddItemToIndex(NewInstance(items.c, 1), 1)
	seen := recordNotifications(inv)

	inv.Clear()
	if inv.OccupiedCount() != 0 {
		t.Fatalf("expected every slot empty, got %d occupied", inv.OccupiedCount())
	}
	if !slices.Equal(*seen, []int{1, 3}) {
		t.Fatalf("expected notifications [1 3], got %v", *seen)
	}

	version := inv.Version()
	inv.Clear()
	if inv.Version() != version || len(*seen) != 2 {
		t.Fatalf("expected clearing an empty inventory to do nothing")
	}
}

func TestSplitStackScenario(t *testing.T) {
	items := newTestItems(t)
	inv := New(2)
	inv.AddItemToIndex(NewInstance(items.a, 10), 0)

	split, ok := inv.SplitStack(0, 4)
	if !ok {
		t.Fatalf("expected split to succeed")
	}
	if split.Item != items.a || split.Amount != 4 {
		t.Fatalf("expected split of a x4, got %s", split)
	}
	assertSlot(t, inv, 0, items.a, 6)

	rest, ok := inv.SplitStack(0, 6)
	if !ok || rest.Amount != 6 {
		t.Fatalf("expected splitting the remainder to succeed, got %s (%t)", rest, ok)
	}
	assertSlot(t, inv, 0, nil, 0)
}

func TestSplitStackRejections(t *testing.T) {
	items := newTestItems(t)
	inv := New(3)
	inv.AddItemToIndex(NewInstance(items.a, 5), 0)
	inv.AddItemToIndex(NewEquipment(items.b), 1)
	before := inv.Slots()

	for _, tc := range []struct {
		index  int
		amount int
	}{{0, 0}, {0, -2}, {0, 6}, {2, 1}} {
		if _, ok := inv.SplitStack(tc.index, tc.amount); ok {
			t.Fatalf("expected SplitStack(%d, %d) to fail", tc.index, tc.amount)
		}
	}
	if !slotsEqual(before, inv.Slots()) {
		t.Fatalf("expected rejected splits to leave slots untouched")
	}
}

func TestSplitStackCopiesDynamicState(t *testing.T) {
	items := newTestItems(t)
	inv := New(2)
	inv.AddItemToIndex(NewEquipment(items.b), 0)

	split, ok := inv.SplitStack(0, 1)
	if !ok {
		t.Fatalf("expected whole-unit split of equipment to succeed")
	}
	if split.Dynamic == nil || split.Dynamic.Durability != items.b.Durability {
		t.Fatalf("expected split to carry durability %d, got %+v", items.b.Durability, split.Dynamic)
	}
	assertSlot(t, inv, 0, nil, 0)
}

func TestSplitRoundTripPreservesTotal(t *testing.T) {
	items := newTestItems(t)
	inv := New(2)
	inv.AddItemToIndex(NewInstance(items.a, 9), 0)

	split, ok := inv.SplitStack(0, 3)
	if !ok {
		t.Fatalf("expected split to succeed")
	}
	accepted, remaining := inv.AddItemToIndex(split, 0)
	if !accepted || remaining != 0 {
		t.Fatalf("expected split to merge back, got %t/%d", accepted, remaining)
	}
	assertSlot(t, inv, 0, items.a, 9)
}
