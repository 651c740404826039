package inventory

import (
	"math/rand"
	"slices"
	"strings"
	"testing"

	"satchel/server/internal/catalog"
)

type testItems struct {
	catalog *catalog.Catalog
	a       *catalog.Item
	b       *catalog.Item
	c       *catalog.Item
	d       *catalog.Item
}

func newTestItems(t *testing.T) testItems {
	t.Helper()
	defs := []catalog.ItemParams{
		{ID: "a", Category: catalog.CategoryMaterial, MaxStackSize: 10},
		{ID: "b", Category: catalog.CategoryWeapon, MaxStackSize: 1, Durability: 50},
		{ID: "c", Category: catalog.CategoryConsumable, MaxStackSize: 20},
		{ID: "d", Category: catalog.CategoryMaterial, MaxStackSize: 3},
	}
	items := make([]catalog.Item, 0, len(defs))
	for _, params := range defs {
		item, err := catalog.NewItem(params)
		if err != nil {
			t.Fatalf("failed to define %s: %v", params.ID, err)
		}
		items = append(items, item)
	}
	c, err := catalog.New(items...)
	if err != nil {
		t.Fatalf("failed to build catalog: %v", err)
	}
	return testItems{
		catalog: c,
		a:       c.MustLookup("a"),
		b:       c.MustLookup("b"),
		c:       c.MustLookup("c"),
		d:       c.MustLookup("d"),
	}
}

func assertSlot(t *testing.T, inv *Inventory, index int, item *catalog.Item, amount int) {
	t.Helper()
	slot := inv.Slot(index)
	if item == nil {
		if !slot.Empty() {
			t.Fatalf("expected slot %d to be empty, got %s", index, slot)
		}
		return
	}
	if !slot.Holds(item) {
		t.Fatalf("expected slot %d to hold %s, got %s", index, item.ID, slot)
	}
	if slot.Amount() != amount {
		t.Fatalf("expected slot %d amount %d, got %d", index, amount, slot.Amount())
	}
}

func assertCeiling(t *testing.T, inv *Inventory) {
	t.Helper()
	for i, slot := range inv.Slots() {
		if slot.Empty() {
			continue
		}
		if slot.Amount() <= 0 || slot.Amount() > slot.Item().MaxStackSize {
			t.Fatalf("slot %d violates stack ceiling: %s (max %d)", i, slot, slot.Item().MaxStackSize)
		}
	}
}

func recordNotifications(inv *Inventory) *[]int {
	var seen []int
	inv.Subscribe(func(index int) { seen = append(seen, index) })
	return &seen
}

func TestNewInventoryStartsEmpty(t *testing.T) {
	inv := New(4)
	if inv.Size() != 4 {
		t.Fatalf("expected size 4, got %d", inv.Size())
	}
	for i := 0; i < inv.Size(); i++ {
		if !inv.IsSlotEmpty(i) {
			t.Fatalf("expected slot %d to start empty", i)
		}
	}
	if index, ok := inv.FindEmptySlot(); !ok || index != 0 {
		t.Fatalf("expected first empty slot 0, got %d (%t)", index, ok)
	}
	if inv.OccupiedCount() != 0 {
		t.Fatalf("expected no occupied slots, got %d", inv.OccupiedCount())
	}
}

func TestNewInventoryNegativeSizePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for negative size")
		}
	}()
	New(-1)
}

func TestIndexBounds(t *testing.T) {
	inv := New(2)
	for _, tc := range []struct {
		index int
		want  bool
	}{{-1, false}, {0, true}, {1, true}, {2, false}} {
		if got := inv.IsIndexInBounds(tc.index); got != tc.want {
			t.Fatalf("IsIndexInBounds(%d) = %t, want %t", tc.index, got, tc.want)
		}
	}

	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic for out of range slot access")
		}
		if msg, ok := r.(string); !ok || !strings.Contains(msg, "out of range") {
			t.Fatalf("expected out of range panic, got %v", r)
		}
	}()
	inv.IsSlotEmpty(2)
}

func TestAddItemSimpleMergeScenario(t *testing.T) {
	items := newTestItems(t)
	inv := New(2)

	accepted, remaining := inv.AddItem(NewInstance(items.a, 7))
	if !accepted || remaining != 0 {
		t.Fatalf("expected first add accepted with 0 remaining, got %t/%d", accepted, remaining)
	}
	assertSlot(t, inv, 0, items.a, 7)

	accepted, remaining = inv.AddItem(NewInstance(items.a, 5))
	if !accepted || remaining != 0 {
		t.Fatalf("expected second add accepted with 0 remaining, got %t/%d", accepted, remaining)
	}
	assertSlot(t, inv, 0, items.a, 10)
	assertSlot(t, inv, 1, items.a, 2)
}

func TestAddItemOverflowRejection(t *testing.T) {
	items := newTestItems(t)
	inv := New(1)
	inv.AddItem(NewInstance(items.a, 10))
	version := inv.Version()

	accepted, remaining := inv.AddItem(NewInstance(items.a, 1))
	if accepted || remaining != 1 {
		t.Fatalf("expected rejection with remaining 1, got %t/%d", accepted, remaining)
	}
	assertSlot(t, inv, 0, items.a, 10)
	if inv.Version() != version {
		t.Fatalf("expected version to stay %d, got %d", version, inv.Version())
	}
}

func TestAddItemNonStackableFill(t *testing.T) {
	items := newTestItems(t)
	inv := New(2)

	accepted, remaining := inv.AddItem(NewInstance(items.b, 2))
	if !accepted || remaining != 0 {
		t.Fatalf("expected accepted with 0 remaining, got %t/%d", accepted, remaining)
	}
	assertSlot(t, inv, 0, items.b, 1)
	assertSlot(t, inv, 1, items.b, 1)
}

func TestAddItemPartialPlacementKeepsFilledSlots(t *testing.T) {
	items := newTestItems(t)
	inv := New(2)
	seen := recordNotifications(inv)

	accepted, remaining := inv.AddItem(NewInstance(items.d, 8))
	if accepted || remaining != 2 {
		t.Fatalf("expected rejection with remaining 2, got %t/%d", accepted, remaining)
	}
	assertSlot(t, inv, 0, items.d, 3)
	assertSlot(t, inv, 1, items.d, 3)
	if !slices.Equal(*seen, []int{0, 1}) {
		t.Fatalf("expected notifications [0 1], got %v", *seen)
	}

	accepted, remaining = inv.AddItem(NewInstance(items.b, 3))
	if accepted || remaining != 3 {
		t.Fatalf("expected non-stackable rejection with remaining 3, got %t/%d", accepted, remaining)
	}
}

func TestAddItemCascadeNotifiesInMutationOrder(t *testing.T) {
	items := newTestItems(t)
	inv := New(5)
	inv.AddItem(NewInstance(items.c, 1))
	inv.AddItemToIndex(NewInstance(items.a, 9), 2)
	inv.AddItemToIndex(NewInstance(items.a, 8), 3)
	seen := recordNotifications(inv)

	accepted, remaining := inv.AddItem(NewInstance(items.a, 15))
	if !accepted || remaining != 0 {
		t.Fatalf("expected accepted, got %t/%d", accepted, remaining)
	}
	// 1 tops up slot 2, 2 top up slot 3, then 10 and 2 open slots 1 and 4.
	assertSlot(t, inv, 2, items.a, 10)
	assertSlot(t, inv, 3, items.a, 10)
	assertSlot(t, inv, 1, items.a, 10)
	assertSlot(t, inv, 4, items.a, 2)
	if !slices.Equal(*seen, []int{2, 3, 1, 4}) {
		t.Fatalf("expected notifications [2 3 1 4], got %v", *seen)
	}
}

func TestAddItemHugeAmountTinyStacks(t *testing.T) {
	items := newTestItems(t)
	inv := New(1000)

	accepted, remaining := inv.AddItem(NewInstance(items.d, 5000))
	if accepted || remaining != 5000-3000 {
		t.Fatalf("expected rejection with remaining 2000, got %t/%d", accepted, remaining)
	}
	if got := inv.TotalAmount(items.d); got != 3000 {
		t.Fatalf("expected 3000 units placed, got %d", got)
	}
	assertCeiling(t, inv)
}

func TestAddItemRejectsInvalidInstances(t *testing.T) {
	items := newTestItems(t)
	inv := New(2)
	seen := recordNotifications(inv)

	for _, inst := range []ItemInstance{{}, NewInstance(items.a, 0), NewInstance(items.a, -3)} {
		accepted, remaining := inv.AddItem(inst)
		if accepted || remaining != 0 {
			t.Fatalf("expected invalid instance %v to be rejected with 0 remaining, got %t/%d", inst, accepted, remaining)
		}
	}
	if len(*seen) != 0 {
		t.Fatalf("expected no notifications, got %v", *seen)
	}
}

func TestAddItemDynamicStateOnMerge(t *testing.T) {
	items := newTestItems(t)
	inv := New(3)

	first := NewInstance(items.a, 6)
	first.Dynamic = &Dynamic{Durability: 1}
	inv.AddItem(first)

	second := NewInstance(items.a, 9)
	second.Dynamic = &Dynamic{Durability: 2}
	inv.AddItem(second)

	kept, _ := inv.Slot(0).Instance()
	if kept.Dynamic == nil || kept.Dynamic.Durability != 1 {
		t.Fatalf("expected retained stack to keep its dynamic state, got %+v", kept.Dynamic)
	}
	overflow, _ := inv.Slot(1).Instance()
	if overflow.Amount != 5 {
		t.Fatalf("expected overflow of 5 in slot 1, got %d", overflow.Amount)
	}
	if overflow.Dynamic == nil || overflow.Dynamic.Durability != 2 {
		t.Fatalf("expected overflow to carry incoming dynamic state, got %+v", overflow.Dynamic)
	}

	second.Dynamic.Durability = 99
	overflow, _ = inv.Slot(1).Instance()
	if overflow.Dynamic.Durability != 2 {
		t.Fatalf("expected slot dynamic state not to alias caller's value")
	}
}

func TestAddItemConservation(t *testing.T) {
	items := newTestItems(t)
	rng := rand.New(rand.NewSource(7))
	inv := New(64)

	total := 0
	for i := 0; i < 40; i++ {
		amount := rng.Intn(12) + 1
		accepted, remaining := inv.AddItem(NewInstance(items.a, amount))
		if !accepted || remaining != 0 {
			t.Fatalf("expected add %d to be accepted, got %t/%d", i, accepted, remaining)
		}
		total += amount
		assertCeiling(t, inv)
	}
	if got := inv.TotalAmount(items.a); got != total {
		t.Fatalf("expected total %d, got %d", total, got)
	}
}

func TestQueriesDoNotMutate(t *testing.T) {
	items := newTestItems(t)
	inv := New(4)
	inv.AddItem(NewInstance(items.a, 14))
	inv.AddItem(NewInstance(items.b, 1))
	seen := recordNotifications(inv)
	version := inv.Version()
	before := inv.Slots()

	for i := 0; i < 2; i++ {
		if index, ok := inv.FindEmptySlot(); !ok || index != 3 {
			t.Fatalf("expected empty slot 3, got %d (%t)", index, ok)
		}
		if index, ok := inv.FindFreeStack(items.a); !ok || index != 1 {
			t.Fatalf("expected free stack at 1, got %d (%t)", index, ok)
		}
		if _, ok := inv.FindFreeStack(items.c); ok {
			t.Fatalf("expected no free stack for c")
		}
		if got := inv.TotalAmount(items.a); got != 14 {
			t.Fatalf("expected total 14, got %d", got)
		}
	}

	if !slotsEqual(before, inv.Slots()) || inv.Version() != version || len(*seen) != 0 {
		t.Fatalf("expected queries to leave inventory untouched")
	}
}

func TestIndicesByCategorySkipsEmptySlots(t *testing.T) {
	items := newTestItems(t)
	inv := New(6)
	inv.AddItemToIndex(NewInstance(items.a, 1), 1)
	inv.AddItemToIndex(NewEquipment(items.b), 3)
	inv.AddItemToIndex(NewInstance(items.d, 2), 5)

	if got := inv.IndicesByCategory(catalog.CategoryMaterial); !slices.Equal(got, []int{1, 5}) {
		t.Fatalf("expected material indices [1 5], got %v", got)
	}
	if got := inv.IndicesByCategory(catalog.CategoryWeapon); !slices.Equal(got, []int{3}) {
		t.Fatalf("expected weapon indices [3], got %v", got)
	}
	if got := inv.IndicesByCategory(catalog.CategoryQuest); len(got) != 0 {
		t.Fatalf("expected no quest indices, got %v", got)
	}
}

func TestDurabilityFraction(t *testing.T) {
	items := newTestItems(t)
	sword := NewEquipment(items.b)
	sword.Dynamic.Durability = 25
	if fraction, ok := sword.DurabilityFraction(); !ok || fraction != 0.5 {
		t.Fatalf("expected fraction 0.5, got %v (%t)", fraction, ok)
	}
	if _, ok := NewInstance(items.a, 3).DurabilityFraction(); ok {
		t.Fatalf("expected no durability for materials")
	}
}
