// Package inventory implements a fixed-capacity, slot-based item container.
//
// An Inventory is not safe for concurrent use; callers that share one across
// goroutines must serialize access themselves.
package inventory

import (
	"context"
	"fmt"

	"satchel/server/internal/catalog"
	"satchel/server/internal/telemetry"
	"satchel/server/logging"
)

// Metric keys recorded by every inventory.
const (
	MetricItemsAdded    = "inventory_items_added"
	MetricItemsRejected = "inventory_items_rejected"
	MetricItemsRemoved  = "inventory_items_removed"
	MetricSplits        = "inventory_splits"
)

// Inventory is an ordered sequence of exactly Size() slots.
type Inventory struct {
	slots []Slot

	listeners    []listener
	nextListener uint64
	version      uint64

	tx *transaction

	owner     logging.EntityRef
	publisher logging.Publisher
	metrics   telemetry.Metrics
}

// Option customises an Inventory at construction.
type Option func(*Inventory)

// WithPublisher routes economy events for this inventory to pub.
func WithPublisher(pub logging.Publisher) Option {
	return func(inv *Inventory) {
		if pub != nil {
			inv.publisher = pub
		}
	}
}

// WithMetrics records item counters into m.
func WithMetrics(m telemetry.Metrics) Option {
	return func(inv *Inventory) {
		if m != nil {
			inv.metrics = m
		}
	}
}

// WithOwner sets the actor reported on published events.
func WithOwner(id string) Option {
	return func(inv *Inventory) {
		inv.owner = logging.EntityRef{ID: id, Kind: logging.EntityKindInventory}
	}
}

// New returns an inventory with size empty slots. A negative size panics.
func New(size int, opts ...Option) *Inventory {
	if size < 0 {
		panic(fmt.Sprintf("inventory: negative size %d", size))
	}
	inv := &Inventory{
		slots:     make([]Slot, size),
		owner:     logging.EntityRef{Kind: logging.EntityKindInventory},
		publisher: logging.NopPublisher(),
		metrics:   telemetry.NopMetrics(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(inv)
		}
	}
	return inv
}

// Size returns the fixed slot count.
func (inv *Inventory) Size() int {
	return len(inv.slots)
}

// Version counts committed mutating calls.
func (inv *Inventory) Version() uint64 {
	return inv.version
}

// Owner returns the actor reference used on published events.
func (inv *Inventory) Owner() logging.EntityRef {
	return inv.owner
}

// Slot returns a copy of slot index. It panics when index is out of range.
func (inv *Inventory) Slot(index int) Slot {
	inv.mustIndex(index)
	return inv.slots[index].clone()
}

// Slots returns a copy of the whole slot sequence.
func (inv *Inventory) Slots() []Slot {
	out := make([]Slot, len(inv.slots))
	for i, slot := range inv.slots {
		out[i] = slot.clone()
	}
	return out
}

// IsIndexInBounds reports whether index addresses a slot.
func (inv *Inventory) IsIndexInBounds(index int) bool {
	return index >= 0 && index < len(inv.slots)
}

// IsSlotEmpty reports whether slot index holds nothing. It panics when index
// is out of range.
func (inv *Inventory) IsSlotEmpty(index int) bool {
	inv.mustIndex(index)
	return inv.slots[index].Empty()
}

// FindEmptySlot returns the lowest-index empty slot.
func (inv *Inventory) FindEmptySlot() (int, bool) {
	for i, slot := range inv.slots {
		if slot.Empty() {
			return i, true
		}
	}
	return -1, false
}

// FindFreeStack returns the lowest-index slot holding item below its stack
// ceiling. Only meaningful for stackable items.
func (inv *Inventory) FindFreeStack(item *catalog.Item) (int, bool) {
	if item == nil {
		return -1, false
	}
	for i, slot := range inv.slots {
		if slot.Holds(item) && slot.instance.Amount < item.MaxStackSize {
			return i, true
		}
	}
	return -1, false
}

// TotalAmount sums the amount of item across all slots.
func (inv *Inventory) TotalAmount(item *catalog.Item) int {
	if item == nil {
		return 0
	}
	total := 0
	for _, slot := range inv.slots {
		if slot.Holds(item) {
			total += slot.instance.Amount
		}
	}
	return total
}

// IndicesByCategory returns, in slot order, the indices of occupied slots
// whose item belongs to category. Empty slots are skipped.
func (inv *Inventory) IndicesByCategory(category catalog.Category) []int {
	indices := make([]int, 0)
	for i, slot := range inv.slots {
		if slot.Empty() || slot.instance.Item == nil {
			continue
		}
		if slot.instance.Item.Category == category {
			indices = append(indices, i)
		}
	}
	return indices
}

// OccupiedCount returns the number of non-empty slots.
func (inv *Inventory) OccupiedCount() int {
	n := 0
	for _, slot := range inv.slots {
		if !slot.Empty() {
			n++
		}
	}
	return n
}

func (inv *Inventory) mustIndex(index int) {
	if !inv.IsIndexInBounds(index) {
		panic(fmt.Sprintf("inventory: slot index %d out of range [0,%d)", index, len(inv.slots)))
	}
}

// put replaces slot index and notifies.
func (inv *Inventory) put(index int, inst ItemInstance) {
	inv.slots[index] = OccupiedSlot(inst)
	inv.notify(index)
}

// setAmount changes the amount of an occupied slot in place, keeping its dynamic state.
func (inv *Inventory) setAmount(index, amount int) {
	inv.slots[index].instance.Amount = amount
	inv.notify(index)
}

// clearSlot resets slot index to empty and notifies.
func (inv *Inventory) clearSlot(index int) {
	inv.slots[index] = EmptySlot()
	inv.notify(index)
}

func (inv *Inventory) committed() {
	if inv.tx != nil {
		inv.tx.dirty = true
		return
	}
	inv.version++
}

func (inv *Inventory) record(key string, delta int) {
	if delta <= 0 {
		return
	}
	inv.after(func() { inv.metrics.Add(key, uint64(delta)) })
}

// event publishes once the current call commits.
func (inv *Inventory) event(publish func(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef)) {
	inv.after(func() { publish(context.Background(), inv.publisher, inv.version, inv.owner) })
}

// after runs fn now, or when the enclosing Apply commits. Rolled back
// transactions discard it.
func (inv *Inventory) after(fn func()) {
	if inv.tx != nil {
		inv.tx.effects = append(inv.tx.effects, fn)
		return
	}
	fn()
}
