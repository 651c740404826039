package economy

import (
	"context"

	"satchel/server/logging"
)

const (
	// EventItemsGranted is emitted when units of an item are placed into an inventory.
	EventItemsGranted logging.EventType = "economy.items_granted"
	// EventItemGrantFailed is emitted when an inventory could not place every unit offered to it.
	EventItemGrantFailed logging.EventType = "economy.item_grant_failed"
	// EventItemsRemoved is emitted whenever units leave an inventory.
	EventItemsRemoved logging.EventType = "economy.items_removed"
	// EventStackSplit is emitted when a stack is split off a slot.
	EventStackSplit logging.EventType = "economy.stack_split"
	// EventInventoryCleared is emitted when every slot of an inventory is emptied.
	EventInventoryCleared logging.EventType = "economy.inventory_cleared"
)

// ItemsGrantedPayload describes a successful placement.
type ItemsGrantedPayload struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
	Slots    []int  `json:"slots,omitempty"`
}

// ItemGrantFailedPayload describes the attempted item grant.
type ItemGrantFailedPayload struct {
	ItemID    string `json:"itemId"`
	Quantity  int    `json:"quantity,omitempty"`
	Remaining int    `json:"remaining"`
	Reason    string `json:"reason,omitempty"`
}

// ItemsRemovedPayload describes a removal.
type ItemsRemovedPayload struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
	Slot     *int   `json:"slot,omitempty"`
}

// StackSplitPayload describes a split.
type StackSplitPayload struct {
	ItemID   string `json:"itemId"`
	Slot     int    `json:"slot"`
	Quantity int    `json:"quantity"`
	Left     int    `json:"left"`
}

// InventoryClearedPayload describes a clear.
type InventoryClearedPayload struct {
	Slots int `json:"slots"`
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, severity logging.Severity, tick uint64, actor logging.EntityRef, payload any, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Tick:     tick,
		Actor:    actor,
		Severity: severity,
		Category: logging.CategoryEconomy,
		Payload:  payload,
		Extra:    extra,
	})
}

// ItemsGranted publishes a successful placement.
func ItemsGranted(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ItemsGrantedPayload, extra map[string]any) {
	publish(ctx, pub, EventItemsGranted, logging.SeverityDebug, tick, actor, payload, extra)
}

// ItemGrantFailed publishes an event for a failed inventory grant.
func ItemGrantFailed(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ItemGrantFailedPayload, extra map[string]any) {
	publish(ctx, pub, EventItemGrantFailed, logging.SeverityWarn, tick, actor, payload, extra)
}

// ItemsRemoved publishes a removal.
func ItemsRemoved(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ItemsRemovedPayload, extra map[string]any) {
	publish(ctx, pub, EventItemsRemoved, logging.SeverityDebug, tick, actor, payload, extra)
}

// StackSplit publishes a split.
func StackSplit(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload StackSplitPayload, extra map[string]any) {
	publish(ctx, pub, EventStackSplit, logging.SeverityDebug, tick, actor, payload, extra)
}

// InventoryCleared publishes a clear.
func InventoryCleared(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload InventoryClearedPayload, extra map[string]any) {
	publish(ctx, pub, EventInventoryCleared, logging.SeverityInfo, tick, actor, payload, extra)
}
