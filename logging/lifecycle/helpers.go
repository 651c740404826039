package lifecycle

import (
	"context"

	"satchel/server/logging"
)

const (
	// EventInventoryCreated is emitted when the hub registers a new inventory.
	EventInventoryCreated logging.EventType = "lifecycle.inventory_created"
	// EventInventoryDeleted is emitted when the hub drops an inventory.
	EventInventoryDeleted logging.EventType = "lifecycle.inventory_deleted"
)

// HubRef is the actor of every lifecycle event.
var HubRef = logging.EntityRef{ID: "hub", Kind: logging.EntityKindSystem}

// InventoryCreatedPayload captures the size of a new inventory.
type InventoryCreatedPayload struct {
	Slots int `json:"slots"`
}

// InventoryDeletedPayload captures what was held when an inventory was dropped.
type InventoryDeletedPayload struct {
	Occupied int    `json:"occupied"`
	Version  uint64 `json:"version"`
}

// InventoryCreated publishes an inventory creation event.
func InventoryCreated(ctx context.Context, pub logging.Publisher, inventoryID string, payload InventoryCreatedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventInventoryCreated,
		Actor:    HubRef,
		Targets:  []logging.EntityRef{{ID: inventoryID, Kind: logging.EntityKindInventory}},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}

// InventoryDeleted publishes an inventory removal event.
func InventoryDeleted(ctx context.Context, pub logging.Publisher, inventoryID string, payload InventoryDeletedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventInventoryDeleted,
		Tick:     payload.Version,
		Actor:    HubRef,
		Targets:  []logging.EntityRef{{ID: inventoryID, Kind: logging.EntityKindInventory}},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}
