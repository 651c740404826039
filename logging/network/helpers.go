package network

import (
	"context"
	"strconv"

	"satchel/server/logging"
)

const (
	// EventSessionOpened is emitted when a websocket session attaches to an inventory.
	EventSessionOpened logging.EventType = "network.session_opened"
	// EventSessionClosed is emitted when a websocket session ends.
	EventSessionClosed logging.EventType = "network.session_closed"
	// EventCommandFailed is emitted when a session command is malformed or addresses nothing.
	EventCommandFailed logging.EventType = "network.command_failed"
)

// SessionPayload identifies the inventory a session is bound to.
type SessionPayload struct {
	InventoryID string `json:"inventoryId"`
	Version     uint64 `json:"version"`
	Commands    int    `json:"commands,omitempty"`
}

// CommandFailedPayload carries the rejected command kind and the error text.
type CommandFailedPayload struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// SessionRef names a session by its remote address.
func SessionRef(remote string) logging.EntityRef {
	return logging.EntityRef{ID: remote, Kind: logging.EntityKindSession}
}

// SessionOpened publishes a session start event.
func SessionOpened(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload SessionPayload) {
	publish(ctx, pub, EventSessionOpened, logging.SeverityInfo, payload.Version, actor, payload, "")
}

// SessionClosed publishes a session end event.
func SessionClosed(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload SessionPayload) {
	publish(ctx, pub, EventSessionClosed, logging.SeverityInfo, payload.Version, actor, payload, "")
}

// CommandFailed publishes a warning for a command the hub refused.
func CommandFailed(ctx context.Context, pub logging.Publisher, version uint64, actor logging.EntityRef, seq uint64, payload CommandFailedPayload) {
	publish(ctx, pub, EventCommandFailed, logging.SeverityWarn, version, actor, payload, strconv.FormatUint(seq, 10))
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, severity logging.Severity, tick uint64, actor logging.EntityRef, payload any, commandID string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:      eventType,
		Tick:      tick,
		Actor:     actor,
		Severity:  severity,
		Category:  logging.CategoryNetwork,
		Payload:   payload,
		CommandID: commandID,
	})
}
