package proto

import (
	"encoding/json"
	"fmt"
)

const (
	// Version tracks the wire-protocol revision expected by clients.
	Version = 1
)

// Server frame type identifiers.
const (
	TypeSnapshot  = "snapshot"
	TypeSlot      = "slot"
	TypeResult    = "result"
	TypeHeartbeat = "heartbeat"
	TypeError     = "error"
)

// Client message type identifiers.
const (
	TypeCommand = "command"
)

// Command kinds accepted by the hub.
const (
	CommandAdd             = "add"
	CommandAddToIndex      = "add_to_index"
	CommandRemoveAt        = "remove_at"
	CommandRemove          = "remove"
	CommandRemoveFromIndex = "remove_from_index"
	CommandSplit           = "split"
	CommandIncrease        = "increase"
	CommandClear           = "clear"
	CommandGrantAll        = "grant_all"
)

// CommandKinds lists every kind in a stable order.
func CommandKinds() []string {
	return []string{
		CommandAdd,
		CommandAddToIndex,
		CommandRemoveAt,
		CommandRemove,
		CommandRemoveFromIndex,
		CommandSplit,
		CommandIncrease,
		CommandClear,
		CommandGrantAll,
	}
}

// Grant is one item and amount inside a grant_all command.
type Grant struct {
	Item   string `json:"item"`
	Amount int    `json:"amount"`
}

// Command is a single inventory operation requested over HTTP or websocket.
// Target is only read by split; when nil the split lands in the first empty slot.
type Command struct {
	Seq        uint64  `json:"seq,omitempty"`
	Kind       string  `json:"kind"`
	Item       string  `json:"item,omitempty"`
	Amount     int     `json:"amount,omitempty"`
	Index      int     `json:"index,omitempty"`
	Target     *int    `json:"target,omitempty"`
	Durability *int    `json:"durability,omitempty"`
	Grants     []Grant `json:"grants,omitempty"`
}

// CommandResult reports the outcome of a Command. Error is set only when the
// command could not be interpreted; a capacity rejection is Accepted=false.
type CommandResult struct {
	Seq       uint64 `json:"seq,omitempty"`
	Kind      string `json:"kind"`
	Accepted  bool   `json:"accepted"`
	Remaining int    `json:"remaining,omitempty"`
	Index     *int   `json:"index,omitempty"`
	Version   uint64 `json:"version"`
	Error     string `json:"error,omitempty"`
}

// SlotView is the rendered state of one slot.
type SlotView struct {
	Index      int      `json:"index"`
	Empty      bool     `json:"empty"`
	ItemID     string   `json:"itemId,omitempty"`
	Name       string   `json:"name,omitempty"`
	Category   string   `json:"category,omitempty"`
	Amount     int      `json:"amount,omitempty"`
	MaxStack   int      `json:"maxStack,omitempty"`
	Durability *float64 `json:"durability,omitempty"`
}

// Snapshot is the full state of one inventory.
type Snapshot struct {
	ID      string     `json:"id"`
	Size    int        `json:"size"`
	Version uint64     `json:"version"`
	Slots   []SlotView `json:"slots"`
}

// SlotChanged announces a new value for one slot.
type SlotChanged struct {
	InventoryID string   `json:"inventoryId"`
	Version     uint64   `json:"version"`
	Slot        SlotView `json:"slot"`
}

// ClientMessage captures an inbound websocket message from the client.
type ClientMessage struct {
	Ver     int      `json:"ver,omitempty"`
	Type    string   `json:"type"`
	Seq     uint64   `json:"seq,omitempty"`
	Command *Command `json:"command,omitempty"`
	SentAt  int64    `json:"sentAt,omitempty"`
}

// DecodeClientMessage converts raw websocket payloads into a structured message.
func DecodeClientMessage(payload []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, err
	}
	if msg.Ver == 0 {
		msg.Ver = Version
	}
	if msg.Ver != Version {
		return msg, fmt.Errorf("unsupported client protocol version %d", msg.Ver)
	}
	if msg.Type == "" {
		return msg, fmt.Errorf("missing message type")
	}
	if msg.Command != nil && msg.Command.Seq == 0 {
		msg.Command.Seq = msg.Seq
	}
	return msg, nil
}

// ServerFrame is every message the server pushes over a websocket. Exactly one
// of the payload fields is set, matching Type.
type ServerFrame struct {
	Ver        int            `json:"ver"`
	Type       string         `json:"type"`
	Seq        uint64         `json:"seq,omitempty"`
	Snapshot   *Snapshot      `json:"snapshot,omitempty"`
	Slot       *SlotChanged   `json:"slot,omitempty"`
	Result     *CommandResult `json:"result,omitempty"`
	Error      string         `json:"error,omitempty"`
	ServerTime int64          `json:"serverTime,omitempty"`
	ClientTime int64          `json:"clientTime,omitempty"`
}

// EncodeSnapshot renders the initial state frame.
func EncodeSnapshot(snapshot Snapshot) ([]byte, error) {
	return json.Marshal(ServerFrame{Ver: Version, Type: TypeSnapshot, Snapshot: &snapshot})
}

// EncodeSlotChanged renders a slot update frame.
func EncodeSlotChanged(change SlotChanged) ([]byte, error) {
	return json.Marshal(ServerFrame{Ver: Version, Type: TypeSlot, Slot: &change})
}

// EncodeResult renders a command result frame echoing the command sequence.
func EncodeResult(result CommandResult) ([]byte, error) {
	return json.Marshal(ServerFrame{Ver: Version, Type: TypeResult, Seq: result.Seq, Result: &result})
}

// EncodeHeartbeat renders a heartbeat acknowledgement.
func EncodeHeartbeat(serverTime, clientTime int64) ([]byte, error) {
	return json.Marshal(ServerFrame{Ver: Version, Type: TypeHeartbeat, ServerTime: serverTime, ClientTime: clientTime})
}

// EncodeError renders an error frame for a message that could not be handled.
func EncodeError(seq uint64, message string) ([]byte, error) {
	return json.Marshal(ServerFrame{Ver: Version, Type: TypeError, Seq: seq, Error: message})
}

// DecodeServerFrame parses a server frame; used by clients and tests.
func DecodeServerFrame(payload []byte) (ServerFrame, error) {
	var frame ServerFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		return frame, err
	}
	if frame.Ver != Version {
		return frame, fmt.Errorf("unsupported server protocol version %d", frame.Ver)
	}
	return frame, nil
}
