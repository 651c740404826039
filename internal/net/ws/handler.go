package ws

import (
	"context"
	"errors"
	nethttp "net/http"
	"time"

	"github.com/gorilla/websocket"

	"satchel/server"
	"satchel/server/internal/net/proto"
	"satchel/server/internal/telemetry"
	"satchel/server/logging"
	"satchel/server/logging/network"
)

// MetricSessions counts accepted websocket sessions.
const MetricSessions = "ws_sessions"

const (
	defaultWatchBuffer = 256
	defaultWriteWait   = 10 * time.Second
)

type HandlerConfig struct {
	Logger      telemetry.Logger
	Metrics     telemetry.Metrics
	Publisher   logging.Publisher
	WatchBuffer int
	WriteWait   time.Duration
}

// Handler serves one websocket session per connection, bound to a single
// inventory named by the inventory query parameter.
type Handler struct {
	hub         *server.Hub
	logger      telemetry.Logger
	metrics     telemetry.Metrics
	publisher   logging.Publisher
	upgrader    websocket.Upgrader
	watchBuffer int
	writeWait   time.Duration
}

func NewHandler(hub *server.Hub, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(func(string, ...any) {})
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}
	watchBuffer := cfg.WatchBuffer
	if watchBuffer <= 0 {
		watchBuffer = defaultWatchBuffer
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	writeWait := cfg.WriteWait
	if writeWait <= 0 {
		writeWait = defaultWriteWait
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		hub:         hub,
		logger:      logger,
		metrics:     metrics,
		publisher:   publisher,
		upgrader:    upgrader,
		watchBuffer: watchBuffer,
		writeWait:   writeWait,
	}
}

func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	inventoryID := r.URL.Query().Get("inventory")
	if inventoryID == "" {
		nethttp.Error(w, "missing inventory", nethttp.StatusBadRequest)
		return
	}

	// Watch before the snapshot so no change falls between them. Changes at or
	// below the snapshot version may repeat and are safe to apply again.
	changes, cancel, err := h.hub.Watch(inventoryID, h.watchBuffer)
	if err != nil {
		if errors.Is(err, server.ErrUnknownInventory) {
			nethttp.Error(w, "unknown inventory", nethttp.StatusNotFound)
			return
		}
		nethttp.Error(w, err.Error(), nethttp.StatusInternalServerError)
		return
	}
	defer cancel()

	snapshot, err := h.hub.Snapshot(inventoryID)
	if err != nil {
		nethttp.Error(w, "unknown inventory", nethttp.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %s: %v", inventoryID, err)
		return
	}
	sess := newSession(conn, h.writeWait)
	h.metrics.Add(MetricSessions, 1)

	data, err := proto.EncodeSnapshot(snapshot)
	if err != nil {
		h.logger.Printf("failed to marshal snapshot for %s: %v", inventoryID, err)
		sess.Close(websocket.CloseInternalServerErr, "snapshot failed")
		return
	}
	if err := sess.WriteMessage(websocket.TextMessage, data); err != nil {
		conn.Close()
		return
	}

	actor := network.SessionRef(r.RemoteAddr)
	network.SessionOpened(r.Context(), h.publisher, actor, network.SessionPayload{InventoryID: inventoryID, Version: snapshot.Version})

	go h.forward(inventoryID, sess, changes)
	commands, version := h.readLoop(inventoryID, sess, actor)
	if version < snapshot.Version {
		version = snapshot.Version
	}
	network.SessionClosed(context.Background(), h.publisher, actor, network.SessionPayload{
		InventoryID: inventoryID,
		Version:     version,
		Commands:    commands,
	})
}

// forward pushes slot frames until the watch ends. A watch closed by Delete
// ends the session.
func (h *Handler) forward(inventoryID string, sess *session, changes <-chan proto.SlotChanged) {
	for change := range changes {
		data, err := proto.EncodeSlotChanged(change)
		if err != nil {
			h.logger.Printf("failed to marshal slot change for %s: %v", inventoryID, err)
			continue
		}
		if err := sess.WriteMessage(websocket.TextMessage, data); err != nil {
			sess.conn.Close()
			return
		}
	}
	sess.Close(websocket.CloseGoingAway, "inventory closed")
}

// readLoop serves client frames until the connection fails. It reports how
// many commands ran and the last inventory version a result carried.
func (h *Handler) readLoop(inventoryID string, sess *session, actor logging.EntityRef) (commands int, version uint64) {
	defer sess.conn.Close()
	for {
		_, payload, err := sess.conn.ReadMessage()
		if err != nil {
			return
		}

		msg, err := proto.DecodeClientMessage(payload)
		if err != nil {
			h.logger.Printf("discarding malformed message for %s: %v", inventoryID, err)
			if !h.write(sess, func() ([]byte, error) { return proto.EncodeError(msg.Seq, err.Error()) }) {
				return
			}
			continue
		}

		switch msg.Type {
		case proto.TypeCommand:
			if msg.Command == nil {
				if !h.write(sess, func() ([]byte, error) { return proto.EncodeError(msg.Seq, "missing command") }) {
					return
				}
				continue
			}
			if cached, duplicate := sess.replay(msg.Command.Seq); duplicate {
				if cached == nil {
					if !h.write(sess, func() ([]byte, error) { return encodeStale(msg.Command.Seq) }) {
						return
					}
					continue
				}
				if sess.WriteMessage(websocket.TextMessage, cached) != nil {
					return
				}
				continue
			}

			// A refused command still produces a result frame carrying the error.
			result, err := h.hub.Execute(inventoryID, *msg.Command)
			commands++
			version = max(version, result.Version)
			if err != nil {
				network.CommandFailed(context.Background(), h.publisher, result.Version, actor, msg.Command.Seq,
					network.CommandFailedPayload{Kind: msg.Command.Kind, Error: err.Error()})
			}
			data, err := proto.EncodeResult(result)
			if err != nil {
				h.logger.Printf("failed to marshal result for %s: %v", inventoryID, err)
				continue
			}
			sess.remember(msg.Command.Seq, data)
			if sess.WriteMessage(websocket.TextMessage, data) != nil {
				return
			}

		case proto.TypeHeartbeat:
			now := time.Now()
			if !h.write(sess, func() ([]byte, error) { return proto.EncodeHeartbeat(now.UnixMilli(), msg.SentAt) }) {
				return
			}

		default:
			h.logger.Printf("unknown message type %q for %s", msg.Type, inventoryID)
			if !h.write(sess, func() ([]byte, error) { return proto.EncodeError(msg.Seq, "unknown message type") }) {
				return
			}
		}
	}
}

// write encodes and sends a frame. It returns false when the connection is gone.
func (h *Handler) write(sess *session, encode func() ([]byte, error)) bool {
	data, err := encode()
	if err != nil {
		h.logger.Printf("failed to marshal frame: %v", err)
		return true
	}
	return sess.WriteMessage(websocket.TextMessage, data) == nil
}
