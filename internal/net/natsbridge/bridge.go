// Package natsbridge republishes hub slot changes onto NATS subjects so other
// services can follow inventories without holding a websocket.
package natsbridge

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"satchel/server/internal/net/proto"
	"satchel/server/internal/telemetry"
)

// DefaultSubjectPrefix is used when Config.SubjectPrefix is empty.
const DefaultSubjectPrefix = "satchel.inventory"

// Metric keys recorded by the bridge.
const (
	MetricPublished     = "nats_published"
	MetricPublishErrors = "nats_publish_errors"
)

// Publisher is the subset of *nats.Conn the bridge needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

type Config struct {
	SubjectPrefix string
	Logger        telemetry.Logger
	Metrics       telemetry.Metrics
}

// Bridge forwards SlotChanged values as JSON messages on
// <prefix>.<inventoryID>.slot.
type Bridge struct {
	conn    Publisher
	prefix  string
	logger  telemetry.Logger
	metrics telemetry.Metrics
}

func New(conn Publisher, cfg Config) *Bridge {
	prefix := strings.TrimSuffix(strings.TrimSpace(cfg.SubjectPrefix), ".")
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(func(string, ...any) {})
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}
	return &Bridge{conn: conn, prefix: prefix, logger: logger, metrics: metrics}
}

// Subject returns the subject slot changes of inventoryID are published on.
func (b *Bridge) Subject(inventoryID string) string {
	return fmt.Sprintf("%s.%s.slot", b.prefix, inventoryID)
}

// Forward publishes one change. Failures are logged and counted; the hub is
// never blocked on the broker.
func (b *Bridge) Forward(change proto.SlotChanged) {
	if b == nil || b.conn == nil {
		return
	}
	data, err := json.Marshal(change)
	if err != nil {
		b.logger.Printf("failed to marshal slot change for %s: %v", change.InventoryID, err)
		b.metrics.Add(MetricPublishErrors, 1)
		return
	}
	if err := b.conn.Publish(b.Subject(change.InventoryID), data); err != nil {
		b.logger.Printf("failed to publish slot change for %s: %v", change.InventoryID, err)
		b.metrics.Add(MetricPublishErrors, 1)
		return
	}
	b.metrics.Add(MetricPublished, 1)
}

// Attach subscribes the bridge to every change of the source. The returned
// func detaches it.
func (b *Bridge) Attach(source interface {
	OnSlotChanged(func(proto.SlotChanged)) func()
}) func() {
	return source.OnSlotChanged(b.Forward)
}

// Connect dials url with reconnect handling that reports through logger.
func Connect(url string, logger telemetry.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = telemetry.LoggerFunc(func(string, ...any) {})
	}
	conn, err := nats.Connect(url,
		nats.Name("satchel"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Printf("nats disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Printf("nats reconnected to %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	return conn, nil
}
