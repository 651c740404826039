package natsbridge

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"satchel/server"
	"satchel/server/internal/catalog"
	"satchel/server/internal/net/proto"
	"satchel/server/internal/telemetry"
	"satchel/server/logging"
)

type published struct {
	subject string
	data    []byte
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []published
	err      error
}

func (p *recordingPublisher) Publish(subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, published{subject: subject, data: append([]byte(nil), data...)})
	return nil
}

func (p *recordingPublisher) snapshot() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.messages...)
}

func TestSubjectUsesPrefix(t *testing.T) {
	if got := New(nil, Config{}).Subject("abc"); got != "satchel.inventory.abc.slot" {
		t.Fatalf("expected default subject, got %q", got)
	}
	if got := New(nil, Config{SubjectPrefix: "game.bags."}).Subject("abc"); got != "game.bags.abc.slot" {
		t.Fatalf("expected trimmed custom prefix, got %q", got)
	}
}

func TestBridgePublishesOneMessagePerSlotChange(t *testing.T) {
	hub := server.NewHub(server.DefaultHubConfig())
	created, err := hub.Create(3)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	conn := &recordingPublisher{}
	metrics := &logging.Metrics{}
	bridge := New(conn, Config{Metrics: telemetry.WrapMetrics(metrics)})
	detach := bridge.Attach(hub)

	if _, err := hub.Execute(created.ID, proto.Command{Kind: proto.CommandAdd, Item: catalog.ItemHealthPotion, Amount: 15}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	detach()
	if _, err := hub.Execute(created.ID, proto.Command{Kind: proto.CommandClear}); err != nil {
		t.Fatalf("execute: %v", err)
	}

	messages := conn.snapshot()
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	for i, msg := range messages {
		if msg.subject != bridge.Subject(created.ID) {
			t.Fatalf("unexpected subject %q", msg.subject)
		}
		var change proto.SlotChanged
		if err := json.Unmarshal(msg.data, &change); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if change.Slot.Index != i || change.Version != 1 {
			t.Fatalf("expected slot %d at version 1, got %+v", i, change)
		}
	}
	if got := metrics.Snapshot()[MetricPublished]; got != 2 {
		t.Fatalf("expected 2 published, got %d", got)
	}
}

func TestBridgeCountsPublishFailures(t *testing.T) {
	metrics := &logging.Metrics{}
	var logged int
	bridge := New(&recordingPublisher{err: errors.New("no responders")}, Config{
		Metrics: telemetry.WrapMetrics(metrics),
		Logger:  telemetry.LoggerFunc(func(string, ...any) { logged++ }),
	})

	bridge.Forward(proto.SlotChanged{InventoryID: "inv", Slot: proto.SlotView{Index: 0, Empty: true}})
	if got := metrics.Snapshot()[MetricPublishErrors]; got != 1 {
		t.Fatalf("expected 1 publish error, got %d", got)
	}
	if logged != 1 {
		t.Fatalf("expected failure to be logged once, got %d", logged)
	}
}
