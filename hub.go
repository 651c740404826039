package server

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"satchel/server/internal/catalog"
	"satchel/server/internal/inventory"
	"satchel/server/internal/net/proto"
	"satchel/server/internal/telemetry"
	"satchel/server/logging"
	"satchel/server/logging/lifecycle"
)

// Sentinel errors returned by the hub. Transports map them to client errors.
var (
	ErrUnknownInventory = errors.New("unknown inventory")
	ErrUnknownItem      = catalog.ErrUnknownItem
	ErrUnknownCommand   = errors.New("unknown command")
	ErrInvalidSize      = errors.New("invalid inventory size")
	ErrIndexOutOfRange  = errors.New("slot index out of range")
	ErrInvalidAmount    = errors.New("invalid amount")
)

// Metric keys recorded by the hub.
const (
	MetricHubInventories   = "hub_inventories"
	MetricHubCommands      = "hub_commands"
	MetricHubDroppedUpdate = "hub_dropped_updates"
)

const (
	defaultSlots      = 36
	defaultMaxSlots   = 256
	defaultWatchQueue = 64
)

// HubConfig wires the hub's collaborators.
type HubConfig struct {
	Catalog      *catalog.Catalog
	Publisher    logging.Publisher
	Metrics      telemetry.Metrics
	Logger       telemetry.Logger
	DefaultSlots int
	MaxSlots     int
}

// DefaultHubConfig returns a config backed by the built-in catalog.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		Catalog:      catalog.Default(),
		DefaultSlots: defaultSlots,
		MaxSlots:     defaultMaxSlots,
	}
}

// Hub owns every live inventory and fans slot changes out to watchers.
type Hub struct {
	mu         sync.Mutex
	dispatchMu sync.Mutex

	cfg         HubConfig
	inventories map[string]*entry
	observers   map[uint64]func(proto.SlotChanged)
	nextWatch   uint64

	// pending collects changes raised while mu is held; flushed by unlockAndDispatch.
	pending []proto.SlotChanged
}

type entry struct {
	id          string
	inv         *inventory.Inventory
	watchers    map[uint64]*watcher
	unsubscribe func()
}

// watcher is closed under dispatchMu so a dispatch never sends on a closed channel.
type watcher struct {
	ch     chan proto.SlotChanged
	closed bool
}

func (w *watcher) close() {
	if w.closed {
		return
	}
	w.closed = true
	close(w.ch)
}

// NewHub builds a hub. Zero-valued fields of cfg fall back to defaults.
func NewHub(cfg HubConfig) *Hub {
	defaults := DefaultHubConfig()
	if cfg.Catalog == nil {
		cfg.Catalog = defaults.Catalog
	}
	if cfg.Publisher == nil {
		cfg.Publisher = logging.NopPublisher()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.NopMetrics()
	}
	if cfg.Logger == nil {
		cfg.Logger = telemetry.LoggerFunc(func(string, ...any) {})
	}
	if cfg.MaxSlots <= 0 {
		cfg.MaxSlots = defaults.MaxSlots
	}
	if cfg.DefaultSlots <= 0 {
		cfg.DefaultSlots = defaults.DefaultSlots
	}
	if cfg.DefaultSlots > cfg.MaxSlots {
		cfg.DefaultSlots = cfg.MaxSlots
	}
	return &Hub{
		cfg:         cfg,
		inventories: make(map[string]*entry),
		observers:   make(map[uint64]func(proto.SlotChanged)),
	}
}

// Catalog exposes the item definitions the hub resolves commands against.
func (h *Hub) Catalog() *catalog.Catalog {
	return h.cfg.Catalog
}

// Create registers a new empty inventory. A size of zero selects the
// configured default.
func (h *Hub) Create(size int) (proto.Snapshot, error) {
	if size == 0 {
		size = h.cfg.DefaultSlots
	}
	if size < 0 || size > h.cfg.MaxSlots {
		return proto.Snapshot{}, fmt.Errorf("%w: %d (max %d)", ErrInvalidSize, size, h.cfg.MaxSlots)
	}

	id := uuid.NewString()
	inv := inventory.New(size,
		inventory.WithOwner(id),
		inventory.WithPublisher(h.cfg.Publisher),
		inventory.WithMetrics(h.cfg.Metrics),
	)
	e := &entry{id: id, inv: inv, watchers: make(map[uint64]*watcher)}
	e.unsubscribe = inv.Subscribe(func(index int) {
		// Runs with h.mu held: every mutation goes through Execute.
		h.pending = append(h.pending, proto.SlotChanged{
			InventoryID: id,
			Slot:        slotView(index, inv.Slot(index)),
		})
	})

	h.mu.Lock()
	h.inventories[id] = e
	count := len(h.inventories)
	snapshot := snapshotOf(e)
	h.mu.Unlock()

	h.cfg.Metrics.Store(MetricHubInventories, uint64(count))
	lifecycle.InventoryCreated(context.Background(), h.cfg.Publisher, id, lifecycle.InventoryCreatedPayload{Slots: size})
	h.cfg.Logger.Printf("created inventory %s with %d slots", id, size)
	return snapshot, nil
}

// Snapshot returns the current state of inventory id.
func (h *Hub) Snapshot(id string) (proto.Snapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.inventories[id]
	if !ok {
		return proto.Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownInventory, id)
	}
	return snapshotOf(e), nil
}

// IDs returns every live inventory id in sorted order.
func (h *Hub) IDs() []string {
	h.mu.Lock()
	ids := make([]string, 0, len(h.inventories))
	for id := range h.inventories {
		ids = append(ids, id)
	}
	h.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// Delete drops inventory id and closes its watcher channels.
func (h *Hub) Delete(id string) error {
	h.mu.Lock()
	e, ok := h.inventories[id]
	if !ok {
		h.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownInventory, id)
	}
	delete(h.inventories, id)
	count := len(h.inventories)
	final := lifecycle.InventoryDeletedPayload{Occupied: e.inv.OccupiedCount(), Version: e.inv.Version()}
	e.unsubscribe()
	watchers := e.watchers
	e.watchers = nil
	h.mu.Unlock()

	h.dispatchMu.Lock()
	for _, w := range watchers {
		w.close()
	}
	h.dispatchMu.Unlock()

	h.cfg.Metrics.Store(MetricHubInventories, uint64(count))
	lifecycle.InventoryDeleted(context.Background(), h.cfg.Publisher, id, final)
	h.cfg.Logger.Printf("deleted inventory %s", id)
	return nil
}

// Watch streams slot changes of inventory id. buffer bounds the channel;
// updates that do not fit are dropped and counted, so a slow reader should
// re-fetch a snapshot. The channel is closed by cancel or Delete.
func (h *Hub) Watch(id string, buffer int) (<-chan proto.SlotChanged, func(), error) {
	if buffer <= 0 {
		buffer = defaultWatchQueue
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.inventories[id]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownInventory, id)
	}
	h.nextWatch++
	key := h.nextWatch
	w := &watcher{ch: make(chan proto.SlotChanged, buffer)}
	e.watchers[key] = w

	cancel := func() {
		h.mu.Lock()
		delete(e.watchers, key)
		h.mu.Unlock()
		h.dispatchMu.Lock()
		w.close()
		h.dispatchMu.Unlock()
	}
	return w.ch, cancel, nil
}

// OnSlotChanged registers fn for changes of every inventory. fn runs outside
// the hub lock, in change order. It must not block for long or call back into
// the hub.
func (h *Hub) OnSlotChanged(fn func(proto.SlotChanged)) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	h.mu.Lock()
	h.nextWatch++
	key := h.nextWatch
	h.observers[key] = fn
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		delete(h.observers, key)
		h.mu.Unlock()
	}
}

// unlockAndDispatch releases mu and delivers the changes collected while it
// was held. dispatchMu is taken before mu is released so deliveries keep the
// order of mutations.
func (h *Hub) unlockAndDispatch() {
	changes := h.pending
	h.pending = nil
	if len(changes) == 0 {
		h.mu.Unlock()
		return
	}

	targets := make(map[string][]*watcher)
	for i, change := range changes {
		e, ok := h.inventories[change.InventoryID]
		if ok {
			changes[i].Version = e.inv.Version()
		}
		if _, seen := targets[change.InventoryID]; seen {
			continue
		}
		if !ok {
			targets[change.InventoryID] = nil
			continue
		}
		watchers := make([]*watcher, 0, len(e.watchers))
		for _, w := range e.watchers {
			watchers = append(watchers, w)
		}
		targets[change.InventoryID] = watchers
	}
	observers := make([]func(proto.SlotChanged), 0, len(h.observers))
	keys := make([]uint64, 0, len(h.observers))
	for key := range h.observers {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, key := range keys {
		observers = append(observers, h.observers[key])
	}

	h.dispatchMu.Lock()
	h.mu.Unlock()
	defer h.dispatchMu.Unlock()

	dropped := 0
	for _, change := range changes {
		for _, w := range targets[change.InventoryID] {
			if w.closed {
				continue
			}
			select {
			case w.ch <- change:
			default:
				dropped++
			}
		}
		for _, fn := range observers {
			fn(change)
		}
	}
	if dropped > 0 {
		h.cfg.Metrics.Add(MetricHubDroppedUpdate, uint64(dropped))
	}
}

// DiagnosticsSnapshot summarizes every live inventory.
func (h *Hub) DiagnosticsSnapshot() []InventoryDiagnostics {
	h.mu.Lock()
	out := make([]InventoryDiagnostics, 0, len(h.inventories))
	for id, e := range h.inventories {
		out = append(out, InventoryDiagnostics{
			ID:       id,
			Size:     e.inv.Size(),
			Occupied: e.inv.OccupiedCount(),
			Version:  e.inv.Version(),
			Watchers: len(e.watchers),
		})
	}
	h.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// InventoryDiagnostics is the per-inventory row of the diagnostics endpoint.
type InventoryDiagnostics struct {
	ID       string `json:"id"`
	Size     int    `json:"size"`
	Occupied int    `json:"occupied"`
	Version  uint64 `json:"version"`
	Watchers int    `json:"watchers"`
}
