package logging

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Metrics is a process-wide set of named counters. The zero value is ready to use.
type Metrics struct {
	counters sync.Map // string -> *atomic.Uint64
}

func (m *Metrics) counter(key string) *atomic.Uint64 {
	if existing, ok := m.counters.Load(key); ok {
		return existing.(*atomic.Uint64)
	}
	created, _ := m.counters.LoadOrStore(key, new(atomic.Uint64))
	return created.(*atomic.Uint64)
}

// TelemetryAdd increments the named counter by delta.
func (m *Metrics) TelemetryAdd(key string, delta uint64) {
	if m == nil || key == "" {
		return
	}
	m.counter(key).Add(delta)
}

// TelemetryStore overwrites the named counter.
func (m *Metrics) TelemetryStore(key string, value uint64) {
	if m == nil || key == "" {
		return
	}
	m.counter(key).Store(value)
}

// Snapshot copies the current counter values.
func (m *Metrics) Snapshot() map[string]uint64 {
	out := make(map[string]uint64)
	if m == nil {
		return out
	}
	m.counters.Range(func(key, value any) bool {
		out[key.(string)] = value.(*atomic.Uint64).Load()
		return true
	})
	return out
}

// Keys returns the registered counter names in sorted order.
func (m *Metrics) Keys() []string {
	snapshot := m.Snapshot()
	keys := make([]string, 0, len(snapshot))
	for key := range snapshot {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
