package logging

import (
	"context"
	"errors"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Metric keys recorded by the router when metrics are attached.
const (
	MetricEventsRouted  = "logging_events_routed"
	MetricEventsDropped = "logging_events_dropped"
	MetricSinkFailures  = "logging_sink_failures"
)

const (
	defaultQueueSize = 512
	maxRetryShift    = 5
)

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

// Sink receives routed events on its own goroutine.
type Sink interface {
	Write(Event) error
	Close(context.Context) error
}

type NamedSink struct {
	Name string
	Sink Sink
}

type RouterOption func(*Router)

// WithClock stamps events that arrive without a time.
func WithClock(clock Clock) RouterOption {
	return func(r *Router) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithFallback sets the logger used to report drops and sink failures.
func WithFallback(logger *log.Logger) RouterOption {
	return func(r *Router) {
		if logger != nil {
			r.fallback = logger
		}
	}
}

// WithMetrics mirrors routing counters into metrics.
func WithMetrics(metrics *Metrics) RouterOption {
	return func(r *Router) {
		r.metrics = metrics
	}
}

// Router fans events out to the configured sinks without blocking publishers.
// Events that do not fit the queue are dropped and counted.
type Router struct {
	cfg      Config
	fields   map[string]any
	clock    Clock
	fallback *log.Logger
	metrics  *Metrics

	queue  chan Event
	stop   chan struct{}
	closed atomic.Bool
	lanes  []*lane
	wg     sync.WaitGroup

	routed      atomic.Uint64
	dropped     atomic.Uint64
	nextDropLog atomic.Int64
}

type RouterStats struct {
	EventsTotal  uint64
	DroppedTotal uint64
	SinkDropped  map[string]uint64
	SinkFailures map[string]uint64
}

func NewRouter(cfg Config, namedSinks []NamedSink, opts ...RouterOption) *Router {
	queueSize := cfg.BufferSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	r := &Router{
		cfg:      cfg,
		fields:   cfg.CloneFields(),
		clock:    ClockFunc(time.Now),
		fallback: log.New(os.Stderr, "[logging] ", log.LstdFlags),
		queue:    make(chan Event, queueSize),
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	laneSize := min(max(queueSize, 32), 1024)
	for _, named := range namedSinks {
		if named.Sink == nil {
			continue
		}
		r.lanes = append(r.lanes, &lane{
			name:   named.Name,
			sink:   named.Sink,
			events: make(chan Event, laneSize),
			router: r,
		})
	}

	r.wg.Add(1 + len(r.lanes))
	go r.dispatch()
	for _, l := range r.lanes {
		go func(l *lane) {
			defer r.wg.Done()
			l.run()
		}(l)
	}
	return r
}

func (r *Router) dispatch() {
	defer r.wg.Done()
	defer func() {
		for _, l := range r.lanes {
			close(l.events)
		}
	}()
	for {
		select {
		case event := <-r.queue:
			r.route(event)
		case <-r.stop:
			for {
				select {
				case event := <-r.queue:
					r.route(event)
				default:
					return
				}
			}
		}
	}
}

func (r *Router) route(event Event) {
	if event.Severity < r.cfg.MinimumSeverity {
		return
	}
	if event.Time.IsZero() {
		event.Time = r.clock.Now()
	}
	event = mergeFields(event, r.fields)
	r.routed.Add(1)
	r.metrics.TelemetryAdd(MetricEventsRouted, 1)
	for _, l := range r.lanes {
		l.offer(event)
	}
}

// Publish queues the event for delivery. Events without a type, and events
// published after Close, are ignored.
func (r *Router) Publish(_ context.Context, event Event) {
	if event.Type == "" || r.closed.Load() {
		return
	}
	select {
	case r.queue <- event:
	default:
		r.drop(event)
	}
}

func (r *Router) drop(event Event) {
	r.dropped.Add(1)
	r.metrics.TelemetryAdd(MetricEventsDropped, 1)
	interval := r.cfg.DropWarnInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	now := time.Now().UnixNano()
	next := r.nextDropLog.Load()
	if now >= next && r.nextDropLog.CompareAndSwap(next, now+interval.Nanoseconds()) {
		r.fallback.Printf("queue full, dropping event type=%s tick=%d", event.Type, event.Tick)
	}
}

// Close stops accepting events, flushes the queue into the sinks and closes them.
func (r *Router) Close(ctx context.Context) error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(r.stop)
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	var errs []error
	for _, l := range r.lanes {
		if err := l.sink.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Router) Stats() RouterStats {
	stats := RouterStats{
		EventsTotal:  r.routed.Load(),
		DroppedTotal: r.dropped.Load(),
		SinkDropped:  make(map[string]uint64, len(r.lanes)),
		SinkFailures: make(map[string]uint64, len(r.lanes)),
	}
	for _, l := range r.lanes {
		stats.SinkDropped[l.name] = l.dropped.Load()
		stats.SinkFailures[l.name] = l.failures.Load()
	}
	return stats
}

// Sink returns the sink registered under name, or nil.
func (r *Router) Sink(name string) Sink {
	for _, l := range r.lanes {
		if l.name == name {
			return l.sink
		}
	}
	return nil
}

// lane owns one sink. A failing sink is backed off exponentially, capped at 32s.
type lane struct {
	name   string
	sink   Sink
	events chan Event
	router *Router

	dropped  atomic.Uint64
	failures atomic.Uint64

	streak  int
	retryAt time.Time
}

func (l *lane) offer(event Event) {
	select {
	case l.events <- cloneEvent(event):
	default:
		l.dropped.Add(1)
		l.router.metrics.TelemetryAdd(MetricEventsDropped, 1)
		l.router.fallback.Printf("sink %s backlog full, dropping event type=%s", l.name, event.Type)
	}
}

func (l *lane) run() {
	for event := range l.events {
		if l.streak > 0 {
			if wait := time.Until(l.retryAt); wait > 0 {
				time.Sleep(wait)
			}
		}
		err := l.sink.Write(event)
		if err == nil {
			l.streak = 0
			continue
		}
		l.streak++
		l.failures.Add(1)
		l.router.metrics.TelemetryAdd(MetricSinkFailures, 1)
		delay := retryDelay(l.streak)
		l.retryAt = time.Now().Add(delay)
		l.router.fallback.Printf("sink %s failed: %v (retry in %s)", l.name, err, delay)
	}
}

func retryDelay(streak int) time.Duration {
	return time.Second << min(streak, maxRetryShift)
}
