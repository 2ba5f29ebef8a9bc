package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-records/internal/store"
)

const (
	defaultQueueSize        = 256
	defaultSubscriberBuffer = 64
)

// Sink receives every event after channel subscribers.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, ev Event) error
}

// Logger is the logging surface the broker needs.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Subscription is a channel of events, optionally restricted to a set of
// tables. C is closed by Broker.Unsubscribe.
type Subscription struct {
	C <-chan Event

	ch     chan Event
	tables map[string]struct{}
}

// wants reports whether the subscription covers table.
func (s *Subscription) wants(table string) bool {
	if len(s.tables) == 0 {
		return true
	}
	_, ok := s.tables[strings.ToLower(table)]
	return ok
}

// Broker queues store mutations and dispatches them.
// It implements store.MutationHook.
type Broker struct {
	queue chan Event
	newID func() string

	mu    sync.RWMutex
	subs  map[*Subscription]struct{}
	sinks []Sink

	dropped atomic.Uint64

	logger   Logger
	loggerMu sync.RWMutex
}

var _ store.MutationHook = (*Broker)(nil)

// NewBroker returns a broker whose queue holds size events.
// A size of zero or less selects the default.
func NewBroker(size int) *Broker {
	if size <= 0 {
		size = defaultQueueSize
	}
	return &Broker{
		queue:  make(chan Event, size),
		newID:  uuid.NewString,
		subs:   make(map[*Subscription]struct{}),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for dispatch diagnostics.
func (b *Broker) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()
}

func (b *Broker) getLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

// AddSink registers a sink. Sinks are delivered to in registration order.
func (b *Broker) AddSink(s Sink) {
	b.mu.Lock()
	b.sinks = append(b.sinks, s)
	b.mu.Unlock()
}

// OnMutation queues ev. It never blocks; a full queue drops the event.
func (b *Broker) OnMutation(_ context.Context, ev store.MutationEvent) {
	e := newEvent(b.newID(), ev)
	select {
	case b.queue <- e:
	default:
		b.dropped.Add(1)
		b.getLogger().Warn("event queue full, dropping event", "table", ev.Table, "op", ev.Op, "event_id", e.ID)
	}
}

// Run dispatches queued events until ctx is cancelled. It returns only after
// the event being dispatched at cancellation has reached every sink, so
// callers may close sink resources once Run has returned.
func (b *Broker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-b.queue:
			// An event already taken off the queue is delivered in full
			// even if ctx is cancelled meanwhile.
			b.dispatch(context.WithoutCancel(ctx), ev)
		}
	}
}

func (b *Broker) dispatch(ctx context.Context, ev Event) {
	b.mu.RLock()
	for sub := range b.subs {
		if !sub.wants(ev.Table) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			b.dropped.Add(1)
		}
	}
	sinks := append([]Sink(nil), b.sinks...)
	b.mu.RUnlock()

	for _, s := range sinks {
		if err := s.Deliver(ctx, ev); err != nil {
			b.getLogger().Warn("event sink failed",
				"sink", s.Name(),
				"event_id", ev.ID,
				"error", fmt.Errorf("%w: %w", ErrSinkFailed, err),
			)
		}
	}
}

// Subscribe returns a subscription buffered to buffer events, receiving
// events for the named tables (matched case-insensitively) or for every
// table when none are named.
func (b *Broker) Subscribe(buffer int, tables ...string) *Subscription {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	ch := make(chan Event, buffer)
	sub := &Subscription{C: ch, ch: ch}
	if len(tables) > 0 {
		sub.tables = make(map[string]struct{}, len(tables))
		for _, t := range tables {
			sub.tables[strings.ToLower(t)] = struct{}{}
		}
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Unsubscribe removes sub and closes its channel. Repeated calls are no-ops.
func (b *Broker) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; !ok {
		return
	}
	delete(b.subs, sub)
	close(sub.ch)
}

// Dropped returns how many deliveries were skipped because a queue or
// subscriber channel was full.
func (b *Broker) Dropped() uint64 {
	return b.dropped.Load()
}
