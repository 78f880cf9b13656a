package event

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Handler receives the payload of an event it subscribed to.
type Handler func(payload any)

// subscription ties one handler to one event name.
type subscription struct {
	id      string
	event   string
	handler Handler
}

// emission is a queued deferred delivery.
type emission struct {
	event   string
	payload any
}

// Config configures a Bus.
type Config struct {
	// Logger receives swallowed handler faults. Defaults to the standard
	// logrus logger.
	Logger logrus.FieldLogger

	// QueueSize bounds the deferred-delivery queue. Emit blocks when the
	// queue is full rather than dropping. Defaults to 256.
	QueueSize int
}

// ── Bus ───────────────────────────────────────────────────────────────────────

// Bus is an ordered publish/subscribe event bus.
//
// EmitSync delivers to all current subscribers, in subscription order,
// before returning. Emit defers delivery through a single dispatch
// goroutine, so handlers of one event still run in subscription order and
// emissions are delivered in the order they were published, but the
// emitter does not wait.
//
// A handler that panics never prevents the remaining handlers of that
// event from running: UI collaborators subscribe independently and one
// faulty subscriber must not break the others. Faults are logged, not
// rethrown to the emitter.
type Bus struct {
	mu    sync.RWMutex
	subs  map[string][]*subscription
	stats map[string]uint64

	log logrus.FieldLogger

	queue     chan emission
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewBus creates a bus and starts its deferred-delivery goroutine.
func NewBus(cfg Config) *Bus {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}

	b := &Bus{
		subs:  make(map[string][]*subscription),
		stats: make(map[string]uint64),
		log:   cfg.Logger,
		queue: make(chan emission, cfg.QueueSize),
		done:  make(chan struct{}),
	}

	b.wg.Add(1)
	go b.deliverLoop()
	return b
}

// ── Subscription ──────────────────────────────────────────────────────────────

// Subscribe registers a handler for an event name and returns an
// unsubscribe closure that removes exactly this subscription. Handlers for
// one event run in subscription order.
func (b *Bus) Subscribe(eventName string, handler Handler) func() {
	sub := &subscription{
		id:      uuid.NewString(),
		event:   eventName,
		handler: handler,
	}

	b.mu.Lock()
	b.subs[eventName] = append(b.subs[eventName], sub)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.subs[eventName]
		for i, s := range list {
			if s.id == sub.id {
				b.subs[eventName] = append(list[:i], list[i+1:]...)
				return
			}
		}
	}
}

// ── Publishing ────────────────────────────────────────────────────────────────

// Emit schedules a deferred, fire-and-forget delivery. The caller gets no
// ordering guarantee relative to its own next statement. Emissions racing
// a Close are dropped, never a panic: the queue channel itself is never
// closed, Close signals through done instead.
func (b *Bus) Emit(eventName string, payload any) {
	select {
	case <-b.done:
		b.log.WithField("event", eventName).Warn("event: emit on closed bus dropped")
		return
	default:
	}
	select {
	case b.queue <- emission{event: eventName, payload: payload}:
	case <-b.done:
		b.log.WithField("event", eventName).Warn("event: emit on closed bus dropped")
	}
}

// EmitSync delivers to every current subscriber before returning, so a
// subscriber's synchronous side effect is guaranteed to have happened when
// the emitting code proceeds.
func (b *Bus) EmitSync(eventName string, payload any) {
	b.deliver(eventName, payload)
}

// deliverLoop drains the deferred queue until Close, then delivers
// whatever was queued before the close signal.
func (b *Bus) deliverLoop() {
	defer b.wg.Done()
	for {
		select {
		case em := <-b.queue:
			b.deliver(em.event, em.payload)
		case <-b.done:
			for {
				select {
				case em := <-b.queue:
					b.deliver(em.event, em.payload)
				default:
					return
				}
			}
		}
	}
}

// deliver invokes every subscriber of an event, isolating faults.
func (b *Bus) deliver(eventName string, payload any) {
	b.mu.Lock()
	b.stats[eventName]++
	snapshot := append([]*subscription{}, b.subs[eventName]...)
	b.mu.Unlock()

	for _, sub := range snapshot {
		b.invoke(sub, payload)
	}
}

// invoke runs one handler with panic isolation.
func (b *Bus) invoke(sub *subscription, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.log.WithFields(logrus.Fields{
				"event":        sub.event,
				"subscription": sub.id,
				"panic":        r,
			}).Error("event: handler fault isolated")
		}
	}()
	sub.handler(payload)
}

// ── Lifecycle ─────────────────────────────────────────────────────────────────

// Close stops accepting deferred emissions, drains the queue, and waits
// for in-flight deliveries to finish. Safe to call from any goroutine and
// idempotent. EmitSync keeps working after Close.
func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		close(b.done)
		b.wg.Wait()
	})
}

// ── Diagnostics ───────────────────────────────────────────────────────────────

// Diagnostics is an inspectable snapshot of the bus, for debugging and for
// callers that want to skip building a large payload when an event has no
// subscribers.
type Diagnostics struct {
	// EventStats counts dispatches per event name over the bus lifetime.
	EventStats map[string]uint64 `json:"eventStats"`

	// Subscribers counts current subscriptions per event name.
	Subscribers map[string]int `json:"subscribers"`
}

// GetDiagnostics snapshots dispatch counters and subscriber counts.
func (b *Bus) GetDiagnostics() Diagnostics {
	b.mu.RLock()
	defer b.mu.RUnlock()

	stats := make(map[string]uint64, len(b.stats))
	for name, n := range b.stats {
		stats[name] = n
	}
	subs := make(map[string]int, len(b.subs))
	for name, list := range b.subs {
		if len(list) > 0 {
			subs[name] = len(list)
		}
	}
	return Diagnostics{EventStats: stats, Subscribers: subs}
}

// HasSubscribers reports whether any handler is registered for eventName.
func (b *Bus) HasSubscribers(eventName string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[eventName]) > 0
}
