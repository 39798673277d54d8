// ABOUTME: Publish/subscribe bus delivering lifecycle events to observers
// ABOUTME: Each observer call is isolated so one failure cannot affect the rest
package events

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Observer reacts to the events it declares interest in.
type Observer interface {
	Handles(name string) bool
	Notify(ctx context.Context, env Envelope) error
}

// ObserverFunc adapts a function to Observer for the given event names.
// An empty name list handles every event.
func ObserverFunc(fn func(ctx context.Context, env Envelope) error, names ...string) Observer {
	return funcObserver{fn: fn, names: names}
}

type funcObserver struct {
	fn    func(ctx context.Context, env Envelope) error
	names []string
}

func (f funcObserver) Handles(name string) bool {
	if len(f.names) == 0 {
		return true
	}
	for _, n := range f.names {
		if n == name {
			return true
		}
	}
	return false
}

func (f funcObserver) Notify(ctx context.Context, env Envelope) error {
	return f.fn(ctx, env)
}

// Subscription identifies a registered observer.
type Subscription struct {
	ID uuid.UUID
}

type subscriber struct {
	id       uuid.UUID
	observer Observer
}

// Report summarizes one Publish call.
type Report struct {
	EventID   string
	Matched   int
	Delivered int
	Failed    int
}

// Bus fans events out to subscribers in subscription order.
type Bus struct {
	mu      sync.RWMutex
	subs    []subscriber
	logger  *slog.Logger
	now     func() time.Time
	entropy *ulid.MonotonicEntropy
	idMu    sync.Mutex
}

// NewBus creates a bus that logs observer failures to logger.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

// Subscribe registers o and returns a handle for Unsubscribe.
func (b *Bus) Subscribe(o Observer) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := uuid.New()
	b.subs = append(b.subs, subscriber{id: id, observer: o})
	return Subscription{ID: id}
}

// Unsubscribe removes the observer registered under sub. It reports whether
// anything was removed.
func (b *Bus) Unsubscribe(sub Subscription) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == sub.ID {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish delivers ev to every subscriber that handles it. Observer errors
// and panics are logged and counted, never returned.
func (b *Bus) Publish(ctx context.Context, ev Event) Report {
	b.mu.RLock()
	subs := make([]subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	env := Envelope{ID: b.newID(), PublishedAt: b.now(), Event: ev}
	report := Report{EventID: env.ID}

	for _, s := range subs {
		if !s.observer.Handles(ev.Name()) {
			continue
		}
		report.Matched++
		if err := b.deliver(ctx, s.observer, env); err != nil {
			report.Failed++
			b.logger.Warn("observer failed",
				"event", ev.Name(),
				"event_id", env.ID,
				"subscription", s.id.String(),
				"error", err)
			continue
		}
		report.Delivered++
	}

	b.logger.Debug("event published",
		"event", ev.Name(),
		"event_id", env.ID,
		"delivered", report.Delivered,
		"failed", report.Failed)
	return report
}

// deliver invokes one observer behind a recover boundary.
func (b *Bus) deliver(ctx context.Context, o Observer, env Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("observer panicked: %v", r)
		}
	}()
	return o.Notify(ctx, env)
}

func (b *Bus) newID() string {
	b.idMu.Lock()
	defer b.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(b.now()), b.entropy).String()
}
