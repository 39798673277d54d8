// ABOUTME: Lifecycle service serializing every pipeline operation behind one mutex
// ABOUTME: Mutations run through middleware, flush a full snapshot, then publish their events
package crm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/harperreed/funnel/db"
	"github.com/harperreed/funnel/events"
	"github.com/harperreed/funnel/models"
	"github.com/harperreed/funnel/store"
)

// Service owns the entity store and is the only way to mutate it.
type Service struct {
	mu         sync.Mutex
	store      *store.Store
	backend    db.Backend
	bus        *events.Bus
	logger     *slog.Logger
	clock      func() time.Time
	role       models.Role
	middleware []Middleware
	metrics    *metrics
	registerer prometheus.Registerer

	degraded bool
	flushErr error
	flushes  int
	extraMWs []Middleware
}

// Option configures a Service.
type Option func(*Service)

// WithBus publishes lifecycle events to bus. Without it events are dropped.
func WithBus(bus *events.Bus) Option {
	return func(s *Service) { s.bus = bus }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides the time source used to stamp entities.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// WithMiddleware appends middleware after the built-in chain.
func WithMiddleware(mw ...Middleware) Option {
	return func(s *Service) { s.extraMWs = append(s.extraMWs, mw...) }
}

// WithRole sets the initial role. The default is admin.
func WithRole(r models.Role) Option {
	return func(s *Service) { s.role = r }
}

// WithMetrics registers operation metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(s *Service) { s.registerer = reg }
}

// New loads the snapshot from backend and returns a ready service. A
// corrupt snapshot does not fail construction: the service starts empty and
// Degraded reports true.
func New(ctx context.Context, backend db.Backend, opts ...Option) (*Service, error) {
	s := &Service{
		backend: backend,
		logger:  slog.Default(),
		clock:   func() time.Time { return time.Now().UTC() },
		role:    models.RoleAdmin,
	}
	for _, opt := range opts {
		opt(s)
	}
	if _, err := models.ParseRole(string(s.role)); err != nil {
		return nil, err
	}

	m, err := newMetrics(s.registerer)
	if err != nil {
		return nil, err
	}
	s.metrics = m
	s.middleware = append([]Middleware{Logging(s.logger), Instrument(m), Enforce()}, s.extraMWs...)

	snap, err := backend.Load(ctx)
	switch {
	case errors.Is(err, db.ErrCorruptSnapshot):
		s.logger.Error("snapshot is corrupt, starting empty", "error", err)
		s.degraded = true
		s.store = store.New()
	case err != nil:
		return nil, fmt.Errorf("load snapshot: %w", err)
	default:
		s.store = store.FromSnapshot(snap)
		s.logger.Debug("snapshot loaded", "entities", snap.Len())
	}
	return s, nil
}

// Degraded reports whether the service started from an empty state because
// the stored snapshot could not be read.
func (s *Service) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// LastFlushError returns the error from the most recent flush, or nil if it
// succeeded.
func (s *Service) LastFlushError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushErr
}

// Flushes returns how many snapshot flushes were attempted.
func (s *Service) Flushes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushes
}

// Bus returns the event bus, or nil.
func (s *Service) Bus() *events.Bus { return s.bus }

// Close releases the backend.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.Close()
}

// tx is the mutation context handed to an operation body.
type tx struct {
	store  *store.Store
	now    time.Time
	dirty  bool
	events []events.Event
}

func (t *tx) publish(ev events.Event) { t.events = append(t.events, ev) }

// run executes fn as operation op: under the lock, through the middleware
// chain, followed by a flush when fn marked the transaction dirty. Events
// collected by fn are published after the lock is released, so observers may
// call back into the service. A concurrent caller can therefore commit its
// own operation before this one's notifications have finished; mutations and
// flushes stay serialized.
func (s *Service) run(ctx context.Context, op string, fn func(t *tx) error) error {
	s.mu.Lock()
	var pending []events.Event

	var h Handler = func(ctx context.Context, call Call) error {
		t := &tx{store: s.store, now: s.clock()}
		if err := fn(t); err != nil {
			return err
		}
		if t.dirty {
			s.flush(ctx, call.Op)
		}
		pending = t.events
		return nil
	}
	for i := len(s.middleware) - 1; i >= 0; i-- {
		h = s.middleware[i](h)
	}
	err := h(ctx, Call{Op: op, Role: s.role})
	s.mu.Unlock()

	if err != nil {
		return err
	}
	if s.bus != nil {
		for _, ev := range pending {
			s.bus.Publish(ctx, ev)
		}
	}
	return nil
}

// flush writes the whole store. Failures are logged and retained; the
// in-memory state stays authoritative.
func (s *Service) flush(ctx context.Context, op string) {
	s.flushes++
	if err := s.backend.Save(ctx, s.store.Snapshot()); err != nil {
		s.flushErr = err
		s.metrics.flushFailures.Inc()
		s.logger.Error("flush failed", "op", op, "error", err)
		return
	}
	s.flushErr = nil
}

// read runs fn under the lock without middleware, flush or events.
func (s *Service) read(fn func(st *store.Store)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.store)
}
