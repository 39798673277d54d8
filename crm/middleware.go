// ABOUTME: Middleware wrapped around every mutating operation
// ABOUTME: Provides slog timing, prometheus instrumentation and role enforcement
package crm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/harperreed/funnel/models"
)

// Call describes one operation invocation.
type Call struct {
	Op   string
	Role models.Role
}

// Handler runs an operation.
type Handler func(ctx context.Context, call Call) error

// Middleware wraps a Handler.
type Middleware func(next Handler) Handler

// Logging logs each operation with its duration and outcome.
func Logging(logger *slog.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, call Call) error {
			start := time.Now()
			err := next(ctx, call)
			attrs := []any{
				"op", call.Op,
				"role", string(call.Role),
				"duration", time.Since(start),
			}
			if err != nil {
				logger.LogAttrs(ctx, slog.LevelWarn, "operation failed", slog.Group("call", attrs...), slog.Any("error", err))
				return err
			}
			logger.LogAttrs(ctx, slog.LevelInfo, "operation completed", slog.Group("call", attrs...))
			return nil
		}
	}
}

// Enforce rejects operations the current role may not perform.
func Enforce() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, call Call) error {
			if !Allowed(call.Role, call.Op) {
				return fmt.Errorf("%s as %s: %w", call.Op, call.Role, models.ErrNotPermitted)
			}
			return next(ctx, call)
		}
	}
}

type metrics struct {
	duration      *prometheus.HistogramVec
	outcomes      *prometheus.CounterVec
	flushFailures prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "funnel",
			Name:      "operation_duration_seconds",
			Help:      "Duration of pipeline operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "funnel",
			Name:      "operations_total",
			Help:      "Pipeline operations by outcome.",
		}, []string{"op", "outcome"}),
		flushFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "funnel",
			Name:      "flush_failures_total",
			Help:      "Snapshot flushes that failed.",
		}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.duration, m.outcomes, m.flushFailures} {
			if err := reg.Register(c); err != nil {
				return nil, fmt.Errorf("register operation metrics: %w", err)
			}
		}
	}
	return m, nil
}

// Instrument records operation durations and outcomes.
func Instrument(m *metrics) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, call Call) error {
			timer := prometheus.NewTimer(m.duration.WithLabelValues(call.Op))
			err := next(ctx, call)
			timer.ObserveDuration()
			m.outcomes.WithLabelValues(call.Op, outcome(err)).Inc()
			return err
		}
	}
}

// outcome maps an error onto a low-cardinality label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, models.ErrNotPermitted):
		return "forbidden"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrValidation):
		return "invalid"
	case errors.Is(err, models.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, models.ErrAlreadyConverted), errors.Is(err, models.ErrAlreadyCompleted):
		return "conflict"
	default:
		return "error"
	}
}
