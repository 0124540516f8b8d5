package dispatch

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/revenuekit/pkg/health"
	"github.com/dmitrymomot/revenuekit/pkg/logger"
)

// Dispatcher delivers one message over one channel.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message) error
}

// severityRank orders severities for minimum-severity channel routing.
func severityRank(s health.Severity) int {
	switch s {
	case health.SeverityCritical:
		return 3
	case health.SeverityHigh:
		return 2
	case health.SeverityMedium:
		return 1
	}
	return 0
}

type channel struct {
	name        string
	dispatcher  Dispatcher
	minSeverity health.Severity
}

// MultiDispatcher fans a message out to every registered channel whose
// minimum severity it meets. Delivery is best effort: one failing channel
// never blocks the others, and all failures come back joined so the caller
// can log or count them.
type MultiDispatcher struct {
	channels []channel
	log      *slog.Logger
}

// MultiOption configures a MultiDispatcher.
type MultiOption func(*MultiDispatcher)

// WithMultiLogger sets the logger used for per-channel failure warnings.
func WithMultiLogger(log *slog.Logger) MultiOption {
	return func(m *MultiDispatcher) {
		if log != nil {
			m.log = log
		}
	}
}

// NewMultiDispatcher creates an empty fan-out dispatcher; register channels
// with Register.
func NewMultiDispatcher(opts ...MultiOption) *MultiDispatcher {
	m := &MultiDispatcher{log: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register adds a channel that receives messages at or above minSeverity.
func (m *MultiDispatcher) Register(name string, d Dispatcher, minSeverity health.Severity) {
	if d == nil {
		panic("dispatch: nil dispatcher registered")
	}
	m.channels = append(m.channels, channel{name: name, dispatcher: d, minSeverity: minSeverity})
}

func (m *MultiDispatcher) Dispatch(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	var errs []error
	for _, ch := range m.channels {
		if severityRank(msg.Severity) < severityRank(ch.minSeverity) {
			continue
		}
		if err := ch.dispatcher.Dispatch(ctx, msg); err != nil {
			m.log.WarnContext(ctx, "alert channel delivery failed",
				slog.String("channel", ch.name),
				slog.String("kind", string(msg.Kind)),
				logger.TenantID(msg.TenantID),
				logger.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DispatchAll delivers a batch, continuing past failures, and returns the
// joined errors.
func (m *MultiDispatcher) DispatchAll(ctx context.Context, msgs []Message) error {
	var errs []error
	for _, msg := range msgs {
		if err := m.Dispatch(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
