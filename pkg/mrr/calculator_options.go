package mrr

import (
	"log/slog"
	"time"
)

// CalculatorOption configures optional calculator behavior.
type CalculatorOption func(*Calculator)

// WithLogger sets the logger used for data-quality warnings.
func WithLogger(log *slog.Logger) CalculatorOption {
	return func(c *Calculator) {
		if log != nil {
			c.log = log
		}
	}
}

// WithCurrentMRRCache wires the derived current-MRR refresh performed after
// each snapshot write.
func WithCurrentMRRCache(cache CurrentMRRCache) CalculatorOption {
	return func(c *Calculator) {
		c.cache = cache
	}
}

// WithClock overrides the time source, for tests with fixed time values.
func WithClock(now func() time.Time) CalculatorOption {
	return func(c *Calculator) {
		if now != nil {
			c.now = now
		}
	}
}
