package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/revenuekit/pkg/logger"
)

// TenantConfigResolver returns a tenant-specific threshold/weight table.
// Returning ok=false falls back to the monitor's default config.
type TenantConfigResolver func(ctx context.Context, tenantID uuid.UUID) (Config, bool)

// Monitor aggregates revenue and operational sub-metrics into a single
// 0-100 health score with threshold-triggered alerts.
type Monitor struct {
	cfg       Config
	tenantCfg TenantConfigResolver
	ops       OpsMetricsSource
	prober    APIProber
	churn     ChurnRateSource
	growth    MRRGrowthSource
	cache     LatestCache // optional
	log       *slog.Logger
	now       func() time.Time
}

// Option configures optional monitor behavior.
type Option func(*Monitor)

// WithTenantConfigResolver enables per-tenant threshold overrides.
func WithTenantConfigResolver(r TenantConfigResolver) Option {
	return func(m *Monitor) {
		if r != nil {
			m.tenantCfg = r
		}
	}
}

// WithLatestCache enables the "latest report" cache consulted by non-forced
// checks and refreshed after every computation.
func WithLatestCache(cache LatestCache) Option {
	return func(m *Monitor) {
		m.cache = cache
	}
}

// WithLogger sets the monitor's logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Monitor) {
		if log != nil {
			m.log = log
		}
	}
}

// WithClock overrides the time source, for tests with fixed time values.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMonitor creates a health monitor.
// Panics if required sources are nil to fail fast during initialization.
func NewMonitor(cfg Config, ops OpsMetricsSource, prober APIProber, churn ChurnRateSource, growth MRRGrowthSource, opts ...Option) *Monitor {
	if ops == nil {
		panic("health: OpsMetricsSource is required")
	}
	if prober == nil {
		panic("health: APIProber is required")
	}
	if churn == nil {
		panic("health: ChurnRateSource is required")
	}
	if growth == nil {
		panic("health: MRRGrowthSource is required")
	}

	m := &Monitor{
		cfg:    cfg,
		ops:    ops,
		prober: prober,
		churn:  churn,
		growth: growth,
		log:    slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Check evaluates every sub-metric for a tenant (uuid.Nil for platform-wide)
// over the period and returns a fresh report. Without force, a cached latest
// report within its TTL is returned instead of recomputing.
//
// A sub-metric whose data source is unavailable is marked unhealthy with a
// descriptive alert; the check itself never aborts on source failures,
// because partial results beat no results for a monitoring system.
func (m *Monitor) Check(ctx context.Context, tenantID uuid.UUID, period Period, force bool) (*Report, error) {
	if !period.From.Before(period.To) {
		return nil, fmt.Errorf("%w: period start must precede end", ErrInvalidConfig)
	}

	if !force && m.cache != nil {
		if cached, err := m.cache.GetLatest(ctx, tenantID); err == nil {
			return cached, nil
		} else if !errors.Is(err, ErrCacheMiss) {
			m.log.WarnContext(ctx, "health report cache read failed",
				logger.TenantID(tenantID), logger.Error(err))
		}
	}

	cfg := m.cfg
	if m.tenantCfg != nil {
		if override, ok := m.tenantCfg(ctx, tenantID); ok {
			cfg = override
		}
	}

	report := &Report{
		TenantID:    tenantID,
		Period:      period,
		Metrics:     make(map[Metric]MetricResult, 6),
		GeneratedAt: m.now(),
	}

	var deduction float64
	deduction += m.evalPaymentSuccess(ctx, cfg, tenantID, period, report)
	deduction += m.evalChurn(ctx, cfg, tenantID, period, report)
	deduction += m.evalWebhookLatency(ctx, cfg, tenantID, period, report)
	deduction += m.evalQueueFailures(ctx, cfg, tenantID, period, report)
	deduction += m.evalPaymentAPI(ctx, cfg, report)
	deduction += m.evalMRRGrowth(ctx, cfg, tenantID, period, report)

	report.Score = clampScore(100 - deduction)
	report.Status = statusFor(report.Score)

	if m.cache != nil {
		if err := m.cache.SetLatest(ctx, tenantID, report, cfg.CacheTTL); err != nil {
			m.log.WarnContext(ctx, "health report cache write failed",
				logger.TenantID(tenantID), logger.Error(err))
		}
	}
	return report, nil
}

func (m *Monitor) evalPaymentSuccess(ctx context.Context, cfg Config, tenantID uuid.UUID, period Period, report *Report) float64 {
	stats, err := m.ops.PaymentStats(ctx, tenantID, period)
	if err != nil {
		return m.unavailable(ctx, cfg, report, MetricPaymentSuccessRate, cfg.MinPaymentSuccessRate, err)
	}
	return m.record(cfg, report, MetricPaymentSuccessRate, stats.SuccessRate(), cfg.MinPaymentSuccessRate, belowMin,
		fmt.Sprintf("payment success rate %.1f%% is under the %.1f%% minimum", stats.SuccessRate(), cfg.MinPaymentSuccessRate))
}

func (m *Monitor) evalChurn(ctx context.Context, cfg Config, tenantID uuid.UUID, period Period, report *Report) float64 {
	rate, err := m.churn.ChurnRate(ctx, tenantID, period)
	if err != nil {
		return m.unavailable(ctx, cfg, report, MetricChurnRate, cfg.MaxChurnRate, err)
	}
	return m.record(cfg, report, MetricChurnRate, rate, cfg.MaxChurnRate, aboveMax,
		fmt.Sprintf("churn rate %.1f%% exceeds the %.1f%% maximum", rate, cfg.MaxChurnRate))
}

func (m *Monitor) evalWebhookLatency(ctx context.Context, cfg Config, tenantID uuid.UUID, period Period, report *Report) float64 {
	stats, err := m.ops.WebhookStats(ctx, tenantID, period)
	if err != nil {
		return m.unavailable(ctx, cfg, report, MetricWebhookLatency, cfg.MaxAvgWebhookLatency.Seconds()*1000, err)
	}

	avgMS := float64(stats.AvgLatency.Milliseconds())
	maxAvgMS := float64(cfg.MaxAvgWebhookLatency.Milliseconds())

	// The peak threshold catches a single pathological delivery even when
	// the average still looks fine; the worse of the two ratios drives the
	// deviation.
	value := avgMS
	threshold := maxAvgMS
	if cfg.MaxPeakWebhookLatency > 0 && stats.MaxLatency > cfg.MaxPeakWebhookLatency {
		peakRatio := float64(stats.MaxLatency) / float64(cfg.MaxPeakWebhookLatency)
		if avgMS <= maxAvgMS || peakRatio > avgMS/maxAvgMS {
			value = float64(stats.MaxLatency.Milliseconds())
			threshold = float64(cfg.MaxPeakWebhookLatency.Milliseconds())
		}
	}

	return m.record(cfg, report, MetricWebhookLatency, value, threshold, aboveMax,
		fmt.Sprintf("webhook processing latency %.0fms exceeds the %.0fms limit", value, threshold))
}

func (m *Monitor) evalQueueFailures(ctx context.Context, cfg Config, tenantID uuid.UUID, period Period, report *Report) float64 {
	stats, err := m.ops.QueueStats(ctx, tenantID, period)
	if err != nil {
		return m.unavailable(ctx, cfg, report, MetricQueueFailureRate, cfg.MaxQueueFailureRate, err)
	}
	return m.record(cfg, report, MetricQueueFailureRate, stats.FailureRate(), cfg.MaxQueueFailureRate, aboveMax,
		fmt.Sprintf("queue failure rate %.1f%% exceeds the %.1f%% maximum", stats.FailureRate(), cfg.MaxQueueFailureRate))
}

func (m *Monitor) evalPaymentAPI(ctx context.Context, cfg Config, report *Report) float64 {
	probe, err := m.prober.Probe(ctx)
	if err != nil || !probe.Reachable {
		// An unreachable payment API blocks revenue collection platform-wide,
		// so it is always critical rather than scaled by deviation.
		report.Metrics[MetricPaymentAPI] = MetricResult{
			Metric:      MetricPaymentAPI,
			Value:       0,
			Threshold:   cfg.MaxAPIErrorRate,
			Healthy:     false,
			Unavailable: true,
		}
		msg := "external payment API is unreachable"
		if err != nil {
			msg = fmt.Sprintf("external payment API probe failed: %v", err)
		}
		report.Alerts = append(report.Alerts, Alert{
			Severity:  SeverityCritical,
			Metric:    MetricPaymentAPI,
			Message:   msg,
			Value:     0,
			Threshold: cfg.MaxAPIErrorRate,
		})
		return cfg.weight(MetricPaymentAPI)
	}
	return m.record(cfg, report, MetricPaymentAPI, probe.ErrorRate, cfg.MaxAPIErrorRate, aboveMax,
		fmt.Sprintf("external payment API error rate %.1f%% exceeds the %.1f%% maximum", probe.ErrorRate, cfg.MaxAPIErrorRate))
}

func (m *Monitor) evalMRRGrowth(ctx context.Context, cfg Config, tenantID uuid.UUID, period Period, report *Report) float64 {
	rate, err := m.growth.GrowthRate(ctx, tenantID, period)
	if err != nil {
		return m.unavailable(ctx, cfg, report, MetricMRRGrowth, cfg.MinMRRGrowthRate, err)
	}
	return m.record(cfg, report, MetricMRRGrowth, rate, cfg.MinMRRGrowthRate, belowMin,
		fmt.Sprintf("MRR growth rate %.1f%% is under the %.1f%% minimum", rate, cfg.MinMRRGrowthRate))
}

type direction int

const (
	belowMin direction = iota // unhealthy when value < threshold
	aboveMax                  // unhealthy when value > threshold
)

// record evaluates a measured value against its threshold, stores the metric
// result, and returns the score deduction (0 when healthy). The deduction is
// the metric's weight scaled by a severity multiplier derived from the
// relative deviation.
func (m *Monitor) record(cfg Config, report *Report, metric Metric, value, threshold float64, dir direction, message string) float64 {
	healthy := value <= threshold
	if dir == belowMin {
		healthy = value >= threshold
	}

	report.Metrics[metric] = MetricResult{
		Metric:    metric,
		Value:     value,
		Threshold: threshold,
		Healthy:   healthy,
	}
	if healthy {
		return 0
	}

	severity := severityFor(deviation(value, threshold, dir))
	report.Alerts = append(report.Alerts, Alert{
		Severity:  severity,
		Metric:    metric,
		Message:   message,
		Value:     value,
		Threshold: threshold,
	})
	return cfg.weight(metric) * severityMultiplier(severity)
}

// unavailable marks a sub-metric whose data source failed: unhealthy, full
// weight deduction, high-severity alert explaining the gap.
func (m *Monitor) unavailable(ctx context.Context, cfg Config, report *Report, metric Metric, threshold float64, cause error) float64 {
	m.log.WarnContext(ctx, "health sub-metric source unavailable",
		logger.TenantID(report.TenantID),
		slog.String("metric", string(metric)),
		logger.Error(cause))

	report.Metrics[metric] = MetricResult{
		Metric:      metric,
		Threshold:   threshold,
		Healthy:     false,
		Unavailable: true,
	}
	report.Alerts = append(report.Alerts, Alert{
		Severity:  SeverityHigh,
		Metric:    metric,
		Message:   fmt.Sprintf("%s source unavailable: %v", metric, cause),
		Threshold: threshold,
	})
	return cfg.weight(metric) * severityMultiplier(SeverityHigh)
}

// deviation returns the relative distance past the threshold, guarding a zero
// threshold (e.g. a 0% minimum growth rate) with a unit denominator.
func deviation(value, threshold float64, dir direction) float64 {
	denom := threshold
	if denom < 0 {
		denom = -denom
	}
	if denom == 0 {
		denom = 1
	}
	if dir == aboveMax {
		return (value - threshold) / denom
	}
	return (threshold - value) / denom
}

// severityFor escalates with the relative deviation: within 50% of the
// threshold is medium, within 100% is high, beyond that critical.
func severityFor(dev float64) Severity {
	switch {
	case dev >= 1.0:
		return SeverityCritical
	case dev >= 0.5:
		return SeverityHigh
	default:
		return SeverityMedium
	}
}

func severityMultiplier(s Severity) float64 {
	switch s {
	case SeverityCritical:
		return 1.0
	case SeverityHigh:
		return 0.75
	default:
		return 0.5
	}
}

func clampScore(score float64) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return int(score)
}
