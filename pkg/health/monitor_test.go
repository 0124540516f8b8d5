package health_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/revenuekit/pkg/health"
)

var checkPeriod = health.Period{
	From: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	To:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
}

// fakeSources implements every monitor source with settable values and
// per-source error injection.
type fakeSources struct {
	payment    health.PaymentStats
	paymentErr error
	webhook    health.WebhookStats
	webhookErr error
	queue      health.QueueStats
	queueErr   error
	probe      health.ProbeResult
	probeErr   error
	churnRate  float64
	churnErr   error
	growthRate float64
	growthErr  error
}

func (f *fakeSources) PaymentStats(context.Context, uuid.UUID, health.Period) (health.PaymentStats, error) {
	return f.payment, f.paymentErr
}

func (f *fakeSources) WebhookStats(context.Context, uuid.UUID, health.Period) (health.WebhookStats, error) {
	return f.webhook, f.webhookErr
}

func (f *fakeSources) QueueStats(context.Context, uuid.UUID, health.Period) (health.QueueStats, error) {
	return f.queue, f.queueErr
}

func (f *fakeSources) Probe(context.Context) (health.ProbeResult, error) {
	return f.probe, f.probeErr
}

func (f *fakeSources) ChurnRate(context.Context, uuid.UUID, health.Period) (float64, error) {
	return f.churnRate, f.churnErr
}

func (f *fakeSources) GrowthRate(context.Context, uuid.UUID, health.Period) (float64, error) {
	return f.growthRate, f.growthErr
}

// healthySources returns sources with every sub-metric comfortably within
// the default thresholds.
func healthySources() *fakeSources {
	return &fakeSources{
		payment:    health.PaymentStats{Attempts: 1000, Failures: 10}, // 99% success
		webhook:    health.WebhookStats{Count: 500, AvgLatency: 300 * time.Millisecond, MaxLatency: 2 * time.Second},
		queue:      health.QueueStats{Processed: 2000, Failed: 20}, // 1% failures
		probe:      health.ProbeResult{Reachable: true, ErrorRate: 0.5},
		churnRate:  2.0,
		growthRate: 4.5,
	}
}

func newMonitor(src *fakeSources, opts ...health.Option) *health.Monitor {
	return health.NewMonitor(health.DefaultConfig(), src, src, src, src, opts...)
}

type memoryCache struct {
	reports map[uuid.UUID]*health.Report
	sets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{reports: make(map[uuid.UUID]*health.Report)}
}

func (c *memoryCache) GetLatest(_ context.Context, tenantID uuid.UUID) (*health.Report, error) {
	if r, ok := c.reports[tenantID]; ok {
		return r, nil
	}
	return nil, health.ErrCacheMiss
}

func (c *memoryCache) SetLatest(_ context.Context, tenantID uuid.UUID, r *health.Report, _ time.Duration) error {
	c.reports[tenantID] = r
	c.sets++
	return nil
}

func TestCheckAllHealthy(t *testing.T) {
	ctx := context.Background()
	monitor := newMonitor(healthySources())

	report, err := monitor.Check(ctx, uuid.Nil, checkPeriod, false)
	require.NoError(t, err)

	assert.Equal(t, 100, report.Score)
	assert.Equal(t, health.StatusExcellent, report.Status)
	assert.Empty(t, report.Alerts)
	assert.Len(t, report.Metrics, 6)
	for metric, result := range report.Metrics {
		assert.True(t, result.Healthy, "metric %s should be healthy", metric)
	}
	assert.False(t, report.Failed(40))
}

// Churn at 12% against a 5% maximum plus an unreachable payment API. Both
// trip critical alerts: churn deviates by 140% of its threshold and an
// unreachable gateway is always critical. Deductions 20 + 40 leave 40.
func TestCheckDegraded(t *testing.T) {
	ctx := context.Background()
	src := healthySources()
	src.churnRate = 12.0
	src.probeErr = errors.New("connection refused")
	monitor := newMonitor(src)

	report, err := monitor.Check(ctx, uuid.Nil, checkPeriod, false)
	require.NoError(t, err)

	assert.Equal(t, 40, report.Score)
	assert.Equal(t, health.StatusPoor, report.Status)
	assert.Less(t, report.Score, 60)

	require.Len(t, report.Alerts, 2)
	bySeverity := map[health.Metric]health.Severity{}
	for _, a := range report.Alerts {
		bySeverity[a.Metric] = a.Severity
	}
	assert.Equal(t, health.SeverityCritical, bySeverity[health.MetricChurnRate])
	assert.Equal(t, health.SeverityCritical, bySeverity[health.MetricPaymentAPI])

	assert.True(t, report.HasCriticalAlerts())
	assert.True(t, report.Failed(40))
	assert.True(t, report.Metrics[health.MetricPaymentAPI].Unavailable)
}

func TestSeverityEscalatesWithDeviation(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name     string
		churn    float64
		severity health.Severity
	}{
		{"just over threshold", 6.0, health.SeverityMedium},     // deviation 20%
		{"halfway to double", 7.5, health.SeverityHigh},         // deviation 50%
		{"double the threshold", 10.0, health.SeverityCritical}, // deviation 100%
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := healthySources()
			src.churnRate = tc.churn
			monitor := newMonitor(src)

			report, err := monitor.Check(ctx, uuid.Nil, checkPeriod, false)
			require.NoError(t, err)
			require.Len(t, report.Alerts, 1)
			assert.Equal(t, tc.severity, report.Alerts[0].Severity)
		})
	}
}

func TestUnavailableSourceRaisesAlert(t *testing.T) {
	ctx := context.Background()
	src := healthySources()
	src.paymentErr = errors.New("metrics store down")
	monitor := newMonitor(src)

	report, err := monitor.Check(ctx, uuid.Nil, checkPeriod, false)
	require.NoError(t, err)

	result := report.Metrics[health.MetricPaymentSuccessRate]
	assert.False(t, result.Healthy)
	assert.True(t, result.Unavailable)

	require.Len(t, report.Alerts, 1)
	assert.Equal(t, health.SeverityHigh, report.Alerts[0].Severity)
	assert.Contains(t, report.Alerts[0].Message, "unavailable")

	// Weight 25 scaled by the high multiplier 0.75 deducts 18.75.
	assert.Equal(t, 81, report.Score)
}

func TestZeroGrowthThresholdGuard(t *testing.T) {
	ctx := context.Background()
	src := healthySources()
	src.growthRate = -0.3 // shrinking against a 0% minimum
	monitor := newMonitor(src)

	report, err := monitor.Check(ctx, uuid.Nil, checkPeriod, false)
	require.NoError(t, err)

	require.Len(t, report.Alerts, 1)
	assert.Equal(t, health.MetricMRRGrowth, report.Alerts[0].Metric)
	assert.Equal(t, health.SeverityMedium, report.Alerts[0].Severity)
	assert.Equal(t, 95, report.Score)
}

func TestPeakWebhookLatencyTriggers(t *testing.T) {
	ctx := context.Background()
	src := healthySources()
	// Average stays fine but a single delivery took 25s against the 10s peak.
	src.webhook = health.WebhookStats{Count: 500, AvgLatency: 500 * time.Millisecond, MaxLatency: 25 * time.Second}
	monitor := newMonitor(src)

	report, err := monitor.Check(ctx, uuid.Nil, checkPeriod, false)
	require.NoError(t, err)

	require.Len(t, report.Alerts, 1)
	assert.Equal(t, health.MetricWebhookLatency, report.Alerts[0].Metric)
	assert.Equal(t, health.SeverityCritical, report.Alerts[0].Severity)
}

func TestNoPaymentAttemptsIsHealthy(t *testing.T) {
	ctx := context.Background()
	src := healthySources()
	src.payment = health.PaymentStats{}
	src.queue = health.QueueStats{}
	monitor := newMonitor(src)

	report, err := monitor.Check(ctx, uuid.Nil, checkPeriod, false)
	require.NoError(t, err)

	assert.True(t, report.Metrics[health.MetricPaymentSuccessRate].Healthy)
	assert.True(t, report.Metrics[health.MetricQueueFailureRate].Healthy)
	assert.Equal(t, 100, report.Score)
}

func TestCheckUsesCache(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	cache := newMemoryCache()
	src := healthySources()
	monitor := newMonitor(src, health.WithLatestCache(cache))

	first, err := monitor.Check(ctx, tenantID, checkPeriod, false)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)

	// Degrade the sources; without force the cached clean report wins.
	src.churnRate = 50
	cached, err := monitor.Check(ctx, tenantID, checkPeriod, false)
	require.NoError(t, err)
	assert.Equal(t, first.Score, cached.Score)
	assert.Empty(t, cached.Alerts)
	assert.Equal(t, 1, cache.sets)

	forced, err := monitor.Check(ctx, tenantID, checkPeriod, true)
	require.NoError(t, err)
	assert.NotEmpty(t, forced.Alerts)
	assert.Equal(t, 2, cache.sets)
}

func TestTenantConfigOverride(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	src := healthySources()
	src.churnRate = 4.0 // fine platform-wide, over a stricter tenant limit

	strict := health.DefaultConfig()
	strict.MaxChurnRate = 3

	monitor := newMonitor(src, health.WithTenantConfigResolver(
		func(_ context.Context, id uuid.UUID) (health.Config, bool) {
			if id == tenantID {
				return strict, true
			}
			return health.Config{}, false
		}))

	report, err := monitor.Check(ctx, tenantID, checkPeriod, false)
	require.NoError(t, err)
	require.Len(t, report.Alerts, 1)
	assert.Equal(t, health.MetricChurnRate, report.Alerts[0].Metric)

	platform, err := monitor.Check(ctx, uuid.Nil, checkPeriod, false)
	require.NoError(t, err)
	assert.Empty(t, platform.Alerts)
}

func TestCheckInvalidPeriod(t *testing.T) {
	monitor := newMonitor(healthySources())
	_, err := monitor.Check(context.Background(), uuid.Nil, health.Period{
		From: checkPeriod.To, To: checkPeriod.From,
	}, false)
	require.ErrorIs(t, err, health.ErrInvalidConfig)
}

func TestConfigValidate(t *testing.T) {
	cfg := health.DefaultConfig()
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.MaxChurnRate = 140
	assert.ErrorIs(t, bad.Validate(), health.ErrInvalidConfig)

	bad = cfg
	bad.WeightPaymentAPI = -1
	assert.ErrorIs(t, bad.Validate(), health.ErrInvalidConfig)

	bad = cfg
	bad.FailureFloor = 101
	assert.ErrorIs(t, bad.Validate(), health.ErrInvalidConfig)
}

func TestFailedHonorsFloor(t *testing.T) {
	report := &health.Report{Score: 55}
	assert.True(t, report.Failed(60))
	assert.False(t, report.Failed(40))

	report.Alerts = []health.Alert{{Severity: health.SeverityCritical}}
	assert.True(t, report.Failed(0))
}
