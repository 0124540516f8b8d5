package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/revenuekit/pkg/billing"
	"github.com/dmitrymomot/revenuekit/pkg/churn"
	"github.com/dmitrymomot/revenuekit/pkg/cohort"
	"github.com/dmitrymomot/revenuekit/pkg/dispatch"
	"github.com/dmitrymomot/revenuekit/pkg/health"
	"github.com/dmitrymomot/revenuekit/pkg/logger"
	"github.com/dmitrymomot/revenuekit/pkg/mrr"
)

// TenantLocker guards against two batch invocations recomputing the same
// tenant concurrently. Acquire returns ok=false when another run holds the
// tenant; release must be called when ok.
type TenantLocker interface {
	Acquire(ctx context.Context, tenantID uuid.UUID) (release func(), ok bool, err error)
}

// NoopLocker never blocks; single-process deployments and tests use it.
type NoopLocker struct{}

func (NoopLocker) Acquire(context.Context, uuid.UUID) (func(), bool, error) {
	return func() {}, true, nil
}

// Runner drives the nightly analytics pipeline across tenants: MRR snapshot,
// churn rates, cohort refresh, then a health evaluation whose alerts go to
// the dispatcher.
type Runner struct {
	tenants  billing.TenantSource
	snapshot *mrr.Calculator
	churn    *churn.Calculator
	cohorts  *cohort.Analyzer
	monitor  *health.Monitor

	dispatcher   dispatch.Dispatcher // optional
	locker       TenantLocker
	parallelism  int
	tenantBudget time.Duration
	log          *slog.Logger
	now          func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithDispatcher routes alerts raised during the run to delivery channels.
// Without one, alerts surface only in the logs and the run summary.
func WithDispatcher(d dispatch.Dispatcher) Option {
	return func(r *Runner) {
		r.dispatcher = d
	}
}

// WithLocker enables cross-process tenant dedup, typically the PostgreSQL
// advisory lock.
func WithLocker(l TenantLocker) Option {
	return func(r *Runner) {
		if l != nil {
			r.locker = l
		}
	}
}

// WithParallelism bounds concurrent tenant pipelines. Stages within a tenant
// always run sequentially; only tenants fan out.
func WithParallelism(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.parallelism = n
		}
	}
}

// WithTenantBudget caps the wall-clock time one tenant's pipeline may take
// before its context is canceled and the tenant counts as failed.
func WithTenantBudget(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.tenantBudget = d
		}
	}
}

// WithLogger sets the runner's logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Runner) {
		if log != nil {
			r.log = log
		}
	}
}

// WithClock overrides the time source, for tests with fixed dates.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRunner creates a batch runner.
// Panics if any pipeline stage is nil to fail fast during initialization.
func NewRunner(tenants billing.TenantSource, snapshot *mrr.Calculator, churnCalc *churn.Calculator, cohorts *cohort.Analyzer, monitor *health.Monitor, opts ...Option) *Runner {
	if tenants == nil {
		panic("batch: tenant source is required")
	}
	if snapshot == nil {
		panic("batch: mrr calculator is required")
	}
	if churnCalc == nil {
		panic("batch: churn calculator is required")
	}
	if cohorts == nil {
		panic("batch: cohort analyzer is required")
	}
	if monitor == nil {
		panic("batch: health monitor is required")
	}

	r := &Runner{
		tenants:     tenants,
		snapshot:    snapshot,
		churn:       churnCalc,
		cohorts:     cohorts,
		monitor:     monitor,
		locker:      NoopLocker{},
		parallelism: 4,
		log:         slog.Default(),
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Params selects what a run computes.
type Params struct {
	// Date is the as-of date for the MRR snapshot and the month evaluated for
	// churn and health. Zero means "now".
	Date time.Time
	// Granularity of the MRR snapshot; defaults to daily.
	Granularity mrr.Granularity
	// Force recomputes snapshots and health even when fresh results exist.
	Force bool
}

func (p *Params) normalize(now time.Time) error {
	if p.Date.IsZero() {
		p.Date = now
	}
	if p.Granularity == "" {
		p.Granularity = mrr.GranularityDaily
	}
	return p.Granularity.Validate()
}

// RunAll executes the pipeline for every known tenant plus the platform-wide
// health evaluation, honoring the parallelism bound. A tenant failing never
// stops the others; the summary carries per-tenant outcomes.
func (r *Runner) RunAll(ctx context.Context, params Params) (*Summary, error) {
	if err := params.normalize(r.now()); err != nil {
		return nil, err
	}

	tenantIDs, err := r.tenants.TenantIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("batch: list tenants: %w", err)
	}

	summary := newSummary(r.now())
	r.log.InfoContext(ctx, "batch run starting",
		slog.Int("tenants", len(tenantIDs)),
		slog.String("granularity", string(params.Granularity)),
		slog.Bool("force", params.Force))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)
	for _, tenantID := range tenantIDs {
		g.Go(func() error {
			summary.record(r.runTenant(gctx, tenantID, params))
			// Tenant failures are collected, not propagated; propagation
			// would cancel sibling tenants.
			return nil
		})
	}
	_ = g.Wait()

	// Platform-wide health rolls up after the per-tenant work so it sees the
	// snapshots this run just wrote.
	summary.record(r.runHealth(ctx, uuid.Nil, params))

	summary.finish(r.now())
	r.log.InfoContext(ctx, "batch run finished",
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("skipped", summary.Skipped),
		slog.Int("failed", summary.Failed),
		slog.Duration("elapsed", summary.Elapsed))
	return summary, nil
}

// RunTenant executes the pipeline for a single tenant.
func (r *Runner) RunTenant(ctx context.Context, tenantID uuid.UUID, params Params) (*Summary, error) {
	if err := params.normalize(r.now()); err != nil {
		return nil, err
	}
	summary := newSummary(r.now())
	summary.record(r.runTenant(ctx, tenantID, params))
	summary.finish(r.now())
	return summary, nil
}

func (r *Runner) runTenant(ctx context.Context, tenantID uuid.UUID, params Params) Outcome {
	if r.tenantBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.tenantBudget)
		defer cancel()
	}

	release, ok, err := r.locker.Acquire(ctx, tenantID)
	if err != nil {
		return Outcome{TenantID: tenantID, Status: StatusFailed, Err: fmt.Errorf("acquire tenant lock: %w", err)}
	}
	if !ok {
		r.log.InfoContext(ctx, "tenant locked by another run, skipping", logger.TenantID(tenantID))
		return Outcome{TenantID: tenantID, Status: StatusSkipped}
	}
	defer release()

	started := r.now()
	outcome := r.pipeline(ctx, tenantID, params)
	outcome.Elapsed = r.now().Sub(started)

	switch outcome.Status {
	case StatusFailed:
		r.log.ErrorContext(ctx, "tenant pipeline failed",
			logger.TenantID(tenantID), logger.Error(outcome.Err), slog.Duration("elapsed", outcome.Elapsed))
	default:
		r.log.InfoContext(ctx, "tenant pipeline finished",
			logger.TenantID(tenantID), slog.String("status", string(outcome.Status)),
			slog.Duration("elapsed", outcome.Elapsed))
	}
	return outcome
}

// pipeline runs the per-tenant stages in dependency order: the snapshot
// feeds the health monitor's growth reading, churn feeds both its alert and
// the health churn reading.
func (r *Runner) pipeline(ctx context.Context, tenantID uuid.UUID, params Params) Outcome {
	outcome := Outcome{TenantID: tenantID, Status: StatusSucceeded}

	snap, err := r.snapshot.Snapshot(ctx, tenantID, params.Date, params.Granularity, params.Force)
	switch {
	case errors.Is(err, mrr.ErrSnapshotExists):
		// Idempotent skip: the date is already covered and force was off.
		outcome.SnapshotSkipped = true
	case err != nil:
		outcome.Status = StatusFailed
		outcome.Err = fmt.Errorf("mrr snapshot: %w", err)
		return outcome
	}
	if snap != nil {
		outcome.TotalMRR = snap.TotalMRR
	}

	churnRec, err := r.churn.Churn(ctx, tenantID, params.Date)
	if err != nil {
		outcome.Status = StatusFailed
		outcome.Err = fmt.Errorf("churn: %w", err)
		return outcome
	}
	outcome.ChurnRate = churnRec.ChurnRate
	if alert, fired := r.churn.CheckThreshold(ctx, churnRec); fired {
		outcome.Alerts++
		r.dispatchMessages(ctx, dispatch.FromChurnAlert(alert))
	}

	if _, err := r.cohorts.ComputeAll(ctx, tenantID); err != nil {
		outcome.Status = StatusFailed
		outcome.Err = fmt.Errorf("cohorts: %w", err)
		return outcome
	}

	healthOutcome := r.runHealth(ctx, tenantID, params)
	if healthOutcome.Status == StatusFailed {
		outcome.Status = StatusFailed
		outcome.Err = healthOutcome.Err
		return outcome
	}
	outcome.HealthScore = healthOutcome.HealthScore
	outcome.Critical = healthOutcome.Critical
	outcome.Alerts += healthOutcome.Alerts
	return outcome
}

// runHealth evaluates health for one tenant (or platform-wide for uuid.Nil)
// and dispatches the resulting alerts.
func (r *Runner) runHealth(ctx context.Context, tenantID uuid.UUID, params Params) Outcome {
	report, err := r.monitor.Check(ctx, tenantID, health.MonthPeriod(params.Date), params.Force)
	if err != nil {
		return Outcome{TenantID: tenantID, Status: StatusFailed, Err: fmt.Errorf("health check: %w", err)}
	}

	messages := dispatch.FromHealthReport(report)
	r.dispatchMessages(ctx, messages...)

	return Outcome{
		TenantID:    tenantID,
		Status:      StatusSucceeded,
		HealthScore: report.Score,
		Critical:    report.HasCriticalAlerts(),
		Alerts:      len(messages),
	}
}

// dispatchMessages is best effort: delivery failure is logged and counted,
// never failing the pipeline that raised the alert.
func (r *Runner) dispatchMessages(ctx context.Context, msgs ...dispatch.Message) {
	if r.dispatcher == nil || len(msgs) == 0 {
		return
	}
	for _, msg := range msgs {
		if err := r.dispatcher.Dispatch(ctx, msg); err != nil {
			r.log.WarnContext(ctx, "alert dispatch failed",
				logger.TenantID(msg.TenantID),
				slog.String("kind", string(msg.Kind)),
				logger.Error(err))
		}
	}
}
