package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/revenuekit/pkg/batch"
	"github.com/dmitrymomot/revenuekit/pkg/billing"
	"github.com/dmitrymomot/revenuekit/pkg/churn"
	"github.com/dmitrymomot/revenuekit/pkg/cohort"
	"github.com/dmitrymomot/revenuekit/pkg/config"
	"github.com/dmitrymomot/revenuekit/pkg/dispatch"
	"github.com/dmitrymomot/revenuekit/pkg/health"
	"github.com/dmitrymomot/revenuekit/pkg/httpserver"
	"github.com/dmitrymomot/revenuekit/pkg/ledger"
	"github.com/dmitrymomot/revenuekit/pkg/logger"
	"github.com/dmitrymomot/revenuekit/pkg/mrr"
	"github.com/dmitrymomot/revenuekit/pkg/opensearch"
	"github.com/dmitrymomot/revenuekit/pkg/pg"
	"github.com/dmitrymomot/revenuekit/pkg/redis"
)

type appConfig struct {
	Env string `env:"APP_ENV" envDefault:"development"`

	PG    pg.Config
	Redis redis.Config

	// RedisEnabled gates the latest-health-report cache; the engine degrades
	// to recomputing on every check without it.
	RedisEnabled bool `env:"REDIS_ENABLED" envDefault:"true"`

	// HealthConfigFile optionally overrides the default thresholds from YAML.
	HealthConfigFile string `env:"HEALTH_CONFIG_FILE"`

	// PaymentAPIProbeURL is the external payment gateway status endpoint.
	PaymentAPIProbeURL string `env:"PAYMENT_API_PROBE_URL" envDefault:"https://status.stripe.com/current"`

	// Alert channels activate when configured; none are mandatory.
	AlertWebhookURL    string `env:"ALERT_WEBHOOK_URL"`
	AlertWebhookSecret string `env:"ALERT_WEBHOOK_SECRET"`
	EmailEnabled       bool   `env:"ALERT_EMAIL_ENABLED" envDefault:"false"`
	TrailEnabled       bool   `env:"ALERT_TRAIL_ENABLED" envDefault:"false"`

	BatchParallelism int `env:"BATCH_PARALLELISM" envDefault:"4"`

	HTTP httpserver.Config
}

// app holds lazily initialized shared dependencies for the CLI commands.
// Commands only pay for what they touch: migrate never dials Redis, serve
// never builds the batch runner.
type app struct {
	cfg appConfig
	log *slog.Logger

	pool        *pgxpool.Pool
	redisClient *goredis.Client
}

func newApp() (*app, error) {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}

	var log *slog.Logger
	if cfg.Env == "production" {
		log = logger.New(logger.WithProduction("revenuekit"))
	} else {
		log = logger.New(logger.WithDevelopment("revenuekit"))
	}
	slog.SetDefault(log)

	return &app{cfg: cfg, log: log}, nil
}

func (a *app) db(ctx context.Context) (*pgxpool.Pool, error) {
	if a.pool != nil {
		return a.pool, nil
	}
	pool, err := pg.Connect(ctx, a.cfg.PG)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	a.pool = pool
	return pool, nil
}

// healthCache returns the Redis-backed latest-report cache, or nil when Redis
// is disabled or unreachable; the caller runs uncached in that case.
func (a *app) healthCache(ctx context.Context) health.LatestCache {
	if !a.cfg.RedisEnabled {
		return nil
	}
	if a.redisClient == nil {
		client, err := redis.Connect(ctx, a.cfg.Redis)
		if err != nil {
			a.log.WarnContext(ctx, "redis unavailable, health reports will not be cached", logger.Error(err))
			return nil
		}
		a.redisClient = client
	}
	return health.NewRedisCache(a.redisClient)
}

func (a *app) healthConfig() (health.Config, error) {
	if a.cfg.HealthConfigFile != "" {
		return health.LoadConfigFile(a.cfg.HealthConfigFile)
	}
	cfg := health.DefaultConfig()
	if err := config.Load(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// components bundles the domain services the analytics commands share.
type components struct {
	customers *billing.PGStore
	snapshot  *mrr.Calculator
	churn     *churn.Calculator
	cohorts   *cohort.Analyzer
	monitor   *health.Monitor
	snapshots *mrr.PGStore
}

func (a *app) buildComponents(ctx context.Context) (*components, error) {
	pool, err := a.db(ctx)
	if err != nil {
		return nil, err
	}

	customers := billing.NewPGStore(pool)
	events := ledger.NewPGStore(pool)
	snapshots := mrr.NewPGStore(pool)
	cohortStore := cohort.NewPGStore(pool)

	snapshot := mrr.NewCalculator(customers, events, snapshots,
		mrr.WithLogger(a.log), mrr.WithCurrentMRRCache(snapshots))
	churnCalc := churn.NewCalculator(customers, events, churn.WithLogger(a.log))
	analyzer := cohort.NewAnalyzer(customers, cohortStore, cohort.WithLogger(a.log))

	healthCfg, err := a.healthConfig()
	if err != nil {
		return nil, err
	}
	monitorOpts := []health.Option{health.WithLogger(a.log)}
	if cache := a.healthCache(ctx); cache != nil {
		monitorOpts = append(monitorOpts, health.WithLatestCache(cache))
	}
	monitor := health.NewMonitor(healthCfg,
		health.NewPGMetricsSource(pool),
		health.NewHTTPProber(a.cfg.PaymentAPIProbeURL),
		health.NewChurnAdapter(churnCalc),
		health.NewGrowthAdapter(snapshots, customers),
		monitorOpts...)

	return &components{
		customers: customers,
		snapshot:  snapshot,
		churn:     churnCalc,
		cohorts:   analyzer,
		monitor:   monitor,
		snapshots: snapshots,
	}, nil
}

// buildDispatcher assembles the alert fan-out from whichever channels are
// configured. Returns nil when none are, so callers skip dispatch entirely.
func (a *app) buildDispatcher(ctx context.Context) (dispatch.Dispatcher, error) {
	multi := dispatch.NewMultiDispatcher(dispatch.WithMultiLogger(a.log))
	registered := 0

	if a.cfg.AlertWebhookURL != "" {
		if a.cfg.AlertWebhookSecret == "" {
			return nil, fmt.Errorf("ALERT_WEBHOOK_SECRET is required when ALERT_WEBHOOK_URL is set")
		}
		multi.Register("webhook",
			dispatch.NewWebhookDispatcher(a.cfg.AlertWebhookURL, a.cfg.AlertWebhookSecret),
			health.SeverityHigh)
		registered++
	}

	if a.cfg.EmailEnabled {
		var emailCfg dispatch.EmailConfig
		if err := config.Load(&emailCfg); err != nil {
			return nil, err
		}
		email, err := dispatch.NewEmailDispatcher(emailCfg)
		if err != nil {
			return nil, err
		}
		// Email is the loudest channel; only critical alerts page.
		multi.Register("email", email, health.SeverityCritical)
		registered++
	}

	if a.cfg.TrailEnabled {
		var osCfg opensearch.Config
		if err := config.Load(&osCfg); err != nil {
			return nil, err
		}
		client, err := opensearch.New(ctx, osCfg)
		if err != nil {
			return nil, fmt.Errorf("connect opensearch: %w", err)
		}
		multi.Register("trail", dispatch.NewOpenSearchIndexer(client, "revenuekit-alerts"), health.SeverityHigh)
		registered++
	}

	if registered == 0 {
		return nil, nil
	}
	return multi, nil
}

func (a *app) buildRunner(ctx context.Context, dispatcher dispatch.Dispatcher) (*batch.Runner, error) {
	comp, err := a.buildComponents(ctx)
	if err != nil {
		return nil, err
	}

	opts := []batch.Option{
		batch.WithLogger(a.log),
		batch.WithLocker(batch.NewPGLocker(a.pool)),
		batch.WithParallelism(a.cfg.BatchParallelism),
	}
	if dispatcher != nil {
		opts = append(opts, batch.WithDispatcher(dispatcher))
	}
	return batch.NewRunner(comp.customers, comp.snapshot, comp.churn, comp.cohorts, comp.monitor, opts...), nil
}

func (a *app) close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.redisClient != nil {
		_ = a.redisClient.Close()
	}
}
