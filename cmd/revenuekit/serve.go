package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/revenuekit/pkg/cohort"
	"github.com/dmitrymomot/revenuekit/pkg/httpserver"
	"github.com/dmitrymomot/revenuekit/pkg/mrr"
	"github.com/dmitrymomot/revenuekit/pkg/pg"
	"github.com/dmitrymomot/revenuekit/pkg/redis"
	"github.com/dmitrymomot/revenuekit/pkg/report"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only analytics API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			pool, err := a.db(ctx)
			if err != nil {
				return err
			}

			probes := map[string]func(context.Context) error{
				"postgres": pg.Healthcheck(pool),
			}
			healthCache := a.healthCache(ctx)
			if a.redisClient != nil {
				probes["redis"] = redis.Healthcheck(a.redisClient)
			}

			router := report.Router(report.RouterOptions{
				Snapshots: mrr.NewPGStore(pool),
				Cohorts:   cohort.NewPGStore(pool),
				Health:    healthCache,
				Probes:    probes,
				Logger:    a.log,
			})

			if addr != "" {
				a.cfg.HTTP.Addr = addr
			}
			srv := httpserver.NewFromConfig(a.cfg.HTTP,
				httpserver.WithLogger(a.log),
				httpserver.WithStartHook(func(log *slog.Logger) {
					log.Info("analytics read API listening", slog.String("addr", a.cfg.HTTP.Addr))
				}),
			)
			return srv.Run(ctx, router)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: REPORT_ADDR or :8080)")
	return cmd
}
