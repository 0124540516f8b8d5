package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/revenuekit/pkg/batch"
	"github.com/dmitrymomot/revenuekit/pkg/dispatch"
	"github.com/dmitrymomot/revenuekit/pkg/mrr"
)

func newRunCmd() *cobra.Command {
	var (
		tenantRaw   string
		dateRaw     string
		granularity string
		force       bool
		sendAlerts  bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full analytics pipeline: snapshots, churn, cohorts, health",
		Long: `Runs every pipeline stage for one or all tenants plus the platform-wide
health rollup. Tenants already being processed by another invocation are
skipped via advisory locks. Exits 1 when any tenant failed, 2 when the run
succeeded but critical health alerts fired.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenantID, err := parseTenant(tenantRaw)
			if err != nil {
				return err
			}
			date, err := parseDate(dateRaw)
			if err != nil {
				return err
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			var dispatcher dispatch.Dispatcher
			if sendAlerts {
				if dispatcher, err = a.buildDispatcher(ctx); err != nil {
					return err
				}
			}

			runner, err := a.buildRunner(ctx, dispatcher)
			if err != nil {
				return err
			}

			params := batch.Params{
				Date:        date,
				Granularity: mrr.Granularity(granularity),
				Force:       force,
			}

			var summary *batch.Summary
			if tenantID == uuid.Nil {
				summary, err = runner.RunAll(ctx, params)
			} else {
				summary, err = runner.RunTenant(ctx, tenantID, params)
			}
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), summary.Table())
			if code := summary.ExitCode(); code != 0 {
				return &exitError{code: code}
			}
			return nil
		},
	}

	tenantFlag(cmd, &tenantRaw)
	cmd.Flags().StringVar(&dateRaw, "date", "", "as-of date YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&granularity, "granularity", string(mrr.GranularityDaily), "daily or monthly")
	cmd.Flags().BoolVar(&force, "force", false, "recompute existing snapshots and bypass caches")
	cmd.Flags().BoolVar(&sendAlerts, "dispatch", false, "deliver alerts to configured channels")
	return cmd
}
