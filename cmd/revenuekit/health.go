package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/revenuekit/pkg/dispatch"
	"github.com/dmitrymomot/revenuekit/pkg/health"
)

func newHealthCmd() *cobra.Command {
	var (
		tenantRaw  string
		force      bool
		sendAlerts bool
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Run a health check for a tenant or platform-wide",
		Long: `Evaluates payment success rate, churn, webhook latency, queue failures,
payment API reachability and MRR growth into a 0-100 score. Without --tenant
the check is platform-wide. Exits non-zero when critical alerts fire or the
score falls below the failure floor.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenantID, err := parseTenant(tenantRaw)
			if err != nil {
				return err
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			comp, err := a.buildComponents(ctx)
			if err != nil {
				return err
			}
			healthCfg, err := a.healthConfig()
			if err != nil {
				return err
			}

			report, err := comp.monitor.Check(ctx, tenantID, health.MonthPeriod(time.Now().UTC()), force)
			if err != nil {
				return err
			}

			if sendAlerts {
				dispatcher, err := a.buildDispatcher(ctx)
				if err != nil {
					return err
				}
				if dispatcher != nil {
					for _, msg := range dispatch.FromHealthReport(report) {
						if derr := dispatcher.Dispatch(ctx, msg); derr != nil {
							fmt.Fprintf(cmd.ErrOrStderr(), "alert dispatch failed: %v\n", derr)
						}
					}
				}
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				printReport(cmd, report)
			}

			if report.Failed(healthCfg.FailureFloor) {
				return &exitError{code: 2}
			}
			return nil
		},
	}

	tenantFlag(cmd, &tenantRaw)
	cmd.Flags().BoolVar(&force, "force", false, "bypass the latest-report cache")
	cmd.Flags().BoolVar(&sendAlerts, "dispatch", false, "deliver alerts to configured channels")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the report as JSON")
	return cmd
}

func printReport(cmd *cobra.Command, report *health.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "health score %d (%s) for %s\n\n", report.Score, report.Status, tenantDisplay(report))

	metrics := make([]health.MetricResult, 0, len(report.Metrics))
	for _, m := range report.Metrics {
		metrics = append(metrics, m)
	}
	sort.Slice(metrics, func(i, j int) bool { return metrics[i].Metric < metrics[j].Metric })

	for _, m := range metrics {
		state := "ok"
		switch {
		case m.Unavailable:
			state = "UNAVAILABLE"
		case !m.Healthy:
			state = "UNHEALTHY"
		}
		fmt.Fprintf(out, "  %-22s %10.2f  (threshold %.2f)  %s\n", m.Metric, m.Value, m.Threshold, state)
	}

	if len(report.Alerts) == 0 {
		fmt.Fprintln(out, "\nno alerts")
		return
	}
	fmt.Fprintln(out)
	for _, alert := range report.Alerts {
		fmt.Fprintf(out, "  [%s] %s\n", alert.Severity, alert.Message)
	}
}

func tenantDisplay(report *health.Report) string {
	if report.TenantID == uuid.Nil {
		return "platform"
	}
	return "tenant " + report.TenantID.String()
}
