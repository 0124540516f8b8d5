package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/revenuekit/pkg/cohort"
)

func newCohortCmd() *cobra.Command {
	var (
		tenantRaw string
		monthRaw  string
	)

	cmd := &cobra.Command{
		Use:   "cohort",
		Short: "Recompute cohort retention and LTV for one or all tenants",
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

			tenantIDs := []uuid.UUID{tenantID}
			if tenantID == uuid.Nil {
				if tenantIDs, err = comp.customers.TenantIDs(ctx); err != nil {
					return err
				}
			}

			failures := 0
			for _, id := range tenantIDs {
				var records []cohort.Record
				if monthRaw != "" {
					month, err := parseDate(monthRaw)
					if err != nil {
						return err
					}
					rec, err := comp.cohorts.Compute(ctx, id, month)
					if err == nil {
						records = []cohort.Record{*rec}
					} else {
						failures++
						fmt.Fprintf(cmd.ErrOrStderr(), "%s  failed: %v\n", id, err)
						continue
					}
				} else {
					if records, err = comp.cohorts.ComputeAll(ctx, id); err != nil {
						failures++
						fmt.Fprintf(cmd.ErrOrStderr(), "%s  failed: %v\n", id, err)
						continue
					}
				}

				for _, rec := range records {
					fmt.Fprintf(cmd.OutOrStdout(),
						"%s  %s: size %d, retention m1 %.1f%% m3 %.1f%% m12 %.1f%%, avg LTV %.2f\n",
						id, rec.CohortMonth.Format("2006-01"), rec.CohortSize,
						rec.RetentionMonth1, rec.RetentionMonth3, rec.RetentionMonth12,
						float64(rec.AvgLTV)/100)
				}
			}
			if failures > 0 {
				return &exitError{code: 1, msg: fmt.Sprintf("%d of %d tenants failed", failures, len(tenantIDs))}
			}
			return nil
		},
	}

	tenantFlag(cmd, &tenantRaw)
	cmd.Flags().StringVar(&monthRaw, "month", "", "recompute only this cohort month YYYY-MM (default: all cohorts)")
	return cmd
}
