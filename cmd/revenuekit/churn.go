package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/revenuekit/pkg/dispatch"
)

func newChurnCmd() *cobra.Command {
	var (
		tenantRaw     string
		monthRaw      string
		sendAlerts    bool
		revenueChurns bool
	)

	cmd := &cobra.Command{
		Use:   "churn",
		Short: "Calculate monthly churn rates for one or all tenants",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenantID, err := parseTenant(tenantRaw)
			if err != nil {
				return err
			}
			month, err := parseDate(monthRaw)
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

			var dispatcher dispatch.Dispatcher
			if sendAlerts {
				if dispatcher, err = a.buildDispatcher(ctx); err != nil {
					return err
				}
			}

			tenantIDs := []uuid.UUID{tenantID}
			if tenantID == uuid.Nil {
				if tenantIDs, err = comp.customers.TenantIDs(ctx); err != nil {
					return err
				}
			}

			failures := 0
			for _, id := range tenantIDs {
				rec, err := comp.churn.Churn(ctx, id, month)
				if err != nil {
					failures++
					fmt.Fprintf(cmd.ErrOrStderr(), "%s  failed: %v\n", id, err)
					continue
				}

				line := fmt.Sprintf("%s  %s: churn %.1f%% (%d of %d, %d voluntary / %d involuntary)",
					id, rec.PeriodStart.Format("2006-01"), rec.ChurnRate,
					rec.ChurnedCustomers, rec.CustomersStart, rec.VoluntaryChurn, rec.InvoluntaryChurn)

				if revenueChurns {
					if rate, err := comp.churn.RevenueChurn(ctx, id, month); err == nil {
						line += fmt.Sprintf(", revenue churn %.1f%%", rate)
					}
				}

				if alert, fired := comp.churn.CheckThreshold(ctx, rec); fired {
					line += "  [HIGH CHURN]"
					if dispatcher != nil {
						if err := dispatcher.Dispatch(ctx, dispatch.FromChurnAlert(alert)); err != nil {
							fmt.Fprintf(cmd.ErrOrStderr(), "%s  alert dispatch failed: %v\n", id, err)
						}
					}
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			if failures > 0 {
				return &exitError{code: 1, msg: fmt.Sprintf("%d of %d tenants failed", failures, len(tenantIDs))}
			}
			return nil
		},
	}

	tenantFlag(cmd, &tenantRaw)
	cmd.Flags().StringVar(&monthRaw, "month", "", "month YYYY-MM (default: current month)")
	cmd.Flags().BoolVar(&sendAlerts, "dispatch", false, "deliver high-churn alerts to configured channels")
	cmd.Flags().BoolVar(&revenueChurns, "revenue", false, "also compute revenue churn")
	return cmd
}
