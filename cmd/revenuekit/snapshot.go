package main

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/revenuekit/pkg/mrr"
)

func newSnapshotCmd() *cobra.Command {
	var (
		tenantRaw   string
		dateRaw     string
		granularity string
		force       bool
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Calculate MRR snapshots for one or all tenants",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenantID, err := parseTenant(tenantRaw)
			if err != nil {
				return err
			}
			date, err := parseDate(dateRaw)
			if err != nil {
				return err
			}
			g := mrr.Granularity(granularity)
			if err := g.Validate(); err != nil {
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
				snap, err := comp.snapshot.Snapshot(ctx, id, date, g, force)
				switch {
				case errors.Is(err, mrr.ErrSnapshotExists):
					fmt.Fprintf(cmd.OutOrStdout(), "%s  skipped (snapshot exists, use --force to recompute)\n", id)
				case err != nil:
					failures++
					fmt.Fprintf(cmd.ErrOrStderr(), "%s  failed: %v\n", id, err)
				default:
					fmt.Fprintf(cmd.OutOrStdout(), "%s  total MRR %.2f (%d customers)\n",
						id, float64(snap.TotalMRR)/100, snap.CustomerCount)
				}
			}
			if failures > 0 {
				return &exitError{code: 1, msg: fmt.Sprintf("%d of %d tenants failed", failures, len(tenantIDs))}
			}
			return nil
		},
	}

	tenantFlag(cmd, &tenantRaw)
	cmd.Flags().StringVar(&dateRaw, "date", "", "as-of date YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&granularity, "granularity", string(mrr.GranularityDaily), "daily or monthly")
	cmd.Flags().BoolVar(&force, "force", false, "recompute even when a snapshot exists")
	return cmd
}
