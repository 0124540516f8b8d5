package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "revenuekit",
		Short: "Subscription revenue and health analytics engine",
		Long: `revenuekit computes MRR snapshots, churn rates, cohort retention and
platform health for a multi-tenant billing platform, and serves the results
over a read-only JSON API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newMigrateCmd(),
		newSnapshotCmd(),
		newChurnCmd(),
		newCohortCmd(),
		newHealthCmd(),
		newRunCmd(),
		newServeCmd(),
	)
	return root
}

// tenantFlag adds the shared --tenant flag; an empty value means all tenants
// (or platform-wide for health).
func tenantFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "tenant", "t", "", "tenant UUID (default: all tenants)")
}

func parseTenant(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid tenant id %q: %w", raw, err)
	}
	return id, nil
}

// parseDate accepts YYYY-MM-DD or YYYY-MM, empty meaning "now".
func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now().UTC(), nil
	}
	for _, layout := range []string{"2006-01-02", "2006-01"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD or YYYY-MM", raw)
}
