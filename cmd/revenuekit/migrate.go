package main

import (
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/revenuekit/pkg/pg"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			pool, err := a.db(cmd.Context())
			if err != nil {
				return err
			}
			return pg.Migrate(cmd.Context(), pool, a.cfg.PG, a.log)
		},
	}
}
