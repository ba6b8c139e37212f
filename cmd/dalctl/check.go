package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ahrav/tinydal/internal/application/datacontext"
)

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Open and roll back a session with the configured tenant and isolation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			s, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = s.close() }()

			if err := s.driver.Ping(ctx); err != nil {
				return fmt.Errorf("ping %s: %w", s.driver.Name(), err)
			}

			iso, err := a.cfg.Session.IsolationLevel()
			if err != nil {
				return err
			}
			opts := []datacontext.Option{
				datacontext.WithIsolationLevel(iso),
				datacontext.WithLogger(a.log),
				datacontext.WithMetrics(a.metrics.Session),
			}
			if tenant := a.cfg.Session.TenantID; tenant != 0 {
				opts = append(opts, datacontext.WithTenant(tenant))
			}

			dc, err := datacontext.Open(ctx, s.driver, opts...)
			if err != nil {
				return err
			}
			defer func() { _ = dc.Close(ctx) }()

			if err := dc.Rollback(ctx); err != nil {
				return err
			}

			tenant := "none"
			if id := dc.TenantID(); id != nil {
				tenant = fmt.Sprint(*id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok driver=%s session=%s tenant=%s isolation=%s\n",
				s.driver.Name(), dc.ID(), tenant, dc.IsolationLevel())
			return nil
		},
	}
}
