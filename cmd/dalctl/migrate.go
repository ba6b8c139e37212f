package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply every pending up migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if _, err := os.Stat(dir); err != nil {
				return fmt.Errorf("migrations directory: %w", err)
			}

			s, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = s.close() }()

			if err := s.migrate(os.DirFS(dir)); err != nil {
				a.log.Error(ctx, "migration failed", "dir", dir, "error", err)
				return err
			}
			a.log.Info(ctx, "migrations applied", "dir", dir, "driver", s.driver.Name())
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "migrations", "directory holding the migration files")
	return cmd
}
