package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/ahrav/tinydal/internal/config"
	"github.com/ahrav/tinydal/internal/infra/metrics"
	"github.com/ahrav/tinydal/internal/infra/storage"
	"github.com/ahrav/tinydal/internal/infra/storage/migrate"
	"github.com/ahrav/tinydal/internal/infra/storage/postgres"
	"github.com/ahrav/tinydal/internal/infra/storage/sqlite"
	"github.com/ahrav/tinydal/pkg/common/logger"
	"github.com/ahrav/tinydal/pkg/common/otel"
)

// app carries the state shared by every subcommand.
type app struct {
	configPath string
	logOut     io.Writer

	cfg      *config.Config
	log      *logger.Logger
	metrics  *metrics.Registry
	shutdown func(ctx context.Context)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "dalctl",
		Short:         "Manage a tinydal store",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if a.logOut == nil {
				a.logOut = cmd.ErrOrStderr()
			}
			return a.init()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a YAML configuration file")

	root.AddCommand(
		newMigrateCmd(a),
		newCheckCmd(a),
	)
	return root
}

func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level, err := cfg.Log.MinLevel()
	if err != nil {
		return err
	}
	a.log = logger.New(a.logOut, level, cfg.Log.ServiceName, otel.GetTraceID)
	a.shutdown = func(context.Context) {}

	if cfg.Telemetry.Enabled {
		_, cleanup, err := otel.InitTelemetry(a.log, cfg.Telemetry.OTel(cfg.Log.ServiceName))
		if err != nil {
			return fmt.Errorf("initializing telemetry: %w", err)
		}
		a.shutdown = cleanup
	}

	if a.metrics, err = metrics.NewRegistry(otel.GetMeterProvider()); err != nil {
		return fmt.Errorf("creating metrics: %w", err)
	}
	return nil
}

// execute runs root and flushes telemetry afterwards, including when the
// command fails.
func (a *app) execute(ctx context.Context, root *cobra.Command) error {
	defer a.close(ctx)
	return root.ExecuteContext(ctx)
}

func (a *app) close(ctx context.Context) {
	if a.shutdown != nil {
		a.shutdown(context.WithoutCancel(ctx))
		a.shutdown = nil
	}
}

// store is an opened database together with its session driver.
type store struct {
	pool   *pgxpool.Pool
	db     *sql.DB
	driver storage.Driver
}

func (a *app) openStore(ctx context.Context) (*store, error) {
	switch a.cfg.Database.Driver {
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, a.cfg.Database.SQLiteConfig())
		if err != nil {
			return nil, err
		}
		return &store{db: db, driver: sqlite.New(db)}, nil
	default:
		pool, err := postgres.Connect(ctx, a.cfg.Database.PoolConfig())
		if err != nil {
			return nil, err
		}
		return &store{pool: pool, driver: postgres.New(pool)}, nil
	}
}

func (s *store) migrate(src fs.FS) error {
	if s.pool != nil {
		return migrate.Postgres(s.pool, src, ".")
	}
	return migrate.SQLite(s.db, src, ".")
}

func (s *store) close() error { return s.driver.Close() }
