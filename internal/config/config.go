// Package config loads dalctl settings from defaults, an optional YAML file
// and TINYDAL_ prefixed environment variables.
package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/ahrav/tinydal/internal/infra/storage"
	"github.com/ahrav/tinydal/internal/infra/storage/postgres"
	"github.com/ahrav/tinydal/internal/infra/storage/sqlite"
	"github.com/ahrav/tinydal/pkg/common/logger"
	"github.com/ahrav/tinydal/pkg/common/otel"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config is the complete dalctl configuration.
type Config struct {
	Database  DatabaseConfig  `koanf:"database"`
	Session   SessionConfig   `koanf:"session"`
	Log       LogConfig       `koanf:"log"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// DatabaseConfig selects and locates the store.
type DatabaseConfig struct {
	Driver string `koanf:"driver" validate:"required,oneof=postgres sqlite"`

	// URL, when set, is used as the postgres connection string as is.
	URL      string `koanf:"url"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"      validate:"gte=0,lte=65535"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Name     string `koanf:"name"`
	SSLMode  string `koanf:"ssl_mode"  validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	MinConns int32  `koanf:"min_conns" validate:"gte=0"`
	MaxConns int32  `koanf:"max_conns" validate:"gte=0,gtefield=MinConns"`

	Path         string        `koanf:"path"`
	MaxOpenConns int           `koanf:"max_open_conns" validate:"gte=0"`
	BusyTimeout  time.Duration `koanf:"busy_timeout"   validate:"gte=0"`
}

// DSN returns the postgres connection string.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Name,
	}
	if c.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {c.SSLMode}}.Encode()
	}
	return u.String()
}

// PoolConfig returns the pgx pool settings.
func (c DatabaseConfig) PoolConfig() postgres.PoolConfig {
	return postgres.PoolConfig{DSN: c.DSN(), MinConns: c.MinConns, MaxConns: c.MaxConns}
}

// SQLiteConfig returns the sqlite settings.
func (c DatabaseConfig) SQLiteConfig() sqlite.Config {
	return sqlite.Config{Path: c.Path, MaxOpenConns: c.MaxOpenConns, BusyTimeout: c.BusyTimeout}
}

// SessionConfig holds the defaults for sessions opened by dalctl.
type SessionConfig struct {
	// TenantID scopes sessions to one tenant. Zero opens unscoped sessions.
	TenantID  int64  `koanf:"tenant_id" validate:"gte=0"`
	Isolation string `koanf:"isolation"`
}

// IsolationLevel parses Isolation.
func (c SessionConfig) IsolationLevel() (storage.IsolationLevel, error) {
	return storage.ParseIsolationLevel(c.Isolation)
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level       string `koanf:"level"`
	ServiceName string `koanf:"service_name" validate:"required"`
}

// MinLevel parses Level.
func (c LogConfig) MinLevel() (logger.Level, error) { return logger.ParseLevel(c.Level) }

// TelemetryConfig configures the otlp exporters.
type TelemetryConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"    validate:"required_if=Enabled true"`
	Probability float64 `koanf:"probability" validate:"gte=0,lte=1"`
	Insecure    bool    `koanf:"insecure"`
}

// OTel converts the telemetry settings for otel.InitTelemetry.
func (c TelemetryConfig) OTel(serviceName string) otel.Config {
	return otel.Config{
		ServiceName:      serviceName,
		ExporterEndpoint: c.Endpoint,
		Probability:      c.Probability,
		InsecureExporter: c.Insecure,
	}
}

// Default returns the configuration used before any source is applied.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:       DriverPostgres,
			Host:         "localhost",
			Port:         5432,
			User:         "postgres",
			Password:     "postgres",
			Name:         "tinydal",
			SSLMode:      "disable",
			MinConns:     1,
			MaxConns:     10,
			Path:         "tinydal.db",
			MaxOpenConns: 4,
			BusyTimeout:  5 * time.Second,
		},
		Session: SessionConfig{
			Isolation: storage.DefaultIsolationLevel.String(),
		},
		Log: LogConfig{
			Level:       "info",
			ServiceName: "dalctl",
		},
		Telemetry: TelemetryConfig{
			Endpoint:    "localhost:4317",
			Probability: 0.1,
			Insecure:    true,
		},
	}
}

func (c *Config) validateCustom() error {
	if c.Database.Driver == DriverSQLite && c.Database.Path == "" {
		return fmt.Errorf("database.path is required for the sqlite driver")
	}
	if c.Database.Driver == DriverPostgres && c.Database.URL == "" && (c.Database.Host == "" || c.Database.Name == "") {
		return fmt.Errorf("database configuration incomplete: either url or host and name are required")
	}
	if _, err := c.Session.IsolationLevel(); err != nil {
		return fmt.Errorf("session.isolation: %w", err)
	}
	if _, err := c.Log.MinLevel(); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}
