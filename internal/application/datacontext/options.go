package datacontext

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/tinydal/internal/infra/storage"
	"github.com/ahrav/tinydal/pkg/common/logger"
	"github.com/ahrav/tinydal/pkg/common/timeutil"
)

type config struct {
	tenantID  *int64
	isolation storage.IsolationLevel
	logger    *logger.Logger
	tracer    trace.Tracer
	metrics   SessionMetrics
	clock     timeutil.Provider
}

// Option configures a session at Open.
type Option func(*config)

// WithTenant scopes the session to tenantID. Without it the session is unscoped.
func WithTenant(tenantID int64) Option {
	return func(c *config) { c.tenantID = &tenantID }
}

// WithIsolationLevel sets the transaction isolation level. The default is
// storage.ReadCommitted.
func WithIsolationLevel(level storage.IsolationLevel) Option {
	return func(c *config) { c.isolation = level }
}

func WithLogger(l *logger.Logger) Option {
	return func(c *config) { c.logger = l }
}

func WithTracer(t trace.Tracer) Option {
	return func(c *config) { c.tracer = t }
}

func WithMetrics(m SessionMetrics) Option {
	return func(c *config) { c.metrics = m }
}

// WithClock replaces the clock used for save durations.
func WithClock(p timeutil.Provider) Option {
	return func(c *config) { c.clock = p }
}
