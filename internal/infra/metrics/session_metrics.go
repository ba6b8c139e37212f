package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ahrav/tinydal/internal/application/datacontext"
)

var _ datacontext.SessionMetrics = (*sessionMetrics)(nil)

// sessionMetrics implements datacontext.SessionMetrics.
type sessionMetrics struct {
	sessionsOpened metric.Int64Counter
	commits        metric.Int64Counter
	rollbacks      metric.Int64Counter
	storeErrors    metric.Int64Counter
	saveDuration   metric.Float64Histogram
	saveOperations metric.Int64Histogram
}

func newSessionMetrics(mp metric.MeterProvider) (*sessionMetrics, error) {
	meter := mp.Meter(namespace, metric.WithInstrumentationVersion("v0.1.0"))

	m := new(sessionMetrics)
	var err error

	if m.sessionsOpened, err = meter.Int64Counter(
		"sessions_opened_total",
		metric.WithDescription("Total number of sessions whose transaction began"),
	); err != nil {
		return nil, err
	}

	if m.commits, err = meter.Int64Counter(
		"session_commits_total",
		metric.WithDescription("Total number of committed sessions"),
	); err != nil {
		return nil, err
	}

	if m.rollbacks, err = meter.Int64Counter(
		"session_rollbacks_total",
		metric.WithDescription("Total number of rolled back sessions by reason"),
	); err != nil {
		return nil, err
	}

	if m.storeErrors, err = meter.Int64Counter(
		"store_errors_total",
		metric.WithDescription("Total number of failed store calls by operation and kind"),
	); err != nil {
		return nil, err
	}

	if m.saveDuration, err = meter.Float64Histogram(
		"save_duration_seconds",
		metric.WithDescription("Time spent flushing staged operations"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.saveOperations, err = meter.Int64Histogram(
		"save_operations",
		metric.WithDescription("Number of staged operations flushed per save"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *sessionMetrics) IncSessionsOpened(ctx context.Context, driver string, tenantScoped bool) {
	m.sessionsOpened.Add(ctx, 1, metric.WithAttributes(
		attribute.String("driver", driver),
		attribute.Bool("tenant_scoped", tenantScoped),
	))
}

func (m *sessionMetrics) IncCommits(ctx context.Context, driver string) {
	m.commits.Add(ctx, 1, metric.WithAttributes(attribute.String("driver", driver)))
}

func (m *sessionMetrics) IncRollbacks(ctx context.Context, driver string, reason string) {
	m.rollbacks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("driver", driver),
		attribute.String("reason", reason),
	))
}

func (m *sessionMetrics) IncStoreErrors(ctx context.Context, driver string, op string, kind string) {
	m.storeErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("driver", driver),
		attribute.String("operation", op),
		attribute.String("kind", kind),
	))
}

// ObserveSaveDuration records the flush latency and the batch size.
func (m *sessionMetrics) ObserveSaveDuration(ctx context.Context, driver string, operations int, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("driver", driver))
	m.saveDuration.Record(ctx, duration.Seconds(), attrs)
	m.saveOperations.Record(ctx, int64(operations), attrs)
}
