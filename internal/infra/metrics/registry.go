package metrics

import (
	"go.opentelemetry.io/otel/metric"

	"github.com/ahrav/tinydal/internal/application/datacontext"
)

const namespace = "tinydal"

// Registry provides access to all metric implementations.
type Registry struct {
	Session datacontext.SessionMetrics
}

// NewRegistry creates and initializes all metrics implementations from a
// single meter provider.
func NewRegistry(mp metric.MeterProvider) (*Registry, error) {
	sessionMetrics, err := newSessionMetrics(mp)
	if err != nil {
		return nil, err
	}

	return &Registry{Session: sessionMetrics}, nil
}
