package otel_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/ahrav/tinydal/pkg/common/otel"
)

func TestGetTraceID(t *testing.T) {
	assert.Equal(t, "00000000000000000000000000000000", otel.GetTraceID(context.Background()))

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	assert.Equal(t, span.SpanContext().TraceID().String(), otel.GetTraceID(ctx))
}

func TestGetMeterProvider(t *testing.T) {
	assert.NotNil(t, otel.GetMeterProvider())
}
