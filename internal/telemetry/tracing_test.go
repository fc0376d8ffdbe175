package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitTracerProviderInstallsPropagator(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp, err := InitTracerProvider(context.Background(), "menucrawler", "test", exporter)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := otel.Tracer("telemetry-test").Start(context.Background(), "campaign")
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	span.End()

	require.NotEmpty(t, carrier.Get("traceparent"))

	require.NoError(t, tp.ForceFlush(context.Background()))
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.Equal(t, "campaign", spans[0].Name)
}
