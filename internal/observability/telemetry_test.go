package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInitTelemetryInstallsProvider(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	shutdown, err := InitTelemetry(context.Background(), Options{
		ServiceName: "terragen-test",
		Endpoint:    "127.0.0.1:4318",
		Insecure:    true,
	})
	require.NoError(t, err)

	_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	assert.True(t, ok, "Глобальный провайдер заменён SDK провайдером")

	// Спанов нет, выгрузка не обращается к коллектору
	assert.NoError(t, shutdown(context.Background()))
}
