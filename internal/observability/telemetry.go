package observability

import (
	"context"
	"time"

	"github.com/annel0/terragen/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// TracerName: имя трассировщика генератора карты
const TracerName = "github.com/annel0/terragen"

// Options задаёт адрес OTLP коллектора
type Options struct {
	ServiceName string
	Endpoint    string // host:port; пусто: localhost:4318
	Insecure    bool
}

// InitTelemetry настраивает OTLP экспортер и устанавливает глобальный TracerProvider.
// Возвращает функцию shutdown, которая выгружает накопленные спаны.
func InitTelemetry(ctx context.Context, opts Options) (func(context.Context) error, error) {
	var clientOpts []otlptracehttp.Option
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, otlptracehttp.WithEndpoint(opts.Endpoint))
	}
	if opts.Insecure {
		clientOpts = append(clientOpts, otlptracehttp.WithInsecure())
	}

	exp, err := otlptracehttp.New(ctx, clientOpts...)
	if err != nil {
		return nil, err
	}

	serviceName := opts.ServiceName
	if serviceName == "" {
		serviceName = "terragen"
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, err
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exp),
		trace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = "localhost:4318"
	}
	logging.Info("📡 OpenTelemetry инициализирован (OTLP → %s, service=%s)", endpoint, serviceName)

	shutdown := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return tp.Shutdown(ctx)
	}
	return shutdown, nil
}
