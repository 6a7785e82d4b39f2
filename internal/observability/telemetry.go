package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/Nootest/3DShooting/internal/logging"
)

// DefaultEndpoint - OTLP HTTP коллектор по умолчанию
const DefaultEndpoint = "localhost:4318"

// Options - параметры экспорта трасс
type Options struct {
	ServiceName string
	Endpoint    string  // host:port OTLP HTTP; пусто - DefaultEndpoint
	Insecure    bool    // Без TLS
	SampleRatio float64 // Доля сохраняемых трасс, 0 или >=1 - все
}

// Shutdown сбрасывает накопленные спаны и закрывает экспортер
type Shutdown func(context.Context) error

// sampler: спаны волн редкие, поэтому по умолчанию пишем всё
func sampler(ratio float64) sdktrace.Sampler {
	if ratio <= 0 || ratio >= 1 {
		return sdktrace.AlwaysSample()
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}

func (o Options) exporterOptions() []otlptracehttp.Option {
	endpoint := o.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
	if o.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return opts
}

// InitTelemetry ставит глобальный TracerProvider с экспортом по OTLP HTTP.
// Спаны HTTP (otelgin) и волн (game.Context) уходят через него.
func InitTelemetry(ctx context.Context, opts Options) (Shutdown, error) {
	exporter, err := otlptracehttp.New(ctx, opts.exporterOptions()...)
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(opts.ServiceName)))
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(opts.SampleRatio)),
	)
	otel.SetTracerProvider(provider)
	logging.Info("📡 OpenTelemetry: service=%s, sample=%s", opts.ServiceName, sampler(opts.SampleRatio).Description())

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return provider.Shutdown(ctx)
	}, nil
}
