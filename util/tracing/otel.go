package tracing

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bsv-blockchain/chainstate/errors"
	"github.com/bsv-blockchain/chainstate/settings"
	"github.com/bsv-blockchain/chainstate/ulogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

var (
	mu      sync.Mutex
	tp      *sdktrace.TracerProvider
	tpLog   ulogger.Logger
	initErr error
	once    sync.Once
)

// InitTracer installs the global otlp/http trace provider exporting to Tracing.CollectorURL. Only the
// first call has any effect; later calls return its result.
func InitTracer(logger ulogger.Logger, appSettings *settings.Settings) error {
	once.Do(func() {
		provider, err := newTracerProvider(context.Background(), appSettings)
		if err != nil {
			initErr = err
			return
		}

		mu.Lock()
		tp, tpLog = provider, logger
		mu.Unlock()

		otel.SetTracerProvider(provider)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

		logger.Infof("[Tracing] exporting %.2f%% of traces to %s", appSettings.Tracing.SampleRate*100, appSettings.Tracing.CollectorURL.Redacted())
	})

	return initErr
}

func newTracerProvider(ctx context.Context, appSettings *settings.Settings) (*sdktrace.TracerProvider, error) {
	collector := appSettings.Tracing.CollectorURL
	if collector == nil || collector.Host == "" {
		return nil, errors.NewConfigurationError("tracing_collectorURL is required when tracing is enabled")
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(collector.Host)}

	if collector.Scheme != "https" {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	if collector.Path != "" && collector.Path != "/" {
		opts = append(opts, otlptracehttp.WithURLPath(collector.Path))
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, errors.NewConfigurationError("failed to create otlp exporter for %s", collector.Host, err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String(appSettings.Tracing.ServiceName),
		attribute.String("client", appSettings.ClientName),
		attribute.String("network", appSettings.ChainCfgParams.Name),
	))
	if err != nil {
		return nil, errors.NewProcessingError("failed to create tracing resource", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(time.Second)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(appSettings.Tracing.SampleRate))),
		sdktrace.WithResource(res),
	), nil
}

// ShutdownTracer flushes and shuts down the provider installed by InitTracer. A collector that cannot
// be reached is logged, not returned.
func ShutdownTracer(ctx context.Context) error {
	mu.Lock()
	defer mu.Unlock()

	if tp == nil {
		return nil
	}

	if err := tp.ForceFlush(ctx); err != nil {
		if !strings.Contains(err.Error(), "connection refused") {
			return errors.NewProcessingError("failed to flush spans", err)
		}

		tpLog.Warnf("[Tracing] collector unreachable, dropping spans: %v", err)
	}

	if err := tp.Shutdown(ctx); err != nil {
		return errors.NewProcessingError("failed to shut down tracer provider", err)
	}

	tp = nil

	return nil
}
