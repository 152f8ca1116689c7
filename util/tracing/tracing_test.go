package tracing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bsv-blockchain/chainstate/errors"
	"github.com/bsv-blockchain/chainstate/settings"
	"github.com/bsv-blockchain/chainstate/ulogger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func initTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(recorder),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(provider)

	mu.Lock()
	tp, tpLog = provider, ulogger.TestLogger{}
	mu.Unlock()

	t.Cleanup(func() {
		_ = ShutdownTracer(context.Background())
	})

	return recorder
}

func TestUTracer_WithError(t *testing.T) {
	recorder := initTestTracer(t)
	logger := &lineLogger{}

	_, _, endFn := Tracer("test-service").Start(context.Background(), "TestOperationWithError",
		WithLogMessage(logger, "Processing operation"),
	)

	endFn(errors.NewProcessingError("test error occurred"))

	assert.Contains(t, logger.lastLog, "Processing operation DONE in")
	assert.Contains(t, logger.lastLog, "with error: ")
	assert.Contains(t, logger.lastLog, "test error occurred")

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "TestOperationWithError", spans[0].Name())
	assert.Len(t, spans[0].Events(), 1)
}

func TestUTracer_ChildSpans(t *testing.T) {
	recorder := initTestTracer(t)

	tracer := Tracer("test-service", nil)

	ctx, parentSpan, endParent := tracer.Start(context.Background(), "ParentOperation",
		WithTag("block", "0f9188f13cb7b2c71f2a335e3a4fc328bf5beb436012afca590b1a11466e2206"),
	)

	_, childSpan, endChild := tracer.Start(ctx, "ChildOperation")
	endChild()
	endParent()

	assert.Equal(t, parentSpan.SpanContext().TraceID(), childSpan.SpanContext().TraceID())

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "ChildOperation", spans[0].Name())
	assert.Equal(t, parentSpan.SpanContext().SpanID(), spans[0].Parent().SpanID())
}

func TestUTracer_Metrics(t *testing.T) {
	initTestTracer(t)

	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "test_duration"})
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_total"})

	_, _, endFn := Tracer("test-service").Start(context.Background(), "Measured",
		WithHistogram(histogram),
		WithCounter(counter),
	)

	time.Sleep(time.Millisecond)
	endFn()

	assert.InDelta(t, 1, testutil.ToFloat64(counter), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(histogram))
}

type lineLogger struct {
	lastLog string
}

func (l *lineLogger) New(string, ...ulogger.Option) ulogger.Logger { return l }
func (l *lineLogger) Duplicate(...ulogger.Option) ulogger.Logger   { return l }
func (l *lineLogger) LogLevel() int                                 { return 0 }
func (l *lineLogger) SetLogLevel(string)                            {}
func (l *lineLogger) Debugf(format string, args ...interface{})     { l.log(format, args...) }
func (l *lineLogger) Infof(format string, args ...interface{})      { l.log(format, args...) }
func (l *lineLogger) Warnf(format string, args ...interface{})      { l.log(format, args...) }
func (l *lineLogger) Errorf(format string, args ...interface{})     { l.log(format, args...) }
func (l *lineLogger) Fatalf(format string, args ...interface{})     { l.log(format, args...) }

func (l *lineLogger) log(format string, args ...interface{}) {
	l.lastLog = fmt.Sprintf(format, args...)
}

func TestInitTracerRequiresCollector(t *testing.T) {
	tSettings := settings.NewSettings()
	tSettings.Tracing.CollectorURL = nil

	_, err := newTracerProvider(context.Background(), tSettings)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfiguration))
}
