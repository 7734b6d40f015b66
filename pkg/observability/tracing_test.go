package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestNewTracingProviderNoop(t *testing.T) {
	tp, err := NewTracingProvider(context.Background(), TracingConfig{ServiceName: "agent"})
	require.NoError(t, err)

	_, span := tp.StartSpan(context.Background(), "mcp.ping")
	assert.True(t, span.SpanContext().IsValid())
	assert.True(t, span.IsRecording())
	span.End()

	require.NoError(t, tp.Shutdown(context.Background()))
	require.NoError(t, tp.Shutdown(context.Background()))
}

func TestNewTracingProviderOTLPHTTP(t *testing.T) {
	tp, err := NewTracingProvider(context.Background(), TracingConfig{
		Exporter: ExporterTypeOTLPHTTP,
		Endpoint: "127.0.0.1:4318",
		Insecure: true,
	})
	require.NoError(t, err)
	assert.NotNil(t, tp.TracerProvider())
	assert.NotNil(t, tp.Tracer())
}

func TestNewTracingProviderUnsupportedExporter(t *testing.T) {
	_, err := NewTracingProvider(context.Background(), TracingConfig{Exporter: "jaeger"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported exporter type")
}

func TestMethodSampler(t *testing.T) {
	sampler := createSampler(TracingConfig{
		SampleRate:   0,
		AlwaysSample: []string{"tools/call"},
		NeverSample:  []string{"ping"},
	})

	decide := func(method string) sdktrace.SamplingDecision {
		return sampler.ShouldSample(sdktrace.SamplingParameters{
			ParentContext: context.Background(),
			Name:          "mcp." + method,
			Attributes:    []attribute.KeyValue{attribute.String("rpc.method", method)},
		}).Decision
	}

	assert.Equal(t, sdktrace.RecordAndSample, decide("tools/call"))
	assert.Equal(t, sdktrace.Drop, decide("ping"))
	assert.Equal(t, sdktrace.Drop, decide("tools/list"))
	assert.Contains(t, sampler.Description(), "MethodSampler")
}

func TestRateSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), rateSampler(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), rateSampler(0).Description())
	assert.Equal(t, sdktrace.TraceIDRatioBased(0.5).Description(), rateSampler(0.5).Description())
}

func TestRecordError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	ctx, span := provider.Tracer("test").Start(context.Background(), "op")
	RecordError(ctx, errors.New("boom"))
	span.End()

	// a context without a span is ignored
	RecordError(context.Background(), errors.New("ignored"))
	assert.False(t, trace.SpanFromContext(context.Background()).IsRecording())

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "boom", ended[0].Status().Description)
}
