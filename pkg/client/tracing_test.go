package client_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/ajitpratap0/mcp-client-go/pkg/client"
	"github.com/ajitpratap0/mcp-client-go/pkg/protocol"
	"github.com/ajitpratap0/mcp-client-go/pkg/transport/transporttest"
)

func spanAttr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestRequestsAreTraced(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer provider.Shutdown(context.Background())

	server := transporttest.NewServer()
	server.HandleError(protocol.MethodCallTool, protocol.InvalidParams, "bad", nil)
	c, _ := newClient(t, server, client.WithTracer(provider.Tracer("test")))
	connect(t, c)

	require.NoError(t, c.Ping(context.Background()))
	_, err := c.CallTool(context.Background(), "read_file", nil)
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 3)

	assert.Equal(t, "mcp.initialize", spans[0].Name())
	assert.Equal(t, "mcp.ping", spans[1].Name())
	assert.Equal(t, "mcp.tools/call", spans[2].Name())

	ping := spans[1]
	assert.Equal(t, trace.SpanKindClient, ping.SpanKind())
	assert.Equal(t, codes.Ok, ping.Status().Code)
	v, ok := spanAttr(ping, "rpc.method")
	require.True(t, ok)
	assert.Equal(t, "ping", v.AsString())
	v, ok = spanAttr(ping, "mcp.request_id")
	require.True(t, ok)
	assert.Equal(t, "2", v.AsString())

	call := spans[2]
	assert.Equal(t, codes.Error, call.Status().Code)
	v, ok = spanAttr(call, "rpc.jsonrpc.error_code")
	require.True(t, ok)
	assert.Equal(t, int64(protocol.InvalidParams), v.AsInt64())
	require.NotEmpty(t, call.Events())
	assert.Equal(t, "exception", call.Events()[0].Name)
}

func TestGatedCallsAreNotTraced(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer provider.Shutdown(context.Background())

	server := transporttest.NewServer()
	c, _ := newClient(t, server, client.WithTracer(provider.Tracer("test")))

	_, err := c.Invoke(context.Background(), protocol.MethodPing, nil)
	require.Error(t, err)
	assert.Empty(t, recorder.Ended())
}
