package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_AddsContextValues(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "production")

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithUserID(ctx, "user-1")
	ctx = WithTraceID(ctx, "trace-1")
	logger.With("component", "feed").InfoContext(ctx, "reaction toggled")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "reaction toggled", record["msg"])
	assert.Equal(t, "req-1", record["request_id"])
	assert.Equal(t, "user-1", record["user_id"])
	assert.Equal(t, "trace-1", record["trace_id"])
	assert.Equal(t, "feed", record["component"])
}

func TestNewLogger_TextOutsideProduction(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, "development").InfoContext(context.Background(), "hello")
	assert.Contains(t, buf.String(), "msg=hello")
	assert.NotContains(t, buf.String(), "request_id")
}

func TestStartGatewaySpan_NoopTracer(t *testing.T) {
	span, ctx := StartGatewaySpan(context.Background(), "select", "posts")
	require.NotNil(t, ctx)
	span.SetError(assert.AnError)
	span.End()
	assert.Len(t, span.TraceID(), 32)
}
