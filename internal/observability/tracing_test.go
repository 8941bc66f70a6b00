package observability

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{ServiceName: "fitprove-test"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracing_StdoutExport(t *testing.T) {
	prevTracer, prevProvider := Tracer, otel.GetTracerProvider()
	t.Cleanup(func() {
		Tracer = prevTracer
		otel.SetTracerProvider(prevProvider)
	})

	var out bytes.Buffer
	shutdown, err := InitTracing(TracingConfig{
		ServiceName:  "fitprove-test",
		Enabled:      true,
		Exporter:     "stdout",
		SamplerRatio: 1,
		Output:       &out,
	})
	require.NoError(t, err)

	span, _ := StartServiceSpan(context.Background(), "PostService", "LoadPosts")
	assert.NotEqual(t, "00000000000000000000000000000000", span.TraceID())
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, out.String(), "PostService.LoadPosts")
	assert.Contains(t, out.String(), "fitprove-test")
}

func TestSpan_NilSafe(t *testing.T) {
	var s Span
	s.AddAttributes()
	s.SetError(assert.AnError)
	s.End()
	assert.Empty(t, s.TraceID())
}

func TestNewSampler(t *testing.T) {
	assert.Contains(t, newSampler(1).Description(), "AlwaysOn")
	assert.Contains(t, newSampler(0).Description(), "AlwaysOff")
	assert.Contains(t, newSampler(0.5).Description(), "ParentBased")
}
