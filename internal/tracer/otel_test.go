package tracer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOtelTracerDisabledReturnsNil(t *testing.T) {
	tr, err := NewOtelTracer(Config{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, tr)
}

func TestNewOtelTracerMissingPublicKeyReturnsNil(t *testing.T) {
	tr, err := NewOtelTracer(Config{
		Enabled:           true,
		LangfuseHost:      "cloud.langfuse.com:443",
		LangfuseSecretKey: "sk-secret",
	})
	require.NoError(t, err)
	assert.Nil(t, tr)
}

func TestNewOtelTracerMissingSecretKeyReturnsNil(t *testing.T) {
	tr, err := NewOtelTracer(Config{
		Enabled:           true,
		LangfuseHost:      "cloud.langfuse.com:443",
		LangfusePublicKey: "pk-public",
	})
	require.NoError(t, err)
	assert.Nil(t, tr)
}

func TestOtelTracerShutdownNilIsSafe(t *testing.T) {
	var tr *OtelTracer
	assert.NoError(t, tr.Shutdown(t.Context()))
}

func TestDefaultConfigDisabledByDefault(t *testing.T) {
	cfg := DefaultConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "ctx", cfg.ServiceName)
}

func TestNewOtelTracerBuildsHierarchyWhenFullyConfigured(t *testing.T) {
	tr, err := NewOtelTracer(Config{
		Enabled:           true,
		ServiceName:       "ctx-test",
		LangfuseHost:      "localhost:4317",
		LangfusePublicKey: "pk-test",
		LangfuseSecretKey: "sk-test",
		SampleRate:        1.0,
	})
	require.NoError(t, err)
	require.NotNil(t, tr)
	t.Cleanup(func() { _ = tr.Shutdown(t.Context()) })

	ctx, trace := tr.NewTrace(t.Context(), "index-run", map[string]any{"project": "demo"})
	require.NotNil(t, trace)

	span := trace.Span("scan")
	span.Update("scanned 10 files", map[string]any{"count": 10}, nil)
	span.End()

	gen := trace.Generation("embed-batch")
	gen.Update("embedded", nil, &Usage{PromptTokens: 5, TotalTokens: 5})
	gen.End()

	trace.Update("done", nil, nil)
	trace.End()

	assert.Same(t, trace, FromContext(ctx))
}
