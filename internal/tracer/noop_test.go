package tracer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoOpNewTraceReturnsSameSingletonEveryCall(t *testing.T) {
	_, t1 := NoOp.NewTrace(t.Context(), "op-a", nil)
	_, t2 := NoOp.NewTrace(t.Context(), "op-b", map[string]any{"k": "v"})
	assert.Same(t, t1, t2)
}

func TestNoOpHandleMethodsAreSafeNoOps(t *testing.T) {
	_, tr := NoOp.NewTrace(t.Context(), "op", nil)
	span := tr.Span("child-span")
	gen := tr.Generation("child-gen")

	assert.NotPanics(t, func() {
		tr.Update("out", map[string]any{"a": 1}, nil)
		span.Update("out", nil, &Usage{TotalTokens: 10})
		gen.Update("out", nil, &Usage{TotalTokens: 10})
		span.End()
		gen.End()
		tr.End()
		tr.End() // repeated End is tolerated
	})
}

func TestFromContextReturnsNoOpWhenNothingStored(t *testing.T) {
	tr := FromContext(t.Context())
	assert.Same(t, noopSingleton, tr)
}

func TestFromContextReturnsStoredTrace(t *testing.T) {
	ctx, tr := NoOp.NewTrace(t.Context(), "op", nil)
	assert.Same(t, tr, FromContext(ctx))
}
