// Package tracer implements spec.md §4.13's pluggable Tracer hierarchy:
// Tracer -> Trace -> Span|Generation. Every handle offers Update and End;
// the default implementation is a zero-allocation no-op singleton, and a
// configured exporter swaps in a remote OpenTelemetry-backed one.
package tracer

import "context"

// Usage carries token accounting for a Generation (spec.md §4.13's
// "usage?" argument to update).
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Handle is the common surface every Span and Generation offers.
type Handle interface {
	// Update attaches an output value, arbitrary metadata, and (for a
	// Generation) token usage to the handle. Safe to call multiple times
	// before End.
	Update(output string, metadata map[string]any, usage *Usage)
	// End closes the handle. Safe to call at most once; a no-op handle
	// tolerates repeated calls.
	End()
}

// Span is an internal operation within a Trace. It can itself parent
// further Spans and Generations (spec.md §4.13's hierarchy is recursive).
type Span interface {
	Handle
	Span(name string) Span
	Generation(name string) Generation
}

// Generation is a leaf handle representing one LLM/embedder call.
type Generation interface {
	Handle
}

// Trace is the root handle for one logical operation (an index run, a
// search request, an eval run). It has the same Span/Generation-creating
// shape as Span itself.
type Trace interface {
	Span
}

// Tracer creates Traces. NewTrace returns a context carrying the new
// trace so downstream code can pull it back out via FromContext.
type Tracer interface {
	NewTrace(ctx context.Context, name string, metadata map[string]any) (context.Context, Trace)
}

type traceContextKey struct{}

// FromContext returns the Trace stored in ctx by NewTrace, or the no-op
// Trace if none is present.
func FromContext(ctx context.Context) Trace {
	if t, ok := ctx.Value(traceContextKey{}).(Trace); ok {
		return t
	}
	return noopSingleton
}

func withTrace(ctx context.Context, t Trace) context.Context {
	return context.WithValue(ctx, traceContextKey{}, t)
}
