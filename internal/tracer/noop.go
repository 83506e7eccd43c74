package tracer

import "context"

// noopHandle implements Span, Generation, and Trace as a single type so
// every no-op handle in the process is the same pointer value (spec.md
// §4.13: "zero allocation via a singleton").
type noopHandle struct{}

func (*noopHandle) Update(string, map[string]any, *Usage) {}
func (*noopHandle) End()                                  {}
func (*noopHandle) Span(string) Span                      { return noopSingleton }
func (*noopHandle) Generation(string) Generation          { return noopSingleton }

var noopSingleton = &noopHandle{}

// NoOp is the default Tracer: every Trace/Span/Generation it creates is
// the shared noopSingleton value, so instrumenting a hot path costs
// nothing when no exporter is configured.
var NoOp Tracer = noopTracer{}

type noopTracer struct{}

func (noopTracer) NewTrace(ctx context.Context, _ string, _ map[string]any) (context.Context, Trace) {
	return ctx, noopSingleton
}
