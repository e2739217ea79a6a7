package plan

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var tracer trace.Tracer = otel.Tracer("github.com/cortexgraph/kernel/pkg/plan")

// startSpan opens the span around the root consume loop (spec §5's "the
// only places control voluntarily returns to the scheduler are (a)
// operator consume boundaries for the caller"). The plan doesn't otherwise
// carry a context.Context, so Run's caller-visible span is rooted here.
func startSpan(_ *ExecContext) (context.Context, trace.Span) {
	return tracer.Start(context.Background(), "plan.run")
}
