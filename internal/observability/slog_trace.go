package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TraceHandler stamps records with the active trace and span ids. Records at
// warn or above are also added to the span as events, so a failed wallet
// submission or ledger read shows up in the trace next to the RPC spans.
type TraceHandler struct {
	next slog.Handler
}

func NewTraceHandler(next slog.Handler) *TraceHandler {
	return &TraceHandler{next: next}
}

func (h *TraceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *TraceHandler) Handle(ctx context.Context, r slog.Record) error {
	span := trace.SpanFromContext(ctx)
	sc := span.SpanContext()
	if !sc.IsValid() {
		return h.next.Handle(ctx, r)
	}

	r.AddAttrs(
		slog.String("trace_id", sc.TraceID().String()),
		slog.String("span_id", sc.SpanID().String()),
	)

	if r.Level >= slog.LevelWarn && span.IsRecording() {
		attrs := []attribute.KeyValue{attribute.String("log.severity", r.Level.String())}
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == "err" {
				attrs = append(attrs, attribute.String("log.err", a.Value.String()))
			}
			return true
		})
		span.AddEvent(r.Message, trace.WithAttributes(attrs...))
	}

	return h.next.Handle(ctx, r)
}

func (h *TraceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TraceHandler{next: h.next.WithAttrs(attrs)}
}

func (h *TraceHandler) WithGroup(name string) slog.Handler {
	return &TraceHandler{next: h.next.WithGroup(name)}
}
