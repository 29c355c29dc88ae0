package bootstrap

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// OTelHandler: 기록 시점 context 에 유효한 span 이 있으면 trace_id, span_id 를 붙인다.
// 요청 로그와 재계산 작업 로그를 같은 trace 로 묶어 볼 수 있다.
type OTelHandler struct {
	next slog.Handler
}

// NewOTelHandler: next 를 감싼다. next 가 이미 OTelHandler 면 그대로 돌려준다.
func NewOTelHandler(next slog.Handler) slog.Handler {
	if h, ok := next.(*OTelHandler); ok {
		return h
	}
	return &OTelHandler{next: next}
}

func (h *OTelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *OTelHandler) Handle(ctx context.Context, r slog.Record) error {
	sc := trace.SpanContextFromContext(ctx)
	if sc.IsValid() {
		r = r.Clone()
		r.AddAttrs(slog.String("trace_id", sc.TraceID().String()), slog.String("span_id", sc.SpanID().String()))
	}
	//nolint:wrapcheck // slog.Handler 구현
	return h.next.Handle(ctx, r)
}

func (h *OTelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &OTelHandler{next: h.next.WithAttrs(attrs)}
}

func (h *OTelHandler) WithGroup(name string) slog.Handler {
	return &OTelHandler{next: h.next.WithGroup(name)}
}
