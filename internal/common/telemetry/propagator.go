package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Carrier: 큐에 넣는 작업과 함께 보관하는 trace context 헤더 묶음.
type Carrier = propagation.MapCarrier

// Capture: ctx 의 trace context 를 새 Carrier 로 떠낸다. 추적 중이 아니면 빈 Carrier.
func Capture(ctx context.Context) Carrier {
	c := Carrier{}
	otel.GetTextMapPropagator().Inject(ctx, c)
	return c
}

// Restore: parent 에 c 의 trace context 를 입힌다. 작업자는 이 context 로 자식 span 을 만든다.
func Restore(parent context.Context, c Carrier) context.Context {
	if len(c) == 0 {
		return parent
	}
	return otel.GetTextMapPropagator().Extract(parent, c)
}
