package tracing

import (
	"context"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const traceparentHeader = "traceparent"

// InjectTraceContext adds the current trace context to Kafka message headers
func InjectTraceContext(ctx context.Context, msg *sarama.ProducerMessage) {
	carrier := &MessageCarrier{Headers: msg.Headers}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	msg.Headers = carrier.Headers
}

// ExtractTraceContext retrieves trace context from Kafka message headers
func ExtractTraceContext(ctx context.Context, msg *sarama.ConsumerMessage) context.Context {
	var headers []sarama.RecordHeader
	if msg.Headers != nil {
		for _, h := range msg.Headers {
			headers = append(headers, *h)
		}
	}
	carrier := &MessageCarrier{Headers: headers}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

// TraceParent renders the current span context as a W3C traceparent value,
// or "" when the context carries no recording span. Outbox rows store this
// so the relay can link the publish back to the originating request.
func TraceParent(ctx context.Context) string {
	carrier := propagation.MapCarrier{}
	propagation.TraceContext{}.Inject(ctx, carrier)
	return carrier.Get(traceparentHeader)
}

// ContextWithTraceParent restores a trace context from a stored traceparent
// value. An empty or malformed value leaves ctx unchanged.
func ContextWithTraceParent(ctx context.Context, traceparent string) context.Context {
	if traceparent == "" {
		return ctx
	}
	carrier := propagation.MapCarrier{traceparentHeader: traceparent}
	return propagation.TraceContext{}.Extract(ctx, carrier)
}
