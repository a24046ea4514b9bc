package observability

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/Alijeyrad/notifyhub/pkg/observability"
)

// MsgHandler is a NATS handler that receives the extracted trace context.
type MsgHandler func(ctx context.Context, msg *nats.Msg) error

// NatsHandler instruments a NATS subscription: it continues the publisher's
// trace from the message headers and records a counter and a duration
// histogram per subject.
func NatsHandler(queue string, next MsgHandler) nats.MsgHandler {
	tracer := otel.Tracer(tracerName)
	meter := otel.Meter(tracerName)

	msgCounter, _ := meter.Int64Counter(
		"nats_consumer_message_count",
		metric.WithDescription("Total number of NATS messages handled"),
		metric.WithUnit("{message}"),
	)
	msgDuration, _ := meter.Float64Histogram(
		"nats_consumer_message_duration_ms",
		metric.WithDescription("NATS message handling duration in milliseconds"),
		metric.WithUnit("ms"),
	)

	return func(msg *nats.Msg) {
		ctx := otel.GetTextMapPropagator().Extract(
			context.Background(),
			propagation.HeaderCarrier(msg.Header),
		)

		ctx, span := tracer.Start(ctx, "receive "+msg.Subject,
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(
				attribute.String("messaging.system", "nats"),
				attribute.String("messaging.destination.name", msg.Subject),
				attribute.String("messaging.consumer.group.name", queue),
				attribute.Int("messaging.message.body.size", len(msg.Data)),
			),
		)
		defer span.End()

		start := time.Now()
		err := next(ctx, msg)
		duration := time.Since(start).Seconds() * 1000

		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		attrs := metric.WithAttributes(
			attribute.String("messaging.destination.name", msg.Subject),
			attribute.String("outcome", outcome),
		)
		msgCounter.Add(ctx, 1, attrs)
		msgDuration.Record(ctx, duration, attrs)
	}
}

// InjectHeaders writes the trace context of ctx into msg so the consumer
// can continue the trace.
func InjectHeaders(ctx context.Context, msg *nats.Msg) {
	if msg.Header == nil {
		msg.Header = nats.Header{}
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))
}
