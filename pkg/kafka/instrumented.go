package kafka

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wms-platform/transfer-service/pkg/cloudevents"
	"github.com/wms-platform/transfer-service/pkg/logging"
	"github.com/wms-platform/transfer-service/pkg/metrics"
)

// EventProducer is the publishing surface shared by Producer and InstrumentedProducer
type EventProducer interface {
	PublishEvent(ctx context.Context, topic string, event *cloudevents.WMSCloudEvent) error
}

// InstrumentedProducer decorates an EventProducer with a producer span, publish
// metrics and a log line per event. metrics and logger may be nil.
type InstrumentedProducer struct {
	next    EventProducer
	metrics *metrics.Metrics
	logger  *logging.Logger
	tracer  trace.Tracer
}

func NewInstrumentedProducer(next EventProducer, m *metrics.Metrics, logger *logging.Logger) *InstrumentedProducer {
	return &InstrumentedProducer{next: next, metrics: m, logger: logger, tracer: otel.Tracer("kafka-producer")}
}

func (p *InstrumentedProducer) PublishEvent(ctx context.Context, topic string, event *cloudevents.WMSCloudEvent) (err error) {
	attrs := []attribute.KeyValue{
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination.name", topic),
		attribute.String("messaging.message_id", event.ID),
		attribute.String("cloudevents.event_type", event.Type),
	}
	if event.OrderID != "" {
		attrs = append(attrs, attribute.String("wms.order_id", event.OrderID), attribute.String("wms.item_code", event.ItemCode))
	}
	ctx, span := p.tracer.Start(ctx, topic+" publish", trace.WithSpanKind(trace.SpanKindProducer), trace.WithAttributes(attrs...))

	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		if p.metrics != nil {
			p.metrics.RecordKafkaPublish(topic, event.Type, err == nil, elapsed)
		}
		if p.logger != nil {
			p.logger.KafkaPublish(ctx, topic, event.Type, err == nil, elapsed)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	return p.next.PublishEvent(ctx, topic, event)
}
