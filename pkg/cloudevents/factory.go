package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/wms-platform/transfer-service/pkg/logging"
)

// EventFactory creates CloudEvents for transfer domain events
type EventFactory struct {
	source string
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source}
}

// CreateEvent creates a new WMSCloudEvent. The correlation id and W3C trace
// parent are copied from ctx when present.
func (f *EventFactory) CreateEvent(ctx context.Context, eventType, subject string, data any) *WMSCloudEvent {
	event := &WMSCloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
	}

	if v, ok := ctx.Value(logging.CorrelationIDKey).(string); ok {
		event.CorrelationID = v
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	event.TraceParent = carrier.Get("traceparent")

	return event
}

// CreateItemEvent creates an event scoped to one order line; the subject is "order/<id>/item/<code>"
func (f *EventFactory) CreateItemEvent(ctx context.Context, eventType, orderID, itemCode string, data any) *WMSCloudEvent {
	event := f.CreateEvent(ctx, eventType, "order/"+orderID+"/item/"+itemCode, data)
	event.OrderID = orderID
	event.ItemCode = itemCode
	return event
}
