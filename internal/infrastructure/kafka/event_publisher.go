package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/wms-platform/transfer-service/internal/domain"
	"github.com/wms-platform/transfer-service/pkg/cloudevents"
	pkgkafka "github.com/wms-platform/transfer-service/pkg/kafka"
	"github.com/wms-platform/transfer-service/pkg/logging"
)

var cloudEventTypes = map[string]string{
	(&domain.DesignatedTransferCommittedEvent{}).EventType(): cloudevents.DesignatedTransferCommitted,
	(&domain.ResidualBatchConfirmedEvent{}).EventType():      cloudevents.ResidualBatchConfirmed,
	(&domain.ResidualTransferCompletedEvent{}).EventType():   cloudevents.ResidualTransferCompleted,
	(&domain.ResidualTransferReopenedEvent{}).EventType():    cloudevents.ResidualTransferReopened,
	(&domain.SlotsReleasedEvent{}).EventType():               cloudevents.SlotsReleased,
}

// EventPublisher publishes transfer domain events as CloudEvents
type EventPublisher struct {
	producer pkgkafka.EventProducer
	factory  *cloudevents.EventFactory
	topic    string
}

func NewEventPublisher(producer pkgkafka.EventProducer, factory *cloudevents.EventFactory, topic string) *EventPublisher {
	return &EventPublisher{producer: producer, factory: factory, topic: topic}
}

func (p *EventPublisher) Publish(ctx context.Context, event domain.DomainEvent) error {
	ce, err := p.toCloudEvent(ctx, event)
	if err != nil {
		return err
	}
	return p.producer.PublishEvent(ctx, p.topic, ce)
}

// PublishAll attempts every event and joins the failures
func (p *EventPublisher) PublishAll(ctx context.Context, events []domain.DomainEvent) error {
	var errs []error
	for _, event := range events {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", event.EventType(), err))
		}
	}
	return errors.Join(errs...)
}

func (p *EventPublisher) toCloudEvent(ctx context.Context, event domain.DomainEvent) (*cloudevents.WMSCloudEvent, error) {
	ceType, ok := cloudEventTypes[event.EventType()]
	if !ok {
		return nil, fmt.Errorf("no cloud event type for %s", event.EventType())
	}

	if scoped, ok := event.(domain.ItemScoped); ok {
		orderID, itemCode := scoped.ItemKey()
		return p.factory.CreateItemEvent(ctx, ceType, orderID, itemCode, event), nil
	}
	return p.factory.CreateEvent(ctx, ceType, "transfer", event), nil
}

// LogPublisher logs domain events instead of publishing them; used when Kafka is disabled
type LogPublisher struct {
	logger *logging.Logger
}

func NewLogPublisher(logger *logging.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.WithComponent("event-log")}
}

func (p *LogPublisher) Publish(ctx context.Context, event domain.DomainEvent) error {
	data := map[string]any{"occurredAt": event.OccurredAt()}
	if scoped, ok := event.(domain.ItemScoped); ok {
		data["orderId"], data["itemCode"] = scoped.ItemKey()
	}
	p.logger.Event(ctx, event.EventType(), data)
	return nil
}

func (p *LogPublisher) PublishAll(ctx context.Context, events []domain.DomainEvent) error {
	for _, event := range events {
		_ = p.Publish(ctx, event)
	}
	return nil
}
