package kafka

import (
	"context"

	"github.com/wms-platform/transfer-service/internal/domain"
	"github.com/wms-platform/transfer-service/pkg/cloudevents"
	pkgkafka "github.com/wms-platform/transfer-service/pkg/kafka"
	"github.com/wms-platform/transfer-service/pkg/logging"
	"github.com/wms-platform/transfer-service/pkg/resilience"
)

// RobotDispatcher sends robot commands to the AMR command topic through a circuit breaker.
// Each command is sent once; the caller reports failures.
type RobotDispatcher struct {
	producer pkgkafka.EventProducer
	factory  *cloudevents.EventFactory
	topic    string
	breaker  *resilience.CircuitBreaker
}

func NewRobotDispatcher(producer pkgkafka.EventProducer, factory *cloudevents.EventFactory, topic string, breaker *resilience.CircuitBreaker) *RobotDispatcher {
	return &RobotDispatcher{producer: producer, factory: factory, topic: topic, breaker: breaker}
}

func (d *RobotDispatcher) Dispatch(ctx context.Context, command domain.RobotCommand) error {
	event := d.factory.CreateItemEvent(ctx, cloudevents.RobotTransferCommand, command.OrderID, command.ItemCode, command)
	event.ID = command.CommandID

	return d.breaker.Do(ctx, func(ctx context.Context) error {
		return d.producer.PublishEvent(ctx, d.topic, event)
	})
}

// LogDispatcher logs robot commands; used when no AMR gateway is configured
type LogDispatcher struct {
	logger *logging.Logger
}

func NewLogDispatcher(logger *logging.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger.WithComponent("robot-log")}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, command domain.RobotCommand) error {
	d.logger.WithContext(ctx).WithItem(command.OrderID, command.ItemCode).Info("Robot command",
		"commandId", command.CommandID, "type", command.Type, "moves", len(command.Moves))
	return nil
}
