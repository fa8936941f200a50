package kafka

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/transfer-service/internal/domain"
	"github.com/wms-platform/transfer-service/pkg/cloudevents"
	"github.com/wms-platform/transfer-service/pkg/logging"
	"github.com/wms-platform/transfer-service/pkg/resilience"
)

type mockProducer struct {
	publishFunc func(ctx context.Context, topic string, event *cloudevents.WMSCloudEvent) error
	calls       int
}

func (m *mockProducer) PublishEvent(ctx context.Context, topic string, event *cloudevents.WMSCloudEvent) error {
	m.calls++
	if m.publishFunc != nil {
		return m.publishFunc(ctx, topic, event)
	}
	return nil
}

func testLogger() *logging.Logger {
	return logging.New(&logging.Config{Level: logging.LevelError, ServiceName: "test", Output: io.Discard})
}

func TestEventPublisher_MapsDomainEvents(t *testing.T) {
	var published []*cloudevents.WMSCloudEvent
	producer := &mockProducer{
		publishFunc: func(ctx context.Context, topic string, event *cloudevents.WMSCloudEvent) error {
			assert.Equal(t, "wms.transfer.events", topic)
			published = append(published, event)
			return nil
		},
	}
	publisher := NewEventPublisher(producer, cloudevents.NewEventFactory(cloudevents.SourceTransfer), "wms.transfer.events")

	events := []domain.DomainEvent{
		&domain.DesignatedTransferCommittedEvent{OrderID: "ORD-1", ItemCode: "SKU-1"},
		&domain.ResidualBatchConfirmedEvent{OrderID: "ORD-1", ItemCode: "SKU-1"},
		&domain.ResidualTransferCompletedEvent{OrderID: "ORD-1", ItemCode: "SKU-1"},
		&domain.ResidualTransferReopenedEvent{OrderID: "ORD-1", ItemCode: "SKU-1"},
		&domain.SlotsReleasedEvent{Owner: domain.ResidualRef("ORD-1", "SKU-1")},
	}
	require.NoError(t, publisher.PublishAll(context.Background(), events))
	require.Len(t, published, 5)

	assert.Equal(t, cloudevents.DesignatedTransferCommitted, published[0].Type)
	assert.Equal(t, cloudevents.ResidualBatchConfirmed, published[1].Type)
	assert.Equal(t, cloudevents.ResidualTransferCompleted, published[2].Type)
	assert.Equal(t, cloudevents.ResidualTransferReopened, published[3].Type)
	assert.Equal(t, cloudevents.SlotsReleased, published[4].Type)

	for _, e := range published {
		assert.Equal(t, "ORD-1", e.OrderID)
		assert.Equal(t, "SKU-1", e.ItemCode)
		assert.Equal(t, "order/ORD-1/item/SKU-1", e.Subject)
	}
}

func TestEventPublisher_PublishAllJoinsFailures(t *testing.T) {
	producer := &mockProducer{
		publishFunc: func(ctx context.Context, topic string, event *cloudevents.WMSCloudEvent) error {
			return errors.New("broker down")
		},
	}
	publisher := NewEventPublisher(producer, cloudevents.NewEventFactory(cloudevents.SourceTransfer), "wms.transfer.events")

	err := publisher.PublishAll(context.Background(), []domain.DomainEvent{
		&domain.ResidualTransferCompletedEvent{OrderID: "ORD-1", ItemCode: "SKU-1"},
		&domain.ResidualTransferReopenedEvent{OrderID: "ORD-1", ItemCode: "SKU-1"},
	})
	require.Error(t, err)
	assert.Equal(t, 2, producer.calls, "every event is attempted")
	assert.Contains(t, err.Error(), "transfer.residual.completed")
}

func TestRobotDispatcher_OpensCircuit(t *testing.T) {
	producer := &mockProducer{
		publishFunc: func(ctx context.Context, topic string, event *cloudevents.WMSCloudEvent) error {
			return errors.New("gateway unreachable")
		},
	}
	config := resilience.DefaultCircuitBreakerConfig("amr-dispatch")
	config.FailureThreshold = 2
	config.Timeout = time.Minute
	breaker := resilience.NewCircuitBreaker(config, testLogger().Logger, nil)
	dispatcher := NewRobotDispatcher(producer, cloudevents.NewEventFactory(cloudevents.SourceTransfer), "wms.amr.commands", breaker)

	command := domain.RobotCommand{CommandID: "cmd-1", Type: domain.RobotCommandDesignatedTransfer, OrderID: "ORD-1", ItemCode: "SKU-1"}

	assert.Error(t, dispatcher.Dispatch(context.Background(), command))
	assert.Error(t, dispatcher.Dispatch(context.Background(), command))

	err := dispatcher.Dispatch(context.Background(), command)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, 2, producer.calls, "open circuit does not reach the producer")
}

func TestRobotDispatcher_UsesCommandID(t *testing.T) {
	var sent *cloudevents.WMSCloudEvent
	producer := &mockProducer{
		publishFunc: func(ctx context.Context, topic string, event *cloudevents.WMSCloudEvent) error {
			assert.Equal(t, "wms.amr.commands", topic)
			sent = event
			return nil
		},
	}
	breaker := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("amr-dispatch"), testLogger().Logger, nil)
	dispatcher := NewRobotDispatcher(producer, cloudevents.NewEventFactory(cloudevents.SourceTransfer), "wms.amr.commands", breaker)

	command := domain.RobotCommand{
		CommandID: "cmd-42",
		Type:      domain.RobotCommandResidualTransfer,
		OrderID:   "ORD-1",
		ItemCode:  "SKU-1",
		Moves:     []domain.RobotMove{{ContainerID: "EMP-1", SlotID: "B-2-2"}},
	}
	require.NoError(t, dispatcher.Dispatch(context.Background(), command))

	require.NotNil(t, sent)
	assert.Equal(t, "cmd-42", sent.ID)
	assert.Equal(t, cloudevents.RobotTransferCommand, sent.Type)
	assert.Equal(t, command, sent.Data)
}
