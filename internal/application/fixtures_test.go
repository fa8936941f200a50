package application

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wms-platform/transfer-service/internal/domain"
	"github.com/wms-platform/transfer-service/internal/infrastructure/memory"
	"github.com/wms-platform/transfer-service/pkg/logging"
	"github.com/wms-platform/transfer-service/pkg/metrics"
)

const (
	testOrder = "ORD-1"
	testItem  = "ITEM-1"
)

type stubDesignatedRepo struct {
	domain.DesignatedTransferRepository
	SaveFn func(ctx context.Context, transfer *domain.DesignatedTransfer) error
}

func (s *stubDesignatedRepo) Save(ctx context.Context, transfer *domain.DesignatedTransfer) error {
	if s.SaveFn != nil {
		return s.SaveFn(ctx, transfer)
	}
	return s.DesignatedTransferRepository.Save(ctx, transfer)
}

type stubResidualRepo struct {
	domain.ResidualTransferRepository
	SaveFn func(ctx context.Context, transfer *domain.ResidualTransfer) error
}

func (s *stubResidualRepo) Save(ctx context.Context, transfer *domain.ResidualTransfer) error {
	if s.SaveFn != nil {
		return s.SaveFn(ctx, transfer)
	}
	return s.ResidualTransferRepository.Save(ctx, transfer)
}

type stubSlotRepo struct {
	domain.SlotRepository
	CompareAndReserveFn func(ctx context.Context, id domain.SlotID, owner domain.TransferRef) (bool, error)
}

func (s *stubSlotRepo) CompareAndReserve(ctx context.Context, id domain.SlotID, owner domain.TransferRef) (bool, error) {
	if s.CompareAndReserveFn != nil {
		return s.CompareAndReserveFn(ctx, id, owner)
	}
	return s.SlotRepository.CompareAndReserve(ctx, id, owner)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.DomainEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, event domain.DomainEvent) error {
	return p.PublishAll(ctx, []domain.DomainEvent{event})
}

func (p *recordingPublisher) PublishAll(_ context.Context, events []domain.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

type stubDispatcher struct {
	mu         sync.Mutex
	commands   []domain.RobotCommand
	DispatchFn func(ctx context.Context, command domain.RobotCommand) error
}

func (d *stubDispatcher) Dispatch(ctx context.Context, command domain.RobotCommand) error {
	d.mu.Lock()
	d.commands = append(d.commands, command)
	d.mu.Unlock()
	if d.DispatchFn != nil {
		return d.DispatchFn(ctx, command)
	}
	return nil
}

func testLogger() *logging.Logger {
	return logging.New(&logging.Config{Level: logging.LevelError, ServiceName: "test", Output: io.Discard})
}

// harness wires a TransferService over in-memory stores. Order ORD-1 has ITEM-1 (100) and
// ITEM-2 (50); zone A is 4x4 with A-1-3 occupied, zone B is 3x3.
type harness struct {
	service    *TransferService
	directory  *memory.Directory
	slots      *memory.SlotRepository
	designated *stubDesignatedRepo
	residual   *stubResidualRepo
	sessions   *memory.PackingSessionRepository
	publisher  *recordingPublisher
	dispatcher *stubDispatcher
}

func newHarness(t *testing.T, overTransferCap int) *harness {
	t.Helper()
	ctx := context.Background()

	directory := memory.NewDirectory()
	directory.PutOrderLine(domain.OrderLineItem{OrderID: testOrder, ItemCode: testItem, ProductName: "Widget", OrderedQuantity: 100})
	directory.PutOrderLine(domain.OrderLineItem{OrderID: testOrder, ItemCode: "ITEM-2", ProductName: "Gadget", OrderedQuantity: 50})
	directory.PutContainer("PLT-001", map[string]int{testItem: 80})
	directory.PutContainer("PLT-002", map[string]int{testItem: 40})
	directory.PutContainer("PLT-003", map[string]int{"ITEM-2": 50})
	directory.PutContainer("TOTE-01", map[string]int{testItem: 20})
	directory.PutContainer("EMP-1", map[string]int{})
	directory.PutContainer("EMP-2", map[string]int{})

	slots := memory.NewSlotRepository()
	var grid []*domain.Slot
	for row := 1; row <= 4; row++ {
		for col := 1; col <= 4; col++ {
			grid = append(grid, domain.NewSlot("A", row, col, row == 1 && col == 3))
		}
	}
	for row := 1; row <= 3; row++ {
		for col := 1; col <= 3; col++ {
			grid = append(grid, domain.NewSlot("B", row, col, false))
		}
	}
	require.NoError(t, slots.EnsureSlots(ctx, grid))

	h := &harness{
		directory:  directory,
		slots:      slots,
		designated: &stubDesignatedRepo{DesignatedTransferRepository: memory.NewDesignatedTransferRepository()},
		residual:   &stubResidualRepo{ResidualTransferRepository: memory.NewResidualTransferRepository()},
		sessions:   memory.NewPackingSessionRepository(),
		publisher:  &recordingPublisher{},
		dispatcher: &stubDispatcher{},
	}
	h.service = NewTransferService(Dependencies{
		Slots:           slots,
		Designated:      h.designated,
		Residual:        h.residual,
		Sessions:        h.sessions,
		Orders:          directory,
		Containers:      directory,
		Publisher:       h.publisher,
		Dispatcher:      h.dispatcher,
		Metrics:         metrics.New(metrics.DefaultConfig("test")),
		Logger:          testLogger(),
		OverTransferCap: overTransferCap,
	})
	return h
}

func (h *harness) commit(t *testing.T, pallets, slots []string) (*DesignatedCommitResultDTO, error) {
	t.Helper()
	return h.service.CommitDesignatedTransfer(context.Background(), CommitDesignatedCommand{
		OrderID:            testOrder,
		ItemCode:           testItem,
		SourcePalletIDs:    pallets,
		DestinationSlotIDs: slots,
	})
}

// stage packs quantity from PLT-002 and assigns carrier and destination
func (h *harness) stage(t *testing.T, quantity int, carrier, slot string) {
	t.Helper()
	ctx := context.Background()

	_, err := h.service.PackResidualLine(ctx, PackLineCommand{
		OrderID: testOrder, ItemCode: testItem, SourceKind: domain.SourcePallet, SourceID: "PLT-002", Quantity: quantity,
	})
	require.NoError(t, err)
	_, err = h.service.AssignCarrier(ctx, AssignCarrierCommand{OrderID: testOrder, ItemCode: testItem, EmptyPalletID: carrier})
	require.NoError(t, err)
	_, err = h.service.AssignDestination(ctx, AssignDestinationCommand{OrderID: testOrder, ItemCode: testItem, SlotID: slot})
	require.NoError(t, err)
}

func (h *harness) confirm(t *testing.T) (*ResidualConfirmResultDTO, error) {
	t.Helper()
	return h.service.ConfirmResidual(context.Background(), ItemCommand{OrderID: testOrder, ItemCode: testItem})
}

func (h *harness) slot(t *testing.T, id string) *domain.Slot {
	t.Helper()
	slot, err := h.slots.FindByID(context.Background(), domain.SlotID(id))
	require.NoError(t, err)
	require.NotNil(t, slot)
	return slot
}

func (h *harness) reconciliation(t *testing.T) *ReconciliationDTO {
	t.Helper()
	rec, err := h.service.GetReconciliation(context.Background(), GetItemQuery{OrderID: testOrder, ItemCode: testItem})
	require.NoError(t, err)
	return rec
}
