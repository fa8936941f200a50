package application

import (
	"context"
	"fmt"

	"github.com/wms-platform/transfer-service/internal/domain"
	"github.com/wms-platform/transfer-service/pkg/logging"
)

// NoOverTransferCap disables the over-transfer hard cap
const NoOverTransferCap = -1

// DesignatedLedger owns the whole-pallet transfer record of each order line.
// Callers must hold the item lock.
type DesignatedLedger struct {
	repo       domain.DesignatedTransferRepository
	residuals  domain.ResidualTransferRepository
	orders     domain.OrderDirectory
	containers domain.ContainerDirectory
	slots      *SlotRegistry
	cap        int
	logger     *logging.Logger
}

// NewDesignatedLedger creates a DesignatedLedger. overTransferCap is the largest tolerated
// negative remaining quantity; NoOverTransferCap allows any over-transfer.
func NewDesignatedLedger(
	repo domain.DesignatedTransferRepository,
	residuals domain.ResidualTransferRepository,
	orders domain.OrderDirectory,
	containers domain.ContainerDirectory,
	slots *SlotRegistry,
	overTransferCap int,
	logger *logging.Logger,
) *DesignatedLedger {
	return &DesignatedLedger{
		repo:       repo,
		residuals:  residuals,
		orders:     orders,
		containers: containers,
		slots:      slots,
		cap:        overTransferCap,
		logger:     logger.WithComponent("designated-ledger"),
	}
}

// Commit reserves one slot per pallet and records the transfer. Nothing is left reserved
// when it fails.
func (l *DesignatedLedger) Commit(ctx context.Context, cmd CommitDesignatedCommand) (*domain.DesignatedTransfer, error) {
	line, err := l.orders.GetOrderLineItem(ctx, cmd.OrderID, cmd.ItemCode)
	if err != nil {
		return nil, err
	}

	// a locked line is never re-evaluated against a new selection
	existing, err := l.repo.FindByItem(ctx, cmd.OrderID, cmd.ItemCode)
	if err != nil {
		return nil, fmt.Errorf("failed to load designated transfer: %w", err)
	}
	if existing != nil && existing.IsLocked() {
		return nil, domain.ErrAlreadyTransferring
	}

	if len(cmd.SourcePalletIDs) == 0 || len(cmd.SourcePalletIDs) != len(cmd.DestinationSlotIDs) {
		return nil, domain.ErrMismatchedSelection
	}
	if len(cmd.SourcePalletQuantities) > 0 && len(cmd.SourcePalletQuantities) != len(cmd.SourcePalletIDs) {
		return nil, domain.ErrMismatchedSelection
	}

	slotIDs, err := domain.ParseSlotIDs(cmd.DestinationSlotIDs)
	if err != nil {
		return nil, err
	}

	quantities, err := l.palletQuantities(ctx, cmd, line.ProductCode())
	if err != nil {
		return nil, err
	}

	allocations, err := domain.PairSelection(cmd.SourcePalletIDs, slotIDs, quantities)
	if err != nil {
		return nil, err
	}

	residualQty := 0
	residual, err := l.residuals.FindByItem(ctx, cmd.OrderID, cmd.ItemCode)
	if err != nil {
		return nil, fmt.Errorf("failed to load residual transfer: %w", err)
	}
	if residual != nil {
		residualQty = residual.TotalTransferredQuantity
	}

	transfer, err := domain.NewDesignatedTransfer(line, allocations, residualQty)
	if err != nil {
		return nil, err
	}
	if err := checkOverTransferCap(l.cap, transfer.RemainingQuantity()); err != nil {
		return nil, err
	}

	owner := transfer.Ref()
	if err := l.slots.TryReserve(ctx, transfer.DestinationSlotIDs(), owner); err != nil {
		return nil, err
	}

	if err := l.repo.Save(ctx, transfer); err != nil {
		if _, relErr := l.slots.Release(ctx, transfer.DestinationSlotIDs(), owner); relErr != nil {
			l.logger.WithError(relErr).Error("Failed to release slots after save failure",
				"orderId", cmd.OrderID, "itemCode", cmd.ItemCode)
		}
		return nil, fmt.Errorf("failed to save designated transfer: %w", err)
	}

	return transfer, nil
}

// Get returns the transfer of an order line, or nil if nothing was committed
func (l *DesignatedLedger) Get(ctx context.Context, orderID, itemCode string) (*domain.DesignatedTransfer, error) {
	transfer, err := l.repo.FindByItem(ctx, orderID, itemCode)
	if err != nil {
		return nil, fmt.Errorf("failed to load designated transfer: %w", err)
	}
	return transfer, nil
}

// IsLocked reports whether a committed transfer blocks another commit
func (l *DesignatedLedger) IsLocked(ctx context.Context, orderID, itemCode string) (bool, error) {
	transfer, err := l.Get(ctx, orderID, itemCode)
	if err != nil {
		return false, err
	}
	return transfer != nil && transfer.IsLocked(), nil
}

// AccumulateResidual adds a confirmed residual batch to the designated record. It returns
// nil, nil when no designated transfer exists for the item.
func (l *DesignatedLedger) AccumulateResidual(ctx context.Context, orderID, itemCode string, quantity int) (*domain.DesignatedTransfer, error) {
	transfer, err := l.Get(ctx, orderID, itemCode)
	if err != nil || transfer == nil {
		return nil, err
	}

	if err := transfer.AccumulateResidual(quantity); err != nil {
		return nil, err
	}
	if err := l.repo.Save(ctx, transfer); err != nil {
		return nil, fmt.Errorf("failed to save designated transfer: %w", err)
	}
	return transfer, nil
}

// Restore writes back a snapshot taken before a failed multi-ledger update
func (l *DesignatedLedger) Restore(ctx context.Context, snapshot *domain.DesignatedTransfer) error {
	if err := l.repo.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to restore designated transfer: %w", err)
	}
	return nil
}

// checkOverTransferCap rejects a signed remaining quantity below the tolerated over-transfer
func checkOverTransferCap(limit, remaining int) error {
	if limit < 0 || remaining >= 0 {
		return nil
	}
	if -remaining > limit {
		return fmt.Errorf("%w: over by %d, cap %d", domain.ErrOverTransferCapExceeded, -remaining, limit)
	}
	return nil
}

func (l *DesignatedLedger) palletQuantities(ctx context.Context, cmd CommitDesignatedCommand, productCode string) ([]int, error) {
	if len(cmd.SourcePalletQuantities) > 0 {
		return cmd.SourcePalletQuantities, nil
	}

	quantities := make([]int, len(cmd.SourcePalletIDs))
	for i, palletID := range cmd.SourcePalletIDs {
		if palletID == "" {
			return nil, domain.ErrSourceRequired
		}
		qty, err := l.containers.GetContainerQuantity(ctx, palletID, productCode)
		if err != nil {
			return nil, err
		}
		quantities[i] = qty
	}
	return quantities, nil
}
