package application

import (
	"context"

	"github.com/wms-platform/transfer-service/internal/domain"
)

// ReconciliationFacade combines both ledgers into the per-item remaining quantity.
// Callers must hold the item lock so the two ledgers are read consistently.
type ReconciliationFacade struct {
	orders     domain.OrderDirectory
	designated *DesignatedLedger
	residual   *ResidualLedger
}

// NewReconciliationFacade creates a ReconciliationFacade
func NewReconciliationFacade(orders domain.OrderDirectory, designated *DesignatedLedger, residual *ResidualLedger) *ReconciliationFacade {
	return &ReconciliationFacade{orders: orders, designated: designated, residual: residual}
}

// Get reconciles one order line
func (f *ReconciliationFacade) Get(ctx context.Context, orderID, itemCode string) (domain.Reconciliation, error) {
	line, err := f.orders.GetOrderLineItem(ctx, orderID, itemCode)
	if err != nil {
		return domain.Reconciliation{}, err
	}
	return f.ForLine(ctx, line)
}

// ForLine reconciles a line already loaded from the directory
func (f *ReconciliationFacade) ForLine(ctx context.Context, line *domain.OrderLineItem) (domain.Reconciliation, error) {
	designated, err := f.designated.Get(ctx, line.OrderID, line.ItemCode)
	if err != nil {
		return domain.Reconciliation{}, err
	}
	residual, err := f.residual.Get(ctx, line.OrderID, line.ItemCode)
	if err != nil {
		return domain.Reconciliation{}, err
	}
	return domain.Reconcile(line, designated, residual), nil
}

// RemainingFor returns the display remaining quantity, clamped at zero
func (f *ReconciliationFacade) RemainingFor(ctx context.Context, orderID, itemCode string) (int, error) {
	rec, err := f.Get(ctx, orderID, itemCode)
	if err != nil {
		return 0, err
	}
	return rec.RemainingQuantity, nil
}

// HasResidualStarted reports whether a residual record exists, whatever its quantity
func (f *ReconciliationFacade) HasResidualStarted(ctx context.Context, orderID, itemCode string) (bool, error) {
	residual, err := f.residual.Get(ctx, orderID, itemCode)
	if err != nil {
		return false, err
	}
	return residual != nil, nil
}
