package application

import (
	"context"
	"fmt"

	"github.com/wms-platform/transfer-service/internal/domain"
)

// ResidualLedger owns the cumulative residual transfer record of each order line.
// Records are never deleted. Callers must hold the item lock.
type ResidualLedger struct {
	repo domain.ResidualTransferRepository
}

// NewResidualLedger creates a ResidualLedger
func NewResidualLedger(repo domain.ResidualTransferRepository) *ResidualLedger {
	return &ResidualLedger{repo: repo}
}

// Accumulate creates the record from the first batch or appends a later one.
// created reports whether this batch started the record.
func (l *ResidualLedger) Accumulate(ctx context.Context, orderID, itemCode string, payload domain.ResidualTransferPayload) (transfer *domain.ResidualTransfer, created bool, err error) {
	transfer, err = l.Get(ctx, orderID, itemCode)
	if err != nil {
		return nil, false, err
	}

	if transfer == nil {
		transfer = domain.NewResidualTransfer(orderID, itemCode, payload)
		created = true
	} else if err := transfer.Accumulate(payload); err != nil {
		return nil, false, err
	}

	if err := l.repo.Save(ctx, transfer); err != nil {
		return nil, false, fmt.Errorf("failed to save residual transfer: %w", err)
	}
	return transfer, created, nil
}

// Get returns the residual record of an order line, or nil if none was confirmed yet
func (l *ResidualLedger) Get(ctx context.Context, orderID, itemCode string) (*domain.ResidualTransfer, error) {
	transfer, err := l.repo.FindByItem(ctx, orderID, itemCode)
	if err != nil {
		return nil, fmt.Errorf("failed to load residual transfer: %w", err)
	}
	return transfer, nil
}

// MarkComplete sets the operator completion flag. Quantities are untouched.
func (l *ResidualLedger) MarkComplete(ctx context.Context, orderID, itemCode string) (*domain.ResidualTransfer, error) {
	return l.update(ctx, orderID, itemCode, (*domain.ResidualTransfer).MarkComplete)
}

// Reopen returns a completed record to in-progress
func (l *ResidualLedger) Reopen(ctx context.Context, orderID, itemCode string) (*domain.ResidualTransfer, error) {
	return l.update(ctx, orderID, itemCode, (*domain.ResidualTransfer).Reopen)
}

func (l *ResidualLedger) update(ctx context.Context, orderID, itemCode string, apply func(*domain.ResidualTransfer) error) (*domain.ResidualTransfer, error) {
	transfer, err := l.Get(ctx, orderID, itemCode)
	if err != nil {
		return nil, err
	}
	if transfer == nil {
		return nil, domain.ErrResidualTransferNotFound
	}

	if err := apply(transfer); err != nil {
		return nil, err
	}
	if len(transfer.GetDomainEvents()) == 0 {
		return transfer, nil
	}

	if err := l.repo.Save(ctx, transfer); err != nil {
		return nil, fmt.Errorf("failed to save residual transfer: %w", err)
	}
	return transfer, nil
}
