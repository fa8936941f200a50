package application

import (
	"context"
	"fmt"

	"github.com/wms-platform/transfer-service/internal/domain"
	"github.com/wms-platform/transfer-service/pkg/logging"
)

// ResidualPacker stages residual batches: pack lines, assign a carrier, reserve a
// destination slot. Callers must hold the item lock.
type ResidualPacker struct {
	sessions   domain.PackingSessionRepository
	orders     domain.OrderDirectory
	containers domain.ContainerDirectory
	residuals  domain.ResidualTransferRepository
	slots      *SlotRegistry
	logger     *logging.Logger
}

// NewResidualPacker creates a ResidualPacker
func NewResidualPacker(
	sessions domain.PackingSessionRepository,
	orders domain.OrderDirectory,
	containers domain.ContainerDirectory,
	residuals domain.ResidualTransferRepository,
	slots *SlotRegistry,
	logger *logging.Logger,
) *ResidualPacker {
	return &ResidualPacker{
		sessions:   sessions,
		orders:     orders,
		containers: containers,
		residuals:  residuals,
		slots:      slots,
		logger:     logger.WithComponent("residual-packer"),
	}
}

// Session returns the current session, or a fresh empty one that is not stored yet
func (p *ResidualPacker) Session(ctx context.Context, orderID, itemCode string) (*domain.PackingSession, error) {
	session, err := p.sessions.Get(ctx, orderID, itemCode)
	if err != nil {
		return nil, fmt.Errorf("failed to load packing session: %w", err)
	}
	if session == nil {
		session = domain.NewPackingSession(orderID, itemCode)
	}
	return session, nil
}

// AddPackedLine packs quantity from a pallet or tote, bounded by the container's stock
func (p *ResidualPacker) AddPackedLine(ctx context.Context, cmd PackLineCommand) (*domain.PackingSession, error) {
	line, err := p.orders.GetOrderLineItem(ctx, cmd.OrderID, cmd.ItemCode)
	if err != nil {
		return nil, err
	}
	if !cmd.SourceKind.IsValid() {
		return nil, domain.ErrInvalidSourceKind
	}
	if cmd.SourceID == "" {
		return nil, domain.ErrSourceRequired
	}

	available, err := p.containers.GetContainerQuantity(ctx, cmd.SourceID, line.ProductCode())
	if err != nil {
		return nil, err
	}

	session, err := p.Session(ctx, cmd.OrderID, cmd.ItemCode)
	if err != nil {
		return nil, err
	}
	packed := domain.PackedLine{SourceKind: cmd.SourceKind, SourceID: cmd.SourceID, Quantity: cmd.Quantity}
	if err := session.AddLine(packed, available); err != nil {
		return nil, err
	}

	return session, p.save(ctx, session)
}

// RemovePackedLine unpacks one line while the session is still packing
func (p *ResidualPacker) RemovePackedLine(ctx context.Context, cmd RemovePackedLineCommand) (*domain.PackingSession, error) {
	session, err := p.existing(ctx, cmd.OrderID, cmd.ItemCode)
	if err != nil {
		return nil, err
	}
	if err := session.RemoveLine(cmd.Index); err != nil {
		return nil, err
	}

	if session.State == domain.SessionEmpty {
		if err := p.sessions.Delete(ctx, cmd.OrderID, cmd.ItemCode); err != nil {
			return nil, fmt.Errorf("failed to delete packing session: %w", err)
		}
		return session, nil
	}
	return session, p.save(ctx, session)
}

// AssignCarrier sets the empty pallet for the batch. Once a residual record exists its
// carrier is the only one accepted.
func (p *ResidualPacker) AssignCarrier(ctx context.Context, cmd AssignCarrierCommand) (*domain.PackingSession, error) {
	session, err := p.existing(ctx, cmd.OrderID, cmd.ItemCode)
	if err != nil {
		return nil, err
	}

	if err := session.AssignCarrier(cmd.EmptyPalletID); err != nil {
		return nil, err
	}

	record, err := p.residualRecord(ctx, cmd.OrderID, cmd.ItemCode)
	if err != nil {
		return nil, err
	}
	if record != nil {
		if err := record.CheckTarget(cmd.EmptyPalletID, ""); err != nil {
			return nil, err
		}
	}

	return session, p.save(ctx, session)
}

// AssignDestination reserves the destination slot for the item's residual transfer.
// Choosing the already reserved slot again is a no-op.
func (p *ResidualPacker) AssignDestination(ctx context.Context, cmd AssignDestinationCommand) (*domain.PackingSession, error) {
	slotID, err := domain.ParseSlotID(cmd.SlotID)
	if err != nil {
		return nil, err
	}

	session, err := p.existing(ctx, cmd.OrderID, cmd.ItemCode)
	if err != nil {
		return nil, err
	}
	if session.State == domain.SessionReadyForDestination {
		if session.DestinationSlotID == slotID {
			return session, nil
		}
		return nil, domain.ErrInvalidSessionState
	}
	if err := session.CheckDestinationGate(); err != nil {
		return nil, err
	}

	record, err := p.residualRecord(ctx, cmd.OrderID, cmd.ItemCode)
	if err != nil {
		return nil, err
	}
	if record != nil {
		if err := record.CheckTarget("", slotID); err != nil {
			return nil, err
		}
	}

	owner := domain.ResidualRef(cmd.OrderID, cmd.ItemCode)
	if err := p.slots.TryReserve(ctx, []domain.SlotID{slotID}, owner); err != nil {
		return nil, err
	}

	if err := session.AssignDestination(slotID); err != nil {
		return nil, err
	}
	if err := p.save(ctx, session); err != nil {
		if record == nil {
			p.release(ctx, slotID, owner)
		}
		return nil, err
	}
	return session, nil
}

// Seal validates the session and produces the batch payload. It returns the session as
// it was before sealing so a failed confirmation can Restore it. Nothing is stored.
func (p *ResidualPacker) Seal(ctx context.Context, orderID, itemCode, productCode string) (*domain.PackingSession, domain.ResidualTransferPayload, error) {
	session, err := p.Session(ctx, orderID, itemCode)
	if err != nil {
		return nil, domain.ResidualTransferPayload{}, err
	}

	staged := session.Clone()
	payload, err := session.Confirm(productCode)
	if err != nil {
		return nil, domain.ResidualTransferPayload{}, err
	}
	return staged, payload, nil
}

// Restore puts back a session removed by a confirmation that did not complete
func (p *ResidualPacker) Restore(ctx context.Context, session *domain.PackingSession) error {
	return p.save(ctx, session)
}

// Clear drops the stored session of an order line
func (p *ResidualPacker) Clear(ctx context.Context, orderID, itemCode string) error {
	if err := p.sessions.Delete(ctx, orderID, itemCode); err != nil {
		return fmt.Errorf("failed to delete packing session: %w", err)
	}
	return nil
}

// Discard abandons the session. A reserved destination is released unless the item's
// residual record already owns it. It returns the released slots.
func (p *ResidualPacker) Discard(ctx context.Context, orderID, itemCode string) ([]domain.SlotID, error) {
	session, err := p.sessions.Get(ctx, orderID, itemCode)
	if err != nil {
		return nil, fmt.Errorf("failed to load packing session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	var released []domain.SlotID
	if session.HoldsReservation() {
		record, err := p.residualRecord(ctx, orderID, itemCode)
		if err != nil {
			return nil, err
		}
		if record == nil {
			n, err := p.slots.Release(ctx, []domain.SlotID{session.DestinationSlotID}, domain.ResidualRef(orderID, itemCode))
			if err != nil {
				return nil, err
			}
			if n > 0 {
				released = append(released, session.DestinationSlotID)
			}
		}
	}

	if err := p.Clear(ctx, orderID, itemCode); err != nil {
		return nil, err
	}
	return released, nil
}

// existing loads a stored session; a missing one has nothing packed
func (p *ResidualPacker) existing(ctx context.Context, orderID, itemCode string) (*domain.PackingSession, error) {
	session, err := p.sessions.Get(ctx, orderID, itemCode)
	if err != nil {
		return nil, fmt.Errorf("failed to load packing session: %w", err)
	}
	if session == nil {
		return nil, domain.ErrNoPackedLines
	}
	return session, nil
}

func (p *ResidualPacker) residualRecord(ctx context.Context, orderID, itemCode string) (*domain.ResidualTransfer, error) {
	record, err := p.residuals.FindByItem(ctx, orderID, itemCode)
	if err != nil {
		return nil, fmt.Errorf("failed to load residual transfer: %w", err)
	}
	return record, nil
}

func (p *ResidualPacker) save(ctx context.Context, session *domain.PackingSession) error {
	if err := p.sessions.Save(ctx, session); err != nil {
		return fmt.Errorf("failed to save packing session: %w", err)
	}
	return nil
}

func (p *ResidualPacker) release(ctx context.Context, slotID domain.SlotID, owner domain.TransferRef) {
	if _, err := p.slots.Release(ctx, []domain.SlotID{slotID}, owner); err != nil {
		p.logger.WithError(err).Error("Failed to release destination slot", "slotId", slotID, "owner", owner.String())
	}
}
