package application

import (
	"github.com/wms-platform/transfer-service/internal/domain"
)

// ToDesignatedTransferDTO converts the status view of an order line. transfer may be nil,
// in which case the line is reported as not started and residualQuantity, the residual
// already confirmed for the line, is the only quantity counted against it.
func ToDesignatedTransferDTO(line *domain.OrderLineItem, transfer *domain.DesignatedTransfer, residualQuantity int) *DesignatedTransferDTO {
	dto := &DesignatedTransferDTO{
		OrderID:                     line.OrderID,
		ItemCode:                    line.ItemCode,
		ProductName:                 line.ProductName,
		OrderedQuantity:             line.OrderedQuantity,
		Status:                      string(domain.DesignatedStatusNotStarted),
		Allocations:                 []PalletAllocationDTO{},
		ResidualAccumulatedQuantity: residualQuantity,
		RemainingQuantity:           line.OrderedQuantity - residualQuantity,
		IsOverTransferred:           residualQuantity > line.OrderedQuantity,
	}
	if transfer == nil {
		return dto
	}

	allocations := make([]PalletAllocationDTO, 0, len(transfer.Allocations))
	for _, a := range transfer.Allocations {
		allocations = append(allocations, PalletAllocationDTO{
			PalletID: a.PalletID,
			SlotID:   string(a.SlotID),
			Quantity: a.Quantity,
		})
	}

	committedAt := transfer.CommittedAt
	dto.Status = string(transfer.Status)
	dto.IsLocked = transfer.IsLocked()
	dto.Allocations = allocations
	dto.TransferredQuantity = transfer.TransferredQuantity
	dto.ResidualAccumulatedQuantity = transfer.ResidualAccumulatedQuantity
	dto.RemainingQuantity = transfer.RemainingQuantity()
	dto.IsOverTransferred = transfer.IsOverTransferred()
	dto.CommittedAt = &committedAt
	return dto
}

// ToPackedLineDTOs converts packed lines
func ToPackedLineDTOs(lines []domain.PackedLine) []PackedLineDTO {
	dtos := make([]PackedLineDTO, 0, len(lines))
	for _, l := range lines {
		dtos = append(dtos, PackedLineDTO{
			SourceKind: string(l.SourceKind),
			SourceID:   l.SourceID,
			Quantity:   l.Quantity,
		})
	}
	return dtos
}

// ToPackingSessionDTO converts a packing session
func ToPackingSessionDTO(session *domain.PackingSession) *PackingSessionDTO {
	if session == nil {
		return nil
	}

	return &PackingSessionDTO{
		OrderID:              session.OrderID,
		ItemCode:             session.ItemCode,
		State:                string(session.State),
		Lines:                ToPackedLineDTOs(session.Lines),
		TotalPacked:          session.TotalPacked(),
		CarrierID:            session.CarrierID,
		DestinationSlotID:    string(session.DestinationSlotID),
		CanAssignCarrier:     session.TotalPacked() > 0 && session.State.CanTransitionTo(domain.SessionReadyForCarrier),
		CanSelectDestination: session.CheckDestinationGate() == nil,
		CanConfirm:           session.CheckConfirmable() == nil,
		UpdatedAt:            session.UpdatedAt,
	}
}

// ToResidualTransferDTO converts a residual transfer
func ToResidualTransferDTO(transfer *domain.ResidualTransfer) *ResidualTransferDTO {
	if transfer == nil {
		return nil
	}

	return &ResidualTransferDTO{
		OrderID:                  transfer.OrderID,
		ItemCode:                 transfer.ItemCode,
		ProductCode:              transfer.ProductCode,
		Status:                   string(transfer.Status),
		TotalTransferredQuantity: transfer.TotalTransferredQuantity,
		Sources:                  ToPackedLineDTOs(transfer.Sources),
		BatchCount:               transfer.BatchCount,
		EmptyPalletID:            transfer.EmptyPalletID,
		DestinationSlotID:        string(transfer.DestinationSlotID),
		CreatedAt:                transfer.CreatedAt,
		UpdatedAt:                transfer.UpdatedAt,
		CompletedAt:              transfer.CompletedAt,
	}
}

// ToReconciliationDTO converts a reconciliation
func ToReconciliationDTO(rec domain.Reconciliation) *ReconciliationDTO {
	return &ReconciliationDTO{
		OrderID:             rec.OrderID,
		ItemCode:            rec.ItemCode,
		ProductName:         rec.ProductName,
		OrderedQuantity:     rec.OrderedQuantity,
		TransferredQuantity: rec.TransferredQuantity,
		ResidualQuantity:    rec.ResidualQuantity,
		RemainingQuantity:   rec.RemainingQuantity,
		SignedRemaining:     rec.SignedRemaining,
		IsOverTransferred:   rec.IsOverTransferred,
		HasResidualStarted:  rec.HasResidualStarted,
		ResidualStatus:      string(rec.ResidualStatus),
		DesignatedStatus:    string(rec.DesignatedStatus),
		IsLocked:            rec.IsLocked,
	}
}

// ToSlotGridDTO converts a sorted zone grid classified for viewer
func ToSlotGridDTO(zone string, slots []*domain.Slot, viewer *domain.TransferRef) *SlotGridDTO {
	grid := &SlotGridDTO{Zone: zone, Slots: make([]SlotDTO, 0, len(slots))}
	for _, s := range slots {
		dto := SlotDTO{
			SlotID:   string(s.ID),
			Row:      s.Row,
			Col:      s.Col,
			Occupied: s.Occupied,
			Class:    string(s.Classify(viewer)),
		}
		if s.ReservedBy != nil {
			dto.ReservedByOwnerKind = string(s.ReservedBy.Kind)
		}
		grid.Slots = append(grid.Slots, dto)
		grid.Rows = max(grid.Rows, s.Row)
		grid.Cols = max(grid.Cols, s.Col)
	}
	return grid
}

func slotIDStrings(ids []domain.SlotID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
