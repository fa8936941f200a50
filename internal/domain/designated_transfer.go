package domain

import (
	"time"
)

// DesignatedStatus represents the status of a designated transfer
type DesignatedStatus string

const (
	DesignatedStatusNotStarted   DesignatedStatus = "NOT_STARTED"
	DesignatedStatusTransferring DesignatedStatus = "TRANSFERRING"
)

// IsValid checks if the status is valid
func (s DesignatedStatus) IsValid() bool {
	switch s {
	case DesignatedStatusNotStarted, DesignatedStatusTransferring:
		return true
	default:
		return false
	}
}

// PalletAllocation pairs one source pallet with the slot it moves to
type PalletAllocation struct {
	PalletID string `bson:"palletId" json:"palletId"`
	SlotID   SlotID `bson:"slotId" json:"slotId"`
	Quantity int    `bson:"quantity" json:"quantity"`
}

// PairSelection zips the operator's pallet and slot choices in order. quantities is
// parallel to palletIDs.
func PairSelection(palletIDs []string, slotIDs []SlotID, quantities []int) ([]PalletAllocation, error) {
	if len(palletIDs) == 0 || len(palletIDs) != len(slotIDs) {
		return nil, ErrMismatchedSelection
	}
	mustHold(len(quantities) == len(palletIDs), "pallet-quantities",
		"%d quantities for %d pallets", len(quantities), len(palletIDs))

	seen := make(map[string]bool, len(palletIDs))
	allocations := make([]PalletAllocation, len(palletIDs))
	for i, palletID := range palletIDs {
		if palletID == "" {
			return nil, ErrSourceRequired
		}
		if seen[palletID] {
			return nil, ErrDuplicatePallet
		}
		seen[palletID] = true
		if quantities[i] < 0 {
			return nil, ErrInvalidQuantity
		}
		allocations[i] = PalletAllocation{PalletID: palletID, SlotID: slotIDs[i], Quantity: quantities[i]}
	}
	return allocations, nil
}

// DesignatedTransfer is the whole-pallet transfer record of one order line
type DesignatedTransfer struct {
	OrderID                     string             `bson:"orderId" json:"orderId"`
	ItemCode                    string             `bson:"itemCode" json:"itemCode"`
	ProductName                 string             `bson:"productName" json:"productName"`
	OrderedQuantity             int                `bson:"orderedQuantity" json:"orderedQuantity"`
	Status                      DesignatedStatus   `bson:"status" json:"status"`
	Allocations                 []PalletAllocation `bson:"allocations" json:"allocations"`
	TransferredQuantity         int                `bson:"transferredQuantity" json:"transferredQuantity"`
	ResidualAccumulatedQuantity int                `bson:"residualAccumulatedQuantity" json:"residualAccumulatedQuantity"`
	CommittedAt                 time.Time          `bson:"committedAt" json:"committedAt"`
	UpdatedAt                   time.Time          `bson:"updatedAt" json:"updatedAt"`

	DomainEvents []DomainEvent `bson:"-" json:"-"`
}

// NewDesignatedTransfer commits the allocations against line. residualAccumulated carries
// any residual quantity recorded before this commit so both ledgers agree.
func NewDesignatedTransfer(line *OrderLineItem, allocations []PalletAllocation, residualAccumulated int) (*DesignatedTransfer, error) {
	if len(allocations) == 0 {
		return nil, ErrMismatchedSelection
	}

	transferred := 0
	for _, a := range allocations {
		transferred += a.Quantity
	}

	now := time.Now().UTC()
	d := &DesignatedTransfer{
		OrderID:                     line.OrderID,
		ItemCode:                    line.ItemCode,
		ProductName:                 line.ProductName,
		OrderedQuantity:             line.OrderedQuantity,
		Status:                      DesignatedStatusTransferring,
		Allocations:                 append([]PalletAllocation(nil), allocations...),
		TransferredQuantity:         transferred,
		ResidualAccumulatedQuantity: residualAccumulated,
		CommittedAt:                 now,
		UpdatedAt:                   now,
	}

	d.addDomainEvent(&DesignatedTransferCommittedEvent{
		OrderID:             d.OrderID,
		ItemCode:            d.ItemCode,
		Allocations:         d.Allocations,
		TransferredQuantity: d.TransferredQuantity,
		RemainingQuantity:   d.RemainingQuantity(),
		OverTransferred:     d.IsOverTransferred(),
		CommittedAt:         now,
	})

	return d, nil
}

// Ref returns the slot reservation owner for this transfer
func (d *DesignatedTransfer) Ref() TransferRef {
	return DesignatedRef(d.OrderID, d.ItemCode)
}

// IsLocked reports whether a commit is in progress, which blocks a second commit
func (d *DesignatedTransfer) IsLocked() bool {
	return d.Status == DesignatedStatusTransferring
}

// RemainingQuantity is ordered - transferred - residual; negative means over-committed
func (d *DesignatedTransfer) RemainingQuantity() int {
	return d.OrderedQuantity - d.TransferredQuantity - d.ResidualAccumulatedQuantity
}

// IsOverTransferred reports a negative remaining quantity
func (d *DesignatedTransfer) IsOverTransferred() bool {
	return d.RemainingQuantity() < 0
}

// SourcePalletIDs returns the committed pallets in selection order
func (d *DesignatedTransfer) SourcePalletIDs() []string {
	ids := make([]string, len(d.Allocations))
	for i, a := range d.Allocations {
		ids[i] = a.PalletID
	}
	return ids
}

// DestinationSlotIDs returns the reserved slots in selection order
func (d *DesignatedTransfer) DestinationSlotIDs() []SlotID {
	ids := make([]SlotID, len(d.Allocations))
	for i, a := range d.Allocations {
		ids[i] = a.SlotID
	}
	return ids
}

// AccumulateResidual adds a confirmed residual batch quantity
func (d *DesignatedTransfer) AccumulateResidual(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	d.ResidualAccumulatedQuantity += quantity
	d.UpdatedAt = time.Now().UTC()
	return nil
}

// Clone returns a deep copy without pending domain events
func (d *DesignatedTransfer) Clone() *DesignatedTransfer {
	c := *d
	c.Allocations = append([]PalletAllocation(nil), d.Allocations...)
	c.DomainEvents = nil
	return &c
}

func (d *DesignatedTransfer) addDomainEvent(event DomainEvent) {
	d.DomainEvents = append(d.DomainEvents, event)
}

// GetDomainEvents returns all domain events
func (d *DesignatedTransfer) GetDomainEvents() []DomainEvent {
	return d.DomainEvents
}

// ClearDomainEvents clears all domain events
func (d *DesignatedTransfer) ClearDomainEvents() {
	d.DomainEvents = nil
}
