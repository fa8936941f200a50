package domain

import (
	"time"
)

// ResidualStatus is the operator-set status of a residual transfer
type ResidualStatus string

const (
	ResidualStatusInProgress ResidualStatus = "IN_PROGRESS"
	ResidualStatusComplete   ResidualStatus = "COMPLETE"
)

// ResidualStatusNotStarted is reported by views for items without a residual record
const ResidualStatusNotStarted ResidualStatus = "NOT_STARTED"

// CanTransitionTo checks if the status can transition to another status
func (s ResidualStatus) CanTransitionTo(target ResidualStatus) bool {
	validTransitions := map[ResidualStatus][]ResidualStatus{
		ResidualStatusInProgress: {ResidualStatusComplete},
		ResidualStatusComplete:   {ResidualStatusInProgress},
	}

	for _, allowed := range validTransitions[s] {
		if target == allowed {
			return true
		}
	}
	return false
}

// ResidualTransferPayload is a confirmed residual batch
type ResidualTransferPayload struct {
	ProductCode       string       `json:"productCode"`
	TotalQuantity     int          `json:"totalQuantity"`
	EmptyPalletID     string       `json:"emptyPalletId"`
	DestinationSlotID SlotID       `json:"destinationSlotId"`
	PackedLines       []PackedLine `json:"packedLines"`
}

func (p ResidualTransferPayload) mustBeConsistent() {
	sum := 0
	for _, l := range p.PackedLines {
		sum += l.Quantity
	}
	mustHold(sum == p.TotalQuantity && sum > 0, "residual-payload-total",
		"payload total %d, packed lines sum %d", p.TotalQuantity, sum)
	mustHold(p.EmptyPalletID != "" && p.DestinationSlotID != "", "residual-payload-target",
		"carrier %q, slot %q", p.EmptyPalletID, p.DestinationSlotID)
}

// ResidualTransfer accumulates every residual batch confirmed for an order line. Once
// created it is never removed; the first batch's carrier and slot stay authoritative.
type ResidualTransfer struct {
	OrderID                  string         `bson:"orderId" json:"orderId"`
	ItemCode                 string         `bson:"itemCode" json:"itemCode"`
	ProductCode              string         `bson:"productCode" json:"productCode"`
	Status                   ResidualStatus `bson:"status" json:"status"`
	TotalTransferredQuantity int            `bson:"totalTransferredQuantity" json:"totalTransferredQuantity"`
	Sources                  []PackedLine   `bson:"sources" json:"sources"`
	BatchCount               int            `bson:"batchCount" json:"batchCount"`
	EmptyPalletID            string         `bson:"emptyPalletId" json:"emptyPalletId"`
	DestinationSlotID        SlotID         `bson:"destinationSlotId" json:"destinationSlotId"`
	CreatedAt                time.Time      `bson:"createdAt" json:"createdAt"`
	UpdatedAt                time.Time      `bson:"updatedAt" json:"updatedAt"`
	CompletedAt              *time.Time     `bson:"completedAt,omitempty" json:"completedAt,omitempty"`

	DomainEvents []DomainEvent `bson:"-" json:"-"`
}

// NewResidualTransfer creates the record from the first confirmed batch
func NewResidualTransfer(orderID, itemCode string, payload ResidualTransferPayload) *ResidualTransfer {
	payload.mustBeConsistent()

	now := time.Now().UTC()
	r := &ResidualTransfer{
		OrderID:                  orderID,
		ItemCode:                 itemCode,
		ProductCode:              payload.ProductCode,
		Status:                   ResidualStatusInProgress,
		TotalTransferredQuantity: payload.TotalQuantity,
		Sources:                  append([]PackedLine(nil), payload.PackedLines...),
		BatchCount:               1,
		EmptyPalletID:            payload.EmptyPalletID,
		DestinationSlotID:        payload.DestinationSlotID,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	r.addConfirmedEvent(payload, true)
	return r
}

// Ref returns the slot reservation owner for this transfer
func (r *ResidualTransfer) Ref() TransferRef {
	return ResidualRef(r.OrderID, r.ItemCode)
}

// CheckTarget rejects a carrier or slot other than the pinned pair. Empty arguments are not checked.
func (r *ResidualTransfer) CheckTarget(carrierID string, slotID SlotID) error {
	if carrierID != "" && carrierID != r.EmptyPalletID {
		return ErrCarrierPinned
	}
	if slotID != "" && slotID != r.DestinationSlotID {
		return ErrDestinationPinned
	}
	return nil
}

// Accumulate appends a later batch. Status is left unchanged.
func (r *ResidualTransfer) Accumulate(payload ResidualTransferPayload) error {
	payload.mustBeConsistent()
	if err := r.CheckTarget(payload.EmptyPalletID, payload.DestinationSlotID); err != nil {
		return err
	}

	r.Sources = append(r.Sources, payload.PackedLines...)
	r.TotalTransferredQuantity += payload.TotalQuantity
	r.BatchCount++
	r.UpdatedAt = time.Now().UTC()
	r.addConfirmedEvent(payload, false)
	return nil
}

// MarkComplete sets the operator completion flag. Completing twice is a no-op.
func (r *ResidualTransfer) MarkComplete() error {
	if r.Status == ResidualStatusComplete {
		return nil
	}
	if !r.Status.CanTransitionTo(ResidualStatusComplete) {
		return ErrInvalidStatusTransition
	}

	now := time.Now().UTC()
	r.Status = ResidualStatusComplete
	r.CompletedAt = &now
	r.UpdatedAt = now
	r.addDomainEvent(&ResidualTransferCompletedEvent{
		OrderID:                  r.OrderID,
		ItemCode:                 r.ItemCode,
		TotalTransferredQuantity: r.TotalTransferredQuantity,
		CompletedAt:              now,
	})
	return nil
}

// Reopen returns a completed transfer to in-progress
func (r *ResidualTransfer) Reopen() error {
	if r.Status == ResidualStatusInProgress {
		return nil
	}
	if !r.Status.CanTransitionTo(ResidualStatusInProgress) {
		return ErrInvalidStatusTransition
	}

	now := time.Now().UTC()
	r.Status = ResidualStatusInProgress
	r.CompletedAt = nil
	r.UpdatedAt = now
	r.addDomainEvent(&ResidualTransferReopenedEvent{
		OrderID:    r.OrderID,
		ItemCode:   r.ItemCode,
		ReopenedAt: now,
	})
	return nil
}

// Clone returns a deep copy without pending domain events
func (r *ResidualTransfer) Clone() *ResidualTransfer {
	c := *r
	c.Sources = append([]PackedLine(nil), r.Sources...)
	if r.CompletedAt != nil {
		at := *r.CompletedAt
		c.CompletedAt = &at
	}
	c.DomainEvents = nil
	return &c
}

func (r *ResidualTransfer) addConfirmedEvent(payload ResidualTransferPayload, first bool) {
	r.addDomainEvent(&ResidualBatchConfirmedEvent{
		OrderID:           r.OrderID,
		ItemCode:          r.ItemCode,
		Quantity:          payload.TotalQuantity,
		TotalQuantity:     r.TotalTransferredQuantity,
		EmptyPalletID:     payload.EmptyPalletID,
		DestinationSlotID: payload.DestinationSlotID,
		PackedLines:       payload.PackedLines,
		FirstBatch:        first,
		ConfirmedAt:       r.UpdatedAt,
	})
}

func (r *ResidualTransfer) addDomainEvent(event DomainEvent) {
	r.DomainEvents = append(r.DomainEvents, event)
}

// GetDomainEvents returns all domain events
func (r *ResidualTransfer) GetDomainEvents() []DomainEvent {
	return r.DomainEvents
}

// ClearDomainEvents clears all domain events
func (r *ResidualTransfer) ClearDomainEvents() {
	r.DomainEvents = nil
}
