package domain

import "time"

// DomainEvent represents a domain event interface
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// ItemScoped is implemented by events that belong to one order line
type ItemScoped interface {
	ItemKey() (orderID, itemCode string)
}

// DesignatedTransferCommittedEvent is emitted when pallets are committed to slots
type DesignatedTransferCommittedEvent struct {
	OrderID             string             `json:"orderId"`
	ItemCode            string             `json:"itemCode"`
	Allocations         []PalletAllocation `json:"allocations"`
	TransferredQuantity int                `json:"transferredQuantity"`
	RemainingQuantity   int                `json:"remainingQuantity"`
	OverTransferred     bool               `json:"overTransferred"`
	CommittedAt         time.Time          `json:"committedAt"`
}

func (e *DesignatedTransferCommittedEvent) EventType() string     { return "transfer.designated.committed" }
func (e *DesignatedTransferCommittedEvent) OccurredAt() time.Time { return e.CommittedAt }
func (e *DesignatedTransferCommittedEvent) ItemKey() (string, string) {
	return e.OrderID, e.ItemCode
}

// ResidualBatchConfirmedEvent is emitted for every confirmed residual batch
type ResidualBatchConfirmedEvent struct {
	OrderID           string       `json:"orderId"`
	ItemCode          string       `json:"itemCode"`
	Quantity          int          `json:"quantity"`
	TotalQuantity     int          `json:"totalQuantity"`
	EmptyPalletID     string       `json:"emptyPalletId"`
	DestinationSlotID SlotID       `json:"destinationSlotId"`
	PackedLines       []PackedLine `json:"packedLines"`
	FirstBatch        bool         `json:"firstBatch"`
	ConfirmedAt       time.Time    `json:"confirmedAt"`
}

func (e *ResidualBatchConfirmedEvent) EventType() string     { return "transfer.residual.confirmed" }
func (e *ResidualBatchConfirmedEvent) OccurredAt() time.Time { return e.ConfirmedAt }
func (e *ResidualBatchConfirmedEvent) ItemKey() (string, string) {
	return e.OrderID, e.ItemCode
}

// ResidualTransferCompletedEvent is emitted when an operator marks residual work complete
type ResidualTransferCompletedEvent struct {
	OrderID                  string    `json:"orderId"`
	ItemCode                 string    `json:"itemCode"`
	TotalTransferredQuantity int       `json:"totalTransferredQuantity"`
	CompletedAt              time.Time `json:"completedAt"`
}

func (e *ResidualTransferCompletedEvent) EventType() string     { return "transfer.residual.completed" }
func (e *ResidualTransferCompletedEvent) OccurredAt() time.Time { return e.CompletedAt }
func (e *ResidualTransferCompletedEvent) ItemKey() (string, string) {
	return e.OrderID, e.ItemCode
}

// ResidualTransferReopenedEvent is emitted when a completed residual transfer is reopened
type ResidualTransferReopenedEvent struct {
	OrderID    string    `json:"orderId"`
	ItemCode   string    `json:"itemCode"`
	ReopenedAt time.Time `json:"reopenedAt"`
}

func (e *ResidualTransferReopenedEvent) EventType() string     { return "transfer.residual.reopened" }
func (e *ResidualTransferReopenedEvent) OccurredAt() time.Time { return e.ReopenedAt }
func (e *ResidualTransferReopenedEvent) ItemKey() (string, string) {
	return e.OrderID, e.ItemCode
}

// SlotsReleasedEvent is emitted when a transfer gives slots back to the pool
type SlotsReleasedEvent struct {
	Owner      TransferRef `json:"owner"`
	SlotIDs    []SlotID    `json:"slotIds"`
	Reason     string      `json:"reason"`
	ReleasedAt time.Time   `json:"releasedAt"`
}

func (e *SlotsReleasedEvent) EventType() string     { return "transfer.slots.released" }
func (e *SlotsReleasedEvent) OccurredAt() time.Time { return e.ReleasedAt }
func (e *SlotsReleasedEvent) ItemKey() (string, string) {
	return e.Owner.OrderID, e.Owner.ItemCode
}
