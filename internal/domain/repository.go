package domain

import (
	"context"
)

// SlotRepository defines persistence for the dock slot grid
type SlotRepository interface {
	// FindByID retrieves a slot; returns nil, nil if it does not exist
	FindByID(ctx context.Context, id SlotID) (*Slot, error)

	// FindByZone retrieves all slots of a zone
	FindByZone(ctx context.Context, zone string) ([]*Slot, error)

	// CompareAndReserve atomically reserves the slot for owner if it is free or already
	// held by owner. It reports whether the reservation is new. A taken slot yields
	// ErrSlotConflict and a missing one ErrUnknownSlot.
	CompareAndReserve(ctx context.Context, id SlotID, owner TransferRef) (bool, error)

	// ReleaseIfOwner clears the reservation only if owner holds it
	ReleaseIfOwner(ctx context.Context, id SlotID, owner TransferRef) (bool, error)

	// EnsureSlots creates missing slots and refreshes occupancy without touching reservations
	EnsureSlots(ctx context.Context, slots []*Slot) error
}

// DesignatedTransferRepository defines persistence for designated transfers
type DesignatedTransferRepository interface {
	// Save persists a designated transfer (upsert)
	Save(ctx context.Context, transfer *DesignatedTransfer) error

	// FindByItem retrieves the transfer of an order line; returns nil, nil if none exists
	FindByItem(ctx context.Context, orderID, itemCode string) (*DesignatedTransfer, error)

	// FindByOrder retrieves every designated transfer of an order
	FindByOrder(ctx context.Context, orderID string) ([]*DesignatedTransfer, error)
}

// ResidualTransferRepository defines persistence for residual transfers
type ResidualTransferRepository interface {
	// Save persists a residual transfer (upsert)
	Save(ctx context.Context, transfer *ResidualTransfer) error

	// FindByItem retrieves the residual transfer of an order line; returns nil, nil if none exists
	FindByItem(ctx context.Context, orderID, itemCode string) (*ResidualTransfer, error)
}

// PackingSessionRepository stores in-flight packing sessions
type PackingSessionRepository interface {
	// Get returns the session of an order line; returns nil, nil if none exists
	Get(ctx context.Context, orderID, itemCode string) (*PackingSession, error)

	Save(ctx context.Context, session *PackingSession) error

	Delete(ctx context.Context, orderID, itemCode string) error
}

// OrderDirectory is the read-only order/item directory
type OrderDirectory interface {
	// GetOrderLineItem returns ErrOrderLineNotFound for unknown lines
	GetOrderLineItem(ctx context.Context, orderID, itemCode string) (*OrderLineItem, error)

	// ListOrderLineItems returns the lines of an order, or ErrOrderLineNotFound for an unknown order
	ListOrderLineItems(ctx context.Context, orderID string) ([]*OrderLineItem, error)
}

// ContainerDirectory is the read-only pallet/tote directory
type ContainerDirectory interface {
	// GetContainerQuantity returns the stock of productCode in a container.
	// Unknown containers yield ErrContainerNotFound.
	GetContainerQuantity(ctx context.Context, containerID, productCode string) (int, error)
}

// DispatchSink receives robot commands; delivery failures are reported, never retried
type DispatchSink interface {
	Dispatch(ctx context.Context, command RobotCommand) error
}

// EventPublisher publishes domain events
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
	PublishAll(ctx context.Context, events []DomainEvent) error
}
