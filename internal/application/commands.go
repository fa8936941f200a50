package application

import "github.com/wms-platform/transfer-service/internal/domain"

// CommitDesignatedCommand represents the command to commit whole pallets to dock slots.
// SourcePalletQuantities is optional; when empty each pallet's stock of the item is looked up.
type CommitDesignatedCommand struct {
	OrderID                string
	ItemCode               string
	SourcePalletIDs        []string
	DestinationSlotIDs     []string
	SourcePalletQuantities []int
}

// PackLineCommand represents the command to pack quantity from a container into the session
type PackLineCommand struct {
	OrderID    string
	ItemCode   string
	SourceKind domain.SourceKind
	SourceID   string
	Quantity   int
}

// RemovePackedLineCommand represents the command to unpack one line by position
type RemovePackedLineCommand struct {
	OrderID  string
	ItemCode string
	Index    int
}

// AssignCarrierCommand represents the command to assign the empty pallet carrier
type AssignCarrierCommand struct {
	OrderID       string
	ItemCode      string
	EmptyPalletID string
}

// AssignDestinationCommand represents the command to reserve the residual destination slot
type AssignDestinationCommand struct {
	OrderID  string
	ItemCode string
	SlotID   string
}

// ItemCommand addresses one order line without further input
type ItemCommand struct {
	OrderID  string
	ItemCode string
}

// GetItemQuery represents a read of one order line's transfer state
type GetItemQuery struct {
	OrderID  string
	ItemCode string
}

// GetOrderQuery represents a read across every line of an order
type GetOrderQuery struct {
	OrderID string
}

// QuerySlotGridQuery represents the query for a zone's slot grid. Viewer fields are optional;
// when both are set the viewer's own reservations are reported as OWN.
type QuerySlotGridQuery struct {
	Zone           string
	ViewerOrderID  string
	ViewerItemCode string
}

func (q QuerySlotGridQuery) viewer() *domain.TransferRef {
	if q.ViewerOrderID == "" || q.ViewerItemCode == "" {
		return nil
	}
	ref := domain.DesignatedRef(q.ViewerOrderID, q.ViewerItemCode)
	return &ref
}
