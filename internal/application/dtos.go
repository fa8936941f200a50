package application

import "time"

// PalletAllocationDTO represents one pallet to slot pairing
type PalletAllocationDTO struct {
	PalletID string `json:"palletId"`
	SlotID   string `json:"slotId"`
	Quantity int    `json:"quantity"`
}

// DesignatedTransferDTO represents the designated transfer status view of an order line
type DesignatedTransferDTO struct {
	OrderID                     string                `json:"orderId"`
	ItemCode                    string                `json:"itemCode"`
	ProductName                 string                `json:"productName"`
	OrderedQuantity             int                   `json:"orderedQuantity"`
	Status                      string                `json:"status"`
	IsLocked                    bool                  `json:"isLocked"`
	Allocations                 []PalletAllocationDTO `json:"allocations"`
	TransferredQuantity         int                   `json:"transferredQuantity"`
	ResidualAccumulatedQuantity int                   `json:"residualAccumulatedQuantity"`
	RemainingQuantity           int                   `json:"remainingQuantity"`
	IsOverTransferred           bool                  `json:"isOverTransferred"`
	CommittedAt                 *time.Time            `json:"committedAt,omitempty"`
}

// DesignatedCommitResultDTO is returned by a successful commit. DispatchError is set
// when the robot command could not be delivered; the commit itself stands.
type DesignatedCommitResultDTO struct {
	Transfer       *DesignatedTransferDTO `json:"transfer"`
	Reconciliation *ReconciliationDTO     `json:"reconciliation"`
	DispatchError  string                 `json:"dispatchError,omitempty"`
}

// PackedLineDTO represents one packed contribution
type PackedLineDTO struct {
	SourceKind string `json:"sourceKind"`
	SourceID   string `json:"sourceId"`
	Quantity   int    `json:"quantity"`
}

// PackingSessionDTO represents the residual packing session with its step gates
type PackingSessionDTO struct {
	OrderID              string          `json:"orderId"`
	ItemCode             string          `json:"itemCode"`
	State                string          `json:"state"`
	Lines                []PackedLineDTO `json:"lines"`
	TotalPacked          int             `json:"totalPacked"`
	CarrierID            string          `json:"carrierId,omitempty"`
	DestinationSlotID    string          `json:"destinationSlotId,omitempty"`
	CanAssignCarrier     bool            `json:"canAssignCarrier"`
	CanSelectDestination bool            `json:"canSelectDestination"`
	CanConfirm           bool            `json:"canConfirm"`
	UpdatedAt            time.Time       `json:"updatedAt"`
}

// DiscardResultDTO reports the slots freed by discarding a session
type DiscardResultDTO struct {
	ReleasedSlots []string `json:"releasedSlots"`
}

// ResidualTransferDTO represents the cumulative residual record
type ResidualTransferDTO struct {
	OrderID                  string          `json:"orderId"`
	ItemCode                 string          `json:"itemCode"`
	ProductCode              string          `json:"productCode"`
	Status                   string          `json:"status"`
	TotalTransferredQuantity int             `json:"totalTransferredQuantity"`
	Sources                  []PackedLineDTO `json:"sources"`
	BatchCount               int             `json:"batchCount"`
	EmptyPalletID            string          `json:"emptyPalletId"`
	DestinationSlotID        string          `json:"destinationSlotId"`
	CreatedAt                time.Time       `json:"createdAt"`
	UpdatedAt                time.Time       `json:"updatedAt"`
	CompletedAt              *time.Time      `json:"completedAt,omitempty"`
}

// ResidualConfirmResultDTO is returned by a successful residual confirmation
type ResidualConfirmResultDTO struct {
	Transfer       *ResidualTransferDTO `json:"transfer"`
	Reconciliation *ReconciliationDTO   `json:"reconciliation"`
	FirstBatch     bool                 `json:"firstBatch"`
	DispatchError  string               `json:"dispatchError,omitempty"`
}

// ReconciliationDTO represents the authoritative quantity view of an order line
type ReconciliationDTO struct {
	OrderID             string `json:"orderId"`
	ItemCode            string `json:"itemCode"`
	ProductName         string `json:"productName"`
	OrderedQuantity     int    `json:"orderedQuantity"`
	TransferredQuantity int    `json:"transferredQuantity"`
	ResidualQuantity    int    `json:"residualQuantity"`
	RemainingQuantity   int    `json:"remainingQuantity"`
	SignedRemaining     int    `json:"signedRemainingQuantity"`
	IsOverTransferred   bool   `json:"isOverTransferred"`
	HasResidualStarted  bool   `json:"hasResidualStarted"`
	ResidualStatus      string `json:"residualStatus"`
	DesignatedStatus    string `json:"designatedStatus"`
	IsLocked            bool   `json:"isLocked"`
}

// SlotDTO represents one grid cell
type SlotDTO struct {
	SlotID              string `json:"slotId"`
	Row                 int    `json:"row"`
	Col                 int    `json:"col"`
	Occupied            bool   `json:"occupied"`
	ReservedByOwnerKind string `json:"reservedByOwnerKind,omitempty"`
	Class               string `json:"class"`
}

// SlotGridDTO represents a zone's slot grid in row-major order
type SlotGridDTO struct {
	Zone  string    `json:"zone"`
	Rows  int       `json:"rows"`
	Cols  int       `json:"cols"`
	Slots []SlotDTO `json:"slots"`
}
