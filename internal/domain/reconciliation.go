package domain

// Reconciliation is the authoritative per-item quantity view
type Reconciliation struct {
	OrderID             string
	ItemCode            string
	ProductName         string
	OrderedQuantity     int
	TransferredQuantity int
	ResidualQuantity    int
	// SignedRemaining keeps the raw ordered - transferred - residual value
	SignedRemaining    int
	RemainingQuantity  int
	IsOverTransferred  bool
	HasResidualStarted bool
	ResidualStatus     ResidualStatus
	DesignatedStatus   DesignatedStatus
	IsLocked           bool
}

// Reconcile combines both ledgers for one order line. designated and residual may be nil.
// It panics if the designated ledger's residual counter disagrees with the residual record.
func Reconcile(line *OrderLineItem, designated *DesignatedTransfer, residual *ResidualTransfer) Reconciliation {
	rec := Reconciliation{
		OrderID:          line.OrderID,
		ItemCode:         line.ItemCode,
		ProductName:      line.ProductName,
		OrderedQuantity:  line.OrderedQuantity,
		ResidualStatus:   ResidualStatusNotStarted,
		DesignatedStatus: DesignatedStatusNotStarted,
	}

	if designated != nil {
		rec.TransferredQuantity = designated.TransferredQuantity
		rec.DesignatedStatus = designated.Status
		rec.IsLocked = designated.IsLocked()
	}

	if residual != nil {
		rec.ResidualQuantity = residual.TotalTransferredQuantity
		rec.ResidualStatus = residual.Status
		rec.HasResidualStarted = true
	}

	if designated != nil {
		mustHold(designated.ResidualAccumulatedQuantity == rec.ResidualQuantity, "residual-ledgers-agree",
			"designated ledger has %d residual, residual ledger has %d",
			designated.ResidualAccumulatedQuantity, rec.ResidualQuantity)
	}

	rec.SignedRemaining = rec.OrderedQuantity - rec.TransferredQuantity - rec.ResidualQuantity
	rec.IsOverTransferred = rec.SignedRemaining < 0
	rec.RemainingQuantity = max(rec.SignedRemaining, 0)

	return rec
}
