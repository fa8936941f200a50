package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Selection and reservation errors
var (
	ErrMismatchedSelection = errors.New("pallet and slot selections must be non-empty and of equal length")
	ErrDuplicatePallet     = errors.New("pallet selected more than once")
	ErrSlotConflict        = errors.New("slot is occupied or reserved by another transfer")
	ErrEmptySlotSelection  = errors.New("at least one slot is required")
	ErrDuplicateSlot       = errors.New("slot selected more than once")
	ErrInvalidSlotID       = errors.New("invalid slot id")
	ErrUnknownSlot         = errors.New("slot not found")
	ErrZoneNotFound        = errors.New("zone not found")
)

// Designated transfer errors
var (
	ErrAlreadyTransferring     = errors.New("designated transfer already in progress for this item")
	ErrOverTransferCapExceeded = errors.New("transfer quantity exceeds the configured over-transfer cap")
)

// Residual packing errors
var (
	ErrNoPackedLines           = errors.New("no packed lines")
	ErrNoCarrierAssigned       = errors.New("no carrier assigned")
	ErrNoDestinationChosen     = errors.New("no destination slot chosen")
	ErrInvalidQuantity         = errors.New("quantity must be greater than zero")
	ErrInvalidSourceKind       = errors.New("source kind must be PALLET or TOTE")
	ErrSourceRequired          = errors.New("source container id is required")
	ErrCarrierRequired         = errors.New("empty pallet id is required")
	ErrExceedsAvailable        = errors.New("quantity exceeds container available quantity")
	ErrPackedLineNotFound      = errors.New("packed line not found")
	ErrInvalidSessionState     = errors.New("operation not allowed in current packing state")
	ErrCarrierPinned           = errors.New("residual transfer already uses a different carrier")
	ErrDestinationPinned       = errors.New("residual transfer already uses a different destination slot")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

// Lookup errors
var (
	ErrOrderLineNotFound        = errors.New("order line item not found")
	ErrContainerNotFound        = errors.New("container not found")
	ErrProductNotInContainer    = errors.New("container holds no stock of this product")
	ErrResidualTransferNotFound = errors.New("residual transfer not found")
)

// SlotConflictError lists the slots that blocked a reservation. It matches ErrSlotConflict with errors.Is.
type SlotConflictError struct {
	Slots []SlotID
}

func (e *SlotConflictError) Error() string {
	ids := make([]string, len(e.Slots))
	for i, s := range e.Slots {
		ids[i] = string(s)
	}
	return fmt.Sprintf("%s: %s", ErrSlotConflict.Error(), strings.Join(ids, ", "))
}

func (e *SlotConflictError) Is(target error) bool {
	return target == ErrSlotConflict
}

// InvariantViolation signals a broken internal consistency rule. It is raised with panic,
// never returned, because it means a caller bypassed the ledgers.
type InvariantViolation struct {
	Rule   string
	Detail string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violated: %s: %s", e.Rule, e.Detail)
}

// mustHold panics with an InvariantViolation when cond is false
func mustHold(cond bool, rule string, format string, args ...any) {
	if !cond {
		panic(&InvariantViolation{Rule: rule, Detail: fmt.Sprintf(format, args...)})
	}
}
