package application

import (
	stderrors "errors"
	"strings"

	"github.com/wms-platform/transfer-service/internal/domain"
	"github.com/wms-platform/transfer-service/pkg/errors"
)

// Rejection reasons reported in the "reason" detail of error responses
const (
	ReasonMismatchedSelection = "MISMATCHED_SELECTION"
	ReasonSlotConflict        = "SLOT_CONFLICT"
	ReasonAlreadyTransferring = "ALREADY_TRANSFERRING"
	ReasonOverTransferCap     = "OVER_TRANSFER_CAP"
	ReasonNoPackedLines       = "NO_PACKED_LINES"
	ReasonNoCarrierAssigned   = "NO_CARRIER_ASSIGNED"
	ReasonNoDestinationChosen = "NO_DESTINATION_CHOSEN"
	ReasonExceedsAvailable    = "EXCEEDS_AVAILABLE"
	ReasonInvalidState        = "INVALID_SESSION_STATE"
	ReasonCarrierPinned       = "CARRIER_PINNED"
	ReasonDestinationPinned   = "DESTINATION_PINNED"
	ReasonInvalidInput        = "INVALID_INPUT"
)

var validationReasons = []struct {
	err    error
	reason string
}{
	{domain.ErrMismatchedSelection, ReasonMismatchedSelection},
	{domain.ErrNoPackedLines, ReasonNoPackedLines},
	{domain.ErrNoCarrierAssigned, ReasonNoCarrierAssigned},
	{domain.ErrNoDestinationChosen, ReasonNoDestinationChosen},
	{domain.ErrExceedsAvailable, ReasonExceedsAvailable},
	{domain.ErrInvalidSessionState, ReasonInvalidState},
	{domain.ErrCarrierPinned, ReasonCarrierPinned},
	{domain.ErrDestinationPinned, ReasonDestinationPinned},
	{domain.ErrOverTransferCapExceeded, ReasonOverTransferCap},
	{domain.ErrDuplicatePallet, ReasonInvalidInput},
	{domain.ErrEmptySlotSelection, ReasonInvalidInput},
	{domain.ErrDuplicateSlot, ReasonInvalidInput},
	{domain.ErrInvalidSlotID, ReasonInvalidInput},
	{domain.ErrUnknownSlot, ReasonInvalidInput},
	{domain.ErrInvalidQuantity, ReasonInvalidInput},
	{domain.ErrInvalidSourceKind, ReasonInvalidInput},
	{domain.ErrSourceRequired, ReasonInvalidInput},
	{domain.ErrCarrierRequired, ReasonInvalidInput},
	{domain.ErrPackedLineNotFound, ReasonInvalidInput},
	{domain.ErrProductNotInContainer, ReasonInvalidInput},
	{domain.ErrContainerNotFound, ReasonInvalidInput},
	{domain.ErrInvalidStatusTransition, ReasonInvalidState},
}

// mapDomainError turns ledger errors into AppErrors. Operator mistakes become validation
// errors, contention becomes a conflict, anything unrecognised is internal.
func mapDomainError(err error) *errors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr
	}

	var conflict *domain.SlotConflictError
	if stderrors.As(err, &conflict) {
		return errors.ErrConflict(domain.ErrSlotConflict.Error()).
			WithReason(ReasonSlotConflict).
			WithDetail("slots", strings.Join(slotIDStrings(conflict.Slots), ",")).
			Wrap(err)
	}

	switch {
	case stderrors.Is(err, domain.ErrSlotConflict):
		return errors.ErrConflict(err.Error()).WithReason(ReasonSlotConflict).Wrap(err)
	case stderrors.Is(err, domain.ErrAlreadyTransferring):
		return errors.ErrConflict(err.Error()).WithReason(ReasonAlreadyTransferring).Wrap(err)
	case stderrors.Is(err, domain.ErrOrderLineNotFound):
		return errors.ErrNotFound("order line item").Wrap(err)
	case stderrors.Is(err, domain.ErrResidualTransferNotFound):
		return errors.ErrNotFound("residual transfer").Wrap(err)
	case stderrors.Is(err, domain.ErrZoneNotFound):
		return errors.ErrNotFound("zone").Wrap(err)
	}

	for _, v := range validationReasons {
		if stderrors.Is(err, v.err) {
			return errors.ErrValidation(err.Error()).WithReason(v.reason).Wrap(err)
		}
	}

	return errors.ErrInternal("").Wrap(err)
}
