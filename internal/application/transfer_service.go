package application

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"

	"github.com/wms-platform/transfer-service/internal/domain"
	"github.com/wms-platform/transfer-service/pkg/errors"
	"github.com/wms-platform/transfer-service/pkg/logging"
	"github.com/wms-platform/transfer-service/pkg/metrics"
	"github.com/wms-platform/transfer-service/pkg/tracing"
)

const tracerName = "transfer-service"

// TransferService is the entry point for designated transfers, residual packing and
// reconciliation. Every mutation of an order line runs under that line's lock.
type TransferService struct {
	locks          *ItemLocks
	slots          *SlotRegistry
	designated     *DesignatedLedger
	residual       *ResidualLedger
	packer         *ResidualPacker
	reconciliation *ReconciliationFacade
	orders         domain.OrderDirectory
	publisher      domain.EventPublisher
	dispatcher     domain.DispatchSink
	metrics        *metrics.Metrics
	cap            int
	logger         *logging.Logger
}

// Dependencies groups the ports a TransferService is built from
type Dependencies struct {
	Slots           domain.SlotRepository
	Designated      domain.DesignatedTransferRepository
	Residual        domain.ResidualTransferRepository
	Sessions        domain.PackingSessionRepository
	Orders          domain.OrderDirectory
	Containers      domain.ContainerDirectory
	Publisher       domain.EventPublisher
	Dispatcher      domain.DispatchSink
	Metrics         *metrics.Metrics
	Logger          *logging.Logger
	OverTransferCap int
}

// NewTransferService wires the ledgers, the packer and the slot registry. A nil Metrics
// records into a private registry that is never scraped.
func NewTransferService(deps Dependencies) *TransferService {
	if deps.Metrics == nil {
		deps.Metrics = metrics.New(metrics.DefaultConfig(tracerName))
	}
	slots := NewSlotRegistry(deps.Slots, deps.Metrics, deps.Logger)
	designated := NewDesignatedLedger(deps.Designated, deps.Residual, deps.Orders, deps.Containers, slots, deps.OverTransferCap, deps.Logger)
	residual := NewResidualLedger(deps.Residual)

	return &TransferService{
		locks:          NewItemLocks(),
		slots:          slots,
		designated:     designated,
		residual:       residual,
		packer:         NewResidualPacker(deps.Sessions, deps.Orders, deps.Containers, deps.Residual, slots, deps.Logger),
		reconciliation: NewReconciliationFacade(deps.Orders, designated, residual),
		orders:         deps.Orders,
		publisher:      deps.Publisher,
		dispatcher:     deps.Dispatcher,
		metrics:        deps.Metrics,
		cap:            deps.OverTransferCap,
		logger:         deps.Logger.WithComponent("transfer-service"),
	}
}

// CommitDesignatedTransfer commits whole pallets to operator-chosen slots. The robot
// command is sent after the line's lock is released.
func (s *TransferService) CommitDesignatedTransfer(ctx context.Context, cmd CommitDesignatedCommand) (result *DesignatedCommitResultDTO, err error) {
	ctx, span := tracing.StartItemSpan(ctx, tracerName, "transfer.CommitDesignated", cmd.OrderID, cmd.ItemCode)
	defer func() { tracing.EndSpan(span, err) }()

	result, command, err := s.commitDesignated(ctx, cmd)
	if err != nil {
		return nil, err
	}
	result.DispatchError = s.dispatch(ctx, command)
	return result, nil
}

func (s *TransferService) commitDesignated(ctx context.Context, cmd CommitDesignatedCommand) (*DesignatedCommitResultDTO, domain.RobotCommand, error) {
	unlock := s.locks.Lock(cmd.OrderID, cmd.ItemCode)
	defer unlock()

	transfer, err := s.designated.Commit(ctx, cmd)
	if err != nil {
		s.metrics.RecordDesignatedCommit(commitOutcome(err), 0)
		return nil, domain.RobotCommand{}, s.fail(ctx, "commit designated transfer", cmd.OrderID, cmd.ItemCode, err)
	}
	s.metrics.RecordDesignatedCommit(metrics.OutcomeCommitted, transfer.TransferredQuantity)

	rec, err := s.reconciliation.Get(ctx, cmd.OrderID, cmd.ItemCode)
	if err != nil {
		return nil, domain.RobotCommand{}, s.fail(ctx, "reconcile after commit", cmd.OrderID, cmd.ItemCode, err)
	}
	if rec.IsOverTransferred {
		s.metrics.RecordOverTransfer("designated_commit")
		s.logger.WithItem(cmd.OrderID, cmd.ItemCode).Warn("Order line over-transferred",
			"signedRemaining", rec.SignedRemaining)
	}

	s.publish(ctx, transfer.GetDomainEvents())
	transfer.ClearDomainEvents()

	s.logger.Audit(ctx, "commit_designated", "designated_transfer", itemResourceID(cmd.OrderID, cmd.ItemCode), map[string]any{
		"pallets":     transfer.SourcePalletIDs(),
		"slots":       slotIDStrings(transfer.DestinationSlotIDs()),
		"transferred": transfer.TransferredQuantity,
	})

	line := &domain.OrderLineItem{
		OrderID:         transfer.OrderID,
		ItemCode:        transfer.ItemCode,
		ProductName:     transfer.ProductName,
		OrderedQuantity: transfer.OrderedQuantity,
	}
	result := &DesignatedCommitResultDTO{
		Transfer:       ToDesignatedTransferDTO(line, transfer, rec.ResidualQuantity),
		Reconciliation: ToReconciliationDTO(rec),
	}
	command := s.newCommand(domain.RobotCommandDesignatedTransfer, cmd.OrderID, cmd.ItemCode, domain.DesignatedMoves(transfer))
	return result, command, nil
}

// GetDesignatedTransfer returns the read-only status view, including not-started lines
func (s *TransferService) GetDesignatedTransfer(ctx context.Context, query GetItemQuery) (*DesignatedTransferDTO, error) {
	line, err := s.orders.GetOrderLineItem(ctx, query.OrderID, query.ItemCode)
	if err != nil {
		return nil, s.fail(ctx, "get order line", query.OrderID, query.ItemCode, err)
	}

	unlock := s.locks.Lock(query.OrderID, query.ItemCode)
	defer unlock()

	transfer, err := s.designated.Get(ctx, query.OrderID, query.ItemCode)
	if err != nil {
		return nil, s.fail(ctx, "get designated transfer", query.OrderID, query.ItemCode, err)
	}

	residualQuantity := 0
	if transfer == nil {
		residual, err := s.residual.Get(ctx, query.OrderID, query.ItemCode)
		if err != nil {
			return nil, s.fail(ctx, "get residual transfer", query.OrderID, query.ItemCode, err)
		}
		if residual != nil {
			residualQuantity = residual.TotalTransferredQuantity
		}
	}
	return ToDesignatedTransferDTO(line, transfer, residualQuantity), nil
}

// IsLocked reports whether a designated commit is blocked for the line
func (s *TransferService) IsLocked(ctx context.Context, query GetItemQuery) (bool, error) {
	locked, err := s.designated.IsLocked(ctx, query.OrderID, query.ItemCode)
	if err != nil {
		return false, s.fail(ctx, "check designated lock", query.OrderID, query.ItemCode, err)
	}
	return locked, nil
}

// GetPackingSession returns the line's packing session; a line with none reports EMPTY
func (s *TransferService) GetPackingSession(ctx context.Context, query GetItemQuery) (*PackingSessionDTO, error) {
	if _, err := s.orders.GetOrderLineItem(ctx, query.OrderID, query.ItemCode); err != nil {
		return nil, s.fail(ctx, "get order line", query.OrderID, query.ItemCode, err)
	}

	session, err := s.packer.Session(ctx, query.OrderID, query.ItemCode)
	if err != nil {
		return nil, s.fail(ctx, "get packing session", query.OrderID, query.ItemCode, err)
	}
	return ToPackingSessionDTO(session), nil
}

// PackResidualLine packs quantity from a pallet or tote into the line's session
func (s *TransferService) PackResidualLine(ctx context.Context, cmd PackLineCommand) (result *PackingSessionDTO, err error) {
	ctx, span := tracing.StartItemSpan(ctx, tracerName, "transfer.PackResidualLine", cmd.OrderID, cmd.ItemCode)
	defer func() { tracing.EndSpan(span, err) }()

	unlock := s.locks.Lock(cmd.OrderID, cmd.ItemCode)
	defer unlock()

	session, err := s.packer.AddPackedLine(ctx, cmd)
	if err != nil {
		return nil, s.fail(ctx, "pack residual line", cmd.OrderID, cmd.ItemCode, err)
	}

	s.logger.WithItem(cmd.OrderID, cmd.ItemCode).Info("Packed residual line",
		"sourceKind", cmd.SourceKind, "sourceId", cmd.SourceID, "quantity", cmd.Quantity, "totalPacked", session.TotalPacked())
	return ToPackingSessionDTO(session), nil
}

// RemovePackedLine unpacks one line from the session
func (s *TransferService) RemovePackedLine(ctx context.Context, cmd RemovePackedLineCommand) (*PackingSessionDTO, error) {
	unlock := s.locks.Lock(cmd.OrderID, cmd.ItemCode)
	defer unlock()

	session, err := s.packer.RemovePackedLine(ctx, cmd)
	if err != nil {
		return nil, s.fail(ctx, "remove packed line", cmd.OrderID, cmd.ItemCode, err)
	}
	return ToPackingSessionDTO(session), nil
}

// AssignCarrier assigns the empty pallet the batch is consolidated onto
func (s *TransferService) AssignCarrier(ctx context.Context, cmd AssignCarrierCommand) (*PackingSessionDTO, error) {
	unlock := s.locks.Lock(cmd.OrderID, cmd.ItemCode)
	defer unlock()

	session, err := s.packer.AssignCarrier(ctx, cmd)
	if err != nil {
		return nil, s.fail(ctx, "assign carrier", cmd.OrderID, cmd.ItemCode, err)
	}

	s.logger.WithItem(cmd.OrderID, cmd.ItemCode).Info("Assigned residual carrier", "emptyPalletId", cmd.EmptyPalletID)
	return ToPackingSessionDTO(session), nil
}

// AssignDestination reserves the residual destination slot
func (s *TransferService) AssignDestination(ctx context.Context, cmd AssignDestinationCommand) (result *PackingSessionDTO, err error) {
	ctx, span := tracing.StartItemSpan(ctx, tracerName, "transfer.AssignDestination", cmd.OrderID, cmd.ItemCode)
	defer func() { tracing.EndSpan(span, err) }()

	unlock := s.locks.Lock(cmd.OrderID, cmd.ItemCode)
	defer unlock()

	session, err := s.packer.AssignDestination(ctx, cmd)
	if err != nil {
		return nil, s.fail(ctx, "assign destination", cmd.OrderID, cmd.ItemCode, err)
	}

	s.logger.WithItem(cmd.OrderID, cmd.ItemCode).Info("Assigned residual destination", "slotId", cmd.SlotID)
	return ToPackingSessionDTO(session), nil
}

// DiscardPackingSession abandons the session and frees a slot it reserved
func (s *TransferService) DiscardPackingSession(ctx context.Context, cmd ItemCommand) (*DiscardResultDTO, error) {
	unlock := s.locks.Lock(cmd.OrderID, cmd.ItemCode)
	defer unlock()

	released, err := s.packer.Discard(ctx, cmd.OrderID, cmd.ItemCode)
	if err != nil {
		return nil, s.fail(ctx, "discard packing session", cmd.OrderID, cmd.ItemCode, err)
	}

	if len(released) > 0 {
		s.publish(ctx, []domain.DomainEvent{&domain.SlotsReleasedEvent{
			Owner:      domain.ResidualRef(cmd.OrderID, cmd.ItemCode),
			SlotIDs:    released,
			Reason:     "session_discarded",
			ReleasedAt: time.Now().UTC(),
		}})
	}

	s.logger.Audit(ctx, "discard_session", "packing_session", itemResourceID(cmd.OrderID, cmd.ItemCode), map[string]any{
		"releasedSlots": slotIDStrings(released),
	})
	return &DiscardResultDTO{ReleasedSlots: slotIDStrings(released)}, nil
}

// ConfirmResidual hands the staged batch to both ledgers and clears the session. On any
// failure the session and the designated record are left as they were. The robot command
// is sent after the line's lock is released.
func (s *TransferService) ConfirmResidual(ctx context.Context, cmd ItemCommand) (result *ResidualConfirmResultDTO, err error) {
	ctx, span := tracing.StartItemSpan(ctx, tracerName, "transfer.ConfirmResidual", cmd.OrderID, cmd.ItemCode)
	defer func() { tracing.EndSpan(span, err) }()

	result, command, err := s.confirmResidual(ctx, cmd)
	if err != nil {
		return nil, err
	}
	result.DispatchError = s.dispatch(ctx, command)
	return result, nil
}

func (s *TransferService) confirmResidual(ctx context.Context, cmd ItemCommand) (*ResidualConfirmResultDTO, domain.RobotCommand, error) {
	unlock := s.locks.Lock(cmd.OrderID, cmd.ItemCode)
	defer unlock()

	line, err := s.orders.GetOrderLineItem(ctx, cmd.OrderID, cmd.ItemCode)
	if err != nil {
		return nil, domain.RobotCommand{}, s.fail(ctx, "get order line", cmd.OrderID, cmd.ItemCode, err)
	}

	staged, payload, err := s.packer.Seal(ctx, cmd.OrderID, cmd.ItemCode, line.ProductCode())
	if err != nil {
		return nil, domain.RobotCommand{}, s.fail(ctx, "seal packing session", cmd.OrderID, cmd.ItemCode, err)
	}

	before, err := s.reconciliation.ForLine(ctx, line)
	if err != nil {
		return nil, domain.RobotCommand{}, s.fail(ctx, "reconcile before confirm", cmd.OrderID, cmd.ItemCode, err)
	}
	if err := checkOverTransferCap(s.cap, before.SignedRemaining-payload.TotalQuantity); err != nil {
		return nil, domain.RobotCommand{}, s.fail(ctx, "confirm residual", cmd.OrderID, cmd.ItemCode, err)
	}

	var snapshot *domain.DesignatedTransfer
	if previous, err := s.designated.Get(ctx, cmd.OrderID, cmd.ItemCode); err != nil {
		return nil, domain.RobotCommand{}, s.fail(ctx, "load designated transfer", cmd.OrderID, cmd.ItemCode, err)
	} else if previous != nil {
		snapshot = previous.Clone()
	}

	if err := s.packer.Clear(ctx, cmd.OrderID, cmd.ItemCode); err != nil {
		return nil, domain.RobotCommand{}, s.fail(ctx, "clear packing session", cmd.OrderID, cmd.ItemCode, err)
	}

	designated, err := s.designated.AccumulateResidual(ctx, cmd.OrderID, cmd.ItemCode, payload.TotalQuantity)
	if err != nil {
		s.restoreSession(ctx, staged)
		return nil, domain.RobotCommand{}, s.fail(ctx, "accumulate residual on designated transfer", cmd.OrderID, cmd.ItemCode, err)
	}

	residual, created, err := s.residual.Accumulate(ctx, cmd.OrderID, cmd.ItemCode, payload)
	if err != nil {
		if designated != nil {
			s.restoreDesignated(ctx, snapshot)
		}
		s.restoreSession(ctx, staged)
		return nil, domain.RobotCommand{}, s.fail(ctx, "accumulate residual transfer", cmd.OrderID, cmd.ItemCode, err)
	}

	rec := domain.Reconcile(line, designated, residual)
	s.metrics.RecordResidualConfirm(created, payload.TotalQuantity)
	if rec.IsOverTransferred {
		s.metrics.RecordOverTransfer("residual_confirm")
		s.logger.WithItem(cmd.OrderID, cmd.ItemCode).Warn("Order line over-transferred",
			"signedRemaining", rec.SignedRemaining)
	}

	s.publish(ctx, residual.GetDomainEvents())
	residual.ClearDomainEvents()

	s.logger.Audit(ctx, "confirm_residual", "residual_transfer", itemResourceID(cmd.OrderID, cmd.ItemCode), map[string]any{
		"quantity":      payload.TotalQuantity,
		"total":         residual.TotalTransferredQuantity,
		"emptyPalletId": payload.EmptyPalletID,
		"slotId":        string(payload.DestinationSlotID),
		"firstBatch":    created,
	})

	result := &ResidualConfirmResultDTO{
		Transfer:       ToResidualTransferDTO(residual),
		Reconciliation: ToReconciliationDTO(rec),
		FirstBatch:     created,
	}

	moves := []domain.RobotMove{{ContainerID: payload.EmptyPalletID, SlotID: payload.DestinationSlotID}}
	command := s.newCommand(domain.RobotCommandResidualTransfer, cmd.OrderID, cmd.ItemCode, moves)
	return result, command, nil
}

// GetResidualTransfer returns the line's residual record
func (s *TransferService) GetResidualTransfer(ctx context.Context, query GetItemQuery) (*ResidualTransferDTO, error) {
	transfer, err := s.residual.Get(ctx, query.OrderID, query.ItemCode)
	if err != nil {
		return nil, s.fail(ctx, "get residual transfer", query.OrderID, query.ItemCode, err)
	}
	if transfer == nil {
		return nil, errors.ErrNotFound("residual transfer")
	}
	return ToResidualTransferDTO(transfer), nil
}

// CompleteResidualTransfer sets the operator completion flag
func (s *TransferService) CompleteResidualTransfer(ctx context.Context, cmd ItemCommand) (*ResidualTransferDTO, error) {
	return s.updateResidual(ctx, cmd, "complete_residual", s.residual.MarkComplete)
}

// ReopenResidualTransfer returns a completed residual transfer to in-progress
func (s *TransferService) ReopenResidualTransfer(ctx context.Context, cmd ItemCommand) (*ResidualTransferDTO, error) {
	return s.updateResidual(ctx, cmd, "reopen_residual", s.residual.Reopen)
}

func (s *TransferService) updateResidual(
	ctx context.Context,
	cmd ItemCommand,
	action string,
	apply func(ctx context.Context, orderID, itemCode string) (*domain.ResidualTransfer, error),
) (*ResidualTransferDTO, error) {
	unlock := s.locks.Lock(cmd.OrderID, cmd.ItemCode)
	defer unlock()

	transfer, err := apply(ctx, cmd.OrderID, cmd.ItemCode)
	if err != nil {
		return nil, s.fail(ctx, action, cmd.OrderID, cmd.ItemCode, err)
	}

	if events := transfer.GetDomainEvents(); len(events) > 0 {
		s.publish(ctx, events)
		transfer.ClearDomainEvents()
		s.logger.Audit(ctx, action, "residual_transfer", itemResourceID(cmd.OrderID, cmd.ItemCode), map[string]any{
			"status": string(transfer.Status),
		})
	}
	return ToResidualTransferDTO(transfer), nil
}

// GetReconciliation returns the authoritative remaining quantity view of a line
func (s *TransferService) GetReconciliation(ctx context.Context, query GetItemQuery) (*ReconciliationDTO, error) {
	unlock := s.locks.Lock(query.OrderID, query.ItemCode)
	defer unlock()

	rec, err := s.reconciliation.Get(ctx, query.OrderID, query.ItemCode)
	if err != nil {
		return nil, s.fail(ctx, "get reconciliation", query.OrderID, query.ItemCode, err)
	}
	return ToReconciliationDTO(rec), nil
}

// GetOrderReconciliation reconciles every line of an order
func (s *TransferService) GetOrderReconciliation(ctx context.Context, query GetOrderQuery) ([]ReconciliationDTO, error) {
	lines, err := s.orders.ListOrderLineItems(ctx, query.OrderID)
	if err != nil {
		return nil, s.fail(ctx, "list order lines", query.OrderID, "", err)
	}

	recs := make([]ReconciliationDTO, 0, len(lines))
	for _, line := range lines {
		rec, err := s.reconcileLine(ctx, line)
		if err != nil {
			return nil, s.fail(ctx, "get reconciliation", line.OrderID, line.ItemCode, err)
		}
		recs = append(recs, *ToReconciliationDTO(rec))
	}
	return recs, nil
}

func (s *TransferService) reconcileLine(ctx context.Context, line *domain.OrderLineItem) (domain.Reconciliation, error) {
	unlock := s.locks.Lock(line.OrderID, line.ItemCode)
	defer unlock()
	return s.reconciliation.ForLine(ctx, line)
}

// QuerySlotGrid returns a zone's grid, classified for the optional viewer
func (s *TransferService) QuerySlotGrid(ctx context.Context, query QuerySlotGridQuery) (*SlotGridDTO, error) {
	viewer := query.viewer()
	slots, err := s.slots.Query(ctx, query.Zone, viewer)
	if err != nil {
		return nil, s.fail(ctx, "query slot grid", query.ViewerOrderID, query.ViewerItemCode, err)
	}
	return ToSlotGridDTO(query.Zone, slots, viewer), nil
}

func (s *TransferService) newCommand(kind domain.RobotCommandType, orderID, itemCode string, moves []domain.RobotMove) domain.RobotCommand {
	return domain.RobotCommand{
		CommandID: uuid.NewString(),
		Type:      kind,
		OrderID:   orderID,
		ItemCode:  itemCode,
		Moves:     moves,
		IssuedAt:  time.Now().UTC(),
	}
}

// dispatch sends the robot command once. A failure is reported, never retried.
func (s *TransferService) dispatch(ctx context.Context, command domain.RobotCommand) string {
	if err := s.dispatcher.Dispatch(ctx, command); err != nil {
		s.metrics.RecordDispatchFailure(string(command.Type))
		s.logger.WithItem(command.OrderID, command.ItemCode).WithError(err).Error("Robot dispatch failed",
			"commandId", command.CommandID, "type", command.Type)
		return err.Error()
	}
	return ""
}

func (s *TransferService) publish(ctx context.Context, events []domain.DomainEvent) {
	if len(events) == 0 {
		return
	}
	if err := s.publisher.PublishAll(ctx, events); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to publish domain events", "count", len(events))
	}
}

func (s *TransferService) restoreSession(ctx context.Context, staged *domain.PackingSession) {
	if err := s.packer.Restore(ctx, staged); err != nil {
		s.logger.WithItem(staged.OrderID, staged.ItemCode).WithError(err).Error("Failed to restore packing session")
	}
}

func (s *TransferService) restoreDesignated(ctx context.Context, snapshot *domain.DesignatedTransfer) {
	if err := s.designated.Restore(ctx, snapshot); err != nil {
		s.logger.WithItem(snapshot.OrderID, snapshot.ItemCode).WithError(err).Error("Failed to restore designated transfer")
	}
}

// fail maps err for the caller and logs it at a level matching its class
func (s *TransferService) fail(ctx context.Context, operation, orderID, itemCode string, err error) error {
	appErr := mapDomainError(err)
	logger := s.logger.WithContext(ctx).WithItem(orderID, itemCode).WithError(err)
	if appErr.HTTPStatus >= 500 {
		logger.Error("Failed to "+operation, "code", appErr.Code)
	} else {
		logger.Info("Rejected "+operation, "code", appErr.Code, "reason", appErr.Reason())
	}
	return appErr
}

func commitOutcome(err error) string {
	var conflict *domain.SlotConflictError
	switch {
	case stderrors.As(err, &conflict), stderrors.Is(err, domain.ErrAlreadyTransferring):
		return metrics.OutcomeConflict
	case mapDomainError(err).HTTPStatus >= 500:
		return metrics.OutcomeStoreFailed
	default:
		return metrics.OutcomeRejected
	}
}

func itemResourceID(orderID, itemCode string) string {
	return orderID + "/" + itemCode
}
