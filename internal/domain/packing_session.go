package domain

import (
	"time"
)

// SourceKind is the container type a residual pick is taken from
type SourceKind string

const (
	SourcePallet SourceKind = "PALLET"
	SourceTote   SourceKind = "TOTE"
)

// IsValid checks if the source kind is valid
func (k SourceKind) IsValid() bool {
	return k == SourcePallet || k == SourceTote
}

// PackedLine is one contribution to a residual batch
type PackedLine struct {
	SourceKind SourceKind `bson:"sourceKind" json:"sourceKind"`
	SourceID   string     `bson:"sourceId" json:"sourceId"`
	Quantity   int        `bson:"quantity" json:"quantity"`
}

// SessionState is the state of a residual packing session
type SessionState string

const (
	SessionEmpty               SessionState = "EMPTY"
	SessionPacking             SessionState = "PACKING"
	SessionReadyForCarrier     SessionState = "READY_FOR_CARRIER"
	SessionReadyForDestination SessionState = "READY_FOR_DESTINATION"
	SessionConfirmed           SessionState = "CONFIRMED"
)

// CanTransitionTo checks if the state can transition to another state
func (s SessionState) CanTransitionTo(target SessionState) bool {
	validTransitions := map[SessionState][]SessionState{
		SessionEmpty:               {SessionPacking},
		SessionPacking:             {SessionPacking, SessionEmpty, SessionReadyForCarrier},
		SessionReadyForCarrier:     {SessionReadyForCarrier, SessionReadyForDestination},
		SessionReadyForDestination: {SessionConfirmed},
		SessionConfirmed:           {SessionEmpty},
	}

	for _, allowed := range validTransitions[s] {
		if target == allowed {
			return true
		}
	}
	return false
}

// PackingSession stages one residual batch for an order line:
// pack lines, assign an empty pallet as carrier, then choose a destination slot.
type PackingSession struct {
	OrderID           string       `json:"orderId"`
	ItemCode          string       `json:"itemCode"`
	State             SessionState `json:"state"`
	Lines             []PackedLine `json:"lines"`
	CarrierID         string       `json:"carrierId,omitempty"`
	DestinationSlotID SlotID       `json:"destinationSlotId,omitempty"`
	StartedAt         time.Time    `json:"startedAt"`
	UpdatedAt         time.Time    `json:"updatedAt"`
}

// NewPackingSession creates an empty session
func NewPackingSession(orderID, itemCode string) *PackingSession {
	now := time.Now().UTC()
	return &PackingSession{
		OrderID:   orderID,
		ItemCode:  itemCode,
		State:     SessionEmpty,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// TotalPacked sums the packed quantities
func (s *PackingSession) TotalPacked() int {
	total := 0
	for _, l := range s.Lines {
		total += l.Quantity
	}
	return total
}

// PackedFrom sums what this session already took from one container
func (s *PackingSession) PackedFrom(kind SourceKind, sourceID string) int {
	total := 0
	for _, l := range s.Lines {
		if l.SourceKind == kind && l.SourceID == sourceID {
			total += l.Quantity
		}
	}
	return total
}

// HoldsReservation reports whether the session has reserved its destination slot
func (s *PackingSession) HoldsReservation() bool {
	return s.State == SessionReadyForDestination && s.DestinationSlotID != ""
}

// AddLine packs quantity from a container. available is the container's stock of the product;
// quantities already packed from the same container in this session count against it.
func (s *PackingSession) AddLine(line PackedLine, available int) error {
	if !s.State.CanTransitionTo(SessionPacking) {
		return ErrInvalidSessionState
	}
	if !line.SourceKind.IsValid() {
		return ErrInvalidSourceKind
	}
	if line.SourceID == "" {
		return ErrSourceRequired
	}
	if line.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if s.PackedFrom(line.SourceKind, line.SourceID)+line.Quantity > available {
		return ErrExceedsAvailable
	}

	s.Lines = append(s.Lines, line)
	s.State = SessionPacking
	s.touch()
	return nil
}

// RemoveLine unpacks the line at index. Removing the last line empties the session.
func (s *PackingSession) RemoveLine(index int) error {
	if s.State != SessionPacking {
		return ErrInvalidSessionState
	}
	if index < 0 || index >= len(s.Lines) {
		return ErrPackedLineNotFound
	}

	s.Lines = append(s.Lines[:index:index], s.Lines[index+1:]...)
	if len(s.Lines) == 0 {
		s.State = SessionEmpty
	}
	s.touch()
	return nil
}

// AssignCarrier sets the empty pallet the batch is consolidated onto
func (s *PackingSession) AssignCarrier(carrierID string) error {
	if s.TotalPacked() == 0 {
		return ErrNoPackedLines
	}
	if !s.State.CanTransitionTo(SessionReadyForCarrier) {
		return ErrInvalidSessionState
	}
	if carrierID == "" {
		return ErrCarrierRequired
	}

	s.CarrierID = carrierID
	s.State = SessionReadyForCarrier
	s.touch()
	return nil
}

// CheckDestinationGate enforces that a slot can only be chosen once lines are packed and a carrier is set
func (s *PackingSession) CheckDestinationGate() error {
	if s.TotalPacked() == 0 {
		return ErrNoPackedLines
	}
	if s.CarrierID == "" {
		return ErrNoCarrierAssigned
	}
	if !s.State.CanTransitionTo(SessionReadyForDestination) {
		return ErrInvalidSessionState
	}
	return nil
}

// AssignDestination records the reserved destination slot
func (s *PackingSession) AssignDestination(slotID SlotID) error {
	if err := s.CheckDestinationGate(); err != nil {
		return err
	}

	s.DestinationSlotID = slotID
	s.State = SessionReadyForDestination
	s.touch()
	return nil
}

// CheckConfirmable reports the first missing step before confirmation
func (s *PackingSession) CheckConfirmable() error {
	if s.State == SessionReadyForDestination {
		return nil
	}
	if s.TotalPacked() == 0 {
		return ErrNoPackedLines
	}
	if s.CarrierID == "" {
		return ErrNoCarrierAssigned
	}
	return ErrNoDestinationChosen
}

// Confirm seals the batch and returns the payload handed to the ledgers
func (s *PackingSession) Confirm(productCode string) (ResidualTransferPayload, error) {
	if err := s.CheckConfirmable(); err != nil {
		return ResidualTransferPayload{}, err
	}

	payload := ResidualTransferPayload{
		ProductCode:       productCode,
		TotalQuantity:     s.TotalPacked(),
		EmptyPalletID:     s.CarrierID,
		DestinationSlotID: s.DestinationSlotID,
		PackedLines:       append([]PackedLine(nil), s.Lines...),
	}
	s.State = SessionConfirmed
	s.touch()
	return payload, nil
}

// Clone returns a deep copy
func (s *PackingSession) Clone() *PackingSession {
	c := *s
	c.Lines = append([]PackedLine(nil), s.Lines...)
	return &c
}

func (s *PackingSession) touch() {
	s.UpdatedAt = time.Now().UTC()
}
