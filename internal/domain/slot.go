package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SlotID identifies one dock slot as "<zone>-<row>-<col>", e.g. "A-1-1"
type SlotID string

// NewSlotID builds a SlotID from its grid coordinates
func NewSlotID(zone string, row, col int) SlotID {
	return SlotID(fmt.Sprintf("%s-%d-%d", zone, row, col))
}

// ParseSlotID validates s and returns it as a SlotID
func ParseSlotID(s string) (SlotID, error) {
	if _, _, _, err := splitSlotID(s); err != nil {
		return "", err
	}
	return SlotID(s), nil
}

// ParseSlotIDs parses a list of slot ids, failing on the first invalid entry
func ParseSlotIDs(raw []string) ([]SlotID, error) {
	ids := make([]SlotID, 0, len(raw))
	for _, s := range raw {
		id, err := ParseSlotID(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func splitSlotID(s string) (zone string, row, col int, err error) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 || parts[0] == "" {
		return "", 0, 0, fmt.Errorf("%w: %q", ErrInvalidSlotID, s)
	}
	row, rowErr := strconv.Atoi(parts[1])
	col, colErr := strconv.Atoi(parts[2])
	if rowErr != nil || colErr != nil || row < 1 || col < 1 {
		return "", 0, 0, fmt.Errorf("%w: %q", ErrInvalidSlotID, s)
	}
	return parts[0], row, col, nil
}

// Zone returns the zone part of the id, or "" for a malformed id
func (id SlotID) Zone() string {
	zone, _, _, err := splitSlotID(string(id))
	if err != nil {
		return ""
	}
	return zone
}

func (id SlotID) String() string { return string(id) }

// OwnerKind tells which ledger a slot reservation belongs to
type OwnerKind string

const (
	OwnerDesignated OwnerKind = "DESIGNATED"
	OwnerResidual   OwnerKind = "RESIDUAL"
)

// TransferRef names the transfer holding a slot reservation
type TransferRef struct {
	Kind     OwnerKind `bson:"kind" json:"kind"`
	OrderID  string    `bson:"orderId" json:"orderId"`
	ItemCode string    `bson:"itemCode" json:"itemCode"`
}

// DesignatedRef is the reservation owner for the designated transfer of an item
func DesignatedRef(orderID, itemCode string) TransferRef {
	return TransferRef{Kind: OwnerDesignated, OrderID: orderID, ItemCode: itemCode}
}

// ResidualRef is the reservation owner for the residual transfer of an item, shared by
// its packing session and the ResidualTransfer record
func ResidualRef(orderID, itemCode string) TransferRef {
	return TransferRef{Kind: OwnerResidual, OrderID: orderID, ItemCode: itemCode}
}

func (r TransferRef) String() string {
	return string(r.Kind) + "/" + r.OrderID + "/" + r.ItemCode
}

// SameItem reports whether both refs point at the same order line, regardless of kind
func (r TransferRef) SameItem(other TransferRef) bool {
	return r.OrderID == other.OrderID && r.ItemCode == other.ItemCode
}

// SlotClass is the rendering class of a slot for a given viewer
type SlotClass string

const (
	SlotClassOccupied SlotClass = "OCCUPIED"
	SlotClassReserved SlotClass = "RESERVED"
	SlotClassOwn      SlotClass = "OWN"
	SlotClassFree     SlotClass = "FREE"
)

// Slot is one dock location. Occupied is a fixed fact about unrelated stock;
// ReservedBy is set while a transfer holds the slot.
type Slot struct {
	ID         SlotID       `bson:"_id" json:"slotId"`
	Zone       string       `bson:"zone" json:"zone"`
	Row        int          `bson:"row" json:"row"`
	Col        int          `bson:"col" json:"col"`
	Occupied   bool         `bson:"occupied" json:"occupied"`
	ReservedBy *TransferRef `bson:"reservedBy,omitempty" json:"reservedBy,omitempty"`
	ReservedAt *time.Time   `bson:"reservedAt,omitempty" json:"reservedAt,omitempty"`
}

// NewSlot creates an unreserved slot at the given grid position
func NewSlot(zone string, row, col int, occupied bool) *Slot {
	return &Slot{
		ID:       NewSlotID(zone, row, col),
		Zone:     zone,
		Row:      row,
		Col:      col,
		Occupied: occupied,
	}
}

// IsHeldBy reports whether owner currently holds the reservation
func (s *Slot) IsHeldBy(owner TransferRef) bool {
	return s.ReservedBy != nil && *s.ReservedBy == owner
}

// CanReserve reports whether owner may take the slot. A slot already held by the same owner is reservable.
func (s *Slot) CanReserve(owner TransferRef) bool {
	if s.Occupied {
		return false
	}
	return s.ReservedBy == nil || *s.ReservedBy == owner
}

// Reserve takes the slot for owner. It returns true when the reservation is new.
func (s *Slot) Reserve(owner TransferRef) (bool, error) {
	if !s.CanReserve(owner) {
		return false, &SlotConflictError{Slots: []SlotID{s.ID}}
	}
	if s.IsHeldBy(owner) {
		return false, nil
	}
	now := time.Now().UTC()
	ref := owner
	s.ReservedBy = &ref
	s.ReservedAt = &now
	return true, nil
}

// Release clears the reservation if owner holds it. Any other caller is a no-op.
func (s *Slot) Release(owner TransferRef) bool {
	if !s.IsHeldBy(owner) {
		return false
	}
	s.ReservedBy = nil
	s.ReservedAt = nil
	return true
}

// Classify returns how the slot renders for viewer; viewer may be nil
func (s *Slot) Classify(viewer *TransferRef) SlotClass {
	switch {
	case s.Occupied:
		return SlotClassOccupied
	case s.ReservedBy == nil:
		return SlotClassFree
	case viewer != nil && s.ReservedBy.SameItem(*viewer):
		return SlotClassOwn
	default:
		return SlotClassReserved
	}
}

// Clone returns a deep copy
func (s *Slot) Clone() *Slot {
	c := *s
	if s.ReservedBy != nil {
		ref := *s.ReservedBy
		c.ReservedBy = &ref
	}
	if s.ReservedAt != nil {
		at := *s.ReservedAt
		c.ReservedAt = &at
	}
	return &c
}
