package memory

import (
	"context"
	"sync"

	"github.com/wms-platform/transfer-service/internal/domain"
)

// SlotRepository is an in-process slot grid
type SlotRepository struct {
	mu    sync.RWMutex
	slots map[domain.SlotID]*domain.Slot
}

// NewSlotRepository creates an empty grid
func NewSlotRepository() *SlotRepository {
	return &SlotRepository{slots: make(map[domain.SlotID]*domain.Slot)}
}

func (r *SlotRepository) FindByID(_ context.Context, id domain.SlotID) (*domain.Slot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	slot, ok := r.slots[id]
	if !ok {
		return nil, nil
	}
	return slot.Clone(), nil
}

func (r *SlotRepository) FindByZone(_ context.Context, zone string) ([]*domain.Slot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var slots []*domain.Slot
	for _, slot := range r.slots {
		if slot.Zone == zone {
			slots = append(slots, slot.Clone())
		}
	}
	return slots, nil
}

func (r *SlotRepository) CompareAndReserve(_ context.Context, id domain.SlotID, owner domain.TransferRef) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot, ok := r.slots[id]
	if !ok {
		return false, domain.ErrUnknownSlot
	}
	newlyReserved, err := slot.Reserve(owner)
	if err != nil {
		return false, domain.ErrSlotConflict
	}
	return newlyReserved, nil
}

func (r *SlotRepository) ReleaseIfOwner(_ context.Context, id domain.SlotID, owner domain.TransferRef) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot, ok := r.slots[id]
	if !ok {
		return false, nil
	}
	return slot.Release(owner), nil
}

// EnsureSlots adds missing slots. Occupancy of existing slots is refreshed unless a
// transfer holds them.
func (r *SlotRepository) EnsureSlots(_ context.Context, slots []*domain.Slot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range slots {
		existing, ok := r.slots[s.ID]
		if !ok {
			r.slots[s.ID] = s.Clone()
			continue
		}
		if existing.ReservedBy == nil {
			existing.Occupied = s.Occupied
		}
	}
	return nil
}
