package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/wms-platform/transfer-service/internal/domain"
	"github.com/wms-platform/transfer-service/pkg/logging"
	"github.com/wms-platform/transfer-service/pkg/metrics"
)

// SlotRegistry arbitrates reservations over the global slot pool. Multi-slot requests
// are processed in sorted id order and either fully succeed or leave nothing reserved.
type SlotRegistry struct {
	repo    domain.SlotRepository
	metrics *metrics.Metrics
	logger  *logging.Logger
	mu      sync.Mutex
}

// NewSlotRegistry creates a SlotRegistry. m may be nil.
func NewSlotRegistry(repo domain.SlotRepository, m *metrics.Metrics, logger *logging.Logger) *SlotRegistry {
	return &SlotRegistry{
		repo:    repo,
		metrics: m,
		logger:  logger.WithComponent("slot-registry"),
	}
}

// TryReserve reserves every slot for owner or none of them. Conflicts are reported as
// *domain.SlotConflictError listing each blocking slot.
func (r *SlotRegistry) TryReserve(ctx context.Context, slotIDs []domain.SlotID, owner domain.TransferRef) error {
	sorted, err := normalizeSlotIDs(slotIDs)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var conflicts []domain.SlotID
	for _, id := range sorted {
		slot, err := r.repo.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load slot %s: %w", id, err)
		}
		if slot == nil {
			return fmt.Errorf("%w: %s", domain.ErrUnknownSlot, id)
		}
		if !slot.CanReserve(owner) {
			conflicts = append(conflicts, id)
		}
	}
	if len(conflicts) > 0 {
		r.recordConflict(conflicts, owner)
		return &domain.SlotConflictError{Slots: conflicts}
	}

	// The store may be shared with other processes, so each slot is still taken with a
	// compare-and-set and earlier slots are rolled back if a later one is lost.
	var taken []domain.SlotID
	for _, id := range sorted {
		newlyReserved, err := r.repo.CompareAndReserve(ctx, id, owner)
		if err != nil {
			r.rollback(ctx, taken, owner)
			if errors.Is(err, domain.ErrSlotConflict) {
				conflict := []domain.SlotID{id}
				r.recordConflict(conflict, owner)
				return &domain.SlotConflictError{Slots: conflict}
			}
			return fmt.Errorf("failed to reserve slot %s: %w", id, err)
		}
		if newlyReserved {
			taken = append(taken, id)
		}
	}

	if r.metrics != nil && len(taken) > 0 {
		r.metrics.AddSlotsReserved(string(owner.Kind), len(taken))
	}
	r.logger.Debug("Slots reserved", "owner", owner.String(), "slots", sorted, "new", len(taken))
	return nil
}

// Release frees the slots held by owner and returns how many were released. Slots held by
// someone else, already free, or unknown are skipped, so releasing twice is harmless.
func (r *SlotRegistry) Release(ctx context.Context, slotIDs []domain.SlotID, owner domain.TransferRef) (int, error) {
	sorted := append([]domain.SlotID(nil), slotIDs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	r.mu.Lock()
	defer r.mu.Unlock()

	released := 0
	for _, id := range sorted {
		ok, err := r.repo.ReleaseIfOwner(ctx, id, owner)
		if err != nil {
			return released, fmt.Errorf("failed to release slot %s: %w", id, err)
		}
		if ok {
			released++
		}
	}

	if r.metrics != nil && released > 0 {
		r.metrics.AddSlotsReserved(string(owner.Kind), -released)
	}
	return released, nil
}

// Query returns the zone grid classified for viewer, which may be nil
func (r *SlotRegistry) Query(ctx context.Context, zone string, viewer *domain.TransferRef) ([]*domain.Slot, error) {
	slots, err := r.repo.FindByZone(ctx, zone)
	if err != nil {
		return nil, fmt.Errorf("failed to load zone %s: %w", zone, err)
	}
	if len(slots) == 0 {
		return nil, domain.ErrZoneNotFound
	}

	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Row != slots[j].Row {
			return slots[i].Row < slots[j].Row
		}
		return slots[i].Col < slots[j].Col
	})
	return slots, nil
}

func (r *SlotRegistry) rollback(ctx context.Context, taken []domain.SlotID, owner domain.TransferRef) {
	for _, id := range taken {
		if _, err := r.repo.ReleaseIfOwner(ctx, id, owner); err != nil {
			r.logger.WithError(err).Error("Failed to roll back slot reservation", "slotId", id, "owner", owner.String())
		}
	}
}

func (r *SlotRegistry) recordConflict(conflicts []domain.SlotID, owner domain.TransferRef) {
	r.logger.Info("Slot reservation conflict", "owner", owner.String(), "slots", conflicts)
	if r.metrics == nil {
		return
	}
	for _, id := range conflicts {
		r.metrics.RecordSlotConflict(id.Zone())
	}
}

// normalizeSlotIDs rejects empty and duplicate selections and returns a sorted copy
func normalizeSlotIDs(slotIDs []domain.SlotID) ([]domain.SlotID, error) {
	if len(slotIDs) == 0 {
		return nil, domain.ErrEmptySlotSelection
	}

	sorted := append([]domain.SlotID(nil), slotIDs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateSlot, sorted[i])
		}
	}
	return sorted, nil
}
