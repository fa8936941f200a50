package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/wms-platform/transfer-service/internal/domain"
)

type itemKey struct {
	orderID  string
	itemCode string
}

// DesignatedTransferRepository keeps designated transfers in process memory.
// Stored values are copies, so callers never share state with the store.
type DesignatedTransferRepository struct {
	mu        sync.RWMutex
	transfers map[itemKey]*domain.DesignatedTransfer
}

func NewDesignatedTransferRepository() *DesignatedTransferRepository {
	return &DesignatedTransferRepository{transfers: make(map[itemKey]*domain.DesignatedTransfer)}
}

func (r *DesignatedTransferRepository) Save(_ context.Context, transfer *domain.DesignatedTransfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transfers[itemKey{transfer.OrderID, transfer.ItemCode}] = transfer.Clone()
	return nil
}

func (r *DesignatedTransferRepository) FindByItem(_ context.Context, orderID, itemCode string) (*domain.DesignatedTransfer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	transfer, ok := r.transfers[itemKey{orderID, itemCode}]
	if !ok {
		return nil, nil
	}
	return transfer.Clone(), nil
}

func (r *DesignatedTransferRepository) FindByOrder(_ context.Context, orderID string) ([]*domain.DesignatedTransfer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var transfers []*domain.DesignatedTransfer
	for key, transfer := range r.transfers {
		if key.orderID == orderID {
			transfers = append(transfers, transfer.Clone())
		}
	}
	sort.Slice(transfers, func(i, j int) bool { return transfers[i].ItemCode < transfers[j].ItemCode })
	return transfers, nil
}

// ResidualTransferRepository keeps residual transfers in process memory
type ResidualTransferRepository struct {
	mu        sync.RWMutex
	transfers map[itemKey]*domain.ResidualTransfer
}

func NewResidualTransferRepository() *ResidualTransferRepository {
	return &ResidualTransferRepository{transfers: make(map[itemKey]*domain.ResidualTransfer)}
}

func (r *ResidualTransferRepository) Save(_ context.Context, transfer *domain.ResidualTransfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transfers[itemKey{transfer.OrderID, transfer.ItemCode}] = transfer.Clone()
	return nil
}

func (r *ResidualTransferRepository) FindByItem(_ context.Context, orderID, itemCode string) (*domain.ResidualTransfer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	transfer, ok := r.transfers[itemKey{orderID, itemCode}]
	if !ok {
		return nil, nil
	}
	return transfer.Clone(), nil
}

// PackingSessionRepository keeps packing sessions in process memory
type PackingSessionRepository struct {
	mu       sync.RWMutex
	sessions map[itemKey]*domain.PackingSession
}

func NewPackingSessionRepository() *PackingSessionRepository {
	return &PackingSessionRepository{sessions: make(map[itemKey]*domain.PackingSession)}
}

func (r *PackingSessionRepository) Get(_ context.Context, orderID, itemCode string) (*domain.PackingSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[itemKey{orderID, itemCode}]
	if !ok {
		return nil, nil
	}
	return session.Clone(), nil
}

func (r *PackingSessionRepository) Save(_ context.Context, session *domain.PackingSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[itemKey{session.OrderID, session.ItemCode}] = session.Clone()
	return nil
}

func (r *PackingSessionRepository) Delete(_ context.Context, orderID, itemCode string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, itemKey{orderID, itemCode})
	return nil
}
