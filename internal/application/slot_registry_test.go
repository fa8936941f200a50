package application

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/transfer-service/internal/domain"
	"github.com/wms-platform/transfer-service/internal/infrastructure/memory"
)

func newRegistry(t *testing.T) (*SlotRegistry, *memory.SlotRepository) {
	t.Helper()
	repo := memory.NewSlotRepository()
	var grid []*domain.Slot
	for col := 1; col <= 4; col++ {
		grid = append(grid, domain.NewSlot("A", 1, col, col == 4))
	}
	require.NoError(t, repo.EnsureSlots(context.Background(), grid))
	return NewSlotRegistry(repo, nil, testLogger()), repo
}

func ids(raw ...string) []domain.SlotID {
	out := make([]domain.SlotID, len(raw))
	for i, r := range raw {
		out[i] = domain.SlotID(r)
	}
	return out
}

func reservedBy(t *testing.T, repo domain.SlotRepository, id string) *domain.TransferRef {
	t.Helper()
	slot, err := repo.FindByID(context.Background(), domain.SlotID(id))
	require.NoError(t, err)
	require.NotNil(t, slot)
	return slot.ReservedBy
}

func TestSlotRegistry_TryReserve(t *testing.T) {
	ctx := context.Background()
	owner := domain.DesignatedRef("ORD-1", "ITEM-1")
	other := domain.DesignatedRef("ORD-2", "ITEM-9")

	t.Run("reserves every slot", func(t *testing.T) {
		registry, repo := newRegistry(t)

		require.NoError(t, registry.TryReserve(ctx, ids("A-1-2", "A-1-1"), owner))
		assert.Equal(t, &owner, reservedBy(t, repo, "A-1-1"))
		assert.Equal(t, &owner, reservedBy(t, repo, "A-1-2"))
	})

	t.Run("same owner may reserve again", func(t *testing.T) {
		registry, _ := newRegistry(t)

		require.NoError(t, registry.TryReserve(ctx, ids("A-1-1"), owner))
		assert.NoError(t, registry.TryReserve(ctx, ids("A-1-1"), owner))
	})

	t.Run("lists every blocking slot and reserves nothing", func(t *testing.T) {
		registry, repo := newRegistry(t)
		require.NoError(t, registry.TryReserve(ctx, ids("A-1-2"), other))

		err := registry.TryReserve(ctx, ids("A-1-1", "A-1-2", "A-1-3", "A-1-4"), owner)

		var conflict *domain.SlotConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, ids("A-1-2", "A-1-4"), conflict.Slots)
		assert.ErrorIs(t, err, domain.ErrSlotConflict)
		assert.Nil(t, reservedBy(t, repo, "A-1-1"))
		assert.Nil(t, reservedBy(t, repo, "A-1-3"))
		assert.Equal(t, &other, reservedBy(t, repo, "A-1-2"))
	})

	t.Run("rejects empty, duplicate and unknown selections", func(t *testing.T) {
		registry, _ := newRegistry(t)

		assert.ErrorIs(t, registry.TryReserve(ctx, nil, owner), domain.ErrEmptySlotSelection)
		assert.ErrorIs(t, registry.TryReserve(ctx, ids("A-1-1", "A-1-1"), owner), domain.ErrDuplicateSlot)
		assert.ErrorIs(t, registry.TryReserve(ctx, ids("A-9-9"), owner), domain.ErrUnknownSlot)
	})

	t.Run("rolls back when a later compare-and-set is lost", func(t *testing.T) {
		repo := memory.NewSlotRepository()
		require.NoError(t, repo.EnsureSlots(ctx, []*domain.Slot{
			domain.NewSlot("A", 1, 1, false),
			domain.NewSlot("A", 1, 2, false),
		}))
		stub := &stubSlotRepo{SlotRepository: repo}
		stub.CompareAndReserveFn = func(ctx context.Context, id domain.SlotID, o domain.TransferRef) (bool, error) {
			if id == "A-1-2" {
				return false, domain.ErrSlotConflict
			}
			return repo.CompareAndReserve(ctx, id, o)
		}
		registry := NewSlotRegistry(stub, nil, testLogger())

		err := registry.TryReserve(ctx, ids("A-1-1", "A-1-2"), owner)

		var conflict *domain.SlotConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, ids("A-1-2"), conflict.Slots)
		assert.Nil(t, reservedBy(t, repo, "A-1-1"))
	})

	t.Run("store errors are not conflicts", func(t *testing.T) {
		repo := memory.NewSlotRepository()
		require.NoError(t, repo.EnsureSlots(ctx, []*domain.Slot{domain.NewSlot("A", 1, 1, false)}))
		stub := &stubSlotRepo{
			SlotRepository: repo,
			CompareAndReserveFn: func(ctx context.Context, id domain.SlotID, o domain.TransferRef) (bool, error) {
				return false, errors.New("connection reset")
			},
		}
		registry := NewSlotRegistry(stub, nil, testLogger())

		err := registry.TryReserve(ctx, ids("A-1-1"), owner)
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrSlotConflict)
	})
}

func TestSlotRegistry_ReleaseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	registry, repo := newRegistry(t)
	owner := domain.ResidualRef("ORD-1", "ITEM-1")
	other := domain.DesignatedRef("ORD-1", "ITEM-1")

	require.NoError(t, registry.TryReserve(ctx, ids("A-1-1", "A-1-2"), owner))

	n, err := registry.Release(ctx, ids("A-1-1", "A-1-2"), other)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, &owner, reservedBy(t, repo, "A-1-1"))

	n, err = registry.Release(ctx, ids("A-1-1", "A-1-2", "A-9-9"), owner)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = registry.Release(ctx, ids("A-1-1", "A-1-2"), owner)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Nil(t, reservedBy(t, repo, "A-1-1"))
}

func TestSlotRegistry_ConcurrentReservationsHaveOneWinner(t *testing.T) {
	ctx := context.Background()
	registry, repo := newRegistry(t)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			owner := domain.DesignatedRef("ORD-1", string(rune('a'+i)))
			// selection order must not matter
			selection := ids("A-1-1", "A-1-2")
			if i%2 == 1 {
				selection = ids("A-1-2", "A-1-1")
			}
			if registry.TryReserve(ctx, selection, owner) == nil {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	first := reservedBy(t, repo, "A-1-1")
	require.NotNil(t, first)
	assert.Equal(t, first, reservedBy(t, repo, "A-1-2"))
}

func TestSlotRegistry_Query(t *testing.T) {
	ctx := context.Background()
	registry, _ := newRegistry(t)

	slots, err := registry.Query(ctx, "A", nil)
	require.NoError(t, err)
	require.Len(t, slots, 4)
	for i, s := range slots {
		assert.Equal(t, i+1, s.Col)
	}

	_, err = registry.Query(ctx, "Q", nil)
	assert.ErrorIs(t, err, domain.ErrZoneNotFound)
}
