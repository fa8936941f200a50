package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/transfer-service/internal/domain"
)

func TestLoadSeed_Default(t *testing.T) {
	seed, err := LoadSeed("")
	require.NoError(t, err)

	dir := NewDirectory()
	slots := NewSlotRepository()
	require.NoError(t, seed.Apply(context.Background(), dir, slots))

	line, err := dir.GetOrderLineItem(context.Background(), "ORD-1001", "SKU-100")
	require.NoError(t, err)
	assert.Equal(t, 100, line.OrderedQuantity)

	qty, err := dir.GetContainerQuantity(context.Background(), "PLT-001", "SKU-100")
	require.NoError(t, err)
	assert.Equal(t, 80, qty)

	zoneA, err := slots.FindByZone(context.Background(), "A")
	require.NoError(t, err)
	assert.Len(t, zoneA, 24)

	occupied, err := slots.FindByID(context.Background(), "A-1-3")
	require.NoError(t, err)
	require.NotNil(t, occupied)
	assert.True(t, occupied.Occupied)
}

func TestParseSeed_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero rows", "zones:\n  - name: A\n    rows: 0\n    cols: 2\n"},
		{"occupied outside zone", "zones:\n  - name: A\n    rows: 1\n    cols: 1\n    occupied: [B-1-1]\n"},
		{"bad slot id", "zones:\n  - name: A\n    rows: 1\n    cols: 1\n    occupied: [A-x-1]\n"},
		{"bad container kind", "containers:\n  - id: C-1\n    kind: CRATE\n"},
		{"not yaml", "zones: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSeed([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestSeedApply_KeepsReservations(t *testing.T) {
	ctx := context.Background()
	seed, err := ParseSeed([]byte("zones:\n  - name: C\n    rows: 1\n    cols: 2\n"))
	require.NoError(t, err)

	slots := NewSlotRepository()
	require.NoError(t, seed.Apply(ctx, NewDirectory(), slots))

	owner := domain.DesignatedRef("ORD-1", "SKU-1")
	_, err = slots.CompareAndReserve(ctx, "C-1-1", owner)
	require.NoError(t, err)

	require.NoError(t, seed.Apply(ctx, NewDirectory(), slots))

	slot, err := slots.FindByID(ctx, "C-1-1")
	require.NoError(t, err)
	assert.True(t, slot.IsHeldBy(owner))
}

func TestDirectory_Lookups(t *testing.T) {
	ctx := context.Background()
	dir := NewDirectory()
	dir.PutOrderLine(domain.OrderLineItem{OrderID: "ORD-1", ItemCode: "SKU-2", OrderedQuantity: 5})
	dir.PutOrderLine(domain.OrderLineItem{OrderID: "ORD-1", ItemCode: "SKU-1", OrderedQuantity: 3})
	dir.PutContainer("TOTE-1", map[string]int{"SKU-1": 7})

	lines, err := dir.ListOrderLineItems(ctx, "ORD-1")
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "SKU-1", lines[0].ItemCode)
	assert.Equal(t, "SKU-2", lines[1].ItemCode)

	_, err = dir.ListOrderLineItems(ctx, "ORD-404")
	assert.ErrorIs(t, err, domain.ErrOrderLineNotFound)

	_, err = dir.GetOrderLineItem(ctx, "ORD-1", "SKU-404")
	assert.ErrorIs(t, err, domain.ErrOrderLineNotFound)

	_, err = dir.GetContainerQuantity(ctx, "TOTE-404", "SKU-1")
	assert.ErrorIs(t, err, domain.ErrContainerNotFound)

	_, err = dir.GetContainerQuantity(ctx, "TOTE-1", "SKU-2")
	assert.ErrorIs(t, err, domain.ErrProductNotInContainer)
}
