package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile(t *testing.T) {
	t.Run("untouched line", func(t *testing.T) {
		rec := Reconcile(testLine(), nil, nil)

		assert.Equal(t, 100, rec.RemainingQuantity)
		assert.Equal(t, DesignatedStatusNotStarted, rec.DesignatedStatus)
		assert.Equal(t, ResidualStatusNotStarted, rec.ResidualStatus)
		assert.False(t, rec.IsLocked)
		assert.False(t, rec.HasResidualStarted)
	})

	t.Run("both ledgers", func(t *testing.T) {
		d, err := NewDesignatedTransfer(testLine(), []PalletAllocation{{PalletID: "P1", SlotID: "A-1-1", Quantity: 80}}, 0)
		require.NoError(t, err)
		r := NewResidualTransfer("ORD-1", "ITEM-1", batch(15, "EMP-1", "A-1-2"))
		require.NoError(t, d.AccumulateResidual(15))

		rec := Reconcile(testLine(), d, r)

		assert.Equal(t, 80, rec.TransferredQuantity)
		assert.Equal(t, 15, rec.ResidualQuantity)
		assert.Equal(t, 5, rec.RemainingQuantity)
		assert.True(t, rec.IsLocked)
		assert.True(t, rec.HasResidualStarted)
	})

	t.Run("over-transfer clamps remaining", func(t *testing.T) {
		d, err := NewDesignatedTransfer(testLine(), []PalletAllocation{{PalletID: "P1", SlotID: "A-1-1", Quantity: 120}}, 0)
		require.NoError(t, err)

		rec := Reconcile(testLine(), d, nil)

		assert.Equal(t, -20, rec.SignedRemaining)
		assert.Zero(t, rec.RemainingQuantity)
		assert.True(t, rec.IsOverTransferred)
	})

	t.Run("residual only", func(t *testing.T) {
		rec := Reconcile(testLine(), nil, NewResidualTransfer("ORD-1", "ITEM-1", batch(30, "EMP-1", "A-1-2")))
		assert.Equal(t, 70, rec.RemainingQuantity)
	})
}

func TestReconcile_PanicsWhenLedgersDisagree(t *testing.T) {
	d, err := NewDesignatedTransfer(testLine(), []PalletAllocation{{PalletID: "P1", SlotID: "A-1-1", Quantity: 10}}, 0)
	require.NoError(t, err)
	r := NewResidualTransfer("ORD-1", "ITEM-1", batch(5, "EMP-1", "A-1-2"))

	assert.PanicsWithError(t, "invariant violated: residual-ledgers-agree: designated ledger has 0 residual, residual ledger has 5", func() {
		Reconcile(testLine(), d, r)
	})
}
