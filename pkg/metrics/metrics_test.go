package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_TransferCounters(t *testing.T) {
	m := New(DefaultConfig("transfer-service"))

	m.RecordDesignatedCommit(OutcomeCommitted, 120)
	m.RecordDesignatedCommit(OutcomeConflict, 0)
	m.RecordResidualConfirm(true, 15)
	m.AddSlotsReserved("DESIGNATED", 2)
	m.AddSlotsReserved("DESIGNATED", -1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.designatedCommits.WithLabelValues(OutcomeConflict)))
	assert.Equal(t, 120.0, testutil.ToFloat64(m.transferredQuantity))
	assert.Equal(t, 15.0, testutil.ToFloat64(m.residualQuantity))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.slotsReserved.WithLabelValues("DESIGNATED")))
}

func TestMetrics_HandlerExposesServiceLabel(t *testing.T) {
	m := New(DefaultConfig("transfer-service"))
	m.RecordSlotConflict("A")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `wms_slot_reservation_conflicts_total{service="transfer-service",zone="A"} 1`)
}
