package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/transfer-service/internal/application"
	"github.com/wms-platform/transfer-service/internal/domain"
	kafkaInfra "github.com/wms-platform/transfer-service/internal/infrastructure/kafka"
	"github.com/wms-platform/transfer-service/internal/infrastructure/memory"
	"github.com/wms-platform/transfer-service/pkg/logging"
	"github.com/wms-platform/transfer-service/pkg/metrics"
	"github.com/wms-platform/transfer-service/pkg/middleware"
)

type stubDispatcher struct {
	DispatchFn func(ctx context.Context, command domain.RobotCommand) error
}

func (s *stubDispatcher) Dispatch(ctx context.Context, command domain.RobotCommand) error {
	if s.DispatchFn != nil {
		return s.DispatchFn(ctx, command)
	}
	return nil
}

func newTestRouter(t *testing.T, dispatcher domain.DispatchSink) *gin.Engine {
	t.Helper()
	return buildTestRouter(t, dispatcher, nil)
}

func buildTestRouter(t *testing.T, dispatcher domain.DispatchSink, contract middleware.RequestValidator) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logging.New(&logging.Config{Level: logging.LevelError, ServiceName: "test", Output: io.Discard})
	m := metrics.New(metrics.DefaultConfig("test"))

	directory := memory.NewDirectory()
	slots := memory.NewSlotRepository()
	seed, err := memory.LoadSeed("")
	require.NoError(t, err)
	require.NoError(t, seed.Apply(context.Background(), directory, slots))

	if dispatcher == nil {
		dispatcher = &stubDispatcher{}
	}

	service := application.NewTransferService(application.Dependencies{
		Slots:           slots,
		Designated:      memory.NewDesignatedTransferRepository(),
		Residual:        memory.NewResidualTransferRepository(),
		Sessions:        memory.NewPackingSessionRepository(),
		Orders:          directory,
		Containers:      directory,
		Publisher:       kafkaInfra.NewLogPublisher(logger),
		Dispatcher:      dispatcher,
		Metrics:         m,
		Logger:          logger,
		OverTransferCap: application.NoOverTransferCap,
	})
	return newRouter("test", service, m, logger, nil, contract)
}

func doRequest(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

const itemPath = "/api/v1/orders/ORD-1001/items/SKU-100"

func TestHealthAndReady(t *testing.T) {
	router := newTestRouter(t, nil)

	assert.Equal(t, http.StatusOK, doRequest(router, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, doRequest(router, http.MethodGet, "/ready", nil).Code)
	assert.Equal(t, http.StatusNotFound, doRequest(router, http.MethodGet, "/nope", nil).Code)
}

func TestCommitDesignatedHandler(t *testing.T) {
	router := newTestRouter(t, nil)

	w := doRequest(router, http.MethodPost, itemPath+"/designated", gin.H{
		"sourcePalletIds":    []string{"PLT-001"},
		"destinationSlotIds": []string{"A-1-1"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	result := decode[application.DesignatedCommitResultDTO](t, w)
	assert.Equal(t, 80, result.Transfer.TransferredQuantity)
	assert.True(t, result.Transfer.IsLocked)
	assert.Equal(t, 20, result.Reconciliation.RemainingQuantity)
	assert.Empty(t, result.DispatchError)

	w = doRequest(router, http.MethodGet, itemPath+"/designated", nil)
	require.Equal(t, http.StatusOK, w.Code)
	status := decode[application.DesignatedTransferDTO](t, w)
	assert.Equal(t, "TRANSFERRING", status.Status)
	assert.Equal(t, []application.PalletAllocationDTO{{PalletID: "PLT-001", SlotID: "A-1-1", Quantity: 80}}, status.Allocations)

	w = doRequest(router, http.MethodPost, itemPath+"/designated", gin.H{
		"sourcePalletIds":    []string{"PLT-002"},
		"destinationSlotIds": []string{"A-1-2"},
	})
	require.Equal(t, http.StatusConflict, w.Code)
	errResp := decode[middleware.APIErrorResponse](t, w)
	assert.Equal(t, application.ReasonAlreadyTransferring, errResp.Details["reason"])
}

func TestCommitDesignatedHandler_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       gin.H
		wantStatus int
		wantCode   string
		wantReason string
	}{
		{
			name:       "occupied slot",
			path:       "/api/v1/orders/ORD-1001/items/SKU-200/designated",
			body:       gin.H{"sourcePalletIds": []string{"PLT-003"}, "destinationSlotIds": []string{"A-1-3"}},
			wantStatus: http.StatusConflict,
			wantCode:   "CONFLICT",
			wantReason: application.ReasonSlotConflict,
		},
		{
			name:       "mismatched selection",
			path:       itemPath + "/designated",
			body:       gin.H{"sourcePalletIds": []string{"PLT-001", "PLT-002"}, "destinationSlotIds": []string{"A-1-1"}},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
			wantReason: application.ReasonMismatchedSelection,
		},
		{
			name:       "empty selection",
			path:       itemPath + "/designated",
			body:       gin.H{"sourcePalletIds": []string{}, "destinationSlotIds": []string{}},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
			wantReason: application.ReasonMismatchedSelection,
		},
		{
			name:       "malformed slot id",
			path:       itemPath + "/designated",
			body:       gin.H{"sourcePalletIds": []string{"PLT-001"}, "destinationSlotIds": []string{"A1"}},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "unknown order line",
			path:       "/api/v1/orders/ORD-9999/items/SKU-100/designated",
			body:       gin.H{"sourcePalletIds": []string{"PLT-001"}, "destinationSlotIds": []string{"A-1-1"}},
			wantStatus: http.StatusNotFound,
			wantCode:   "RESOURCE_NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, nil)

			w := doRequest(router, http.MethodPost, tt.path, tt.body)
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())

			errResp := decode[middleware.APIErrorResponse](t, w)
			assert.Equal(t, tt.wantCode, errResp.Code)
			if tt.wantReason != "" {
				assert.Equal(t, tt.wantReason, errResp.Details["reason"])
			}
		})
	}
}

func TestCommitDesignatedHandler_ReportsDispatchFailure(t *testing.T) {
	router := newTestRouter(t, &stubDispatcher{
		DispatchFn: func(ctx context.Context, command domain.RobotCommand) error {
			return errors.New("amr gateway unreachable")
		},
	})

	w := doRequest(router, http.MethodPost, itemPath+"/designated", gin.H{
		"sourcePalletIds":    []string{"PLT-001"},
		"destinationSlotIds": []string{"A-1-1"},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	result := decode[application.DesignatedCommitResultDTO](t, w)
	assert.Contains(t, result.DispatchError, "amr gateway unreachable")
	assert.Equal(t, 80, result.Transfer.TransferredQuantity)
}

func TestResidualFlowHandlers(t *testing.T) {
	router := newTestRouter(t, nil)
	sessionPath := itemPath + "/residual/session"

	w := doRequest(router, http.MethodPost, sessionPath+"/lines", gin.H{"sourceKind": "PALLET", "sourceId": "PLT-002", "quantity": 10})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = doRequest(router, http.MethodPost, sessionPath+"/lines", gin.H{"sourceKind": "TOTE", "sourceId": "TOTE-01", "quantity": 5})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	session := decode[application.PackingSessionDTO](t, w)
	assert.Equal(t, 15, session.TotalPacked)
	assert.True(t, session.CanAssignCarrier)
	assert.False(t, session.CanSelectDestination)

	w = doRequest(router, http.MethodPost, sessionPath+"/destination", gin.H{"slotId": "B-2-2"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, application.ReasonNoCarrierAssigned, decode[middleware.APIErrorResponse](t, w).Details["reason"])

	w = doRequest(router, http.MethodPost, sessionPath+"/carrier", gin.H{"emptyPalletId": "EMP-1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doRequest(router, http.MethodPost, sessionPath+"/destination", gin.H{"slotId": "B-2-2"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[application.PackingSessionDTO](t, w).CanConfirm)

	w = doRequest(router, http.MethodPost, sessionPath+"/confirm", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	confirmed := decode[application.ResidualConfirmResultDTO](t, w)
	assert.True(t, confirmed.FirstBatch)
	assert.Equal(t, 15, confirmed.Transfer.TotalTransferredQuantity)
	assert.Equal(t, 85, confirmed.Reconciliation.RemainingQuantity)
	assert.True(t, confirmed.Reconciliation.HasResidualStarted)

	w = doRequest(router, http.MethodGet, sessionPath, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "EMPTY", decode[application.PackingSessionDTO](t, w).State)

	w = doRequest(router, http.MethodGet, "/api/v1/slots/zones/B?orderId=ORD-1001&itemCode=SKU-100", nil)
	require.Equal(t, http.StatusOK, w.Code)
	grid := decode[application.SlotGridDTO](t, w)
	assert.Len(t, grid.Slots, 15)
	for _, s := range grid.Slots {
		if s.SlotID == "B-2-2" {
			assert.Equal(t, "OWN", s.Class)
		}
	}

	w = doRequest(router, http.MethodPost, itemPath+"/residual/complete", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "COMPLETE", decode[application.ResidualTransferDTO](t, w).Status)

	w = doRequest(router, http.MethodPost, itemPath+"/residual/reopen", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "IN_PROGRESS", decode[application.ResidualTransferDTO](t, w).Status)
}

func TestConfirmHandler_EmptySession(t *testing.T) {
	router := newTestRouter(t, nil)

	w := doRequest(router, http.MethodPost, itemPath+"/residual/session/confirm", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, application.ReasonNoPackedLines, decode[middleware.APIErrorResponse](t, w).Details["reason"])

	w = doRequest(router, http.MethodGet, itemPath+"/residual", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPackLineHandler_Validation(t *testing.T) {
	router := newTestRouter(t, nil)
	path := itemPath + "/residual/session/lines"

	w := doRequest(router, http.MethodPost, path, gin.H{"sourceKind": "BIN", "sourceId": "PLT-002", "quantity": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodPost, path, gin.H{"sourceKind": "TOTE", "sourceId": "TOTE-01", "quantity": 21})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, application.ReasonExceedsAvailable, decode[middleware.APIErrorResponse](t, w).Details["reason"])
}

func TestRemoveLineHandler(t *testing.T) {
	router := newTestRouter(t, nil)
	sessionPath := itemPath + "/residual/session"

	w := doRequest(router, http.MethodDelete, sessionPath+"/lines/x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodPost, sessionPath+"/lines", gin.H{"sourceKind": "TOTE", "sourceId": "TOTE-02", "quantity": 3})
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodDelete, sessionPath+"/lines/0", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	session := decode[application.PackingSessionDTO](t, w)
	assert.Equal(t, "EMPTY", session.State)
	assert.Zero(t, session.TotalPacked)
}

func TestDiscardSessionHandler_ReleasesSlot(t *testing.T) {
	router := newTestRouter(t, nil)
	sessionPath := itemPath + "/residual/session"

	require.Equal(t, http.StatusOK, doRequest(router, http.MethodPost, sessionPath+"/lines", gin.H{"sourceKind": "PALLET", "sourceId": "PLT-001", "quantity": 4}).Code)
	require.Equal(t, http.StatusOK, doRequest(router, http.MethodPost, sessionPath+"/carrier", gin.H{"emptyPalletId": "EMP-2"}).Code)
	require.Equal(t, http.StatusOK, doRequest(router, http.MethodPost, sessionPath+"/destination", gin.H{"slotId": "B-2-3"}).Code)

	w := doRequest(router, http.MethodDelete, sessionPath, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{"B-2-3"}, decode[application.DiscardResultDTO](t, w).ReleasedSlots)

	w = doRequest(router, http.MethodGet, "/api/v1/slots/zones/B", nil)
	require.Equal(t, http.StatusOK, w.Code)
	for _, s := range decode[application.SlotGridDTO](t, w).Slots {
		if s.SlotID == "B-2-3" {
			assert.Equal(t, "FREE", s.Class)
		}
	}
}

func TestReconciliationHandlers(t *testing.T) {
	router := newTestRouter(t, nil)

	w := doRequest(router, http.MethodGet, itemPath+"/reconciliation", nil)
	require.Equal(t, http.StatusOK, w.Code)
	rec := decode[application.ReconciliationDTO](t, w)
	assert.Equal(t, 100, rec.RemainingQuantity)
	assert.Equal(t, "NOT_STARTED", rec.ResidualStatus)

	w = doRequest(router, http.MethodGet, "/api/v1/orders/ORD-1001/reconciliation", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		OrderID string                          `json:"orderId"`
		Lines   []application.ReconciliationDTO `json:"lines"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ORD-1001", body.OrderID)
	assert.Len(t, body.Lines, 2)

	w = doRequest(router, http.MethodGet, "/api/v1/orders/ORD-9999/reconciliation", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSlotGridHandler_UnknownZone(t *testing.T) {
	router := newTestRouter(t, nil)

	w := doRequest(router, http.MethodGet, "/api/v1/slots/zones/Z", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
