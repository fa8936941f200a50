package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/transfer-service/docs"
	"github.com/wms-platform/transfer-service/pkg/contracts/openapi"
	"github.com/wms-platform/transfer-service/pkg/middleware"
)

func newContractValidator(t *testing.T) *openapi.Validator {
	t.Helper()
	v, err := openapi.NewValidator(context.Background(), docs.OpenAPI)
	require.NoError(t, err)
	return v
}

// exchange sends one request and checks both sides of it against the API document
func exchange(t *testing.T, router *gin.Engine, v *openapi.Validator, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	require.NoError(t, v.ValidateRequest(context.Background(), req), "%s %s", method, path)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.NoError(t, v.ValidateResponse(context.Background(), req, w.Code, w.Header(), w.Body.Bytes()),
		"%s %s -> %d %s", method, path, w.Code, w.Body.String())
	return w
}

func TestAPIContract_TransferFlow(t *testing.T) {
	v := newContractValidator(t)
	router := buildTestRouter(t, nil, v)
	sessionPath := itemPath + "/residual/session"

	steps := []struct {
		method     string
		path       string
		body       any
		wantStatus int
	}{
		{http.MethodGet, itemPath + "/designated", nil, http.StatusOK},
		{http.MethodGet, sessionPath, nil, http.StatusOK},
		{http.MethodPost, sessionPath + "/lines", gin.H{"sourceKind": "PALLET", "sourceId": "PLT-002", "quantity": 10}, http.StatusOK},
		{http.MethodPost, sessionPath + "/lines", gin.H{"sourceKind": "TOTE", "sourceId": "TOTE-01", "quantity": 5}, http.StatusOK},
		{http.MethodDelete, sessionPath + "/lines/1", nil, http.StatusOK},
		{http.MethodPost, sessionPath + "/destination", gin.H{"slotId": "B-2-2"}, http.StatusBadRequest},
		{http.MethodPost, sessionPath + "/carrier", gin.H{"emptyPalletId": "EMP-1"}, http.StatusOK},
		{http.MethodPost, sessionPath + "/destination", gin.H{"slotId": "B-2-2"}, http.StatusOK},
		{http.MethodPost, sessionPath + "/confirm", nil, http.StatusCreated},
		{http.MethodGet, itemPath + "/designated", nil, http.StatusOK},
		{http.MethodPost, itemPath + "/designated", gin.H{"sourcePalletIds": []string{"PLT-001"}, "destinationSlotIds": []string{"A-1-1"}}, http.StatusCreated},
		{http.MethodPost, itemPath + "/designated", gin.H{"sourcePalletIds": []string{"PLT-001"}, "destinationSlotIds": []string{"A-1-2"}}, http.StatusConflict},
		{http.MethodGet, itemPath + "/reconciliation", nil, http.StatusOK},
		{http.MethodGet, "/api/v1/orders/ORD-1001/reconciliation", nil, http.StatusOK},
		{http.MethodGet, itemPath + "/residual", nil, http.StatusOK},
		{http.MethodPost, itemPath + "/residual/complete", nil, http.StatusOK},
		{http.MethodPost, itemPath + "/residual/reopen", nil, http.StatusOK},
		{http.MethodPost, sessionPath + "/lines", gin.H{"sourceKind": "TOTE", "sourceId": "TOTE-02", "quantity": 3}, http.StatusOK},
		{http.MethodDelete, sessionPath, nil, http.StatusOK},
		{http.MethodGet, "/api/v1/slots/zones/A?orderId=ORD-1001&itemCode=SKU-100", nil, http.StatusOK},
		{http.MethodGet, "/api/v1/slots/zones/Z", nil, http.StatusNotFound},
		{http.MethodGet, "/api/v1/orders/ORD-9999/items/SKU-100/designated", nil, http.StatusNotFound},
	}

	for _, step := range steps {
		w := exchange(t, router, v, step.method, step.path, step.body)
		require.Equal(t, step.wantStatus, w.Code, "%s %s: %s", step.method, step.path, w.Body.String())
	}
}

func TestAPIContract_DocumentsEveryRoute(t *testing.T) {
	v := newContractValidator(t)
	router := newTestRouter(t, nil)

	undocumented := map[string]bool{"/health": true, "/ready": true, "/metrics": true, "/api/v1/openapi.yaml": true}
	for _, route := range router.Routes() {
		if undocumented[route.Path] {
			continue
		}
		path := contractPath(route.Path)
		req := httptest.NewRequest(route.Method, path, nil)
		err := v.ValidateRequest(context.Background(), req)
		assert.NotErrorIs(t, err, openapi.ErrUndocumentedRoute, "%s %s", route.Method, route.Path)
	}
	assert.Len(t, v.OperationIDs(), len(router.Routes())-len(undocumented))
}

// contractPath fills gin path parameters with sample values
func contractPath(route string) string {
	replacer := map[string]string{
		":orderId":  "ORD-1001",
		":itemCode": "SKU-100",
		":index":    "0",
		":zone":     "A",
	}
	out := route
	for param, value := range replacer {
		out = strings.ReplaceAll(out, param, value)
	}
	return out
}

func TestContractValidation_RejectsNonConformingBody(t *testing.T) {
	v := newContractValidator(t)
	router := buildTestRouter(t, nil, v)

	w := doRequest(router, http.MethodPost, itemPath+"/residual/session/lines", gin.H{"sourceKind": "PALLET", "sourceId": "PLT-002", "quantity": 0})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "CONTRACT_VIOLATION", decode[middleware.APIErrorResponse](t, w).Details["reason"])

	// undocumented routes fall through to the router
	assert.Equal(t, http.StatusOK, doRequest(router, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusNotFound, doRequest(router, http.MethodGet, "/api/v1/unknown", nil).Code)

	w = doRequest(router, http.MethodGet, "/api/v1/openapi.yaml", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, docs.OpenAPI, w.Body.Bytes())
}
