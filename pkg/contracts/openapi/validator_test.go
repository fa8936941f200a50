package openapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDocument = `
openapi: 3.0.3
info:
  title: test
  version: 1.0.0
paths:
  /items/{itemCode}/destination:
    parameters:
      - name: itemCode
        in: path
        required: true
        schema:
          type: string
    post:
      operationId: assignDestination
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              required: [slotId]
              properties:
                slotId:
                  type: string
                  pattern: '^[A-Z]+-[1-9][0-9]*-[1-9][0-9]*$'
      responses:
        '200':
          description: ok
          content:
            application/json:
              schema:
                type: object
                required: [slotId]
                properties:
                  slotId:
                    type: string
`

func newJSONRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestValidator_Request(t *testing.T) {
	v, err := NewValidator(context.Background(), []byte(testDocument))
	require.NoError(t, err)
	assert.Equal(t, []string{"assignDestination"}, v.OperationIDs())

	tests := []struct {
		name    string
		req     *http.Request
		wantErr bool
		unknown bool
	}{
		{"valid", newJSONRequest(http.MethodPost, "/items/SKU-1/destination", `{"slotId":"A-1-2"}`), false, false},
		{"pattern mismatch", newJSONRequest(http.MethodPost, "/items/SKU-1/destination", `{"slotId":"A1"}`), true, false},
		{"missing field", newJSONRequest(http.MethodPost, "/items/SKU-1/destination", `{}`), true, false},
		{"undocumented path", newJSONRequest(http.MethodPost, "/other", `{}`), true, true},
		{"undocumented method", newJSONRequest(http.MethodGet, "/items/SKU-1/destination", ""), true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateRequest(context.Background(), tt.req)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.unknown, errors.Is(err, ErrUndocumentedRoute))
		})
	}
}

func TestValidator_Response(t *testing.T) {
	v, err := NewValidator(context.Background(), []byte(testDocument))
	require.NoError(t, err)

	req := newJSONRequest(http.MethodPost, "/items/SKU-1/destination", `{"slotId":"A-1-2"}`)
	header := http.Header{"Content-Type": []string{"application/json; charset=utf-8"}}

	assert.NoError(t, v.ValidateResponse(context.Background(), req, http.StatusOK, header, []byte(`{"slotId":"A-1-2"}`)))
	assert.Error(t, v.ValidateResponse(context.Background(), req, http.StatusOK, header, []byte(`{"state":"EMPTY"}`)))
	assert.Error(t, v.ValidateResponse(context.Background(), req, http.StatusConflict, header, []byte(`{}`)))
}

func TestNewValidator_RejectsInvalidDocument(t *testing.T) {
	_, err := NewValidator(context.Background(), []byte("openapi: 3.0.3\ninfo: {}\npaths: {}\n"))
	assert.Error(t, err)
}
