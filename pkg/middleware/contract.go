package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/transfer-service/pkg/contracts/openapi"
	apperrors "github.com/wms-platform/transfer-service/pkg/errors"
)

// RequestValidator checks a request against the API document; *openapi.Validator satisfies it
type RequestValidator interface {
	ValidateRequest(ctx context.Context, req *http.Request) error
}

// ContractValidation rejects documented requests that do not match the API document with
// a 400. Requests for routes the document does not describe are passed through.
func ContractValidation(v RequestValidator, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if quietPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		err := v.ValidateRequest(c.Request.Context(), c.Request)
		switch {
		case err == nil, errors.Is(err, openapi.ErrUndocumentedRoute):
			c.Next()
		default:
			logger.Info("Request rejected by API contract",
				"path", c.Request.URL.Path, "method", c.Request.Method, "error", err.Error())
			AbortWithAppError(c, apperrors.ErrBadRequest(err.Error()).WithReason("CONTRACT_VIOLATION"))
		}
	}
}
