package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/aurum-ledger/aurum_service/pkg/errors"
)

// Error messages as constants for consistency
const (
	MsgInvalidRequest = "Invalid request payload"
	MsgInternalError  = "Internal server error"
)

// statusFor maps a rejection kind to an HTTP status
func statusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindLimitExceeded:
		return http.StatusUnprocessableEntity
	case apperrors.KindStateConflict:
		return http.StatusConflict
	case apperrors.KindTooSoon:
		return http.StatusTooManyRequests
	case apperrors.KindUnauthorized:
		return http.StatusForbidden
	case apperrors.KindExternalFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError renders any error. Application errors keep their kind and
// machine code so integrators can tell a retryable failure from a
// deterministic rejection; anything else is an opaque 500.
func respondError(c *gin.Context, err error) {
	kind := apperrors.KindOf(err)
	if kind == "" {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      MsgInternalError,
			"code":       "INTERNAL_ERROR",
			"request_id": c.GetString("request_id"),
		})
		return
	}

	c.JSON(statusFor(kind), gin.H{
		"error":      err.Error(),
		"code":       apperrors.CodeOf(err),
		"kind":       string(kind),
		"retryable":  apperrors.ShouldRetry(err),
		"request_id": c.GetString("request_id"),
	})
}

func respondBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":      msg,
		"code":       "INVALID_REQUEST",
		"request_id": c.GetString("request_id"),
	})
}
