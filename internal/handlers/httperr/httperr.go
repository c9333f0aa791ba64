// Package httperr maps domain errors to HTTP responses in one place.
package httperr

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/GlebRadaev/wholesale/internal/domain"
	"github.com/GlebRadaev/wholesale/pkg/utils"
)

// MsgPaymentFailed is the only detail a client sees of a gateway failure.
const MsgPaymentFailed = "payment failed, try again"

// Status returns the HTTP status for err.
func Status(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrExternalService):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrNotConfigured):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// Write responds with the status and message for err. Internal and gateway
// failures never leak their cause.
func Write(w http.ResponseWriter, err error) {
	status := Status(err)
	switch status {
	case http.StatusInternalServerError:
		zap.L().Error("request failed", zap.Error(err))
		utils.RespondWithError(w, status, "Internal server error")
	case http.StatusBadGateway:
		utils.RespondWithError(w, status, MsgPaymentFailed)
	default:
		utils.RespondWithError(w, status, err.Error())
	}
}
