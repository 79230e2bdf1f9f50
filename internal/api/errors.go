package api

import (
	"errors"
	"net/http"

	"studio-api/internal/response"
	"studio-api/internal/services"
	"studio-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

var errorStatus = []struct {
	err    error
	status int
}{
	{services.ErrInvalidInput, http.StatusBadRequest},
	{services.ErrUnknownPlan, http.StatusBadRequest},
	{services.ErrOTPIncorrect, http.StatusBadRequest},
	{services.ErrUnauthenticated, http.StatusUnauthorized},
	{services.ErrInvalidSession, http.StatusUnauthorized},
	{services.ErrInsufficientCredits, http.StatusPaymentRequired},
	{services.ErrPurchaseNotFound, http.StatusNotFound},
	{services.ErrUserNotFound, http.StatusNotFound},
	{services.ErrSubscriptionNotFound, http.StatusNotFound},
	{services.ErrOTPNotFound, http.StatusNotFound},
	{services.ErrPurchaseCompleted, http.StatusConflict},
	{services.ErrPurchaseNotPending, http.StatusConflict},
	{services.ErrPurchaseNotRefundable, http.StatusConflict},
	{services.ErrSubscriptionActive, http.StatusConflict},
	{services.ErrOTPAlreadyUsed, http.StatusConflict},
	{services.ErrOTPExpired, http.StatusGone},
	{services.ErrResendTooSoon, http.StatusTooManyRequests},
	{services.ErrEmailUnavailable, http.StatusServiceUnavailable},
}

// statusFor maps a service error to its HTTP status
func statusFor(err error) int {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// writeError sends err in the response envelope. Unclassified errors are
// logged and hidden behind a generic message.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logging.Errorf("Request failed - %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		response.ErrorJSON(c, status, "Internal server error")
		return
	}
	response.ErrorJSON(c, status, err.Error())
}

func badRequest(c *gin.Context, err error) {
	response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
}
