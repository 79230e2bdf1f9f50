package api

import (
	"errors"
	"net/http"

	"studio-api/internal/middleware"
	"studio-api/internal/response"
	"studio-api/internal/services"

	"github.com/gin-gonic/gin"
)

// SendCodeRequest represents send sign-in code request
type SendCodeRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// VerifyCodeRequest represents verify sign-in code request
type VerifyCodeRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,len=6,numeric"`
}

// SendCode emails a fresh sign-in code
func (h *Handler) SendCode(c *gin.Context) {
	var req SendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.auth.SendCode(c.Request.Context(), req.Email)
	if err != nil {
		writeError(c, err)
		return
	}

	response.JSON(c, http.StatusOK, response.Response{
		Success: true,
		Message: "Verification code sent successfully",
		Data:    result,
	})
}

// VerifyCode checks the code and returns a session token
func (h *Handler) VerifyCode(c *gin.Context) {
	var req VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.auth.Verify(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		writeError(c, err)
		return
	}

	response.JSON(c, http.StatusOK, response.Response{
		Success: true,
		Message: "Verification code verified successfully",
		Data:    result,
	})
}

// Me returns the caller with their balance and subscription
func (h *Handler) Me(c *gin.Context) {
	ctx := c.Request.Context()
	session, _ := middleware.SessionFromContext(ctx)

	user, err := h.auth.CurrentUser(ctx, session)
	if err != nil {
		writeError(c, err)
		return
	}
	balance, err := h.ledger.GetCreditBalance(ctx, user.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	data := gin.H{
		"user":    user,
		"balance": balance,
	}
	sub, err := h.ledger.GetSubscription(ctx, user.UserID)
	switch {
	case err == nil:
		data["subscription"] = sub
	case !errors.Is(err, services.ErrSubscriptionNotFound):
		writeError(c, err)
		return
	}

	response.SuccessJSON(c, data)
}
