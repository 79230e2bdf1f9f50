package api

import (
	"fmt"
	"net/http"
	"strconv"

	"studio-api/internal/middleware"
	"studio-api/internal/response"
	"studio-api/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// StartTrialRequest represents start trial request
type StartTrialRequest struct {
	PlanID string `json:"plan_id" binding:"required,plan_id"`
}

// CreatePurchaseRequest represents a credit package purchase
type CreatePurchaseRequest struct {
	PackageID      string                 `json:"package_id" binding:"required,max=64"`
	Amount         decimal.Decimal        `json:"amount"`
	Credits        int64                  `json:"credits" binding:"required,gt=0"`
	PaymentMethod  string                 `json:"payment_method" binding:"required,max=32"`
	PaymentDetails map[string]interface{} `json:"payment_details"`
}

// ListPlans returns the plan catalog
func (h *Handler) ListPlans(c *gin.Context) {
	response.SuccessJSON(c, h.ledger.ListPlans())
}

// StartTrial starts a 7-day trial for the caller
func (h *Handler) StartTrial(c *gin.Context) {
	var req StartTrialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if isPlanIDError(err) {
			writeError(c, fmt.Errorf("%w: %q", services.ErrUnknownPlan, req.PlanID))
			return
		}
		badRequest(c, err)
		return
	}

	result, err := h.ledger.StartSubscriptionTrial(c.Request.Context(), callerID(c), req.PlanID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.SuccessJSON(c, result)
}

// CancelSubscription cancels the caller's subscription at period end
func (h *Handler) CancelSubscription(c *gin.Context) {
	sub, err := h.ledger.CancelSubscription(c.Request.Context(), callerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	response.SuccessJSON(c, sub)
}

// CreatePurchase opens a pending purchase for the caller
func (h *Handler) CreatePurchase(c *gin.Context) {
	var req CreatePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	id, err := h.ledger.CreatePurchase(c.Request.Context(), services.PurchaseInput{
		UserID:         callerID(c),
		PackageID:      req.PackageID,
		Amount:         req.Amount,
		Credits:        req.Credits,
		PaymentMethod:  req.PaymentMethod,
		PaymentDetails: req.PaymentDetails,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.CreatedJSON(c, "Purchase created", gin.H{"purchase_id": id})
}

// ListPurchases returns the caller's purchases, newest first
func (h *Handler) ListPurchases(c *gin.Context) {
	limit, ok := limitQuery(c)
	if !ok {
		return
	}

	purchases, err := h.ledger.GetUserPurchases(c.Request.Context(), callerID(c), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	response.SuccessJSON(c, purchases)
}

// callerID is the user id from the session, empty when unauthenticated
func callerID(c *gin.Context) string {
	session, ok := middleware.SessionFromContext(c.Request.Context())
	if !ok {
		return ""
	}
	return session.UserID
}

func purchaseIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.ErrorJSON(c, http.StatusBadRequest, fmt.Sprintf("Invalid purchase id %q", c.Param("id")))
		return 0, false
	}
	return uint(id), true
}

func limitQuery(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		response.ErrorJSON(c, http.StatusBadRequest, "limit must be a non-negative integer")
		return 0, false
	}
	return limit, true
}
