package api

import (
	"studio-api/internal/response"

	"github.com/gin-gonic/gin"
)

// GrantCreditsRequest represents an admin bulk credit grant
type GrantCreditsRequest struct {
	UserIDs []string `json:"user_ids" binding:"required,min=1,dive,required"`
	Credits int64    `json:"credits" binding:"required,gt=0"`
}

// CompletePurchaseRequest carries the processor's transaction id
type CompletePurchaseRequest struct {
	TransactionID string `json:"transaction_id" binding:"max=128"`
}

// AdminListPurchases lists purchases across all users
func (h *Handler) AdminListPurchases(c *gin.Context) {
	limit, ok := limitQuery(c)
	if !ok {
		return
	}

	purchases, err := h.ledger.GetAllPurchases(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	response.SuccessJSON(c, purchases)
}

// AdminRevenue returns revenue statistics over completed purchases
func (h *Handler) AdminRevenue(c *gin.Context) {
	stats, err := h.ledger.GetRevenueStats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.SuccessJSON(c, stats)
}

// AdminGrantCredits adds credits to a list of users
func (h *Handler) AdminGrantCredits(c *gin.Context) {
	var req GrantCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	granted, err := h.ledger.BulkGrantCredits(c.Request.Context(), req.UserIDs, req.Credits)
	if err != nil {
		writeError(c, err)
		return
	}
	response.SuccessJSON(c, gin.H{"users": granted, "credits": req.Credits})
}

// AdminRefundPurchase refunds a completed purchase
func (h *Handler) AdminRefundPurchase(c *gin.Context) {
	id, ok := purchaseIDParam(c)
	if !ok {
		return
	}

	purchase, err := h.ledger.RefundPurchase(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.SuccessJSON(c, purchase)
}

// AdminCompletePurchase settles a pending purchase by hand and credits its owner
func (h *Handler) AdminCompletePurchase(c *gin.Context) {
	id, ok := purchaseIDParam(c)
	if !ok {
		return
	}

	var req CompletePurchaseRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	purchase, err := h.ledger.CompletePurchase(c.Request.Context(), id, req.TransactionID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.SuccessJSON(c, purchase)
}
