package api

import (
	"studio-api/internal/response"
	"studio-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

// Payment callback statuses
const (
	PaymentSucceeded = "succeeded"
	PaymentFailed    = "failed"
)

// PaymentCallbackRequest is posted by the payment processor once a charge settles
type PaymentCallbackRequest struct {
	PurchaseID    uint   `json:"purchase_id" binding:"required"`
	UserID        string `json:"user_id" binding:"required"`
	Status        string `json:"status" binding:"required,oneof=succeeded failed"`
	Credits       int64  `json:"credits"`
	TransactionID string `json:"transaction_id" binding:"max=128"`
	Reason        string `json:"reason"`
}

// PaymentCallback settles a purchase from the processor
func (h *Handler) PaymentCallback(c *gin.Context) {
	var req PaymentCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()

	logging.Infof("Payment callback - purchase_id: %d, user_id: %s, status: %s", req.PurchaseID, req.UserID, req.Status)

	if req.Status == PaymentFailed {
		if err := h.ledger.FailPurchase(ctx, req.PurchaseID, req.Reason); err != nil {
			writeError(c, err)
			return
		}
		response.SuccessJSON(c, gin.H{"purchase_id": req.PurchaseID, "status": "failed"})
		return
	}

	purchase, err := h.ledger.AddCreditsInternal(ctx, req.UserID, req.Credits, req.PurchaseID, req.TransactionID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.SuccessJSON(c, purchase)
}
