package api

import (
	"studio-api/internal/response"

	"github.com/gin-gonic/gin"
)

// SpendCreditsRequest represents a credit deduction for one generation
type SpendCreditsRequest struct {
	Amount int64  `json:"amount" binding:"required,gt=0"`
	Reason string `json:"reason" binding:"max=255"`
}

// SpendCredits deducts credits from the caller's balance
func (h *Handler) SpendCredits(c *gin.Context) {
	var req SpendCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	remaining, err := h.ledger.SpendCredits(c.Request.Context(), callerID(c), req.Amount, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	response.SuccessJSON(c, gin.H{"credits": remaining})
}
