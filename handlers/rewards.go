package handlers

import (
	"net/http"
	"strconv"

	"food-marketplace-api/middleware"

	"github.com/gin-gonic/gin"
)

// GetRewardBalance returns the customer's points balance and lifetime totals.
func (h *Handler) GetRewardBalance(c *gin.Context) {
	account, err := h.Rewards.Account(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": account})
}

// GetRewardHistory returns the newest ledger entries first.
func (h *Handler) GetRewardHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	history, err := h.Rewards.History(c.Request.Context(), middleware.GetUserID(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(history), "transactions": history})
}

func (h *Handler) GetRewardTiers(c *gin.Context) {
	tiers, err := h.Rewards.Tiers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tiers": tiers})
}

// QuoteRedemption previews the discount a number of points would buy.
func (h *Handler) QuoteRedemption(c *gin.Context) {
	points, err := strconv.ParseInt(c.Query("points"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "points must be a whole number"})
		return
	}
	tier, discount, err := h.Rewards.Quote(c.Request.Context(), middleware.GetUserID(c), points)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"points":   points,
		"tier":     tier,
		"discount": discount.StringFixed(2),
	})
}
