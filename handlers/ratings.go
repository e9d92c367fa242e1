package handlers

import (
	"net/http"

	"food-marketplace-api/middleware"
	"food-marketplace-api/models"
	"food-marketplace-api/services"

	"github.com/gin-gonic/gin"
)

// SubmitRating rates the restaurant or rider of a delivered order.
func (h *Handler) SubmitRating(c *gin.Context) {
	var req services.RatingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rating, err := h.Ratings.Submit(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Thanks for your feedback", "rating": rating})
}

func (h *Handler) GetRiderRatings(c *gin.Context) {
	riderID, ok := paramID(c, "id")
	if !ok {
		return
	}
	ratings, err := h.Ratings.Public(c.Request.Context(), models.TargetRider, riderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(ratings), "ratings": ratings})
}
