package handlers

import (
	"net/http"

	"food-marketplace-api/middleware"

	"github.com/gin-gonic/gin"
)

type SendMessageRequest struct {
	Body string `json:"body" binding:"required"`
}

// SendMessage posts to an order's conversation. Any participant may write.
func (h *Handler) SendMessage(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	msg, err := h.Messages.Send(c.Request.Context(), orderID, middleware.GetUserID(c), middleware.GetRole(c), req.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

func (h *Handler) GetMessages(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}
	msgs, err := h.Messages.List(c.Request.Context(), orderID, middleware.GetUserID(c), middleware.GetRole(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(msgs), "messages": msgs})
}
