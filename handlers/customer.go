package handlers

import (
	"net/http"
	"time"

	"food-marketplace-api/middleware"
	"food-marketplace-api/models"
	"food-marketplace-api/services"
	"food-marketplace-api/store"

	"github.com/gin-gonic/gin"
)

// PlaceOrder creates a new order (customer only). An Idempotency-Key header
// makes retries return the original order.
func (h *Handler) PlaceOrder(c *gin.Context) {
	var req services.PlaceOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.IdempotencyKey = c.GetHeader("Idempotency-Key")

	order, err := h.Orders.Place(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":               "Order placed successfully",
		"order":                 order,
		"estimated_delivery_at": order.EstimatedDeliveryAt,
	})
}

// GetMyOrders returns all orders for the logged-in customer
func (h *Handler) GetMyOrders(c *gin.Context) {
	var orders []models.Order
	query := h.db.WithContext(c.Request.Context()).
		Preload("Items").Preload("Restaurant").
		Where("customer_id = ?", middleware.GetUserID(c))
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Order("created_at desc").Find(&orders).Error; err != nil {
		respondError(c, store.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(orders), "orders": orders})
}

// GetOrderDetail returns a single order's full detail with history
func (h *Handler) GetOrderDetail(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}
	order, err := h.Orders.Get(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	if order.CustomerID != middleware.GetUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "This order does not belong to you"})
		return
	}

	resp := gin.H{
		"order":           order,
		"minutes_elapsed": int(time.Since(order.CreatedAt).Minutes()),
	}
	if sched := h.Orders.Scheduler(); sched != nil {
		if rem, ok := sched.Remaining(order.ID); ok {
			resp["auto_accept_in"] = rem
		}
	}
	c.JSON(http.StatusOK, resp)
}

type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// CancelOrder cancels an order (customer can cancel pending or confirmed)
func (h *Handler) CancelOrder(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, services.ErrReasonRequired)
		return
	}

	order, err := h.Orders.Transition(c.Request.Context(), orderID, models.StatusCancelled, caller(c), services.TransitionMeta{Reason: req.Reason})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order cancelled successfully", "order_id": order.ID})
}
