package handlers

import (
	"net/http"

	"food-marketplace-api/models"
	"food-marketplace-api/services"
	"food-marketplace-api/store"

	"github.com/gin-gonic/gin"
)

// GetRestaurantOrders returns all orders for the restaurant owner
func (h *Handler) GetRestaurantOrders(c *gin.Context) {
	restaurant, ok := h.ownRestaurant(c)
	if !ok {
		return
	}

	var orders []models.Order
	query := h.db.WithContext(c.Request.Context()).
		Preload("Items").Preload("Customer").Preload("Rider").
		Where("restaurant_id = ?", restaurant.ID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Order("created_at desc").Find(&orders).Error; err != nil {
		respondError(c, store.Wrap(err))
		return
	}

	summary := map[string]int{}
	countdowns := map[uint]int{}
	for _, o := range orders {
		summary[string(o.Status)]++
		if sched := h.Orders.Scheduler(); sched != nil && o.Status == models.StatusPending {
			if rem, ok := sched.Remaining(o.ID); ok {
				countdowns[o.ID] = rem
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"restaurant":    restaurant.Name,
		"order_summary": summary,
		"countdowns":    countdowns,
		"count":         len(orders),
		"orders":        orders,
	})
}

type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required,orderstatus"`
	Note   string             `json:"note"`
	Reason string             `json:"reason"`
}

// UpdateOrderStatus handles the restaurant's state transitions
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	before, err := h.Orders.Participant(c.Request.Context(), orderID, caller(c).UserID, models.RoleRestaurant)
	if err != nil {
		respondError(c, err)
		return
	}
	order, err := h.Orders.Decide(c.Request.Context(), orderID, req.Status, caller(c), services.TransitionMeta{
		Note:   req.Note,
		Reason: req.Reason,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":         "Order status updated",
		"order_id":        order.ID,
		"previous_status": before.Status,
		"current_status":  order.Status,
	})
}

// RestaurantOrderAction is the restaurant dashboard's accept/reject/progress call.
type RestaurantOrderAction struct {
	Status          models.OrderStatus `json:"status" binding:"required,orderstatus"`
	RestaurantID    uint               `json:"restaurantId" binding:"required"`
	RejectionReason string             `json:"rejectionReason"`
}

// PatchRestaurantOrder applies a restaurant action and answers {success, error?}.
func (h *Handler) PatchRestaurantOrder(c *gin.Context) {
	orderID, ok := paramID(c, "orderId")
	if !ok {
		return
	}
	var req RestaurantOrderAction
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	_, err := h.Orders.Decide(c.Request.Context(), orderID, req.Status, caller(c), services.TransitionMeta{
		Reason:       req.RejectionReason,
		RestaurantID: req.RestaurantID,
	})
	if err != nil {
		c.JSON(statusFor(err), gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetOrderCountdown reports the seconds left before a pending order is auto-accepted
func (h *Handler) GetOrderCountdown(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}
	order, err := h.Orders.Participant(c.Request.Context(), orderID, caller(c).UserID, models.RoleRestaurant)
	if err != nil {
		respondError(c, err)
		return
	}
	remaining, armed := 0, false
	if sched := h.Orders.Scheduler(); sched != nil {
		remaining, armed = sched.Remaining(orderID)
	}
	c.JSON(http.StatusOK, gin.H{
		"order_id":          order.ID,
		"status":            order.Status,
		"armed":             armed,
		"remaining_seconds": remaining,
	})
}
