package handlers

import (
	"net/http"

	"food-marketplace-api/middleware"
	"food-marketplace-api/models"
	"food-marketplace-api/services"
	"food-marketplace-api/store"

	"github.com/gin-gonic/gin"
)

// GetAvailableOrders shows ready orders that have no rider assigned
func (h *Handler) GetAvailableOrders(c *gin.Context) {
	var orders []models.Order
	err := h.db.WithContext(c.Request.Context()).
		Preload("Restaurant").
		Where("status = ? AND rider_id IS NULL", models.StatusReady).
		Order("created_at asc").
		Find(&orders).Error
	if err != nil {
		respondError(c, store.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":  len(orders),
		"orders": orders,
	})
}

// GetMyDeliveries returns all orders assigned to the logged-in rider
func (h *Handler) GetMyDeliveries(c *gin.Context) {
	var orders []models.Order
	err := h.db.WithContext(c.Request.Context()).
		Preload("Items").Preload("Restaurant").Preload("Customer").
		Where("rider_id = ?", middleware.GetUserID(c)).
		Order("updated_at desc").
		Find(&orders).Error
	if err != nil {
		respondError(c, store.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(orders), "orders": orders})
}

func (h *Handler) riderTransition(c *gin.Context, to models.OrderStatus, message string) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}
	order, err := h.Orders.Transition(c.Request.Context(), orderID, to, caller(c), services.TransitionMeta{})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  message,
		"order_id": order.ID,
		"status":   order.Status,
	})
}

// PickupOrder assigns the order to the rider: ready → picked_up. Two riders
// racing for one order are settled by the conditional status write.
func (h *Handler) PickupOrder(c *gin.Context) {
	h.riderTransition(c, models.StatusPickedUp, "Order picked up successfully")
}

// DeliverOrder transitions picked_up → delivered
func (h *Handler) DeliverOrder(c *gin.Context) {
	h.riderTransition(c, models.StatusDelivered, "Order delivered successfully! 🎉")
}

// GetMyRatings lists the visible ratings riders have received
func (h *Handler) GetMyRatings(c *gin.Context) {
	ratings, err := h.Ratings.Public(c.Request.Context(), models.TargetRider, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(ratings), "ratings": ratings})
}
