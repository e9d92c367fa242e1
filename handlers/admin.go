package handlers

import (
	"net/http"
	"time"

	"food-marketplace-api/middleware"
	"food-marketplace-api/models"
	"food-marketplace-api/services"
	"food-marketplace-api/store"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/jinzhu/now"
	"github.com/shopspring/decimal"
)

// AdminGetAllOrders returns all orders with full detail (admin only)
func (h *Handler) AdminGetAllOrders(c *gin.Context) {
	var orders []models.Order
	query := h.db.WithContext(c.Request.Context()).
		Preload("Items").Preload("Customer").Preload("Restaurant").Preload("Rider").Preload("StatusHistory")

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if customerID := queryID(c, "customer_id"); customerID != 0 {
		query = query.Where("customer_id = ?", customerID)
	}
	if restaurantID := queryID(c, "restaurant_id"); restaurantID != 0 {
		query = query.Where("restaurant_id = ?", restaurantID)
	}
	if c.Query("period") == "today" {
		query = query.Where("created_at >= ?", now.BeginningOfDay())
	}

	if err := query.Order("created_at desc").Find(&orders).Error; err != nil {
		respondError(c, store.Wrap(err))
		return
	}

	// Admin dashboard: aggregate by status
	summary := map[models.OrderStatus]int{}
	revenue := decimal.Zero
	var oldestPending time.Time
	for _, o := range orders {
		summary[o.Status]++
		if o.Status == models.StatusDelivered {
			revenue = revenue.Add(o.Total)
		}
		if o.Status == models.StatusPending && (oldestPending.IsZero() || o.CreatedAt.Before(oldestPending)) {
			oldestPending = o.CreatedAt
		}
	}

	resp := gin.H{
		"order_summary": summary,
		"total_revenue": revenue.StringFixed(2),
		"count":         len(orders),
		"orders":        orders,
	}
	if !oldestPending.IsZero() {
		resp["oldest_pending"] = humanize.Time(oldestPending)
	}
	c.JSON(http.StatusOK, resp)
}

// AdminGetAllUsers returns all users (admin only)
func (h *Handler) AdminGetAllUsers(c *gin.Context) {
	var users []models.User
	query := h.db.WithContext(c.Request.Context())
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}
	if err := query.Order("id").Find(&users).Error; err != nil {
		respondError(c, store.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(users), "users": users})
}

// AdminGetAllRestaurants returns all restaurants (admin only)
func (h *Handler) AdminGetAllRestaurants(c *gin.Context) {
	var restaurants []models.Restaurant
	err := h.db.WithContext(c.Request.Context()).
		Preload("Owner").Preload("MenuItems").Order("id").Find(&restaurants).Error
	if err != nil {
		respondError(c, store.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(restaurants), "restaurants": restaurants})
}

type AdminStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required,orderstatus"`
	Reason string             `json:"reason" binding:"required"`
}

// AdminForceOrderStatus lets an admin move an order along any legal edge on
// behalf of another party. The state machine still applies.
func (h *Handler) AdminForceOrderStatus(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req AdminStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	before, err := h.Orders.Get(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	order, err := h.Orders.Decide(c.Request.Context(), orderID, req.Status, caller(c), services.TransitionMeta{
		Reason: req.Reason,
		Note:   "[ADMIN] " + req.Reason,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":         "Order status updated by admin",
		"order_id":        order.ID,
		"previous_status": before.Status,
		"new_status":      order.Status,
	})
}

// AdminGetRatings lists every rating, hidden ones included.
func (h *Handler) AdminGetRatings(c *gin.Context) {
	ratings, err := h.Ratings.All(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(ratings), "ratings": ratings})
}

type ModerateRatingRequest struct {
	Hidden *bool `json:"hidden" binding:"required"`
}

// AdminModerateRating hides or restores a rating and refreshes the aggregate.
func (h *Handler) AdminModerateRating(c *gin.Context) {
	ratingID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req ModerateRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rating, err := h.Ratings.SetHidden(c.Request.Context(), ratingID, *req.Hidden)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rating": rating})
}

// AdminGetApplications lists partner applications, optionally by status.
func (h *Handler) AdminGetApplications(c *gin.Context) {
	apps, err := h.Applications.List(c.Request.Context(), models.ApplicationStatus(c.Query("status")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(apps), "applications": apps})
}

type ReviewApplicationRequest struct {
	Approve *bool  `json:"approve" binding:"required"`
	Note    string `json:"note"`
}

// AdminReviewApplication approves or rejects a partner application.
func (h *Handler) AdminReviewApplication(c *gin.Context) {
	appID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req ReviewApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	app, err := h.Applications.Review(c.Request.Context(), appID, middleware.GetUserID(c), *req.Approve, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"application": app})
}
