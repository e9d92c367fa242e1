package handlers

import (
	"net/http"

	"food-marketplace-api/models"
	"food-marketplace-api/statemachine"
	"food-marketplace-api/store"

	"github.com/gin-gonic/gin"
)

// ListRestaurants returns all restaurants (public)
func (h *Handler) ListRestaurants(c *gin.Context) {
	var restaurants []models.Restaurant
	query := h.db.WithContext(c.Request.Context())

	if cuisine := c.Query("cuisine"); cuisine != "" {
		query = query.Where("cuisine LIKE ?", "%"+cuisine+"%")
	}
	if search := c.Query("search"); search != "" {
		query = query.Where("name LIKE ?", "%"+search+"%")
	}
	if c.Query("open") == "true" {
		query = query.Where("is_open = ?", true)
	}
	if c.Query("sort") == "rating" {
		query = query.Order("rating desc")
	}

	if err := query.Find(&restaurants).Error; err != nil {
		respondError(c, store.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":       len(restaurants),
		"restaurants": restaurants,
	})
}

// GetRestaurant returns a single restaurant with its menu
func (h *Handler) GetRestaurant(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var restaurant models.Restaurant
	if err := h.Store.Get(c.Request.Context(), &restaurant, id, "MenuItems"); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"restaurant": restaurant})
}

// GetMenu returns the menu for a specific restaurant (public)
func (h *Handler) GetMenu(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var restaurant models.Restaurant
	if err := h.Store.Get(c.Request.Context(), &restaurant, id); err != nil {
		respondError(c, err)
		return
	}

	var items []models.MenuItem
	query := h.db.WithContext(c.Request.Context()).Where("restaurant_id = ?", id)
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if c.Query("is_veg") == "true" {
		query = query.Where("is_veg = ?", true)
	}
	if c.Query("available") == "true" {
		query = query.Where("is_available = ?", true)
	}
	if err := query.Find(&items).Error; err != nil {
		respondError(c, store.Wrap(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"restaurant": restaurant.Name,
		"count":      len(items),
		"menu":       items,
	})
}

// GetRestaurantRatings lists the visible ratings of a restaurant
func (h *Handler) GetRestaurantRatings(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	ratings, err := h.Ratings.Public(c.Request.Context(), models.TargetRestaurant, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(ratings), "ratings": ratings})
}

// GetStateMachineInfo returns the full state machine for informational purposes
func (h *Handler) GetStateMachineInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"state_machine":   statemachine.GetAllTransitions(),
		"terminal_states": []models.OrderStatus{models.StatusDelivered, models.StatusCancelled},
		"admin":           "admins may take any listed edge",
		"description":     "Food Marketplace Order Lifecycle State Machine",
	})
}
