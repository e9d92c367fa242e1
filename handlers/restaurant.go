package handlers

import (
	"errors"
	"io"
	"net/http"

	"food-marketplace-api/middleware"
	"food-marketplace-api/models"
	"food-marketplace-api/storage"
	"food-marketplace-api/store"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ── Restaurant Management ────────────────────────────────────────────────────

type CreateRestaurantRequest struct {
	Name        string `json:"name" binding:"required"`
	Cuisine     string `json:"cuisine"`
	Address     string `json:"address" binding:"required"`
	Description string `json:"description"`
}

type UpdateRestaurantRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1"`
	Cuisine     *string `json:"cuisine"`
	Address     *string `json:"address" binding:"omitempty,min=1"`
	Description *string `json:"description"`
	IsOpen      *bool   `json:"is_open"`
}

// ownRestaurant loads the caller's restaurant, answering 404 when there is none.
func (h *Handler) ownRestaurant(c *gin.Context) (*models.Restaurant, bool) {
	var restaurant models.Restaurant
	err := h.db.WithContext(c.Request.Context()).Where("owner_id = ?", middleware.GetUserID(c)).First(&restaurant).Error
	if err != nil {
		if errors.Is(store.Wrap(err), store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No restaurant found for your account"})
		} else {
			respondError(c, store.Wrap(err))
		}
		return nil, false
	}
	return &restaurant, true
}

// CreateRestaurant lets a restaurant-role user create their restaurant
func (h *Handler) CreateRestaurant(c *gin.Context) {
	var req CreateRestaurantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	restaurant := models.Restaurant{
		OwnerID:     middleware.GetUserID(c),
		Name:        req.Name,
		Cuisine:     req.Cuisine,
		Address:     req.Address,
		Description: req.Description,
		IsOpen:      true,
	}
	if err := h.Store.Insert(c.Request.Context(), &restaurant); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Restaurant created", "restaurant": restaurant})
}

// GetMyRestaurant fetches the restaurant owned by the logged-in user
func (h *Handler) GetMyRestaurant(c *gin.Context) {
	restaurant, ok := h.ownRestaurant(c)
	if !ok {
		return
	}
	if err := h.db.WithContext(c.Request.Context()).Model(restaurant).Association("MenuItems").Find(&restaurant.MenuItems); err != nil {
		respondError(c, store.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"restaurant": restaurant})
}

// UpdateRestaurant updates restaurant details
func (h *Handler) UpdateRestaurant(c *gin.Context) {
	restaurant, ok := h.ownRestaurant(c)
	if !ok {
		return
	}
	var req UpdateRestaurantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	update := map[string]interface{}{}
	if req.Name != nil {
		update["name"] = *req.Name
	}
	if req.Cuisine != nil {
		update["cuisine"] = *req.Cuisine
	}
	if req.Address != nil {
		update["address"] = *req.Address
	}
	if req.Description != nil {
		update["description"] = *req.Description
	}
	if req.IsOpen != nil {
		update["is_open"] = *req.IsOpen
	}
	if len(update) > 0 {
		if err := h.db.WithContext(c.Request.Context()).Model(restaurant).Updates(update).Error; err != nil {
			respondError(c, store.Wrap(err))
			return
		}
		if err := h.Store.Get(c.Request.Context(), restaurant, restaurant.ID); err != nil {
			respondError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Restaurant updated", "restaurant": restaurant})
}

// ── Menu Management ─────────────────────────────────────────────────────────

type MenuItemRequest struct {
	Name        string              `json:"name" binding:"required"`
	Description string              `json:"description"`
	Price       decimal.Decimal     `json:"price"`
	Category    string              `json:"category"`
	IsVeg       bool                `json:"is_veg"`
	Options     []models.MenuOption `json:"options" binding:"omitempty,dive"`
}

type UpdateMenuItemRequest struct {
	Name        *string              `json:"name" binding:"omitempty,min=1"`
	Description *string              `json:"description"`
	Price       *decimal.Decimal     `json:"price"`
	Category    *string              `json:"category"`
	IsVeg       *bool                `json:"is_veg"`
	IsAvailable *bool                `json:"is_available"`
	Options     *[]models.MenuOption `json:"options"`
}

// AddMenuItem adds a new item to the restaurant's menu
func (h *Handler) AddMenuItem(c *gin.Context) {
	restaurant, ok := h.ownRestaurant(c)
	if !ok {
		return
	}
	var req MenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Price.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price must be greater than 0"})
		return
	}

	item := models.MenuItem{
		RestaurantID: restaurant.ID,
		Name:         req.Name,
		Description:  req.Description,
		Price:        req.Price.Round(2),
		Category:     req.Category,
		IsVeg:        req.IsVeg,
		IsAvailable:  true,
		Options:      req.Options,
	}
	if err := h.Store.Insert(c.Request.Context(), &item); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Menu item added", "item": item})
}

// ownMenuItem loads a menu item of the caller's restaurant.
func (h *Handler) ownMenuItem(c *gin.Context) (*models.MenuItem, bool) {
	itemID, ok := paramID(c, "itemId")
	if !ok {
		return nil, false
	}
	var item models.MenuItem
	if err := h.Store.Get(c.Request.Context(), &item, itemID); err != nil {
		respondError(c, err)
		return nil, false
	}
	var restaurant models.Restaurant
	if err := h.Store.Get(c.Request.Context(), &restaurant, item.RestaurantID); err != nil || restaurant.OwnerID != middleware.GetUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You don't own this menu item"})
		return nil, false
	}
	return &item, true
}

// UpdateMenuItem updates a menu item (only by the owner)
func (h *Handler) UpdateMenuItem(c *gin.Context) {
	item, ok := h.ownMenuItem(c)
	if !ok {
		return
	}
	var req UpdateMenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != nil {
		item.Name = *req.Name
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.Price != nil {
		if !req.Price.IsPositive() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "price must be greater than 0"})
			return
		}
		item.Price = req.Price.Round(2)
	}
	if req.Category != nil {
		item.Category = *req.Category
	}
	if req.IsVeg != nil {
		item.IsVeg = *req.IsVeg
	}
	if req.IsAvailable != nil {
		item.IsAvailable = *req.IsAvailable
	}
	if req.Options != nil {
		item.Options = *req.Options
	}
	if err := h.db.WithContext(c.Request.Context()).Save(item).Error; err != nil {
		respondError(c, store.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Menu item updated", "item": item})
}

// DeleteMenuItem removes a menu item
func (h *Handler) DeleteMenuItem(c *gin.Context) {
	item, ok := h.ownMenuItem(c)
	if !ok {
		return
	}
	if err := h.db.WithContext(c.Request.Context()).Delete(item).Error; err != nil {
		respondError(c, store.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Menu item deleted"})
}

// ── Images ──────────────────────────────────────────────────────────────────

// readImage pulls the "image" form file and validates it.
func (h *Handler) readImage(c *gin.Context) (*storage.Image, bool) {
	fh, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'image' is required"})
		return nil, false
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	defer f.Close()

	// read one byte past the limit so oversize files are detected, not truncated
	body, err := io.ReadAll(io.LimitReader(f, h.MaxImageBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	img, err := storage.DetectImage(body, h.MaxImageBytes)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return img, true
}

// UploadRestaurantImage stores the restaurant's cover image
func (h *Handler) UploadRestaurantImage(c *gin.Context) {
	restaurant, ok := h.ownRestaurant(c)
	if !ok {
		return
	}
	img, ok := h.readImage(c)
	if !ok {
		return
	}
	url, err := h.Images.Put(c.Request.Context(), storage.ObjectKey("restaurants", restaurant.ID, img.Extension), img.ContentType, img.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.db.WithContext(c.Request.Context()).Model(restaurant).Update("image_url", url).Error; err != nil {
		respondError(c, store.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Image uploaded", "image_url": url})
}

// UploadMenuItemImage stores a menu item's photo
func (h *Handler) UploadMenuItemImage(c *gin.Context) {
	item, ok := h.ownMenuItem(c)
	if !ok {
		return
	}
	img, ok := h.readImage(c)
	if !ok {
		return
	}
	url, err := h.Images.Put(c.Request.Context(), storage.ObjectKey("menu-items", item.ID, img.Extension), img.ContentType, img.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.db.WithContext(c.Request.Context()).Model(item).Update("image_url", url).Error; err != nil {
		respondError(c, store.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Image uploaded", "image_url": url})
}
