package routes

import (
	"food-marketplace-api/handlers"
	"food-marketplace-api/middleware"
	"food-marketplace-api/models"
	"food-marketplace-api/storage"

	"github.com/gin-gonic/gin"
)

func Setup(r *gin.Engine, h *handlers.Handler) {
	authRequired := h.Auth.Required()

	// ── Public routes ──────────────────────────────────────────────
	public := r.Group("/api")
	{
		// Auth
		public.POST("/auth/register", h.Register)
		public.POST("/auth/login", h.Login)

		// Restaurants & menus (no auth needed)
		public.GET("/restaurants", h.ListRestaurants)
		public.GET("/restaurants/:id", h.GetRestaurant)
		public.GET("/restaurants/:id/menu", h.GetMenu)
		public.GET("/restaurants/:id/ratings", h.GetRestaurantRatings)
		public.GET("/riders/:id/ratings", h.GetRiderRatings)
		public.GET("/rewards/tiers", h.GetRewardTiers)

		// State machine info (great for docs/Postman)
		public.GET("/state-machine", h.GetStateMachineInfo)
	}

	// ── Authenticated routes ───────────────────────────────────────
	auth := r.Group("/api")
	auth.Use(authRequired)
	{
		auth.GET("/profile", h.GetProfile)

		// Order conversation, any participant
		auth.GET("/orders/:id/messages", h.GetMessages)
		auth.POST("/orders/:id/messages", h.SendMessage)

		// Partner onboarding
		auth.POST("/applications", h.SubmitApplication)
		auth.GET("/applications", h.GetMyApplications)
	}

	// Live updates; browsers pass the token as ?token=
	r.GET("/ws/orders", authRequired, h.OrdersSocket)

	// ── Customer routes ────────────────────────────────────────────
	customer := r.Group("/api/customer")
	customer.Use(authRequired, middleware.RoleRequired(models.RoleCustomer))
	{
		customer.POST("/orders", h.PlaceOrder)
		customer.GET("/orders", h.GetMyOrders)
		customer.GET("/orders/:id", h.GetOrderDetail)
		customer.PUT("/orders/:id/cancel", h.CancelOrder)

		customer.POST("/ratings", h.SubmitRating)

		customer.GET("/rewards", h.GetRewardBalance)
		customer.GET("/rewards/history", h.GetRewardHistory)
		customer.GET("/rewards/quote", h.QuoteRedemption)
	}

	// ── Restaurant owner routes ────────────────────────────────────
	restaurant := r.Group("/api/restaurant")
	restaurant.Use(authRequired, middleware.RoleRequired(models.RoleRestaurant))
	{
		// Restaurant management
		restaurant.POST("/", h.CreateRestaurant)
		restaurant.GET("/", h.GetMyRestaurant)
		restaurant.PUT("/", h.UpdateRestaurant)
		restaurant.POST("/image", h.UploadRestaurantImage)

		// Menu management
		restaurant.POST("/menu", h.AddMenuItem)
		restaurant.PUT("/menu/:itemId", h.UpdateMenuItem)
		restaurant.DELETE("/menu/:itemId", h.DeleteMenuItem)
		restaurant.POST("/menu/:itemId/image", h.UploadMenuItemImage)

		// Order management
		restaurant.GET("/orders", h.GetRestaurantOrders)
		restaurant.PUT("/orders/:id/status", h.UpdateOrderStatus)
		restaurant.GET("/orders/:id/countdown", h.GetOrderCountdown)
	}

	// Restaurant dashboard action endpoint
	r.PATCH("/api/orders/restaurant/:orderId", authRequired, middleware.RoleRequired(models.RoleRestaurant), h.PatchRestaurantOrder)

	// ── Rider routes ───────────────────────────────────────────────
	rider := r.Group("/api/rider")
	rider.Use(authRequired, middleware.RoleRequired(models.RoleRider))
	{
		rider.GET("/orders/available", h.GetAvailableOrders)
		rider.GET("/orders/my-deliveries", h.GetMyDeliveries)
		rider.PUT("/orders/:id/pickup", h.PickupOrder)
		rider.PUT("/orders/:id/deliver", h.DeliverOrder)
		rider.GET("/ratings", h.GetMyRatings)
	}

	// ── Admin routes ───────────────────────────────────────────────
	admin := r.Group("/api/admin")
	admin.Use(authRequired, middleware.RoleRequired(models.RoleAdmin))
	{
		admin.GET("/orders", h.AdminGetAllOrders)
		admin.PUT("/orders/:id/status", h.AdminForceOrderStatus)
		admin.GET("/users", h.AdminGetAllUsers)
		admin.GET("/restaurants", h.AdminGetAllRestaurants)
		admin.GET("/ratings", h.AdminGetRatings)
		admin.PUT("/ratings/:id/visibility", h.AdminModerateRating)
		admin.GET("/applications", h.AdminGetApplications)
		admin.PUT("/applications/:id/review", h.AdminReviewApplication)
	}

	// Uploaded images, when they live on local disk
	if local, ok := h.Images.(*storage.LocalStore); ok {
		r.Static(local.BaseURL, local.Dir)
	}
}
