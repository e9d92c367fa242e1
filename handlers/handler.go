package handlers

import (
	"log"
	"net/http"
	"strconv"
	"sync"

	"food-marketplace-api/middleware"
	"food-marketplace-api/services"
	"food-marketplace-api/storage"
	"food-marketplace-api/store"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Store         *store.Store
	Auth          *middleware.Auth
	Orders        *services.OrderService
	Rewards       *services.RewardService
	Ratings       *services.RatingService
	Messages      *services.MessageService
	Applications  *services.ApplicationService
	Images        storage.ImageStore
	MaxImageBytes int64
}

// Handler serves the REST and websocket API.
type Handler struct {
	Deps
	db *gorm.DB
}

var registerOnce sync.Once

func New(d Deps) *Handler {
	registerOnce.Do(func() {
		if err := RegisterValidators(); err != nil {
			log.Fatalf("❌ Failed to register validators: %v", err)
		}
	})
	return &Handler{Deps: d, db: d.Store.DB()}
}

// paramID reads a numeric path parameter, answering 400 when it is malformed.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

func queryID(c *gin.Context, name string) uint {
	id, _ := strconv.ParseUint(c.Query(name), 10, 64)
	return uint(id)
}

func caller(c *gin.Context) services.Actor {
	return services.ActorFor(middleware.GetRole(c), middleware.GetUserID(c))
}
