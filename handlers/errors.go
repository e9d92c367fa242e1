package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"food-marketplace-api/models"
	"food-marketplace-api/services"
	"food-marketplace-api/statemachine"
	"food-marketplace-api/storage"
	"food-marketplace-api/store"

	"github.com/gin-gonic/gin"
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var ite *statemachine.InvalidTransitionError
	switch {
	case errors.As(err, &ite):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict), errors.Is(err, store.ErrDuplicate), errors.Is(err, services.ErrAlreadyRated):
		return http.StatusConflict
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrReasonRequired), services.IsValidation(err), errors.Is(err, models.ErrInvalidApplication):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInsufficientBalance), errors.Is(err, services.ErrNoQualifyingTier), errors.Is(err, services.ErrNotEligible):
		return http.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, storage.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, store.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err in the API's error shape.
func respondError(c *gin.Context, err error) {
	code := statusFor(err)
	var ite *statemachine.InvalidTransitionError
	switch {
	case errors.As(err, &ite):
		c.JSON(code, gin.H{
			"error":             "Invalid state transition",
			"reason":            ite.Error(),
			"current_status":    ite.From,
			"requested":         ite.To,
			"valid_next_states": ite.Allowed,
		})
	case code == http.StatusConflict && errors.Is(err, store.ErrConflict):
		c.JSON(code, gin.H{"error": err.Error(), "retryable": true})
	case code == http.StatusServiceUnavailable:
		log.Printf("⚠️  %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(code, gin.H{"error": "Service temporarily unavailable, please retry", "retryable": true})
	case code == http.StatusInternalServerError:
		log.Printf("❌ %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(code, gin.H{"error": "Internal server error"})
	default:
		c.JSON(code, gin.H{"error": err.Error()})
	}
}
