package services

import (
	"context"
	"errors"
	"math"
	"strings"

	"food-marketplace-api/models"
	"food-marketplace-api/store"
)

type RatingInput struct {
	OrderID   uint                `json:"order_id" binding:"required"`
	Target    models.RatingTarget `json:"target" binding:"required,ratingtarget"`
	Score     int                 `json:"score" binding:"required,min=1,max=5"`
	Comment   string              `json:"comment" binding:"max=1000"`
	SubScores *models.SubScores   `json:"sub_scores"`
	Anonymous bool                `json:"anonymous"`
}

type RatingService struct {
	store *store.Store
}

func NewRatingService(st *store.Store) *RatingService {
	return &RatingService{store: st}
}

// Submit records a customer's rating of a delivered order's restaurant or rider.
func (s *RatingService) Submit(ctx context.Context, customerID uint, in RatingInput) (*models.Rating, error) {
	if err := validateRating(in); err != nil {
		return nil, err
	}

	var order models.Order
	if err := s.store.Get(ctx, &order, in.OrderID); err != nil {
		return nil, err
	}
	if order.CustomerID != customerID {
		return nil, ErrForbidden
	}
	if order.Status != models.StatusDelivered {
		return nil, ErrNotEligible
	}
	targetID := order.RestaurantID
	if in.Target == models.TargetRider {
		if order.RiderID == nil {
			return nil, ErrNotEligible
		}
		targetID = *order.RiderID
	}

	rating := &models.Rating{
		OrderID:    order.ID,
		CustomerID: customerID,
		Target:     in.Target,
		TargetID:   targetID,
		Score:      in.Score,
		Comment:    strings.TrimSpace(in.Comment),
		SubScores:  in.SubScores,
		Anonymous:  in.Anonymous,
	}
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		var count int64
		if err := tx.DB().WithContext(ctx).Model(&models.Rating{}).
			Where("order_id = ? AND customer_id = ? AND target = ?", order.ID, customerID, in.Target).
			Count(&count).Error; err != nil {
			return store.Wrap(err)
		}
		if count > 0 {
			return ErrAlreadyRated
		}
		if err := tx.Insert(ctx, rating); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return ErrAlreadyRated
			}
			return err
		}
		return refreshAggregate(ctx, tx, rating.Target, rating.TargetID)
	})
	if err != nil {
		return nil, err
	}
	return rating, nil
}

func validateRating(in RatingInput) error {
	if !in.Target.Valid() {
		return newValidationError("target must be restaurant or rider")
	}
	if in.Score < 1 || in.Score > 5 {
		return newValidationError("score must be between 1 and 5")
	}
	sub := in.SubScores
	if sub == nil {
		return nil
	}
	var own, other []*int
	if in.Target == models.TargetRestaurant {
		own, other = []*int{sub.Food, sub.Packaging, sub.Value}, []*int{sub.Punctuality, sub.Courtesy}
	} else {
		own, other = []*int{sub.Punctuality, sub.Courtesy}, []*int{sub.Food, sub.Packaging, sub.Value}
	}
	for _, v := range other {
		if v != nil {
			return newValidationError("sub_scores contain categories that do not apply to a " + string(in.Target))
		}
	}
	for _, v := range own {
		if v != nil && (*v < 1 || *v > 5) {
			return newValidationError("sub-scores must be between 1 and 5")
		}
	}
	return nil
}

// refreshAggregate recomputes the target's average over visible ratings.
func refreshAggregate(ctx context.Context, tx *store.Store, target models.RatingTarget, targetID uint) error {
	var agg struct {
		Avg   float64
		Count int64
	}
	err := tx.DB().WithContext(ctx).Model(&models.Rating{}).
		Select("COALESCE(AVG(score), 0) AS avg, COUNT(*) AS count").
		Where("target = ? AND target_id = ? AND hidden = ?", target, targetID, false).
		Scan(&agg).Error
	if err != nil {
		return store.Wrap(err)
	}
	values := map[string]interface{}{
		"rating":       math.Round(agg.Avg*100) / 100,
		"rating_count": agg.Count,
	}
	q := tx.DB().WithContext(ctx)
	if target == models.TargetRestaurant {
		q = q.Model(&models.Restaurant{})
	} else {
		q = q.Model(&models.User{})
	}
	return store.Wrap(q.Where("id = ?", targetID).Updates(values).Error)
}

// SetHidden moderates a rating and refreshes its target's aggregate.
func (s *RatingService) SetHidden(ctx context.Context, ratingID uint, hidden bool) (*models.Rating, error) {
	var rating models.Rating
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.Get(ctx, &rating, ratingID); err != nil {
			return err
		}
		if err := tx.DB().WithContext(ctx).Model(&rating).Update("hidden", hidden).Error; err != nil {
			return store.Wrap(err)
		}
		rating.Hidden = hidden
		return refreshAggregate(ctx, tx, rating.Target, rating.TargetID)
	})
	if err != nil {
		return nil, err
	}
	return &rating, nil
}

// Public lists the visible ratings of a target with anonymous authors masked.
func (s *RatingService) Public(ctx context.Context, target models.RatingTarget, targetID uint) ([]models.Rating, error) {
	var ratings []models.Rating
	err := s.store.DB().WithContext(ctx).
		Where("target = ? AND target_id = ? AND hidden = ?", target, targetID, false).
		Order("created_at desc").
		Find(&ratings).Error
	if err != nil {
		return nil, store.Wrap(err)
	}
	for i := range ratings {
		if ratings[i].Anonymous {
			ratings[i].CustomerID = 0
		}
	}
	return ratings, nil
}

// All lists every rating, hidden ones included, for moderation.
func (s *RatingService) All(ctx context.Context) ([]models.Rating, error) {
	var ratings []models.Rating
	err := s.store.DB().WithContext(ctx).Order("created_at desc").Find(&ratings).Error
	return ratings, store.Wrap(err)
}
