package services

import (
	"context"
	"fmt"

	"food-marketplace-api/models"
	"food-marketplace-api/store"
)

type ApplicationInput struct {
	Kind       models.ApplicationKind        `json:"kind" binding:"required,oneof=restaurant rider"`
	Restaurant *models.RestaurantApplication `json:"restaurant"`
	Rider      *models.RiderApplication      `json:"rider"`
}

// ApplicationService onboards restaurants and riders.
type ApplicationService struct {
	store *store.Store
}

func NewApplicationService(st *store.Store) *ApplicationService {
	return &ApplicationService{store: st}
}

// Submit files an application. An applicant may have one open application per kind.
func (s *ApplicationService) Submit(ctx context.Context, applicantID uint, in ApplicationInput) (*models.PartnerApplication, error) {
	app := &models.PartnerApplication{
		ApplicantID: applicantID,
		Kind:        in.Kind,
		Status:      models.ApplicationSubmitted,
		Restaurant:  in.Restaurant,
		Rider:       in.Rider,
	}
	if err := app.Validate(); err != nil {
		return nil, err
	}
	var open int64
	if err := s.store.DB().WithContext(ctx).Model(&models.PartnerApplication{}).
		Where("applicant_id = ? AND kind = ? AND status = ?", applicantID, in.Kind, models.ApplicationSubmitted).
		Count(&open).Error; err != nil {
		return nil, store.Wrap(err)
	}
	if open > 0 {
		return nil, newValidationError(fmt.Sprintf("you already have a %s application under review", in.Kind))
	}
	if err := s.store.Insert(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

func (s *ApplicationService) Mine(ctx context.Context, applicantID uint) ([]models.PartnerApplication, error) {
	var apps []models.PartnerApplication
	err := s.store.DB().WithContext(ctx).Where("applicant_id = ?", applicantID).Order("created_at desc").Find(&apps).Error
	return apps, store.Wrap(err)
}

// List returns applications, optionally filtered by status.
func (s *ApplicationService) List(ctx context.Context, status models.ApplicationStatus) ([]models.PartnerApplication, error) {
	q := s.store.DB().WithContext(ctx).Order("created_at asc")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var apps []models.PartnerApplication
	return apps, store.Wrap(q.Find(&apps).Error)
}

// Review approves or rejects a submitted application. Approval promotes the
// applicant and, for restaurants, opens the restaurant.
func (s *ApplicationService) Review(ctx context.Context, id, reviewerID uint, approve bool, note string) (*models.PartnerApplication, error) {
	var app models.PartnerApplication
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.Get(ctx, &app, id); err != nil {
			return err
		}
		if app.Status != models.ApplicationSubmitted {
			return newValidationError("application has already been reviewed")
		}
		app.Status = models.ApplicationRejected
		if approve {
			app.Status = models.ApplicationApproved
		}
		app.ReviewNote = note
		app.ReviewedBy = &reviewerID
		if err := tx.DB().WithContext(ctx).Save(&app).Error; err != nil {
			return store.Wrap(err)
		}
		if !approve {
			return nil
		}

		role := models.RoleRider
		if app.Kind == models.ApplicationRestaurant {
			role = models.RoleRestaurant
		}
		res := tx.DB().WithContext(ctx).Model(&models.User{}).Where("id = ?", app.ApplicantID).Update("role", role)
		if res.Error != nil {
			return store.Wrap(res.Error)
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}
		if app.Kind == models.ApplicationRestaurant {
			return tx.Insert(ctx, &models.Restaurant{
				OwnerID: app.ApplicantID,
				Name:    app.Restaurant.BusinessName,
				Address: app.Restaurant.Address,
				Cuisine: app.Restaurant.Cuisine,
				IsOpen:  true,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &app, nil
}
