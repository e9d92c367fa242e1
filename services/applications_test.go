package services

import (
	"context"
	"errors"
	"testing"

	"food-marketplace-api/models"
)

func TestApplicationPayloadMustMatchKind(t *testing.T) {
	f := newFixture(t)
	svc := NewApplicationService(f.st)

	_, err := svc.Submit(context.Background(), f.customer.ID, ApplicationInput{
		Kind:  models.ApplicationRestaurant,
		Rider: &models.RiderApplication{VehicleType: "bicycle"},
	})
	if !errors.Is(err, models.ErrInvalidApplication) {
		t.Fatalf("err = %v, want ErrInvalidApplication", err)
	}

	_, err = svc.Submit(context.Background(), f.customer.ID, ApplicationInput{
		Kind:  models.ApplicationRider,
		Rider: &models.RiderApplication{VehicleType: "motorbike"},
	})
	if !errors.Is(err, models.ErrInvalidApplication) {
		t.Fatalf("motorbike without licence err = %v", err)
	}
}

func TestApproveRestaurantApplication(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewApplicationService(f.st)
	in := ApplicationInput{
		Kind: models.ApplicationRestaurant,
		Restaurant: &models.RestaurantApplication{
			BusinessName:  "Noodle Nook",
			Address:       "9 Side St",
			LicenseNumber: "LIC-1",
		},
	}

	app, err := svc.Submit(ctx, f.stranger.ID, in)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := svc.Submit(ctx, f.stranger.ID, in); !IsValidation(err) {
		t.Fatalf("second open application err = %v", err)
	}

	reviewed, err := svc.Review(ctx, app.ID, f.owner.ID, true, "welcome")
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if reviewed.Status != models.ApplicationApproved || reviewed.ReviewedBy == nil {
		t.Fatalf("application = %+v", reviewed)
	}

	var u models.User
	f.db.First(&u, f.stranger.ID)
	if u.Role != models.RoleRestaurant {
		t.Fatalf("role = %s, want restaurant", u.Role)
	}
	var r models.Restaurant
	if err := f.db.Where("owner_id = ?", f.stranger.ID).First(&r).Error; err != nil || r.Name != "Noodle Nook" {
		t.Fatalf("restaurant = %+v, %v", r, err)
	}

	if _, err := svc.Review(ctx, app.ID, f.owner.ID, false, ""); !IsValidation(err) {
		t.Fatalf("re-review err = %v", err)
	}
}
