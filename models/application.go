package models

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

type ApplicationKind string

const (
	ApplicationRestaurant ApplicationKind = "restaurant"
	ApplicationRider      ApplicationKind = "rider"
)

type ApplicationStatus string

const (
	ApplicationSubmitted ApplicationStatus = "submitted"
	ApplicationApproved  ApplicationStatus = "approved"
	ApplicationRejected  ApplicationStatus = "rejected"
)

type RestaurantApplication struct {
	BusinessName  string `json:"business_name"`
	Address       string `json:"address"`
	Cuisine       string `json:"cuisine,omitempty"`
	LicenseNumber string `json:"license_number"`
}

type RiderApplication struct {
	VehicleType    string `json:"vehicle_type"` // bicycle, motorbike, car
	LicensePlate   string `json:"license_plate,omitempty"`
	DrivingLicense string `json:"driving_license,omitempty"`
}

// PartnerApplication carries exactly one payload, selected by Kind.
type PartnerApplication struct {
	ID          uint                   `json:"id" gorm:"primaryKey"`
	ApplicantID uint                   `json:"applicant_id" gorm:"not null;index"`
	Kind        ApplicationKind        `json:"kind" gorm:"not null"`
	Status      ApplicationStatus      `json:"status" gorm:"not null;default:'submitted'"`
	Restaurant  *RestaurantApplication `json:"restaurant,omitempty" gorm:"serializer:json"`
	Rider       *RiderApplication      `json:"rider,omitempty" gorm:"serializer:json"`
	ReviewNote  string                 `json:"review_note,omitempty"`
	ReviewedBy  *uint                  `json:"reviewed_by,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

var ErrInvalidApplication = errors.New("invalid application")

func invalidApplication(msg string) error {
	return errors.Join(ErrInvalidApplication, errors.New(msg))
}

// Validate checks that the payload matches the kind and has its required fields.
func (a *PartnerApplication) Validate() error {
	switch a.Kind {
	case ApplicationRestaurant:
		if a.Rider != nil {
			return invalidApplication("rider details are not allowed on a restaurant application")
		}
		r := a.Restaurant
		if r == nil {
			return invalidApplication("restaurant details are required")
		}
		if strings.TrimSpace(r.BusinessName) == "" || strings.TrimSpace(r.Address) == "" {
			return invalidApplication("business_name and address are required")
		}
		if strings.TrimSpace(r.LicenseNumber) == "" {
			return invalidApplication("license_number is required")
		}
	case ApplicationRider:
		if a.Restaurant != nil {
			return invalidApplication("restaurant details are not allowed on a rider application")
		}
		r := a.Rider
		if r == nil {
			return invalidApplication("rider details are required")
		}
		switch r.VehicleType {
		case "bicycle":
		case "motorbike", "car":
			if strings.TrimSpace(r.LicensePlate) == "" || strings.TrimSpace(r.DrivingLicense) == "" {
				return invalidApplication("license_plate and driving_license are required for motor vehicles")
			}
		default:
			return invalidApplication("vehicle_type must be bicycle, motorbike or car")
		}
	default:
		return invalidApplication("kind must be restaurant or rider")
	}
	return nil
}

// BeforeSave rejects malformed payloads at the persistence boundary.
func (a *PartnerApplication) BeforeSave(tx *gorm.DB) error {
	return a.Validate()
}
