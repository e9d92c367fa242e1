package models

import "time"

// RatingTarget is what a rating is about.
type RatingTarget string

const (
	TargetRestaurant RatingTarget = "restaurant"
	TargetRider      RatingTarget = "rider"
)

func (t RatingTarget) Valid() bool {
	return t == TargetRestaurant || t == TargetRider
}

// SubScores holds optional per-category scores. Food, Packaging and Value
// apply to restaurants; Punctuality and Courtesy apply to riders.
type SubScores struct {
	Food        *int `json:"food,omitempty"`
	Packaging   *int `json:"packaging,omitempty"`
	Value       *int `json:"value,omitempty"`
	Punctuality *int `json:"punctuality,omitempty"`
	Courtesy    *int `json:"courtesy,omitempty"`
}

type Rating struct {
	ID         uint         `json:"id" gorm:"primaryKey"`
	OrderID    uint         `json:"order_id" gorm:"not null;uniqueIndex:idx_rating_once"`
	CustomerID uint         `json:"customer_id,omitempty" gorm:"not null;uniqueIndex:idx_rating_once"`
	Target     RatingTarget `json:"target" gorm:"not null;uniqueIndex:idx_rating_once"`
	TargetID   uint         `json:"target_id" gorm:"not null;index"`
	Score      int          `json:"score" gorm:"not null"`
	Comment    string       `json:"comment,omitempty"`
	SubScores  *SubScores   `json:"sub_scores,omitempty" gorm:"serializer:json"`
	Anonymous  bool         `json:"anonymous"`
	Hidden     bool         `json:"hidden"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}
