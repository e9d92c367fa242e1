package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type RewardCategory string

const (
	RewardEarned   RewardCategory = "earned"
	RewardRedeemed RewardCategory = "redeemed"
	RewardRefunded RewardCategory = "refunded"
)

// RewardAccount caches the balance derived from the reward ledger.
type RewardAccount struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	CustomerID     uint      `json:"customer_id" gorm:"uniqueIndex;not null"`
	CurrentBalance int64     `json:"current_balance" gorm:"not null;default:0"`
	LifetimePoints int64     `json:"lifetime_points" gorm:"not null;default:0"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// RewardTransaction is an append-only ledger entry.
type RewardTransaction struct {
	ID              uint           `json:"id" gorm:"primaryKey"`
	AccountID       uint           `json:"account_id" gorm:"not null;index"`
	OrderID         *uint          `json:"order_id,omitempty" gorm:"index"`
	Category        RewardCategory `json:"category" gorm:"not null"`
	Amount          int64          `json:"amount" gorm:"not null"`
	PreviousBalance int64          `json:"previous_balance"`
	NewBalance      int64          `json:"new_balance"`
	Description     string         `json:"description"`
	CreatedAt       time.Time      `json:"created_at"`
}

type RewardTier struct {
	ID                 uint            `json:"id" gorm:"primaryKey"`
	Name               string          `json:"name" gorm:"not null"`
	PointsRequired     int64           `json:"points_required" gorm:"uniqueIndex;not null"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage" gorm:"type:decimal(5,2);not null"`
	MaxDiscountAmount  decimal.Decimal `json:"max_discount_amount" gorm:"type:decimal(10,2);not null"`
}
