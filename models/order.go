package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents all possible states of a food delivery order
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusPickedUp  OrderStatus = "picked_up"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

// AllStatuses lists the lifecycle in its forward order, cancelled last.
var AllStatuses = []OrderStatus{
	StatusPending, StatusConfirmed, StatusPreparing, StatusReady,
	StatusPickedUp, StatusDelivered, StatusCancelled,
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	for _, v := range AllStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible from s.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentWallet PaymentMethod = "wallet"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

type Order struct {
	ID                  uint                 `json:"id" gorm:"primaryKey"`
	OrderNumber         string               `json:"order_number" gorm:"uniqueIndex;not null"`
	IdempotencyKey      string               `json:"-" gorm:"uniqueIndex;not null"`
	CustomerID          uint                 `json:"customer_id" gorm:"not null;index"`
	Customer            User                 `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	RestaurantID        uint                 `json:"restaurant_id" gorm:"not null;index"`
	Restaurant          Restaurant           `json:"restaurant,omitempty" gorm:"foreignKey:RestaurantID"`
	RiderID             *uint                `json:"rider_id"`
	Rider               *User                `json:"rider,omitempty" gorm:"foreignKey:RiderID"`
	Status              OrderStatus          `json:"status" gorm:"not null;default:'pending';index"`
	Subtotal            decimal.Decimal      `json:"subtotal" gorm:"type:decimal(10,2)"`
	DeliveryFee         decimal.Decimal      `json:"delivery_fee" gorm:"type:decimal(10,2)"`
	ServiceFee          decimal.Decimal      `json:"service_fee" gorm:"type:decimal(10,2)"`
	Discount            decimal.Decimal      `json:"discount" gorm:"type:decimal(10,2)"`
	Total               decimal.Decimal      `json:"total" gorm:"type:decimal(10,2)"`
	RedeemedPoints      int64                `json:"redeemed_points"`
	PaymentMethod       PaymentMethod        `json:"payment_method" gorm:"not null;default:'cash'"`
	PaymentStatus       PaymentStatus        `json:"payment_status" gorm:"not null;default:'pending'"`
	DeliveryAddress     string               `json:"delivery_address" gorm:"not null"`
	SpecialInstructions string               `json:"special_instructions"`
	CancellationReason  string               `json:"cancellation_reason,omitempty"`
	EstimatedDeliveryAt time.Time            `json:"estimated_delivery_at"`
	DeliveredAt         *time.Time           `json:"delivered_at,omitempty"`
	Items               []OrderItem          `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	StatusHistory       []OrderStatusHistory `json:"status_history,omitempty" gorm:"foreignKey:OrderID"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

// Customization is a chosen option on an order line, snapshotted at order time.
type Customization struct {
	Group      string          `json:"group"`
	Option     string          `json:"option"`
	PriceDelta decimal.Decimal `json:"price_delta"`
}

type OrderItem struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	OrderID        uint            `json:"order_id" gorm:"not null;index"`
	MenuItemID     uint            `json:"menu_item_id" gorm:"not null"`
	MenuItem       MenuItem        `json:"menu_item,omitempty" gorm:"foreignKey:MenuItemID"`
	Quantity       int             `json:"quantity" gorm:"not null"`
	UnitPrice      decimal.Decimal `json:"unit_price" gorm:"type:decimal(10,2);not null"` // snapshot price incl. customizations
	Name           string          `json:"name"`                                          // snapshot name
	Customizations []Customization `json:"customizations,omitempty" gorm:"serializer:json"`
}

// LineTotal is unit price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderStatusHistory tracks every status change
type OrderStatusHistory struct {
	ID         uint        `json:"id" gorm:"primaryKey"`
	OrderID    uint        `json:"order_id" gorm:"not null;index"`
	FromStatus OrderStatus `json:"from_status"`
	ToStatus   OrderStatus `json:"to_status" gorm:"not null"`
	ChangedBy  uint        `json:"changed_by"` // 0 for the system
	Actor      string      `json:"actor"`
	Note       string      `json:"note"`
	CreatedAt  time.Time   `json:"created_at"`
}
