package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"food-marketplace-api/models"
	"food-marketplace-api/realtime"
	"food-marketplace-api/statemachine"
	"food-marketplace-api/store"

	"github.com/google/uuid"
	"github.com/jinzhu/now"
	"github.com/shopspring/decimal"
)

// CustomizationChoice picks one offered option on a menu item.
type CustomizationChoice struct {
	Group  string `json:"group" binding:"required"`
	Option string `json:"option" binding:"required"`
}

type OrderLine struct {
	MenuItemID     uint                  `json:"menu_item_id" binding:"required"`
	Quantity       int                   `json:"quantity" binding:"required,min=1"`
	Customizations []CustomizationChoice `json:"customizations" binding:"omitempty,dive"`
}

type PlaceOrderInput struct {
	RestaurantID        uint                 `json:"restaurant_id" binding:"required"`
	DeliveryAddress     string               `json:"delivery_address" binding:"required"`
	SpecialInstructions string               `json:"special_instructions"`
	PaymentMethod       models.PaymentMethod `json:"payment_method" binding:"omitempty,oneof=cash card wallet"`
	RedeemPoints        int64                `json:"redeem_points" binding:"omitempty,min=0"`
	Items               []OrderLine          `json:"items" binding:"required,min=1,dive"`
	// IdempotencyKey comes from the Idempotency-Key header; a replay returns the first order.
	IdempotencyKey string `json:"-"`
}

// Quote is the priced breakdown of an order before any discount.
type Quote struct {
	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	ServiceFee  decimal.Decimal
}

// Total applies discount, capped so the total never goes negative.
func (q Quote) Total(discount decimal.Decimal) (total, applied decimal.Decimal) {
	gross := q.Subtotal.Add(q.DeliveryFee).Add(q.ServiceFee)
	applied = decimal.Min(discount, gross)
	return gross.Sub(applied), applied
}

// PriceLines resolves each line against the menu, snapshots names and unit
// prices, and sums the subtotal.
func PriceLines(restaurantID uint, menu map[uint]models.MenuItem, lines []OrderLine) ([]models.OrderItem, decimal.Decimal, error) {
	items := make([]models.OrderItem, 0, len(lines))
	subtotal := decimal.Zero
	for _, line := range lines {
		mi, ok := menu[line.MenuItemID]
		if !ok || mi.RestaurantID != restaurantID {
			return nil, decimal.Zero, newValidationError(fmt.Sprintf("menu item %d does not belong to this restaurant", line.MenuItemID))
		}
		if !mi.IsAvailable {
			return nil, decimal.Zero, newValidationError(fmt.Sprintf("menu item '%s' is not available", mi.Name))
		}
		if line.Quantity < 1 {
			return nil, decimal.Zero, newValidationError("quantity must be at least 1")
		}
		unit := mi.Price
		var custom []models.Customization
		for _, choice := range line.Customizations {
			opt, ok := mi.FindOption(choice.Group, choice.Option)
			if !ok {
				return nil, decimal.Zero, newValidationError(fmt.Sprintf("'%s: %s' is not offered on '%s'", choice.Group, choice.Option, mi.Name))
			}
			unit = unit.Add(opt.PriceDelta)
			custom = append(custom, models.Customization{Group: opt.Group, Option: opt.Name, PriceDelta: opt.PriceDelta})
		}
		item := models.OrderItem{
			MenuItemID:     mi.ID,
			Quantity:       line.Quantity,
			UnitPrice:      unit,
			Name:           mi.Name,
			Customizations: custom,
		}
		subtotal = subtotal.Add(item.LineTotal())
		items = append(items, item)
	}
	return items, subtotal, nil
}

// Price adds the configured fees to a subtotal.
func (s *OrderService) Price(subtotal decimal.Decimal) Quote {
	service := subtotal.Mul(s.fees.ServicePercentage).Div(decimal.NewFromInt(100)).Round(2)
	return Quote{Subtotal: subtotal, DeliveryFee: s.fees.Delivery, ServiceFee: service}
}

// NewOrderNumber formats FD-YYYYMMDD-XXXXXX.
func NewOrderNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("FD-%s-%s", now.With(at).BeginningOfDay().Format("20060102"), suffix)
}

// Place creates a pending order, redeeming points in the same transaction when
// asked, and arms the order's auto-accept countdown.
func (s *OrderService) Place(ctx context.Context, customerID uint, in PlaceOrderInput) (*models.Order, error) {
	if in.IdempotencyKey != "" {
		var existing models.Order
		err := s.store.DB().WithContext(ctx).Where("idempotency_key = ?", in.IdempotencyKey).First(&existing).Error
		if err == nil {
			if existing.CustomerID != customerID {
				return nil, ErrForbidden
			}
			return s.Get(ctx, existing.ID)
		}
		if err := store.Wrap(err); !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}

	var restaurant models.Restaurant
	if err := s.store.Get(ctx, &restaurant, in.RestaurantID); err != nil {
		return nil, err
	}
	if !restaurant.IsOpen {
		return nil, newValidationError("restaurant is currently closed")
	}

	ids := make([]uint, len(in.Items))
	for i, line := range in.Items {
		ids[i] = line.MenuItemID
	}
	var menuItems []models.MenuItem
	if err := s.store.DB().WithContext(ctx).Where("id IN ?", ids).Find(&menuItems).Error; err != nil {
		return nil, store.Wrap(err)
	}
	menu := make(map[uint]models.MenuItem, len(menuItems))
	for _, mi := range menuItems {
		menu[mi.ID] = mi
	}
	items, subtotal, err := PriceLines(restaurant.ID, menu, in.Items)
	if err != nil {
		return nil, err
	}

	payment := in.PaymentMethod
	if payment == "" {
		payment = models.PaymentCash
	}
	key := in.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}
	created := s.now()
	quote := s.Price(subtotal)
	order := &models.Order{
		OrderNumber:         NewOrderNumber(created),
		IdempotencyKey:      key,
		CustomerID:          customerID,
		RestaurantID:        restaurant.ID,
		Status:              models.StatusPending,
		Subtotal:            quote.Subtotal,
		DeliveryFee:         quote.DeliveryFee,
		ServiceFee:          quote.ServiceFee,
		PaymentMethod:       payment,
		PaymentStatus:       models.PaymentPending,
		DeliveryAddress:     in.DeliveryAddress,
		SpecialInstructions: in.SpecialInstructions,
		EstimatedDeliveryAt: created.Add(30*time.Minute + time.Duration(len(items))*5*time.Minute),
		Items:               items,
		CreatedAt:           created,
	}
	order.Total, _ = quote.Total(decimal.Zero)

	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.Insert(ctx, order); err != nil {
			return err
		}
		if in.RedeemPoints > 0 {
			acc, err := accountFor(ctx, tx, customerID)
			if err != nil {
				return err
			}
			discount, _, err := redeemIn(ctx, tx, acc.ID, order.ID, in.RedeemPoints)
			if err != nil {
				return err
			}
			total, applied := quote.Total(discount)
			order.Discount, order.Total, order.RedeemedPoints = applied, total, in.RedeemPoints
			if err := tx.DB().WithContext(ctx).Model(order).Updates(map[string]interface{}{
				"discount":        applied,
				"total":           total,
				"redeemed_points": in.RedeemPoints,
			}).Error; err != nil {
				return store.Wrap(err)
			}
		}
		return tx.Insert(ctx, &models.OrderStatusHistory{
			OrderID:   order.ID,
			ToStatus:  models.StatusPending,
			ChangedBy: customerID,
			Actor:     string(statemachine.ActorCustomer),
			Note:      "Order placed by customer",
		})
	})
	if err != nil {
		return nil, err
	}

	s.store.Publish(realtime.Event{
		Topic:        realtime.TopicOrders,
		Type:         "order.placed",
		OrderID:      order.ID,
		RestaurantID: order.RestaurantID,
		CustomerID:   order.CustomerID,
		Payload:      order,
	})
	if sched := s.Scheduler(); sched != nil {
		sched.Arm(order.ID, order.CreatedAt)
	}
	return s.Get(ctx, order.ID)
}
