package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"food-marketplace-api/models"
)

func burgerOrder(f *fixture, size string, qty int) PlaceOrderInput {
	return PlaceOrderInput{
		RestaurantID:    f.restaurant.ID,
		DeliveryAddress: "1 Main St",
		Items: []OrderLine{{
			MenuItemID:     f.burger.ID,
			Quantity:       qty,
			Customizations: []CustomizationChoice{{Group: "Size", Option: size}},
		}},
	}
}

func TestPlacePricesOrder(t *testing.T) {
	f := newFixture(t)
	order, err := f.orders.Place(context.Background(), f.customer.ID, burgerOrder(f, "Large", 2))
	if err != nil {
		t.Fatalf("Place: %v", err)
	}

	if order.Status != models.StatusPending || order.PaymentMethod != models.PaymentCash {
		t.Fatalf("order = %s / %s", order.Status, order.PaymentMethod)
	}
	if !strings.HasPrefix(order.OrderNumber, "FD-") || len(order.OrderNumber) != len("FD-20060102-ABCDEF") {
		t.Fatalf("order number = %q", order.OrderNumber)
	}
	// 2 x (10.00 + 1.50) = 23.00; service 5% = 1.15; delivery 2.99
	checks := map[string][2]string{
		"subtotal":    {order.Subtotal.String(), "23"},
		"service_fee": {order.ServiceFee.String(), "1.15"},
		"total":       {order.Total.String(), "27.14"},
	}
	for name, c := range checks {
		if !dec(c[0]).Equal(dec(c[1])) {
			t.Errorf("%s = %s, want %s", name, c[0], c[1])
		}
	}
	if len(order.Items) != 1 || !order.Items[0].UnitPrice.Equal(dec("11.50")) || order.Items[0].Customizations[0].Option != "Large" {
		t.Fatalf("items = %+v", order.Items)
	}
	if len(order.StatusHistory) != 1 || order.StatusHistory[0].ToStatus != models.StatusPending {
		t.Fatalf("history = %+v", order.StatusHistory)
	}
	want := order.CreatedAt.Add(35 * time.Minute)
	if !order.EstimatedDeliveryAt.Equal(want) {
		t.Fatalf("estimated delivery = %s, want %s", order.EstimatedDeliveryAt, want)
	}
}

func TestPlaceRedeemsPointsAtCheckout(t *testing.T) {
	f := newFixture(t)
	f.credit(t, f.customer.ID, 1000)

	in := burgerOrder(f, "Regular", 1)
	in.RedeemPoints = 500
	order, err := f.orders.Place(context.Background(), f.customer.ID, in)
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	// gross 10.00 + 0.50 + 2.99 = 13.49; the 50.00 Bronze discount is capped there
	if !order.Discount.Equal(dec("13.49")) || !order.Total.IsZero() || order.RedeemedPoints != 500 {
		t.Fatalf("discount=%s total=%s redeemed=%d", order.Discount, order.Total, order.RedeemedPoints)
	}
	if b := f.balance(t, f.customer.ID); b != 500 {
		t.Fatalf("balance = %d, want 500", b)
	}
}

func TestPlaceRollsBackWhenRedemptionFails(t *testing.T) {
	f := newFixture(t)
	in := burgerOrder(f, "Regular", 1)
	in.RedeemPoints = 500

	if _, err := f.orders.Place(context.Background(), f.customer.ID, in); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
	var count int64
	f.db.Model(&models.Order{}).Count(&count)
	if count != 0 {
		t.Fatalf("orders = %d, want none", count)
	}
}

func TestPlaceIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := burgerOrder(f, "Regular", 1)
	in.IdempotencyKey = "checkout-42"

	first, err := f.orders.Place(ctx, f.customer.ID, in)
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.orders.Place(ctx, f.customer.ID, in)
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID {
		t.Fatalf("replay created order %d, want %d", second.ID, first.ID)
	}
	if _, err := f.orders.Place(ctx, f.stranger.ID, in); !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign replay err = %v", err)
	}
}

func TestPlaceValidatesMenu(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.orders.Place(ctx, f.customer.ID, burgerOrder(f, "Gigantic", 1)); !IsValidation(err) {
		t.Fatalf("unknown option err = %v", err)
	}

	f.db.Model(&models.MenuItem{}).Where("id = ?", f.burger.ID).Update("is_available", false)
	if _, err := f.orders.Place(ctx, f.customer.ID, burgerOrder(f, "Regular", 1)); !IsValidation(err) {
		t.Fatalf("unavailable item err = %v", err)
	}

	f.db.Model(&models.Restaurant{}).Where("id = ?", f.restaurant.ID).Update("is_open", false)
	if _, err := f.orders.Place(ctx, f.customer.ID, burgerOrder(f, "Regular", 1)); !IsValidation(err) {
		t.Fatalf("closed restaurant err = %v", err)
	}
}
