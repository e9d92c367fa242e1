package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"food-marketplace-api/config"
	"food-marketplace-api/events"
	"food-marketplace-api/models"
	"food-marketplace-api/realtime"
	"food-marketplace-api/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// wednesday keeps weekend bonuses out of accrual tests.
var wednesday = time.Date(2026, 10, 14, 12, 0, 0, 0, time.Local)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Published() []events.OrderEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.OrderEvent(nil), p.events...)
}

type fixture struct {
	db        *gorm.DB
	st        *store.Store
	publisher *recordingPublisher
	rewards   *RewardService
	orders    *OrderService
	ratings   *RatingService

	customer   models.User
	stranger   models.User
	owner      models.User
	rider      models.User
	otherRider models.User
	restaurant models.Restaurant
	burger     models.MenuItem
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := config.OpenDatabase(config.Database{Driver: "sqlite", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := config.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := config.SeedRewardTiers(db); err != nil {
		t.Fatalf("seed tiers: %v", err)
	}

	f := &fixture{db: db, st: store.New(db, realtime.NewHub()), publisher: &recordingPublisher{}}
	f.rewards = NewRewardService(f.st, config.Rewards{Rate: 1, FirstOrderMultiplier: 2, WeekendMultiplier: 1.5})
	f.rewards.now = func() time.Time { return wednesday }
	f.orders = NewOrderService(f.st, f.publisher, f.rewards, config.Fees{
		Delivery:          dec("2.99"),
		ServicePercentage: dec("5"),
	})
	f.ratings = NewRatingService(f.st)

	f.customer = f.user(t, "customer@test.io", models.RoleCustomer)
	f.stranger = f.user(t, "stranger@test.io", models.RoleCustomer)
	f.owner = f.user(t, "owner@test.io", models.RoleRestaurant)
	f.rider = f.user(t, "rider@test.io", models.RoleRider)
	f.otherRider = f.user(t, "rider2@test.io", models.RoleRider)

	f.restaurant = models.Restaurant{OwnerID: f.owner.ID, Name: "Burger Barn", IsOpen: true}
	mustCreate(t, db, &f.restaurant)
	f.burger = models.MenuItem{
		RestaurantID: f.restaurant.ID,
		Name:         "Classic Burger",
		Price:        dec("10.00"),
		IsAvailable:  true,
		Options: []models.MenuOption{
			{Group: "Size", Name: "Regular", PriceDelta: decimal.Zero},
			{Group: "Size", Name: "Large", PriceDelta: dec("1.50")},
		},
	}
	mustCreate(t, db, &f.burger)
	return f
}

func mustCreate(t *testing.T, db *gorm.DB, v interface{}) {
	t.Helper()
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("create %T: %v", v, err)
	}
}

func (f *fixture) user(t *testing.T, email string, role models.UserRole) models.User {
	u := models.User{Name: email, Email: email, PasswordHash: "x", Role: role}
	mustCreate(t, f.db, &u)
	return u
}

func (f *fixture) insertOrder(t *testing.T, status models.OrderStatus, riderID *uint) *models.Order {
	t.Helper()
	o := &models.Order{
		OrderNumber:     NewOrderNumber(time.Now()),
		IdempotencyKey:  uuid.NewString(),
		CustomerID:      f.customer.ID,
		RestaurantID:    f.restaurant.ID,
		RiderID:         riderID,
		Status:          status,
		Subtotal:        dec("25.00"),
		DeliveryFee:     dec("2.99"),
		ServiceFee:      dec("1.25"),
		Total:           dec("29.24"),
		PaymentMethod:   models.PaymentCash,
		PaymentStatus:   models.PaymentPending,
		DeliveryAddress: "1 Main St",
	}
	mustCreate(t, f.db, o)
	return o
}

func (f *fixture) status(t *testing.T, orderID uint) models.OrderStatus {
	t.Helper()
	var o models.Order
	if err := f.st.Get(context.Background(), &o, orderID); err != nil {
		t.Fatalf("get order: %v", err)
	}
	return o.Status
}

func (f *fixture) balance(t *testing.T, customerID uint) int64 {
	t.Helper()
	acc, err := f.rewards.Account(context.Background(), customerID)
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	return acc.CurrentBalance
}

func (f *fixture) credit(t *testing.T, customerID uint, points int64) {
	t.Helper()
	ctx := context.Background()
	acc, err := f.rewards.Account(ctx, customerID)
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	if _, err := f.rewards.Earn(ctx, acc.ID, 0, points*100, nil); err != nil {
		t.Fatalf("earn: %v", err)
	}
}

func uintPtr(v uint) *uint { return &v }
