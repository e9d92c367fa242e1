package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"food-marketplace-api/config"
	"food-marketplace-api/models"
	"food-marketplace-api/store"

	"github.com/shopspring/decimal"
)

// Multiplier scales earned points, e.g. the first-order or weekend bonus.
type Multiplier struct {
	Name   string
	Factor float64
}

// RewardService keeps reward balances and their ledger in step.
type RewardService struct {
	store *store.Store
	cfg   config.Rewards
	now   func() time.Time
}

func NewRewardService(st *store.Store, cfg config.Rewards) *RewardService {
	return &RewardService{store: st, cfg: cfg, now: time.Now}
}

// EarnedPoints is floor(base/100) * rate scaled by the product of every
// multiplier, floored once at the end. base is in minor currency units.
func EarnedPoints(base, rate int64, multipliers []Multiplier) int64 {
	if base <= 0 || rate <= 0 {
		return 0
	}
	points := decimal.NewFromInt((base / 100) * rate)
	for _, m := range multipliers {
		points = points.Mul(decimal.NewFromFloat(m.Factor))
	}
	return points.Floor().IntPart()
}

// Discount is min(points/100 * percentage, max) for the tier, in currency units.
func Discount(points int64, tier models.RewardTier) decimal.Decimal {
	d := decimal.NewFromInt(points).Div(decimal.NewFromInt(100)).Mul(tier.DiscountPercentage).Round(2)
	if d.GreaterThan(tier.MaxDiscountAmount) {
		return tier.MaxDiscountAmount
	}
	return d
}

// Account returns the customer's reward account, opening one on first use.
func (s *RewardService) Account(ctx context.Context, customerID uint) (*models.RewardAccount, error) {
	return accountFor(ctx, s.store, customerID)
}

func accountFor(ctx context.Context, st *store.Store, customerID uint) (*models.RewardAccount, error) {
	var acc models.RewardAccount
	err := st.DB().WithContext(ctx).
		Where(models.RewardAccount{CustomerID: customerID}).
		FirstOrCreate(&acc).Error
	if errors.Is(store.Wrap(err), store.ErrDuplicate) {
		// lost a race with a concurrent open; the row exists now
		err = st.DB().WithContext(ctx).Where("customer_id = ?", customerID).First(&acc).Error
	}
	if err != nil {
		return nil, store.Wrap(err)
	}
	return &acc, nil
}

// Earn credits points for an order and returns how many were granted.
func (s *RewardService) Earn(ctx context.Context, accountID, orderID uint, baseAmount int64, multipliers []Multiplier) (int64, error) {
	points := EarnedPoints(baseAmount, s.cfg.Rate, multipliers)
	if points == 0 {
		return 0, nil
	}
	desc := fmt.Sprintf("Earned %d points", points)
	if orderID != 0 {
		desc = fmt.Sprintf("Earned %d points on order #%d", points, orderID)
	}
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		_, err := applyPoints(ctx, tx, accountID, orderID, points, models.RewardEarned, desc)
		return err
	})
	if err != nil {
		return 0, err
	}
	return points, nil
}

// Redeem spends points against the best qualifying tier and returns the discount.
func (s *RewardService) Redeem(ctx context.Context, accountID uint, points int64, orderID uint) (decimal.Decimal, error) {
	var discount decimal.Decimal
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		var err error
		discount, _, err = redeemIn(ctx, tx, accountID, orderID, points)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	return discount, nil
}

// redeemIn performs a redemption inside the caller's transaction.
func redeemIn(ctx context.Context, tx *store.Store, accountID, orderID uint, points int64) (decimal.Decimal, *models.RewardTier, error) {
	if points <= 0 {
		return decimal.Zero, nil, newValidationError("points to redeem must be positive")
	}
	var acc models.RewardAccount
	if err := tx.Get(ctx, &acc, accountID); err != nil {
		return decimal.Zero, nil, err
	}
	if points > acc.CurrentBalance {
		return decimal.Zero, nil, ErrInsufficientBalance
	}
	tier, err := tierFor(ctx, tx, points)
	if err != nil {
		return decimal.Zero, nil, err
	}
	desc := fmt.Sprintf("Redeemed %d points (%s tier)", points, tier.Name)
	if _, err := applyPoints(ctx, tx, accountID, orderID, -points, models.RewardRedeemed, desc); err != nil {
		return decimal.Zero, nil, err
	}
	return Discount(points, *tier), tier, nil
}

// refundIn returns the points an order redeemed at checkout. It runs inside
// the cancellation's transaction.
func refundIn(ctx context.Context, tx *store.Store, order *models.Order) error {
	acc, err := accountFor(ctx, tx, order.CustomerID)
	if err != nil {
		return err
	}
	desc := fmt.Sprintf("Refunded %d points for cancelled order #%d", order.RedeemedPoints, order.ID)
	_, err = applyPoints(ctx, tx, acc.ID, order.ID, order.RedeemedPoints, models.RewardRefunded, desc)
	return err
}

func tierFor(ctx context.Context, st *store.Store, points int64) (*models.RewardTier, error) {
	var tier models.RewardTier
	err := store.Wrap(st.DB().WithContext(ctx).
		Where("points_required <= ?", points).
		Order("points_required desc").
		First(&tier).Error)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoQualifyingTier
	}
	if err != nil {
		return nil, err
	}
	return &tier, nil
}

// applyPoints moves the balance by delta with a compare-and-swap on the
// current balance and appends the matching ledger entry.
func applyPoints(ctx context.Context, tx *store.Store, accountID, orderID uint, delta int64, category models.RewardCategory, desc string) (*models.RewardTransaction, error) {
	var acc models.RewardAccount
	if err := tx.Get(ctx, &acc, accountID); err != nil {
		return nil, err
	}
	next := acc.CurrentBalance + delta
	if next < 0 {
		return nil, ErrInsufficientBalance
	}
	lifetime := acc.LifetimePoints
	if category == models.RewardEarned {
		lifetime += delta
	}

	res := tx.DB().WithContext(ctx).Model(&models.RewardAccount{}).
		Where("id = ? AND current_balance = ?", acc.ID, acc.CurrentBalance).
		Updates(map[string]interface{}{"current_balance": next, "lifetime_points": lifetime})
	if res.Error != nil {
		return nil, store.Wrap(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, store.ErrConflict
	}

	amount := delta
	if amount < 0 {
		amount = -amount
	}
	entry := &models.RewardTransaction{
		AccountID:       acc.ID,
		Category:        category,
		Amount:          amount,
		PreviousBalance: acc.CurrentBalance,
		NewBalance:      next,
		Description:     desc,
	}
	if orderID != 0 {
		entry.OrderID = &orderID
	}
	if err := tx.Insert(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Quote previews a redemption without spending anything.
func (s *RewardService) Quote(ctx context.Context, customerID uint, points int64) (*models.RewardTier, decimal.Decimal, error) {
	acc, err := s.Account(ctx, customerID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if points <= 0 {
		return nil, decimal.Zero, newValidationError("points to redeem must be positive")
	}
	if points > acc.CurrentBalance {
		return nil, decimal.Zero, ErrInsufficientBalance
	}
	tier, err := tierFor(ctx, s.store, points)
	if err != nil {
		return nil, decimal.Zero, err
	}
	return tier, Discount(points, *tier), nil
}

// History lists the customer's ledger, newest first.
func (s *RewardService) History(ctx context.Context, customerID uint, limit int) ([]models.RewardTransaction, error) {
	acc, err := s.Account(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var entries []models.RewardTransaction
	err = s.store.DB().WithContext(ctx).
		Where("account_id = ?", acc.ID).
		Order("id desc").
		Limit(limit).
		Find(&entries).Error
	return entries, store.Wrap(err)
}

func (s *RewardService) Tiers(ctx context.Context) ([]models.RewardTier, error) {
	var tiers []models.RewardTier
	err := s.store.DB().WithContext(ctx).Order("points_required asc").Find(&tiers).Error
	return tiers, store.Wrap(err)
}

// AccrueForOrder grants the points for a delivered order once.
func (s *RewardService) AccrueForOrder(ctx context.Context, order *models.Order) (int64, error) {
	acc, err := s.Account(ctx, order.CustomerID)
	if err != nil {
		return 0, err
	}
	db := s.store.DB().WithContext(ctx)

	var already int64
	if err := db.Model(&models.RewardTransaction{}).
		Where("account_id = ? AND order_id = ? AND category = ?", acc.ID, order.ID, models.RewardEarned).
		Count(&already).Error; err != nil {
		return 0, store.Wrap(err)
	}
	if already > 0 {
		return 0, nil
	}

	var earlier int64
	if err := db.Model(&models.Order{}).
		Where("customer_id = ? AND status = ? AND id <> ?", order.CustomerID, models.StatusDelivered, order.ID).
		Count(&earlier).Error; err != nil {
		return 0, store.Wrap(err)
	}

	var multipliers []Multiplier
	if earlier == 0 && s.cfg.FirstOrderMultiplier > 0 {
		multipliers = append(multipliers, Multiplier{Name: "first_order", Factor: s.cfg.FirstOrderMultiplier})
	}
	if day := s.now().Weekday(); (day == time.Saturday || day == time.Sunday) && s.cfg.WeekendMultiplier > 0 {
		multipliers = append(multipliers, Multiplier{Name: "weekend", Factor: s.cfg.WeekendMultiplier})
	}

	base := order.Subtotal.Mul(decimal.NewFromInt(100)).IntPart()
	return s.Earn(ctx, acc.ID, order.ID, base, multipliers)
}
