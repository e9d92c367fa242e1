package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"food-marketplace-api/autoaccept"
	"food-marketplace-api/config"
	"food-marketplace-api/events"
	"food-marketplace-api/models"
	"food-marketplace-api/realtime"
	"food-marketplace-api/statemachine"
	"food-marketplace-api/store"
)

// prepTime is added to the estimated delivery when the kitchen starts cooking.
const prepTime = 20 * time.Minute

// Actor is who drives a transition: a state machine role plus the acting user.
// UserID is 0 for the system actor.
type Actor struct {
	Role   statemachine.Actor
	UserID uint
}

// SystemActor acts on the restaurant's behalf when its countdown runs out.
func SystemActor() Actor { return Actor{Role: statemachine.ActorSystem} }

// ActorFor maps an authenticated user onto a state machine actor.
func ActorFor(role models.UserRole, userID uint) Actor {
	return Actor{Role: statemachine.ActorForRole(role), UserID: userID}
}

// TransitionMeta carries the optional context of a status change.
type TransitionMeta struct {
	Reason string // required when cancelling
	Note   string
	// RestaurantID is the restaurant the caller claims to act for; 0 skips the check.
	RestaurantID uint
}

// StatusChange describes a committed transition.
type StatusChange struct {
	Order *models.Order
	From  models.OrderStatus
	To    models.OrderStatus
	Actor Actor
}

// OrderService is the single mutation path for order status.
type OrderService struct {
	store     *store.Store
	publisher events.Publisher
	rewards   *RewardService
	fees      config.Fees
	now       func() time.Time

	mu        sync.RWMutex
	scheduler *autoaccept.Scheduler
	listeners []func(StatusChange)
}

func NewOrderService(st *store.Store, publisher events.Publisher, rewards *RewardService, fees config.Fees) *OrderService {
	if publisher == nil {
		publisher = events.LogPublisher{}
	}
	return &OrderService{
		store:     st,
		publisher: publisher,
		rewards:   rewards,
		fees:      fees,
		now:       time.Now,
	}
}

// AttachScheduler routes restaurant decisions on pending orders through the
// countdowns and disarms a countdown once its order leaves pending.
func (s *OrderService) AttachScheduler(sched *autoaccept.Scheduler) {
	s.mu.Lock()
	s.scheduler = sched
	s.mu.Unlock()
	s.OnTransition(func(ch StatusChange) {
		if ch.From == models.StatusPending {
			sched.Disarm(ch.Order.ID)
		}
	})
}

func (s *OrderService) Scheduler() *autoaccept.Scheduler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scheduler
}

// OnTransition registers fn to run after every committed transition.
func (s *OrderService) OnTransition(fn func(StatusChange)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Get loads an order with its lines and history.
func (s *OrderService) Get(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := s.store.Get(ctx, &order, orderID, "Items", "StatusHistory", "Restaurant", "Rider"); err != nil {
		return nil, err
	}
	return &order, nil
}

// Transition moves an order to status to on behalf of actor. It checks the
// state machine and ownership, writes the status conditionally on the status it
// read, records history in the same transaction and then notifies downstream.
func (s *OrderService) Transition(ctx context.Context, orderID uint, to models.OrderStatus, actor Actor, meta TransitionMeta) (*models.Order, error) {
	var order models.Order
	if err := s.store.Get(ctx, &order, orderID); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, &order, to, actor, meta); err != nil {
		return nil, err
	}
	if err := statemachine.CanTransition(order.Status, to, actor.Role); err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(meta.Reason)
	if to == models.StatusCancelled && reason == "" {
		return nil, ErrReasonRequired
	}

	from := order.Status
	now := s.now()
	patch := map[string]interface{}{}
	switch to {
	case models.StatusPreparing:
		patch["estimated_delivery_at"] = now.Add(prepTime)
	case models.StatusPickedUp:
		if order.RiderID == nil && actor.Role == statemachine.ActorRider {
			patch["rider_id"] = actor.UserID
		}
	case models.StatusDelivered:
		patch["delivered_at"] = now
		if order.PaymentMethod == models.PaymentCash {
			patch["payment_status"] = models.PaymentPaid
		}
	case models.StatusCancelled:
		patch["cancellation_reason"] = reason
		if order.PaymentStatus == models.PaymentPaid {
			patch["payment_status"] = models.PaymentRefunded
		}
	}

	note := meta.Note
	if note == "" && reason != "" {
		note = reason
	}
	var updated models.Order
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.UpdateStatus(ctx, order.ID, from, to, patch); err != nil {
			return err
		}
		if err := tx.Insert(ctx, &models.OrderStatusHistory{
			OrderID:    order.ID,
			FromStatus: from,
			ToStatus:   to,
			ChangedBy:  actor.UserID,
			Actor:      string(actor.Role),
			Note:       note,
		}); err != nil {
			return err
		}
		if to == models.StatusCancelled && order.RedeemedPoints > 0 {
			if err := refundIn(ctx, tx, &order); err != nil {
				return err
			}
		}
		return tx.Get(ctx, &updated, order.ID, "Items")
	})
	if err != nil {
		return nil, err
	}

	// the write is committed; downstream work must not die with the request
	s.afterTransition(context.WithoutCancel(ctx), StatusChange{Order: &updated, From: from, To: to, Actor: actor}, reason)
	return &updated, nil
}

func (s *OrderService) afterTransition(ctx context.Context, ch StatusChange, reason string) {
	o := ch.Order
	var riderID uint
	if o.RiderID != nil {
		riderID = *o.RiderID
	}
	s.store.Publish(realtime.Event{
		Topic:        realtime.TopicOrders,
		Type:         events.TypeStatusChanged,
		OrderID:      o.ID,
		RestaurantID: o.RestaurantID,
		CustomerID:   o.CustomerID,
		RiderID:      riderID,
		Payload:      o,
	})

	ev := events.OrderEvent{
		Type:         events.TypeStatusChanged,
		OrderID:      o.ID,
		OrderNumber:  o.OrderNumber,
		RestaurantID: o.RestaurantID,
		CustomerID:   o.CustomerID,
		RiderID:      o.RiderID,
		From:         ch.From,
		To:           ch.To,
		Actor:        string(ch.Actor.Role),
		ChangedBy:    ch.Actor.UserID,
		Reason:       reason,
		OccurredAt:   o.UpdatedAt,
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		log.Printf("⚠️  failed to publish %s for order %s: %v", ev.Type, o.OrderNumber, err)
	}

	s.mu.RLock()
	listeners := append([]func(StatusChange){}, s.listeners...)
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(ch)
	}

	if ch.To == models.StatusDelivered && s.rewards != nil {
		points, err := s.rewards.AccrueForOrder(ctx, o)
		if err != nil {
			log.Printf("⚠️  reward accrual failed for order %s: %v", o.OrderNumber, err)
		} else if points > 0 {
			log.Printf("🎁 %d reward points credited for order %s", points, o.OrderNumber)
		}
	}
}

// authorize checks that the actor may touch this particular order.
func (s *OrderService) authorize(ctx context.Context, order *models.Order, to models.OrderStatus, actor Actor, meta TransitionMeta) error {
	switch actor.Role {
	case statemachine.ActorCustomer:
		if order.CustomerID != actor.UserID {
			return ErrForbidden
		}
	case statemachine.ActorRestaurant:
		if meta.RestaurantID != 0 && meta.RestaurantID != order.RestaurantID {
			return ErrForbidden
		}
		var restaurant models.Restaurant
		if err := s.store.Get(ctx, &restaurant, order.RestaurantID); err != nil {
			return err
		}
		if restaurant.OwnerID != actor.UserID {
			return ErrForbidden
		}
	case statemachine.ActorRider:
		// pickup assigns the rider; after that only the assigned rider may act
		if order.RiderID != nil && *order.RiderID != actor.UserID {
			return ErrForbidden
		}
		if order.RiderID == nil && to != models.StatusPickedUp {
			return ErrForbidden
		}
	case statemachine.ActorSystem, statemachine.ActorAdmin:
	default:
		return ErrForbidden
	}
	return nil
}

// Decide applies a restaurant's accept or reject. While the order's countdown
// is armed the decision goes through it, so a manual action and the timeout
// can never both reach the database.
func (s *OrderService) Decide(ctx context.Context, orderID uint, to models.OrderStatus, actor Actor, meta TransitionMeta) (*models.Order, error) {
	sched := s.Scheduler()
	decision := to == models.StatusConfirmed || to == models.StatusCancelled
	if sched == nil || !decision || actor.Role != statemachine.ActorRestaurant {
		return s.Transition(ctx, orderID, to, actor, meta)
	}

	var order models.Order
	if err := s.store.Get(ctx, &order, orderID); err != nil {
		return nil, err
	}
	if order.Status != models.StatusPending {
		return s.Transition(ctx, orderID, to, actor, meta)
	}
	if err := s.authorize(ctx, &order, to, actor, meta); err != nil {
		return nil, err
	}
	if to == models.StatusCancelled && strings.TrimSpace(meta.Reason) == "" {
		return nil, ErrReasonRequired
	}

	var err error
	if to == models.StatusConfirmed {
		err = sched.Accept(ctx, orderID, actor.UserID)
	} else {
		err = sched.Reject(ctx, orderID, actor.UserID, meta.Reason)
	}
	switch {
	case err == nil:
		return s.Get(ctx, orderID)
	case errors.Is(err, autoaccept.ErrNotArmed), errors.Is(err, autoaccept.ErrConcluded):
		// no live countdown; the conditional write arbitrates
		return s.Transition(ctx, orderID, to, actor, meta)
	default:
		return nil, err
	}
}

// Confirm implements autoaccept.Decider.
func (s *OrderService) Confirm(ctx context.Context, orderID, changedBy uint, auto bool) error {
	actor := Actor{Role: statemachine.ActorRestaurant, UserID: changedBy}
	meta := TransitionMeta{}
	if auto {
		actor = SystemActor()
		meta.Note = "Auto-accepted: restaurant did not respond in time"
	}
	_, err := s.Transition(ctx, orderID, models.StatusConfirmed, actor, meta)
	return err
}

// Reject implements autoaccept.Decider.
func (s *OrderService) Reject(ctx context.Context, orderID, changedBy uint, reason string) error {
	actor := Actor{Role: statemachine.ActorRestaurant, UserID: changedBy}
	_, err := s.Transition(ctx, orderID, models.StatusCancelled, actor, TransitionMeta{Reason: reason})
	return err
}

// PendingOrders lists every order still awaiting a restaurant decision.
func (s *OrderService) PendingOrders(ctx context.Context) ([]autoaccept.Pending, error) {
	var orders []models.Order
	err := s.store.DB().WithContext(ctx).
		Select("id", "created_at").
		Where("status = ?", models.StatusPending).
		Find(&orders).Error
	if err != nil {
		return nil, store.Wrap(err)
	}
	pending := make([]autoaccept.Pending, len(orders))
	for i, o := range orders {
		pending[i] = autoaccept.Pending{OrderID: o.ID, CreatedAt: o.CreatedAt}
	}
	return pending, nil
}

// Participant returns the order when the user takes part in it: its customer,
// the restaurant's owner, the assigned rider or an admin.
func (s *OrderService) Participant(ctx context.Context, orderID, userID uint, role models.UserRole) (*models.Order, error) {
	return participantOf(ctx, s.store, orderID, userID, role)
}

func participantOf(ctx context.Context, st *store.Store, orderID, userID uint, role models.UserRole) (*models.Order, error) {
	var order models.Order
	if err := st.Get(ctx, &order, orderID); err != nil {
		return nil, err
	}
	switch role {
	case models.RoleAdmin:
		return &order, nil
	case models.RoleCustomer:
		if order.CustomerID == userID {
			return &order, nil
		}
	case models.RoleRider:
		if order.RiderID != nil && *order.RiderID == userID {
			return &order, nil
		}
	case models.RoleRestaurant:
		var restaurant models.Restaurant
		if err := st.Get(ctx, &restaurant, order.RestaurantID); err != nil {
			return nil, err
		}
		if restaurant.OwnerID == userID {
			return &order, nil
		}
	}
	return nil, ErrNotParticipant
}
