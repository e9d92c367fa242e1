package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"food-marketplace-api/middleware"
	"food-marketplace-api/models"
	"food-marketplace-api/optimistic"
	"food-marketplace-api/realtime"
	"food-marketplace-api/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const decisionTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsFrame is every server → client message.
type wsFrame struct {
	Type      string             `json:"type"`
	OrderID   uint               `json:"order_id,omitempty"`
	Status    models.OrderStatus `json:"status,omitempty"`
	State     optimistic.State   `json:"state,omitempty"`
	Remaining *int               `json:"remaining_seconds,omitempty"`
	Error     string             `json:"error,omitempty"`
	Event     *realtime.Event    `json:"event,omitempty"`
	Orders    []models.Order     `json:"orders,omitempty"`
}

// wsAction is an operator command sent over a restaurant session.
type wsAction struct {
	Action  string `json:"action"` // accept | reject
	OrderID uint   `json:"order_id"`
	Reason  string `json:"reason"`
}

// OrdersSocket streams live order updates. Pass order_id to follow one order
// as any participant, or restaurant_id to run the restaurant's order board.
func (h *Handler) OrdersSocket(c *gin.Context) {
	ctx := c.Request.Context()
	userID, role := middleware.GetUserID(c), middleware.GetRole(c)

	if orderID := queryID(c, "order_id"); orderID != 0 {
		order, err := h.Orders.Participant(ctx, orderID, userID, role)
		if err != nil {
			respondError(c, err)
			return
		}
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("ws upgrade error: %v", err)
			return
		}
		h.followOrder(realtime.NewConn(ws), order)
		return
	}

	restaurantID := queryID(c, "restaurant_id")
	if restaurantID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order_id or restaurant_id is required"})
		return
	}
	var restaurant models.Restaurant
	if err := h.db.WithContext(ctx).First(&restaurant, restaurantID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Restaurant not found"})
		return
	}
	if role != models.RoleAdmin && restaurant.OwnerID != userID {
		respondError(c, services.ErrForbidden)
		return
	}
	var pending []models.Order
	if err := h.db.WithContext(ctx).
		Where("restaurant_id = ? AND status = ?", restaurant.ID, models.StatusPending).
		Order("created_at asc").Find(&pending).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load pending orders"})
		return
	}
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}
	board := &restaurantBoard{
		h:        h,
		conn:     realtime.NewConn(ws),
		actor:    caller(c),
		restID:   restaurant.ID,
		trackers: make(map[uint]*optimistic.Tracker[models.OrderStatus]),
	}
	board.run(pending)
}

func (h *Handler) remaining(orderID uint) *int {
	sched := h.Orders.Scheduler()
	if sched == nil {
		return nil
	}
	if rem, ok := sched.Remaining(orderID); ok {
		return &rem
	}
	return nil
}

func (h *Handler) followOrder(conn *realtime.Conn, order *models.Order) {
	hub := h.Store.Hub()
	forward := func(ev realtime.Event) { _ = conn.Send(wsFrame{Type: ev.Type, OrderID: ev.OrderID, Event: &ev}) }
	unsubs := []func(){
		hub.Subscribe(realtime.TopicOrders, realtime.ForOrder(order.ID), forward),
		hub.Subscribe(realtime.TopicCountdown, realtime.ForOrder(order.ID), forward),
		hub.Subscribe(realtime.TopicMessages, realtime.ForOrder(order.ID), forward),
	}
	defer func() {
		for _, u := range unsubs {
			u()
		}
	}()

	_ = conn.Send(wsFrame{
		Type:      "snapshot",
		OrderID:   order.ID,
		Status:    order.Status,
		Remaining: h.remaining(order.ID),
		Orders:    []models.Order{*order},
	})
	// followers only listen; reading keeps pongs flowing and notices disconnects
	conn.ReadLoop(func() interface{} { return new(map[string]interface{}) }, func(interface{}) {})
}

// restaurantBoard is one restaurant operator's live session. Accept and reject
// commands are shown optimistically and rolled back if the server refuses them.
type restaurantBoard struct {
	h      *Handler
	conn   *realtime.Conn
	actor  services.Actor
	restID uint

	mu       sync.Mutex
	trackers map[uint]*optimistic.Tracker[models.OrderStatus]
}

func (b *restaurantBoard) run(pending []models.Order) {
	for _, o := range pending {
		b.tracker(o.ID, o.Status)
	}

	hub := b.h.Store.Hub()
	unsubs := []func(){
		hub.Subscribe(realtime.TopicOrders, realtime.ForRestaurant(b.restID), b.onOrder),
		hub.Subscribe(realtime.TopicCountdown, b.isPending, func(ev realtime.Event) {
			_ = b.conn.Send(wsFrame{Type: ev.Type, OrderID: ev.OrderID, Event: &ev})
		}),
	}
	defer func() {
		for _, u := range unsubs {
			u()
		}
	}()

	_ = b.conn.Send(wsFrame{Type: "snapshot", Orders: pending})
	b.conn.ReadLoop(func() interface{} { return new(wsAction) }, func(msg interface{}) {
		go b.handle(*msg.(*wsAction))
	})
}

func (b *restaurantBoard) tracker(orderID uint, status models.OrderStatus) *optimistic.Tracker[models.OrderStatus] {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.trackers[orderID]
	if !ok {
		t = optimistic.NewTracker(status)
		b.trackers[orderID] = t
	}
	return t
}

// isPending limits countdown events to this board's orders, and ticks to the
// ones it is still waiting on.
func (b *restaurantBoard) isPending(ev realtime.Event) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.trackers[ev.OrderID]
	return ok && (ev.Type != services.TypeCountdownTick || t.Current() == models.StatusPending)
}

func (b *restaurantBoard) onOrder(ev realtime.Event) {
	if order, ok := ev.Payload.(*models.Order); ok {
		b.mu.Lock()
		t, tracked := b.trackers[order.ID]
		switch {
		case tracked:
			t.Set(order.Status)
		case order.Status == models.StatusPending:
			b.trackers[order.ID] = optimistic.NewTracker(order.Status)
		}
		b.mu.Unlock()
	}
	_ = b.conn.Send(wsFrame{Type: ev.Type, OrderID: ev.OrderID, Event: &ev})
}

func (b *restaurantBoard) handle(a wsAction) {
	var to models.OrderStatus
	switch a.Action {
	case "accept":
		to = models.StatusConfirmed
	case "reject":
		to = models.StatusCancelled
	default:
		_ = b.conn.Send(wsFrame{Type: "error", OrderID: a.OrderID, Error: "action must be accept or reject"})
		return
	}

	b.mu.Lock()
	t, ok := b.trackers[a.OrderID]
	b.mu.Unlock()
	if !ok {
		_ = b.conn.Send(wsFrame{Type: "error", OrderID: a.OrderID, Error: "order is not on this board"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), decisionTimeout)
	defer cancel()
	status, err := t.Do(to, func() (models.OrderStatus, error) {
		_ = b.conn.Send(wsFrame{Type: "order.optimistic", OrderID: a.OrderID, Status: to, State: optimistic.StatePending})
		order, err := b.h.Orders.Decide(ctx, a.OrderID, to, b.actor, services.TransitionMeta{
			Reason:       a.Reason,
			RestaurantID: b.restID,
		})
		if err != nil {
			return "", err
		}
		return order.Status, nil
	})

	frame := wsFrame{Type: "order.decision", OrderID: a.OrderID, Status: status, State: optimistic.StateConfirmed}
	if err != nil {
		frame.State, frame.Error = optimistic.StateFailed, err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			frame.Error = "timed out waiting for the server"
		}
	}
	_ = b.conn.Send(frame)
}
