package realtime

import (
	"sync"
	"time"
)

const (
	TopicOrders    = "orders"
	TopicCountdown = "countdown"
	TopicMessages  = "messages"
)

// Event is a change notification fanned out to subscribers.
type Event struct {
	Topic        string      `json:"topic"`
	Type         string      `json:"type"`
	OrderID      uint        `json:"order_id"`
	RestaurantID uint        `json:"restaurant_id,omitempty"`
	CustomerID   uint        `json:"customer_id,omitempty"`
	RiderID      uint        `json:"rider_id,omitempty"`
	Payload      interface{} `json:"payload,omitempty"`
	At           time.Time   `json:"at"`
}

// Filter selects the events a subscriber receives. A nil filter matches everything.
type Filter func(Event) bool

// ForOrder matches events about one order.
func ForOrder(orderID uint) Filter {
	return func(e Event) bool { return e.OrderID == orderID }
}

// ForRestaurant matches events about any order of one restaurant.
func ForRestaurant(restaurantID uint) Filter {
	return func(e Event) bool { return e.RestaurantID == restaurantID }
}

type subscription struct {
	filter Filter
	fn     func(Event)
}

// Hub is an in-process publish/subscribe registry keyed by topic.
type Hub struct {
	mu   sync.RWMutex
	next uint64
	subs map[string]map[uint64]subscription
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[uint64]subscription)}
}

// Subscribe registers fn for events on topic that pass filter. The returned
// function removes the subscription and is safe to call more than once.
func (h *Hub) Subscribe(topic string, filter Filter, fn func(Event)) (unsubscribe func()) {
	h.mu.Lock()
	h.next++
	id := h.next
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[uint64]subscription)
	}
	h.subs[topic][id] = subscription{filter: filter, fn: fn}
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[topic], id)
			if len(h.subs[topic]) == 0 {
				delete(h.subs, topic)
			}
			h.mu.Unlock()
		})
	}
}

// Publish delivers ev synchronously to every matching subscriber.
// Callbacks run outside the hub lock and must not block.
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	h.mu.RLock()
	targets := make([]func(Event), 0, len(h.subs[ev.Topic]))
	for _, s := range h.subs[ev.Topic] {
		if s.filter == nil || s.filter(ev) {
			targets = append(targets, s.fn)
		}
	}
	h.mu.RUnlock()

	for _, fn := range targets {
		fn(ev)
	}
}

// Subscribers counts live subscriptions on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}
