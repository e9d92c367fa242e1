package realtime

import "testing"

func TestHubFiltersAndUnsubscribes(t *testing.T) {
	h := NewHub()
	var got []uint
	unsub := h.Subscribe(TopicOrders, ForRestaurant(7), func(e Event) {
		got = append(got, e.OrderID)
	})

	h.Publish(Event{Topic: TopicOrders, OrderID: 1, RestaurantID: 7})
	h.Publish(Event{Topic: TopicOrders, OrderID: 2, RestaurantID: 8})
	h.Publish(Event{Topic: TopicCountdown, OrderID: 3, RestaurantID: 7})

	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("got %v, want [1]", got)
	}

	unsub()
	unsub()
	h.Publish(Event{Topic: TopicOrders, OrderID: 4, RestaurantID: 7})
	if len(got) != 1 {
		t.Fatalf("received after unsubscribe: %v", got)
	}
	if n := h.Subscribers(TopicOrders); n != 0 {
		t.Fatalf("Subscribers = %d, want 0", n)
	}
}

func TestHubStampsTime(t *testing.T) {
	h := NewHub()
	var ev Event
	h.Subscribe(TopicMessages, nil, func(e Event) { ev = e })
	h.Publish(Event{Topic: TopicMessages, OrderID: 9})
	if ev.At.IsZero() {
		t.Fatal("event time not set")
	}
}
