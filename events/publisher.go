package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"food-marketplace-api/models"
)

const TypeStatusChanged = "order.status_changed"

// OrderEvent is the payload published for every lifecycle change.
type OrderEvent struct {
	Type         string             `json:"type"`
	OrderID      uint               `json:"order_id"`
	OrderNumber  string             `json:"order_number"`
	RestaurantID uint               `json:"restaurant_id"`
	CustomerID   uint               `json:"customer_id"`
	RiderID      *uint              `json:"rider_id,omitempty"`
	From         models.OrderStatus `json:"from"`
	To           models.OrderStatus `json:"to"`
	Actor        string             `json:"actor"`
	ChangedBy    uint               `json:"changed_by"`
	Reason       string             `json:"reason,omitempty"`
	OccurredAt   time.Time          `json:"occurred_at"`
}

// Key partitions events by order so consumers see each order's changes in order.
func (e OrderEvent) Key() string {
	return e.OrderNumber
}

// Publisher ships lifecycle events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, ev OrderEvent) error
	Close() error
}

// LogPublisher writes events to the process log; used when Kafka is disabled.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, ev OrderEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	log.Printf("📣 %s", b)
	return nil
}

func (LogPublisher) Close() error { return nil }
