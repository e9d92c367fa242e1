package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"food-marketplace-api/models"
	"food-marketplace-api/realtime"
	"food-marketplace-api/store"
)

const maxMessageLength = 2000

// MessageService is the order-scoped chat between customer, restaurant and rider.
type MessageService struct {
	store *store.Store
}

func NewMessageService(st *store.Store) *MessageService {
	return &MessageService{store: st}
}

// Send stores a message and fans it out to the order's subscribers.
func (s *MessageService) Send(ctx context.Context, orderID, userID uint, role models.UserRole, body string) (*models.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, newValidationError("message body is required")
	}
	if utf8.RuneCountInString(body) > maxMessageLength {
		return nil, newValidationError("message is too long")
	}
	order, err := participantOf(ctx, s.store, orderID, userID, role)
	if err != nil {
		return nil, err
	}
	msg := &models.Message{OrderID: order.ID, SenderID: userID, SenderRole: role, Body: body}
	if err := s.store.Insert(ctx, msg); err != nil {
		return nil, err
	}
	s.store.Publish(realtime.Event{
		Topic:        realtime.TopicMessages,
		Type:         "message.created",
		OrderID:      order.ID,
		RestaurantID: order.RestaurantID,
		CustomerID:   order.CustomerID,
		Payload:      msg,
	})
	return msg, nil
}

// List returns the order's conversation, oldest first.
func (s *MessageService) List(ctx context.Context, orderID, userID uint, role models.UserRole) ([]models.Message, error) {
	if _, err := participantOf(ctx, s.store, orderID, userID, role); err != nil {
		return nil, err
	}
	var msgs []models.Message
	err := s.store.DB().WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at asc, id asc").
		Find(&msgs).Error
	return msgs, store.Wrap(err)
}

// Purge deletes messages older than cutoff on orders that are finished.
func (s *MessageService) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	db := s.store.DB().WithContext(ctx)
	finished := db.Model(&models.Order{}).Select("id").
		Where("status IN ?", []models.OrderStatus{models.StatusDelivered, models.StatusCancelled})
	res := db.Where("created_at < ? AND order_id IN (?)", cutoff, finished).Delete(&models.Message{})
	if res.Error != nil {
		return 0, store.Wrap(res.Error)
	}
	return res.RowsAffected, nil
}
