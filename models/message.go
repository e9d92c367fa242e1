package models

import "time"

// Message is a chat line between the participants of one order.
type Message struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	OrderID    uint      `json:"order_id" gorm:"not null;index"`
	SenderID   uint      `json:"sender_id" gorm:"not null"`
	SenderRole UserRole  `json:"sender_role" gorm:"not null"`
	Body       string    `json:"body" gorm:"not null"`
	CreatedAt  time.Time `json:"created_at" gorm:"index"`
}
