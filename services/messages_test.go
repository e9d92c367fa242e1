package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"food-marketplace-api/models"
	"food-marketplace-api/realtime"
)

func TestMessagesLimitedToParticipants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewMessageService(f.st)
	order := f.insertOrder(t, models.StatusPreparing, nil)

	var got []realtime.Event
	unsubscribe := f.st.Subscribe(realtime.TopicMessages, realtime.ForOrder(order.ID), func(ev realtime.Event) { got = append(got, ev) })
	defer unsubscribe()

	if _, err := svc.Send(ctx, order.ID, f.customer.ID, models.RoleCustomer, "Ring the bell please"); err != nil {
		t.Fatalf("customer send: %v", err)
	}
	if _, err := svc.Send(ctx, order.ID, f.owner.ID, models.RoleRestaurant, "Will do"); err != nil {
		t.Fatalf("owner send: %v", err)
	}
	if _, err := svc.Send(ctx, order.ID, f.stranger.ID, models.RoleCustomer, "hi"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger err = %v", err)
	}
	if _, err := svc.Send(ctx, order.ID, f.rider.ID, models.RoleRider, "on my way"); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("unassigned rider err = %v", err)
	}
	if _, err := svc.Send(ctx, order.ID, f.customer.ID, models.RoleCustomer, "   "); !IsValidation(err) {
		t.Fatalf("blank message err = %v", err)
	}

	msgs, err := svc.List(ctx, order.ID, f.owner.ID, models.RoleRestaurant)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || msgs[0].SenderRole != models.RoleCustomer {
		t.Fatalf("messages = %+v", msgs)
	}
	if len(got) != 2 {
		t.Fatalf("hub events = %d, want 2", len(got))
	}
}

func TestPurgeRemovesOldMessagesOfFinishedOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewMessageService(f.st)
	done := f.insertOrder(t, models.StatusDelivered, nil)
	live := f.insertOrder(t, models.StatusPreparing, nil)

	old := time.Now().Add(-60 * 24 * time.Hour)
	for _, m := range []models.Message{
		{OrderID: done.ID, SenderID: f.customer.ID, SenderRole: models.RoleCustomer, Body: "old", CreatedAt: old},
		{OrderID: done.ID, SenderID: f.customer.ID, SenderRole: models.RoleCustomer, Body: "recent"},
		{OrderID: live.ID, SenderID: f.customer.ID, SenderRole: models.RoleCustomer, Body: "old but live", CreatedAt: old},
	} {
		m := m
		mustCreate(t, f.db, &m)
	}

	n, err := svc.Purge(ctx, time.Now().Add(-30*24*time.Hour))
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if n != 1 {
		t.Fatalf("purged %d, want 1", n)
	}
	var left int64
	f.db.Model(&models.Message{}).Count(&left)
	if left != 2 {
		t.Fatalf("remaining = %d, want 2", left)
	}
}
