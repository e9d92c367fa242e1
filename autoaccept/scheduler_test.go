package autoaccept

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/mock/gomock"
)

func TestSchedulerArmsOnePerOrder(t *testing.T) {
	decider := NewMockDecider(gomock.NewController(t))
	s := NewScheduler(decider, Options{})
	t.Cleanup(s.Close)

	created := time.Now()
	a := s.Arm(1, created)
	b := s.Arm(1, created)
	if a != b {
		t.Fatal("Arm created a second controller for the same order")
	}
	if s.Armed() != 1 {
		t.Fatalf("Armed() = %d, want 1", s.Armed())
	}
	if rem, ok := s.Remaining(1); !ok || rem < 29 || rem > 30 {
		t.Fatalf("Remaining = %d,%v", rem, ok)
	}
}

func TestSchedulerAcceptConcludesAndForgets(t *testing.T) {
	decider := NewMockDecider(gomock.NewController(t))
	decider.EXPECT().Confirm(gomock.Any(), uint(3), uint(11), false).Return(nil).Times(1)
	s := NewScheduler(decider, Options{})
	t.Cleanup(s.Close)

	s.Arm(3, time.Now())
	if err := s.Accept(context.Background(), 3, 11); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if err := s.Accept(context.Background(), 3, 11); !errors.Is(err, ErrNotArmed) {
		t.Fatalf("second Accept err = %v, want ErrNotArmed", err)
	}
	if s.Armed() != 0 {
		t.Fatalf("Armed() = %d, want 0", s.Armed())
	}
}

func TestSchedulerArmAllFiresElapsedOrders(t *testing.T) {
	decider := NewMockDecider(gomock.NewController(t))
	decider.EXPECT().Confirm(gomock.Any(), uint(20), uint(0), true).Return(nil).Times(1)
	s := NewScheduler(decider, Options{})
	t.Cleanup(s.Close)

	s.ArmAll([]Pending{
		{OrderID: 20, CreatedAt: time.Now().Add(-time.Minute)},
		{OrderID: 21, CreatedAt: time.Now()},
	})
	if s.Armed() != 1 {
		t.Fatalf("Armed() = %d, want only the order still inside its window", s.Armed())
	}
}

func TestSchedulerDisarmAndClose(t *testing.T) {
	decider := NewMockDecider(gomock.NewController(t))
	s := NewScheduler(decider, Options{Window: 20 * time.Millisecond, Tick: 5 * time.Millisecond})

	c := s.Arm(5, time.Now())
	s.Disarm(5)
	if c.Outcome() != OutcomeDisposed {
		t.Fatalf("outcome = %s, want disposed", c.Outcome())
	}

	s.Arm(6, time.Now())
	s.Close()
	if s.Arm(7, time.Now()) != nil {
		t.Fatal("Arm after Close returned a controller")
	}
	time.Sleep(50 * time.Millisecond)
	if s.Armed() != 0 {
		t.Fatalf("Armed() = %d after Close", s.Armed())
	}
}
