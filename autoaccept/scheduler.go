package autoaccept

import (
	"context"
	"log"
	"sync"
	"time"
)

// Pending identifies an order awaiting the restaurant's decision.
type Pending struct {
	OrderID   uint
	CreatedAt time.Time
}

// Scheduler owns at most one countdown per order.
type Scheduler struct {
	decider Decider
	opts    Options

	mu          sync.Mutex
	controllers map[uint]*Controller
	closed      bool
}

func NewScheduler(decider Decider, opts Options) *Scheduler {
	return &Scheduler{
		decider:     decider,
		opts:        opts,
		controllers: make(map[uint]*Controller),
	}
}

// Arm starts a countdown for the order unless one is already running.
// It returns the order's controller, or nil after Close.
func (s *Scheduler) Arm(orderID uint, createdAt time.Time) *Controller {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	if c, ok := s.controllers[orderID]; ok {
		s.mu.Unlock()
		return c
	}
	opts := s.opts
	userResult := s.opts.OnResult
	var c *Controller
	opts.OnResult = func(id uint, outcome Outcome, err error) {
		s.forget(id, c)
		if err != nil {
			log.Printf("⚠️  countdown for order %d concluded (%s) with error: %v", id, outcome, err)
		}
		if userResult != nil {
			userResult(id, outcome, err)
		}
	}
	c = NewController(orderID, createdAt, s.decider, opts)
	s.controllers[orderID] = c
	s.mu.Unlock()

	c.Start()
	return c
}

// ArmAll re-arms countdowns after a restart.
func (s *Scheduler) ArmAll(pending []Pending) {
	for _, p := range pending {
		s.Arm(p.OrderID, p.CreatedAt)
	}
}

// Accept routes a manual acceptance through the order's countdown.
func (s *Scheduler) Accept(ctx context.Context, orderID, by uint) error {
	c := s.lookup(orderID)
	if c == nil {
		return ErrNotArmed
	}
	return c.Accept(ctx, by)
}

// Reject routes a manual rejection through the order's countdown.
func (s *Scheduler) Reject(ctx context.Context, orderID, by uint, reason string) error {
	c := s.lookup(orderID)
	if c == nil {
		return ErrNotArmed
	}
	return c.Reject(ctx, by, reason)
}

// Disarm disposes the order's countdown, if any, without acting.
func (s *Scheduler) Disarm(orderID uint) {
	s.mu.Lock()
	c := s.controllers[orderID]
	delete(s.controllers, orderID)
	s.mu.Unlock()
	if c != nil {
		c.Dispose()
	}
}

// Remaining reports the seconds left on the order's countdown.
func (s *Scheduler) Remaining(orderID uint) (int, bool) {
	c := s.lookup(orderID)
	if c == nil {
		return 0, false
	}
	return c.Remaining(), true
}

// Armed counts running countdowns.
func (s *Scheduler) Armed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.controllers)
}

// Close disposes every countdown; later Arm calls are ignored.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	all := s.controllers
	s.controllers = make(map[uint]*Controller)
	s.mu.Unlock()
	for _, c := range all {
		c.Dispose()
	}
}

func (s *Scheduler) lookup(orderID uint) *Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controllers[orderID]
}

func (s *Scheduler) forget(orderID uint, c *Controller) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.controllers[orderID] == c {
		delete(s.controllers, orderID)
	}
}
