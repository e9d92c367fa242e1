// Package autoaccept confirms pending orders on the restaurant's behalf when
// nobody acts on them within a fixed window after placement.
package autoaccept

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"
)

var (
	// ErrConcluded is returned for actions on a countdown that already fired,
	// was acted on manually, or was disposed.
	ErrConcluded = errors.New("autoaccept: countdown already concluded")
	ErrNotArmed  = errors.New("autoaccept: no countdown armed for order")
)

const (
	DefaultWindow        = 30 * time.Second
	DefaultTick          = time.Second
	DefaultActionTimeout = 10 * time.Second
)

// Decider performs the order transitions a countdown can trigger.
type Decider interface {
	// Confirm moves the order from pending to confirmed. changedBy is 0 and
	// auto is true when the countdown itself fires.
	Confirm(ctx context.Context, orderID, changedBy uint, auto bool) error
	// Reject cancels the pending order for the restaurant.
	Reject(ctx context.Context, orderID, changedBy uint, reason string) error
}

// Options tune a controller. Zero values fall back to the defaults.
type Options struct {
	Window        time.Duration
	Tick          time.Duration
	ActionTimeout time.Duration
	Now           func() time.Time
	// OnTick receives the displayed seconds left after every tick.
	OnTick func(orderID uint, remaining int)
	// OnResult receives the outcome of the single action the countdown concluded with.
	OnResult func(orderID uint, outcome Outcome, err error)
}

func (o Options) withDefaults() Options {
	if o.Window <= 0 {
		o.Window = DefaultWindow
	}
	if o.Tick <= 0 {
		o.Tick = DefaultTick
	}
	if o.ActionTimeout <= 0 {
		o.ActionTimeout = DefaultActionTimeout
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Outcome is how a countdown concluded.
type Outcome string

const (
	OutcomeAutoAccepted Outcome = "auto_accepted"
	OutcomeAccepted     Outcome = "accepted"
	OutcomeRejected     Outcome = "rejected"
	OutcomeDisposed     Outcome = "disposed"
)

type state int

const (
	stateIdle state = iota
	stateArmed
	stateConcluded
)

// Controller is the countdown for one order. Exactly one of timeout, Accept,
// Reject or Dispose concludes it; everything after that is a no-op.
type Controller struct {
	orderID   uint
	createdAt time.Time
	decider   Decider
	opts      Options

	mu        sync.Mutex
	state     state
	remaining int
	timer     *time.Timer
	outcome   Outcome

	done     chan struct{}
	doneOnce sync.Once
}

func NewController(orderID uint, createdAt time.Time, decider Decider, opts Options) *Controller {
	return &Controller{
		orderID:   orderID,
		createdAt: createdAt,
		decider:   decider,
		opts:      opts.withDefaults(),
		done:      make(chan struct{}),
	}
}

// OrderID returns the order this countdown belongs to.
func (c *Controller) OrderID() uint { return c.orderID }

// Start arms the countdown. The time left is measured from the order's
// creation, so a restarted controller resumes mid-window. When the window has
// already elapsed the timeout action runs before Start returns.
func (c *Controller) Start() {
	c.mu.Lock()
	if c.state != stateIdle {
		c.mu.Unlock()
		return
	}
	c.state = stateArmed
	left := c.left()
	if left <= 0 {
		c.remaining = 0
		c.mu.Unlock()
		c.timeout()
		return
	}
	c.remaining = seconds(left)
	c.timer = time.AfterFunc(min(c.opts.Tick, left), c.step)
	c.mu.Unlock()
}

// Remaining is the displayed number of seconds left.
func (c *Controller) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Outcome reports how the countdown concluded, or "" while it is still running.
func (c *Controller) Outcome() Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcome
}

// Done is closed once the countdown has concluded and its action returned.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Accept is the restaurant's manual acceptance. Only the first manual action
// or the timeout reaches the decider; later calls return ErrConcluded.
func (c *Controller) Accept(ctx context.Context, by uint) error {
	if !c.conclude(OutcomeAccepted) {
		return ErrConcluded
	}
	err := c.decider.Confirm(ctx, c.orderID, by, false)
	c.finish(OutcomeAccepted, err)
	return err
}

// Reject is the restaurant's manual rejection.
func (c *Controller) Reject(ctx context.Context, by uint, reason string) error {
	if !c.conclude(OutcomeRejected) {
		return ErrConcluded
	}
	err := c.decider.Reject(ctx, c.orderID, by, reason)
	c.finish(OutcomeRejected, err)
	return err
}

// Dispose cancels a pending timer without acting on the order.
func (c *Controller) Dispose() {
	if c.conclude(OutcomeDisposed) {
		c.doneOnce.Do(func() { close(c.done) })
	}
}

func (c *Controller) step() {
	c.mu.Lock()
	if c.state != stateArmed {
		c.mu.Unlock()
		return
	}
	left := c.left()
	if left <= 0 {
		c.remaining = 0
		c.mu.Unlock()
		c.timeout()
		return
	}
	c.remaining = seconds(left)
	rem := c.remaining
	c.timer = time.AfterFunc(min(c.opts.Tick, left), c.step)
	c.mu.Unlock()

	if c.opts.OnTick != nil {
		c.opts.OnTick(c.orderID, rem)
	}
}

func (c *Controller) timeout() {
	if !c.conclude(OutcomeAutoAccepted) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.ActionTimeout)
	defer cancel()
	err := c.decider.Confirm(ctx, c.orderID, 0, true)
	c.finish(OutcomeAutoAccepted, err)
}

// conclude flips the controller to concluded and stops the timer. It reports
// false if something else concluded it first.
func (c *Controller) conclude(outcome Outcome) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateConcluded {
		return false
	}
	c.state = stateConcluded
	c.outcome = outcome
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	return true
}

func (c *Controller) finish(outcome Outcome, err error) {
	if c.opts.OnResult != nil {
		c.opts.OnResult(c.orderID, outcome, err)
	}
	c.doneOnce.Do(func() { close(c.done) })
}

func (c *Controller) left() time.Duration {
	return c.opts.Window - c.opts.Now().Sub(c.createdAt)
}

func seconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}
