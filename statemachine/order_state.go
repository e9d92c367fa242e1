package statemachine

import (
	"fmt"
	"strings"

	"food-marketplace-api/models"
)

// Actor identifies who is driving a transition.
type Actor string

const (
	ActorCustomer   Actor = "customer"
	ActorRestaurant Actor = "restaurant"
	ActorRider      Actor = "rider"
	ActorSystem     Actor = "system" // auto-accept, acting for the restaurant
	ActorAdmin      Actor = "admin"
)

// ActorForRole maps an authenticated user role to its state machine actor.
func ActorForRole(role models.UserRole) Actor {
	switch role {
	case models.RoleRestaurant:
		return ActorRestaurant
	case models.RoleRider:
		return ActorRider
	case models.RoleAdmin:
		return ActorAdmin
	default:
		return ActorCustomer
	}
}

// Transition defines a valid state change and who can perform it
type Transition struct {
	From  models.OrderStatus `json:"from"`
	To    models.OrderStatus `json:"to"`
	Actor Actor              `json:"actor"`
}

// validTransitions is the authoritative state machine definition.
// Admins may take any edge listed here; they are not listed separately.
var validTransitions = []Transition{
	// Restaurant accepts the order, or the countdown does it for them
	{From: models.StatusPending, To: models.StatusConfirmed, Actor: ActorRestaurant},
	{From: models.StatusPending, To: models.StatusConfirmed, Actor: ActorSystem},
	// Restaurant rejects, or customer cancels, before preparation starts
	{From: models.StatusPending, To: models.StatusCancelled, Actor: ActorRestaurant},
	{From: models.StatusPending, To: models.StatusCancelled, Actor: ActorCustomer},
	{From: models.StatusConfirmed, To: models.StatusCancelled, Actor: ActorRestaurant},
	{From: models.StatusConfirmed, To: models.StatusCancelled, Actor: ActorCustomer},
	// Kitchen progress
	{From: models.StatusConfirmed, To: models.StatusPreparing, Actor: ActorRestaurant},
	{From: models.StatusPreparing, To: models.StatusReady, Actor: ActorRestaurant},
	// Rider picks up and delivers
	{From: models.StatusReady, To: models.StatusPickedUp, Actor: ActorRider},
	{From: models.StatusPickedUp, To: models.StatusDelivered, Actor: ActorRider},
}

type transitionKey struct {
	From  models.OrderStatus
	To    models.OrderStatus
	Actor Actor
}

var transitionMap = func() map[transitionKey]bool {
	m := make(map[transitionKey]bool)
	for _, t := range validTransitions {
		m[transitionKey{t.From, t.To, t.Actor}] = true
		m[transitionKey{t.From, t.To, ActorAdmin}] = true
	}
	return m
}()

// InvalidTransitionError reports an attempted status change that the
// machine does not allow for the actor.
type InvalidTransitionError struct {
	From    models.OrderStatus
	To      models.OrderStatus
	Actor   Actor
	Allowed []models.OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	allowed := "none (terminal state)"
	if len(e.Allowed) > 0 {
		parts := make([]string, len(e.Allowed))
		for i, s := range e.Allowed {
			parts[i] = string(s)
		}
		allowed = strings.Join(parts, ", ")
	}
	return fmt.Sprintf("invalid transition: %s → %s is not allowed for actor '%s'. Valid transitions for this actor are: %s",
		e.From, e.To, e.Actor, allowed)
}

// ValidTransitionsFrom returns all valid next states from a given state
func ValidTransitionsFrom(status models.OrderStatus) []models.OrderStatus {
	return ValidTransitionsFor(status, ActorAdmin)
}

// ValidTransitionsFor returns the next states the actor may move to from status.
func ValidTransitionsFor(status models.OrderStatus, actor Actor) []models.OrderStatus {
	var nexts []models.OrderStatus
	seen := map[models.OrderStatus]bool{}
	for _, t := range validTransitions {
		if t.From != status || seen[t.To] {
			continue
		}
		if actor == ActorAdmin || t.Actor == actor {
			nexts = append(nexts, t.To)
			seen[t.To] = true
		}
	}
	return nexts
}

// CanTransition checks if a given actor can move from one state to another
func CanTransition(from, to models.OrderStatus, actor Actor) error {
	if transitionMap[transitionKey{From: from, To: to, Actor: actor}] {
		return nil
	}
	return &InvalidTransitionError{
		From:    from,
		To:      to,
		Actor:   actor,
		Allowed: ValidTransitionsFor(from, actor),
	}
}

// GetAllTransitions returns the full state machine for documentation
func GetAllTransitions() []Transition {
	out := make([]Transition, len(validTransitions))
	copy(out, validTransitions)
	return out
}
