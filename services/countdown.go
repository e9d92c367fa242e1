package services

import (
	"food-marketplace-api/autoaccept"
	"food-marketplace-api/config"
	"food-marketplace-api/realtime"
)

const (
	TypeCountdownTick      = "countdown.tick"
	TypeCountdownConcluded = "countdown.concluded"
)

// CountdownPayload is carried by countdown events on the realtime hub.
type CountdownPayload struct {
	RemainingSeconds int                `json:"remaining_seconds"`
	Outcome          autoaccept.Outcome `json:"outcome,omitempty"`
	Error            string             `json:"error,omitempty"`
}

// CountdownOptions builds scheduler options that broadcast every tick and
// the final outcome of each order's countdown.
func (s *OrderService) CountdownOptions(cfg config.AutoAccept) autoaccept.Options {
	return autoaccept.Options{
		Window:        cfg.Window,
		Tick:          cfg.Tick,
		ActionTimeout: cfg.ActionTimeout,
		OnTick: func(orderID uint, remaining int) {
			s.store.Publish(realtime.Event{
				Topic:   realtime.TopicCountdown,
				Type:    TypeCountdownTick,
				OrderID: orderID,
				Payload: CountdownPayload{RemainingSeconds: remaining},
			})
		},
		OnResult: func(orderID uint, outcome autoaccept.Outcome, err error) {
			payload := CountdownPayload{Outcome: outcome}
			if err != nil {
				payload.Error = err.Error()
			}
			s.store.Publish(realtime.Event{
				Topic:   realtime.TopicCountdown,
				Type:    TypeCountdownConcluded,
				OrderID: orderID,
				Payload: payload,
			})
		},
	}
}
