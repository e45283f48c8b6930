package order

import "fmt"

// Status is the order lifecycle state.
type Status string

const (
	// StatusPending is a COD order awaiting code verification. Stock is not
	// yet decremented and the order is invisible to fulfilment.
	StatusPending Status = "PENDING"
	// StatusProcessing is a confirmed-for-payment or verified order queued
	// for fulfilment.
	StatusProcessing Status = "PROCESSING"
	StatusConfirmed  Status = "CONFIRMED"
	StatusDispatched Status = "DISPATCHED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

// rank orders the forward progression. CANCELLED sits outside the ladder.
var rank = map[Status]int{
	StatusPending:    0,
	StatusProcessing: 1,
	StatusConfirmed:  2,
	StatusDispatched: 3,
	StatusDelivered:  4,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	if s == StatusCancelled {
		return true
	}
	_, ok := rank[s]
	return ok
}

// CanTransition reports whether moving from s to next is legal: one forward
// step at a time, or cancellation before dispatch.
func (s Status) CanTransition(next Status) bool {
	if next == StatusCancelled {
		return s == StatusPending || s == StatusProcessing || s == StatusConfirmed
	}
	from, ok := rank[s]
	if !ok {
		return false
	}
	to, ok := rank[next]
	if !ok {
		return false
	}
	return to == from+1
}

// Transition validates and returns the next status.
func (s Status) Transition(next Status) (Status, error) {
	if !next.Valid() {
		return s, fmt.Errorf("unknown order status %q", next)
	}
	if !s.CanTransition(next) {
		return s, fmt.Errorf("illegal order transition %s -> %s", s, next)
	}
	return next, nil
}
