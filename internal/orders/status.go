package orders

import "github.com/ariefcatur/go-catalog-orders/internal/apperr"

type Status string

const (
	StatusCreated   Status = "created"
	StatusConfirmed Status = "confirmed"
	StatusFulfilled Status = "fulfilled"
	StatusCancelled Status = "cancelled"
)

// fulfilled and cancelled are terminal
var validNext = map[Status]map[Status]bool{
	StatusCreated:   {StatusConfirmed: true, StatusCancelled: true},
	StatusConfirmed: {StatusFulfilled: true, StatusCancelled: true},
	StatusFulfilled: {},
	StatusCancelled: {},
}

func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	_, ok := validNext[st]
	return st, ok
}

// CanTransition accepts every listed move plus the self move.
func CanTransition(from, to Status) bool {
	if _, ok := validNext[to]; !ok {
		return false
	}
	return from == to || validNext[from][to]
}

// Transition moves o to the target status. A self move succeeds without
// change; an illegal one returns InvalidTransition and leaves o untouched.
func Transition(o *Order, to Status) (changed bool, err error) {
	if !CanTransition(o.Status, to) {
		return false, apperr.InvalidTransition(string(o.Status), string(to))
	}
	if o.Status == to {
		return false, nil
	}
	o.Status = to
	return true, nil
}
