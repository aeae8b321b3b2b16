package invoice

import (
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/backend-tour/internal/common"
)

// Status is the invoice lifecycle state.
type Status string

const (
	StatusDraft  Status = "draft"
	StatusUnpaid Status = "unpaid"
	StatusSent   Status = "sent"
	StatusPaid   Status = "paid"
)

var (
	// ErrInvalidTransition is returned when a status change is not allowed.
	ErrInvalidTransition = errors.New("invalid invoice status transition")
	// ErrUnknownStatus is returned for a status outside the lifecycle.
	ErrUnknownStatus = errors.New("unknown invoice status")
)

var transitions = map[Status][]Status{
	StatusDraft:  {StatusUnpaid, StatusSent},
	StatusUnpaid: {StatusSent, StatusPaid},
	StatusSent:   {StatusSent, StatusPaid},
	StatusPaid:   nil,
}

// ParseStatus validates a raw status string.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := transitions[s]; !ok {
		return "", common.NewValidationError(fmt.Sprintf("unknown status %q", raw), ErrUnknownStatus)
	}
	return s, nil
}

// CanTransition reports whether from may move to to. Paid is terminal.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition returns to when the move is allowed, otherwise a ConflictError
// wrapping ErrInvalidTransition.
func Transition(from, to Status) (Status, error) {
	if !CanTransition(from, to) {
		return from, common.NewConflictError(fmt.Sprintf("cannot change invoice status from %s to %s", from, to), ErrInvalidTransition)
	}
	return to, nil
}

// InitialStatus resolves the status of a new invoice. New invoices are unpaid
// unless explicitly saved as draft.
func InitialStatus(raw string) (Status, error) {
	if strings.TrimSpace(raw) == "" {
		return StatusUnpaid, nil
	}
	s, err := ParseStatus(raw)
	if err != nil {
		return "", err
	}
	if s != StatusDraft && s != StatusUnpaid {
		return "", common.NewValidationError("new invoices must be draft or unpaid", ErrInvalidTransition)
	}
	return s, nil
}
