package queue

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyInQueue is returned when the patient already holds an active entry
	ErrAlreadyInQueue = errors.New("queue: patient already has an active entry")

	// ErrNotInQueue is returned when the targeted entry no longer exists
	ErrNotInQueue = errors.New("queue: entry no longer exists")
)

// UnavailableError reports a clinic that cannot accept joins right now.
// It is an expected, user-recoverable failure, not an infrastructure fault.
type UnavailableError struct {
	Reason string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("queue: clinic unavailable: %s", e.Reason)
}

// StoreError wraps an I/O fault from the backing store. Handlers surface it
// with a retry affordance rather than a business-rule message.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("queue: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}
