package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnauthorized is returned by Confirm when the token does not match the
// configured confirmation secret. The queue is left untouched.
var ErrUnauthorized = errors.New("unauthorized: confirm token mismatch")

// ErrPositionOpen is returned when an entry is attempted for a symbol that
// already has an open position. Overwriting the tracked position would
// silently lose it, so the engine rejects the second entry instead.
var ErrPositionOpen = errors.New("position already open for symbol")

// ValidationError reports a malformed enqueue payload.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "invalid order: missing " + strings.Join(e.Missing, ", ")
}

// BrokerError wraps a failure from the market/broker collaborator
// (quote lookup or order submission).
type BrokerError struct {
	Op  string // "quote", "entry order", "exit order"
	Err error
}

func (e *BrokerError) Error() string { return fmt.Sprintf("broker: %s: %v", e.Op, e.Err) }
func (e *BrokerError) Unwrap() error { return e.Err }

// IsBrokerError reports whether err is (or wraps) a BrokerError.
func IsBrokerError(err error) bool {
	var be *BrokerError
	return errors.As(err, &be)
}
