package customerr

import (
	"fmt"
	"strconv"
)

// ValidationError reports malformed or missing request input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

// AuthorizationError reports a requester acting on a resource they do not own.
type AuthorizationError struct {
	Err string
}

func (e *AuthorizationError) Error() string {
	return e.Err
}

// NotFoundError reports a missing record.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return e.Entity + " " + strconv.FormatInt(e.ID, 10) + " not found"
}

// InsufficientFundsError aborts a debit that exceeds the wallet balance.
type InsufficientFundsError struct {
	Balance   float64
	Requested float64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: balance %.2f, requested %.2f", e.Balance, e.Requested)
}

// DataAccessError wraps an underlying store failure. It is never retried;
// the caller decides what to do with it.
type DataAccessError struct {
	Op  string
	Err error
}

func (e *DataAccessError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *DataAccessError) Unwrap() error {
	return e.Err
}
