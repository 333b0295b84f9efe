package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrInvalidStateTransition = errors.New("invalid payment state transition")
	ErrConflictingPayment     = errors.New("project already has an active payment")
	ErrStorage                = errors.New("ledger storage failure")
	ErrLedgerInvariant        = errors.New("ledger invariant violated")

	ErrInvalidAmount = errors.New("amount must be positive")
	ErrInvalidInput  = errors.New("invalid input")
	ErrForbidden     = errors.New("forbidden")
	ErrNoAcceptedBid = errors.New("no accepted bid from payee on project")
)

// InsufficientFundsError carries the amounts a failed precondition compared.
type InsufficientFundsError struct {
	Ledger    string
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds on %s ledger: required %s, available %s",
		e.Ledger, e.Required.StringFixed(2), e.Available.StringFixed(2))
}

func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// StorageError wraps a failure of the atomic unit itself (commit, lock wait,
// timeout). Nothing from the unit is visible, so the caller may retry.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrStorage, e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

// NotFoundError names the missing entity.
type NotFoundError struct {
	Entity string
	ID     any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func NotFound(entity string, id any) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// IsRetryable reports whether err belongs to the storage class, the only class
// a caller may safely retry with the same inputs.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorage)
}
