package service

import (
	"context"
	"errors"
	"time"

	"gigwallet/internal/domain"
)

var callerErrors = []error{
	domain.ErrNotFound,
	domain.ErrInsufficientFunds,
	domain.ErrInvalidStateTransition,
	domain.ErrConflictingPayment,
	domain.ErrInvalidAmount,
	domain.ErrInvalidInput,
	domain.ErrForbidden,
	domain.ErrNoAcceptedBid,
	domain.ErrStorage,
	domain.ErrLedgerInvariant,
}

// storageErr passes domain errors through. Anything else, including context
// expiry, becomes a retryable storage failure.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, target := range callerErrors {
		if errors.Is(err, target) {
			return err
		}
	}
	return &domain.StorageError{Op: op, Err: err}
}

// unitContext bounds one atomic unit. A parent deadline that is already
// earlier wins.
func unitContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
