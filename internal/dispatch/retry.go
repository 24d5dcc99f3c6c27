package dispatch

import (
	"bounty-server/internal/observability"
	"context"
	"fmt"
	"time"
)

// RetryingCashDispatcher wraps a CashDispatcher with bounded retries.
// Only transport errors are retried; once the provider gives a definitive
// answer, success or rejection, it is returned as-is. Retrying after a
// definitive response could pay a claimant twice.
type RetryingCashDispatcher struct {
	inner       CashDispatcher
	maxAttempts int
	backoff     time.Duration
	logger      *observability.Logger
}

// NewRetryingCashDispatcher wraps a cash dispatcher with retry behavior
func NewRetryingCashDispatcher(inner CashDispatcher, maxAttempts int, backoff time.Duration, logger *observability.Logger) *RetryingCashDispatcher {
	return &RetryingCashDispatcher{
		inner:       inner,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		logger:      logger,
	}
}

// TransferCash attempts the transfer, retrying transport failures
func (d *RetryingCashDispatcher) TransferCash(ctx context.Context, params TransferParams) (Result, error) {
	var lastErr error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		result, err := d.inner.TransferCash(ctx, params)
		if err == nil {
			return result, nil
		}
		lastErr = err
		d.logger.InfoWithError(ctx, fmt.Sprintf("cash transfer attempt %d failed", attempt), err)

		if attempt < d.maxAttempts {
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			case <-time.After(d.backoff):
			}
		}
	}
	return Result{}, fmt.Errorf("cash transfer failed after %d attempts: %w", d.maxAttempts, lastErr)
}

// RetryingShipmentDispatcher wraps a ShipmentDispatcher with bounded retries
// under the same rules as RetryingCashDispatcher.
type RetryingShipmentDispatcher struct {
	inner       ShipmentDispatcher
	maxAttempts int
	backoff     time.Duration
	logger      *observability.Logger
}

// NewRetryingShipmentDispatcher wraps a shipment dispatcher with retry behavior
func NewRetryingShipmentDispatcher(inner ShipmentDispatcher, maxAttempts int, backoff time.Duration, logger *observability.Logger) *RetryingShipmentDispatcher {
	return &RetryingShipmentDispatcher{
		inner:       inner,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		logger:      logger,
	}
}

// CreateShipment attempts the shipment, retrying transport failures
func (d *RetryingShipmentDispatcher) CreateShipment(ctx context.Context, params ShipmentParams) (Result, error) {
	var lastErr error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		result, err := d.inner.CreateShipment(ctx, params)
		if err == nil {
			return result, nil
		}
		lastErr = err
		d.logger.InfoWithError(ctx, fmt.Sprintf("shipment attempt %d failed", attempt), err)

		if attempt < d.maxAttempts {
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			case <-time.After(d.backoff):
			}
		}
	}
	return Result{}, fmt.Errorf("shipment failed after %d attempts: %w", d.maxAttempts, lastErr)
}
