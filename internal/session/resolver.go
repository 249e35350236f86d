package session

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/tably/checkout/internal/backend"
)

// Errors returned by the resolver. A missing precondition is the caller's
// bug and is reported, never silently ignored.
var (
	ErrRestaurantRequired = errors.New("restaurant id is required")
	ErrTableRequired      = errors.New("table number is required")
)

// TableOrdersFetcher is the slice of the backend client the resolver needs.
type TableOrdersFetcher interface {
	TableOrders(ctx context.Context, restaurantID, tableNumber string) (*backend.TableOrdersSnapshot, error)
}

// Resolution is what checkout needs to know about a table before
// submitting: whether anyone is already dining there.
type Resolution struct {
	HasActiveOrders   bool
	ActiveOrdersCount int
	CurrentSession    *backend.TableSession
}

// Resolver queries the live state of a table. The lookup is read-only and
// idempotent, so transient failures are retried a bounded number of times;
// results are never cached because table state changes between screens.
type Resolver struct {
	fetcher    TableOrdersFetcher
	log        *logrus.Logger
	maxRetries uint64
}

// NewResolver creates a resolver over the given fetcher.
func NewResolver(fetcher TableOrdersFetcher, log *logrus.Logger) *Resolver {
	return &Resolver{fetcher: fetcher, log: log, maxRetries: 2}
}

// Resolve fetches the table's active orders. Client errors from the backend
// (4xx) are permanent; network and server errors are retried with
// exponential backoff before surfacing as a recoverable error.
func (r *Resolver) Resolve(ctx context.Context, restaurantID, tableNumber string) (*Resolution, error) {
	if restaurantID == "" {
		return nil, ErrRestaurantRequired
	}
	if tableNumber == "" {
		return nil, ErrTableRequired
	}

	var snap *backend.TableOrdersSnapshot
	operation := func() error {
		var err error
		snap, err = r.fetcher.TableOrders(ctx, restaurantID, tableNumber)
		if err == nil {
			return nil
		}
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && apiErr.Status < 500 {
			return backoff.Permanent(err)
		}
		r.log.WithError(err).WithFields(logrus.Fields{
			"restaurant": restaurantID,
			"table":      tableNumber,
		}).Warn("table lookup failed, retrying")
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), r.maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}

	return &Resolution{
		HasActiveOrders:   len(snap.ActiveOrders) > 0,
		ActiveOrdersCount: len(snap.ActiveOrders),
		CurrentSession:    snap.CurrentSession,
	}, nil
}
