package payment

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrCompletionTimeout means the draft did not materialize within the
// configured window. The payment itself succeeded, so callers treat this as
// "still processing", not as a failure.
var ErrCompletionTimeout = errors.New("draft completion timed out")

// DraftStatusFetcher is the slice of the API client the poller needs.
type DraftStatusFetcher interface {
	DraftStatus(ctx context.Context, draftOrderID string) (string, error)
}

// Poller bridges the gap between "processor accepted the charge" and "the
// backend's payment event turned the draft into a real order". It only
// observes; it never retries the payment.
type Poller struct {
	fetcher  DraftStatusFetcher
	interval time.Duration
	log      *logrus.Logger
}

// NewPoller creates a poller querying every interval.
func NewPoller(fetcher DraftStatusFetcher, interval time.Duration, log *logrus.Logger) *Poller {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Poller{fetcher: fetcher, interval: interval, log: log}
}

// Await polls the draft until an order id appears or timeout elapses. The
// timeout differs per flow (30s full guest, 20s quick) and is passed in
// rather than baked here. Individual poll failures are logged and treated
// as "not yet ready"; cancelling ctx stops polling immediately, so a
// navigated-away caller leaves no timer behind.
func (p *Poller) Await(ctx context.Context, draftOrderID string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return "", ErrCompletionTimeout
			}
			return "", ctx.Err()
		case <-ticker.C:
			orderID, err := p.fetcher.DraftStatus(ctx, draftOrderID)
			if err != nil {
				p.log.WithError(err).WithField("draft_order_id", draftOrderID).
					Warn("draft status poll failed")
				continue
			}
			if orderID != "" {
				return orderID, nil
			}
		}
	}
}
