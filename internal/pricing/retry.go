package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/storefront-labs/storefront-backend/internal/cart"
	pkgerrors "github.com/storefront-labs/storefront-backend/pkg/errors"
	"github.com/storefront-labs/storefront-backend/pkg/metrics"
)

// retryingQuoter retries rate-limited quote attempts with a fixed
// backoff. Any other failure propagates immediately.
type retryingQuoter struct {
	inner    Quoter
	attempts int
	backoff  time.Duration
	metrics  *metrics.PricingMetrics
}

// NewRetryingQuoter wraps a quoter with the rate-limit retry policy:
// up to attempts total tries, constant backoff between them.
func NewRetryingQuoter(inner Quoter, attempts int, backoff time.Duration, m *metrics.PricingMetrics) (Quoter, error) {
	if inner == nil {
		return nil, fmt.Errorf("inner quoter required")
	}
	if attempts <= 0 {
		return nil, fmt.Errorf("attempts must be positive")
	}
	if backoff <= 0 {
		return nil, fmt.Errorf("backoff must be positive")
	}
	return &retryingQuoter{
		inner:    inner,
		attempts: attempts,
		backoff:  backoff,
		metrics:  m,
	}, nil
}

func (r *retryingQuoter) Quote(ctx context.Context, itemIDs []uuid.UUID) (*cart.Totals, error) {
	var totals *cart.Totals
	attempt := 0

	backoff := retry.WithMaxRetries(uint64(r.attempts-1), retry.NewConstant(r.backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		quoted, qerr := r.inner.Quote(ctx, itemIDs)
		if qerr != nil {
			if pkgerrors.HasCode(qerr, pkgerrors.CodeRateLimit) {
				if attempt < r.attempts {
					r.metrics.IncRetry()
				}
				return retry.RetryableError(qerr)
			}
			return qerr
		}
		totals = quoted
		return nil
	})
	if err != nil {
		return nil, err
	}
	return totals, nil
}
