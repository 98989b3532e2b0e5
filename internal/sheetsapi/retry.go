package sheetsapi

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"google.golang.org/api/googleapi"

	"github.com/clubmint/allowgate/internal/observability"
)

const (
	maxAttempts    = 5
	initialBackoff = 1 * time.Second
	maxBackoff     = 15 * time.Second
	maxJitter      = 250 * time.Millisecond
)

// retrier re-runs Sheets calls that fail with a rate-limit signal. Any
// other failure, or exhaustion of the attempt ceiling, propagates to the
// caller unchanged.
type retrier struct {
	logger  *slog.Logger
	metrics observability.SheetsMetrics

	// sleep is swapped out in tests to capture the schedule.
	sleep func(ctx context.Context, d time.Duration) error
}

func newRetrier(logger *slog.Logger, metrics observability.SheetsMetrics) *retrier {
	return &retrier{logger: logger, metrics: metrics, sleep: sleepContext}
}

func (r *retrier) do(ctx context.Context, call string, fn func() error) error {
	schedule := backoff.NewExponentialBackOff()
	schedule.InitialInterval = initialBackoff
	schedule.Multiplier = 2
	schedule.MaxInterval = maxBackoff
	schedule.RandomizationFactor = 0
	schedule.MaxElapsedTime = 0
	schedule.Reset()

	attempt := 0
	for {
		err := fn()
		if err == nil {
			r.metrics.RecordAPICall(ctx, call, "ok")
			return nil
		}

		attempt++
		if !isRateLimited(err) || attempt >= maxAttempts {
			r.metrics.RecordAPICall(ctx, call, "error")
			return err
		}

		delay := schedule.NextBackOff() + time.Duration(rand.Int63n(int64(maxJitter)))
		r.metrics.RecordRetry(ctx, call)
		r.logger.WarnContext(ctx, "rate limited by Sheets API, backing off",
			slog.String("call", call),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
		)
		if err := r.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// isRateLimited recognizes HTTP 429 responses and the provider's
// resource-exhaustion status.
func isRateLimited(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == 429 {
		return true
	}
	return strings.Contains(err.Error(), "RESOURCE_EXHAUSTED")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
