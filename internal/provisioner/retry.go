package provisioner

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/streamforge/channelctl/internal/logging"
)

// retryEnvelope wraps operation in a bounded exponential backoff, logging
// each retry with its attempt index and error (spec §4.2 Retry envelope).
// Delays are strictly non-decreasing and the total retry budget is bounded
// by maxRetries; cancellation of ctx aborts the envelope immediately.
func retryEnvelope(ctx context.Context, log logging.Logger, maxRetries int, onRetry func(), operation func() error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 250 * time.Millisecond
	eb.Multiplier = 2.0
	eb.RandomizationFactor = 0 // no jitter, so each delay is at least the previous one
	eb.MaxElapsedTime = 0      // bounded by MaxRetries below, not wall-clock

	bounded := backoff.WithMaxRetries(eb, uint64(maxRetries))
	withCtx := backoff.WithContext(bounded, ctx)

	attempt := 0
	notify := func(err error, wait time.Duration) {
		attempt++
		log.Warn("provisioner: engine call failed, retrying",
			"attempt", attempt, "wait", wait.String(), "error", err)
		if onRetry != nil {
			onRetry()
		}
	}

	return backoff.RetryNotify(operation, withCtx, notify)
}
