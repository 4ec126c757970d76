package analytics

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retry defaults.
const (
	// DefaultMaxRetries is the default number of retry attempts per Send.
	DefaultMaxRetries = 3

	// DefaultRetryInitialInterval is the default initial backoff delay.
	DefaultRetryInitialInterval = 100 * time.Millisecond

	// DefaultRetryMaxElapsed bounds the total time spent retrying one call.
	DefaultRetryMaxElapsed = 30 * time.Second
)

// RetryConsumer is a Consumer decorator that retries transient Send and
// Flush failures with exponential backoff. Retry policy deliberately lives
// here rather than in the Tracker: the Tracker reports the first failure it
// sees, and callers who want delivery persistence wrap their consumer.
//
// Validation errors and closed-consumer errors are permanent and are never
// retried. Retries stop early when the context is cancelled.
type RetryConsumer struct {
	next            Consumer
	maxRetries      uint64
	initialInterval time.Duration
	maxElapsed      time.Duration
}

// RetryOption configures a RetryConsumer.
type RetryOption func(*RetryConsumer)

// WithMaxRetries sets the number of retry attempts per call.
func WithMaxRetries(n int) RetryOption {
	return func(c *RetryConsumer) {
		if n >= 0 {
			c.maxRetries = uint64(n)
		}
	}
}

// WithRetryInitialInterval sets the initial backoff delay.
func WithRetryInitialInterval(d time.Duration) RetryOption {
	return func(c *RetryConsumer) {
		if d > 0 {
			c.initialInterval = d
		}
	}
}

// WithRetryMaxElapsed bounds the total time spent retrying one call.
func WithRetryMaxElapsed(d time.Duration) RetryOption {
	return func(c *RetryConsumer) {
		if d > 0 {
			c.maxElapsed = d
		}
	}
}

// NewRetryConsumer wraps next in a retrying decorator.
func NewRetryConsumer(next Consumer, opts ...RetryOption) (*RetryConsumer, error) {
	if next == nil {
		return nil, ErrNilConsumer
	}

	c := &RetryConsumer{
		next:            next,
		maxRetries:      DefaultMaxRetries,
		initialInterval: DefaultRetryInitialInterval,
		maxElapsed:      DefaultRetryMaxElapsed,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// newBackOff builds the per-call backoff policy.
func (c *RetryConsumer) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialInterval
	b.MaxElapsedTime = c.maxElapsed
	return backoff.WithContext(backoff.WithMaxRetries(b, c.maxRetries), ctx)
}

// retry runs op under the backoff policy, marking non-retryable SDK errors
// permanent so they surface immediately.
func (c *RetryConsumer) retry(ctx context.Context, op func() error) error {
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if err == ErrConsumerClosed || !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, c.newBackOff(ctx))
}

// Send delivers one record, retrying transient failures.
func (c *RetryConsumer) Send(ctx context.Context, payload []byte) error {
	return c.retry(ctx, func() error {
		return c.next.Send(ctx, payload)
	})
}

// Flush flushes the wrapped consumer, retrying transient failures.
func (c *RetryConsumer) Flush(ctx context.Context) error {
	return c.retry(ctx, func() error {
		return c.next.Flush(ctx)
	})
}

// Close closes the wrapped consumer. Close is not retried.
func (c *RetryConsumer) Close() error {
	return c.next.Close()
}

// Ensure RetryConsumer implements Consumer.
var _ Consumer = (*RetryConsumer)(nil)
