package llm

import (
	"context"
	"time"
)

const (
	DefaultRetryMaxAttempts = 3
	DefaultRetryBaseDelay   = time.Second
	DefaultRetryMaxDelay    = 8 * time.Second
)

// RetryPolicy bounds retries of backend calls: delays double from BaseDelay
// up to MaxDelay. A nil Retryable retries every error; the caller's context
// still cuts the loop short.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Retryable   func(error) bool
	OnRetry     func(attempt int, delay time.Duration, err error)
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultRetryMaxAttempts,
		BaseDelay:   DefaultRetryBaseDelay,
		MaxDelay:    DefaultRetryMaxDelay,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	normalized := p
	if normalized.MaxAttempts < 1 {
		normalized.MaxAttempts = DefaultRetryMaxAttempts
	}
	if normalized.BaseDelay <= 0 {
		normalized.BaseDelay = DefaultRetryBaseDelay
	}
	if normalized.MaxDelay < normalized.BaseDelay {
		normalized.MaxDelay = normalized.BaseDelay
	}
	return normalized
}

// Do runs op until it succeeds, the attempt cap is reached, or ctx is done.
// The last error is returned as-is so callers can inspect it.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	policy := p.normalized()

	var lastErr error
	delay := policy.BaseDelay
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if policy.Retryable != nil && !policy.Retryable(lastErr) {
			return lastErr
		}
		if attempt == policy.MaxAttempts {
			return lastErr
		}

		if policy.OnRetry != nil {
			policy.OnRetry(attempt, delay, lastErr)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}

		delay *= 2
		if delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}
	return lastErr
}
