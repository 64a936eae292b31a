package service

import (
	"context"
	"fmt"
	"fyrewiki/internal/config"
	"fyrewiki/internal/logger"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy is a bounded, constant-delay retry for store reads.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// NewRetryPolicy builds a policy from config, falling back to one attempt.
func NewRetryPolicy(cfg config.RetryConfig) RetryPolicy {
	p := RetryPolicy{Attempts: cfg.Attempts, Delay: cfg.Delay}
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	return p
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	var b backoff.BackOff = backoff.NewConstantBackOff(p.Delay)
	b = backoff.WithMaxRetries(b, uint64(p.Attempts-1))
	return backoff.WithContext(b, ctx)
}

// withRetry runs op until it succeeds, the attempts run out, or ctx ends.
func withRetry[T any](ctx context.Context, p RetryPolicy, log logger.Logger, what string, op func() (T, error)) (T, error) {
	attempt := 0
	notify := func(err error, next time.Duration) {
		attempt++
		log.Warn(fmt.Sprintf("Retrying %s after %s (attempt %d of %d): %v", what, next, attempt+1, p.Attempts, err))
	}
	return backoff.RetryNotifyWithData(op, p.backOff(ctx), notify)
}
