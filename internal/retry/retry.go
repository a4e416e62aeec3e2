// Package retry provides the backoff strategies used by census_runner: exponential
// backoff for connecting to the state backends and a constant backoff for polling
// a sync run.
package retry

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
)

// Config holds configuration for retry logic
type Config struct {
	MaxAttempts   uint64
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	JitterPercent uint64
}

// PostgreSQLDefaults returns sensible defaults for connecting to the run ledger
func PostgreSQLDefaults() *Config {
	return &Config{
		MaxAttempts:   5,
		BaseDelay:     100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		JitterPercent: 10,
	}
}

// EtcdDefaults returns sensible defaults for connecting to an etcd store
func EtcdDefaults() *Config {
	return &Config{
		MaxAttempts:   5,
		BaseDelay:     200 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		JitterPercent: 15, // Higher jitter for etcd
	}
}

// WithOperation performs a general operation with retry logic
func WithOperation(ctx context.Context, config *Config, operation func() error, operationName string) error {
	backoff := config.CreateBackoff()
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := operation()
		if err != nil {
			logrus.WithError(err).
				WithField("operation", operationName).
				Warn("Operation failed, retrying...")
			return retry.RetryableError(err)
		}
		return nil
	})
}

// CreateBackoff creates a reusable backoff strategy from config
func (c *Config) CreateBackoff() retry.Backoff {
	backoff := retry.NewExponential(c.BaseDelay)
	backoff = retry.WithMaxRetries(c.MaxAttempts, backoff)
	backoff = retry.WithCappedDuration(c.MaxDelay, backoff)
	backoff = retry.WithJitterPercent(c.JitterPercent, backoff)
	return backoff
}

// PollBackoff waits a fixed interval between status checks. maxChecks bounds the
// total number of checks including the first one, 0 means unbounded.
// interval must be positive.
func PollBackoff(interval time.Duration, maxChecks uint64) retry.Backoff {
	backoff := retry.NewConstant(interval)
	if maxChecks > 0 {
		backoff = retry.WithMaxRetries(maxChecks-1, backoff)
	}
	return backoff
}
