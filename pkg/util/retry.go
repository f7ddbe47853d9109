package util

import (
	"context"
	"math"
	"time"
)

// RetryConfig controls how often a failing call is repeated.
type RetryConfig struct {
	Count int           `yaml:"count" json:"count"`
	Delay time.Duration `yaml:"delay" json:"delay"`
}

// Effector is the function called by Retry
type Effector func(context.Context) error

// Retry wraps effector so that it is re-run up to rc.Count extra times with
// exponential backoff. Waiting between attempts stops when ctx is done.
func Retry(effector Effector, rc RetryConfig) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		for r := 1; ; r++ {
			err := effector(ctx)
			if err == nil || r > rc.Count {
				return err
			}

			delay := getExpBackoff(rc.Delay, r)
			Logger.Warnf("Attempt %d failed (%v), retrying in %v", r, err, delay)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
}

// calculate the exponential delay for a given iteration
// first iteration is 1
func getExpBackoff(initialDelay time.Duration, iteration int) time.Duration {
	if iteration <= 1 {
		return initialDelay
	}
	return time.Duration(math.Pow(2, float64(iteration-1))) * initialDelay
}
