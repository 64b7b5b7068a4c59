// Package retry implements the engine's shared exponential-backoff
// retry policy (§4.5.1, §7), built on github.com/cenkalti/backoff/v4.
package retry

import (
	"context"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/voxelforge/launcher-core/internal/launchererr"
)

// Policy configures retry behavior. The zero value runs op once with
// no retries; DefaultPolicy returns the engine's standard settings.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultPolicy matches §4.5.1: up to 3 retries, 500ms base delay,
// jittered ±25% via exponential backoff.
func DefaultPolicy() Policy {
	return Policy{MaxRetries: 3, BaseDelay: 500 * time.Millisecond}
}

func (p Policy) backoff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.BaseDelay
	eb.RandomizationFactor = 0.25
	eb.Multiplier = 2.0
	eb.MaxElapsedTime = 0 // bounded by MaxRetries via WithMaxRetries below
	return backoff.WithMaxRetries(eb, uint64(p.MaxRetries))
}

// Do runs op, retrying per Policy whenever op returns a retryable
// *launchererr.Error (per launchererr.Retryable) or a
// KindChecksumMismatch once. ctx cancellation aborts the retry loop
// immediately with a KindCancelled error.
func (p Policy) Do(ctx context.Context, op func() error) error {
	checksumRetried := false
	attempt := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(launchererr.New(launchererr.KindCancelled, ""))
		}
		err := op()
		if err == nil {
			return nil
		}
		kind, ok := launchererr.KindOf(err)
		if ok && kind == launchererr.KindChecksumMismatch {
			if checksumRetried {
				return backoff.Permanent(err)
			}
			checksumRetried = true
			return err
		}
		if !launchererr.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, d time.Duration) {
		// jitter is already applied by the exponential backoff; nothing
		// further to compute here. Hook retained for future metrics.
		_ = err
		_ = d
	}

	err := backoff.RetryNotify(attempt, backoff.WithContext(p.backoff(), ctx), notify)
	if err != nil && err == ctx.Err() {
		return launchererr.Wrap(launchererr.KindCancelled, "", err)
	}
	return err
}

// jitter returns d scaled by a uniform random factor in
// [1-frac, 1+frac], for a caller that sleeps between attempts outside
// of Do. Do itself does not use it: its exponential backoff applies
// its own randomization.
func jitter(d time.Duration, frac float64) time.Duration {
	if frac <= 0 {
		return d
	}
	delta := (rand.Float64()*2 - 1) * frac
	return time.Duration(float64(d) * (1 + delta))
}

// Jitter exports jitter. No package in this module calls it; the
// manifest client retries through Policy.Do.
func Jitter(d time.Duration, frac float64) time.Duration { return jitter(d, frac) }
