// Package requeue provides a default, standalone RequeueStrategy: an
// exponential backoff by attempt count, capped at a maximum delay and a
// maximum number of attempts after which it gives up (returns nil, i.e.
// "drop").
package requeue

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Strategy computes a requeue delay from a message's attempt count using
// the same exponential-backoff configuration shape as
// github.com/cenkalti/backoff/v5's ExponentialBackOff, without depending
// on that type's stateful NextBackOff call sequence (which is meant for a
// single retrying operation, not for re-deriving the Nth interval out of
// band for an arbitrary attempt count reported by a broker).
type Strategy struct {
	base        time.Duration
	max         time.Duration
	multiplier  float64
	maxAttempts uint16
}

// New returns a Strategy. maxAttempts of 0 means unlimited attempts.
func New(base, max time.Duration, multiplier float64, maxAttempts uint16) *Strategy {
	if base <= 0 {
		base = 1 * time.Second
	}
	if max <= 0 {
		max = 5 * time.Minute
	}
	if multiplier <= 1 {
		multiplier = 1.5
	}
	return &Strategy{base: base, max: max, multiplier: multiplier, maxAttempts: maxAttempts}
}

// ShouldRequeue returns the delay to apply before attempt number attempts
// is redelivered, or nil once maxAttempts has been reached.
func (s *Strategy) ShouldRequeue(attempts uint16) *time.Duration {
	if s.maxAttempts > 0 && attempts >= s.maxAttempts {
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = s.base
	eb.Multiplier = s.multiplier
	eb.MaxInterval = s.max

	d := float64(eb.InitialInterval)
	for i := uint16(0); i < attempts; i++ {
		d *= eb.Multiplier
		if d > float64(eb.MaxInterval) {
			d = float64(eb.MaxInterval)
			break
		}
	}
	delay := time.Duration(d)
	return &delay
}
