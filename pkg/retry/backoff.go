package retry

import (
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// backOffFor builds the exponential schedule for a policy. A zero
// MaxElapsedTime leaves the schedule itself unbounded; attempt and context
// limits are layered on by the caller.
func backOffFor(policy Policy) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = policy.InitialInterval
	exp.MaxInterval = policy.MaxInterval
	exp.Multiplier = policy.Multiplier
	exp.MaxElapsedTime = policy.MaxElapsedTime
	return exp
}

// delayForAttempt recomputes the schedule's upcoming delay so retry
// callbacks can log it, capped at the policy's MaxInterval.
func delayForAttempt(attempt int, policy Policy) time.Duration {
	delay := float64(policy.InitialInterval) * math.Pow(policy.Multiplier, float64(attempt))
	if delay > float64(policy.MaxInterval) {
		return policy.MaxInterval
	}
	return time.Duration(delay)
}
