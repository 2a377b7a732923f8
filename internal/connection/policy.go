package connection

import (
	"math"
	"time"
)

// RetryPolicy decides whether another reconnect attempt is made. The zero
// value allows unlimited retries.
type RetryPolicy struct {
	limit   int
	limited bool
	allow   func(retries int) bool
}

// UnlimitedRetries never gives up.
func UnlimitedRetries() RetryPolicy {
	return RetryPolicy{}
}

// MaxRetries allows n consecutive attempts. A negative n is unlimited.
func MaxRetries(n int) RetryPolicy {
	if n < 0 {
		return UnlimitedRetries()
	}
	return RetryPolicy{limit: n, limited: true}
}

// RetryWhile delegates the decision to fn, called with the number of
// attempts already made since the last successful open.
func RetryWhile(fn func(retries int) bool) RetryPolicy {
	return RetryPolicy{allow: fn}
}

// Allow reports whether a retry may follow the given attempt count.
func (p RetryPolicy) Allow(retries int) bool {
	switch {
	case p.allow != nil:
		return p.allow(retries)
	case !p.limited:
		return true
	default:
		return retries < p.limit
	}
}

// Backoff resolves the delay before a reconnect attempt. The zero value
// waits DefaultReconnectDelay.
type Backoff struct {
	fixed time.Duration
	set   bool
	fn    func(retries int) time.Duration
}

// FixedDelay waits d before every attempt.
func FixedDelay(d time.Duration) Backoff {
	if d < 0 {
		d = 0
	}
	return Backoff{fixed: d, set: true}
}

// DelayFunc computes the delay from the attempt number (1 for the first retry).
func DelayFunc(fn func(retries int) time.Duration) Backoff {
	return Backoff{fn: fn, set: fn != nil}
}

// ExponentialDelay doubles base for every attempt, capped at max. A max of
// zero or less means no cap.
func ExponentialDelay(base, max time.Duration) Backoff {
	return DelayFunc(func(retries int) time.Duration {
		wait := base
		for i := 1; i < retries; i++ {
			wait *= 2
			if wait <= 0 {
				// Overflow
				if max > 0 {
					return max
				}
				return time.Duration(math.MaxInt64)
			}
			if max > 0 && wait >= max {
				return max
			}
		}
		if max > 0 && wait > max {
			return max
		}
		return wait
	})
}

// Duration returns the delay for the given attempt number.
func (b Backoff) Duration(retries int) time.Duration {
	if !b.set {
		return DefaultReconnectDelay
	}
	if b.fn != nil {
		if d := b.fn(retries); d > 0 {
			return d
		}
		return 0
	}
	return b.fixed
}
