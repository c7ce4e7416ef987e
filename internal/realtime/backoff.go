package realtime

import "time"

// Backoff computes the delay before the next reconnect attempt.
type Backoff interface {
	Next(attempt int) time.Duration
}

// FixedBackoff waits the same delay before every attempt.
type FixedBackoff struct {
	Delay time.Duration
}

func (b FixedBackoff) Next(int) time.Duration {
	if b.Delay <= 0 {
		return defaultReconnectDelay
	}
	return b.Delay
}

// ExponentialBackoff grows delays by powers of two, capped at Max.
type ExponentialBackoff struct {
	Base time.Duration
	Max  time.Duration
}

// Next returns the delay for the given attempt (1-based).
func (b ExponentialBackoff) Next(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := b.Base
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	if attempt > 32 {
		attempt = 32
	}
	delay := base << (attempt - 1)
	if delay <= 0 || (b.Max > 0 && delay > b.Max) {
		if b.Max > 0 {
			return b.Max
		}
		return base
	}
	return delay
}
