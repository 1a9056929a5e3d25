package queue

import (
	"math/rand/v2"
	"time"
)

// DefaultJitter spreads retries of jobs that failed together
const DefaultJitter = 0.2

// Backoff computes retry delays as Base * 2^(attempt-1), capped at Max.
// Jitter in (0, 1] shaves a random share of up to Jitter off each delay.
type Backoff struct {
	Base   time.Duration
	Max    time.Duration
	Jitter float64
}

// DefaultBackoff is 1s doubling up to 5m
func DefaultBackoff() Backoff {
	return Backoff{Base: time.Second, Max: 5 * time.Minute, Jitter: DefaultJitter}
}

// Delay returns the wait before the next try after attempt failed attempts
func (b Backoff) Delay(attempt int) time.Duration {
	return b.jitter(b.ceiling(attempt))
}

func (b Backoff) ceiling(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := b.Base
	for i := 1; i < attempt; i++ {
		d *= 2
		if b.Max > 0 && d >= b.Max {
			return b.Max
		}
		if d <= 0 { // overflow
			return b.Max
		}
	}
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}

func (b Backoff) jitter(d time.Duration) time.Duration {
	if b.Jitter <= 0 || d <= 0 {
		return d
	}
	share := min(b.Jitter, 1)
	spread := int64(float64(d) * share)
	if spread <= 0 {
		return d
	}
	return d - time.Duration(rand.Int64N(spread+1))
}
