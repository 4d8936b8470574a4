// Package retry provides backoff policy values for retry loops. Callers own
// the loop; a Policy only answers how long to wait before each attempt.
package retry

import (
	"math/rand"
	"time"
)

// Policy describes a bounded exponential backoff.
type Policy struct {
	MaxAttempts int           // total attempts, not retries
	BaseDelay   time.Duration // delay before the second attempt
	MaxDelay    time.Duration // backoff cap
	Jitter      float64       // 0..1 fraction of the delay randomized
}

// Delay returns the wait before the given 1-based attempt. Attempt 1 has no
// delay.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	d := p.BaseDelay << uint(attempt-2)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.Jitter > 0 {
		d += time.Duration(p.Jitter * rand.Float64() * float64(d))
	}
	return d
}
