package router

import (
	"time"

	"github.com/benbjohnson/clock"
)

// RetryPolicy bounds how long a frame waits for its destination to resolve.
type RetryPolicy struct {
	MaxAttempts int           // total table lookups, including the first
	Interval    time.Duration // sleep between two missed lookups
	Clock       clock.Clock
}

// DefaultRetryPolicy is 5 lookups, 10ms apart, on the wall clock.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		Interval:    10 * time.Millisecond,
		Clock:       clock.New(),
	}
}

func (p RetryPolicy) normalize() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.Interval < 0 {
		p.Interval = def.Interval
	}
	if p.Clock == nil {
		p.Clock = def.Clock
	}
	return p
}
