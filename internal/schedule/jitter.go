package schedule

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// Jitter is the bounded random delay inserted between a scheduler tick and
// the job action, so that firings don't hit the target site at the exact
// same second every day. Zero Max disables the delay.
type Jitter struct {
	Min time.Duration
	Max time.Duration
}

// Validate checks bound ordering.
func (j Jitter) Validate() error {
	if j.Min < 0 || j.Max < 0 {
		return fmt.Errorf("schedule: negative jitter bounds (%s, %s)", j.Min, j.Max)
	}
	if j.Max > 0 && j.Min > j.Max {
		return fmt.Errorf("schedule: jitter min %s exceeds max %s", j.Min, j.Max)
	}
	return nil
}

// Duration returns a random delay in [Min, Max], or zero if Max is zero.
func (j Jitter) Duration() time.Duration {
	if j.Max <= 0 {
		return 0
	}
	if j.Min >= j.Max {
		return j.Min
	}
	return j.Min + rand.N(j.Max-j.Min)
}

// Sleep blocks for a random delay within the bounds, returning early with
// the context error if ctx is cancelled.
func (j Jitter) Sleep(ctx context.Context) error {
	d := j.Duration()
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
