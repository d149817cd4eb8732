package internal

import (
	"context"
	"time"
)

// NewBackoff returns a Backoff waiting minWait after the first miss and
// doubling up to maxWait on consecutive misses.
func NewBackoff(minWait, maxWait time.Duration) Backoff {
	if minWait <= 0 || maxWait < minWait {
		panic("backoff: bad wait bounds")
	}
	return Backoff{
		wait:      minWait,
		maxWait:   maxWait,
		startWait: minWait,
	}
}

// A Backoff with a non-zero maxWait is ready for use.
type Backoff struct {
	// wait defines the amount of time that Miss will wait on next call.
	wait time.Duration
	// Maximum allowable value for wait.
	maxWait time.Duration
	// startWait is the initial wait value, as well as the value that wait takes after a call to Hit.
	startWait time.Duration
}

// Hit resets the wait to its starting value.
func (eb *Backoff) Hit() {
	if eb.maxWait == 0 {
		panic("MaxWait cannot be zero")
	}
	eb.wait = eb.startWait
}

// Wait returns the duration the next call to Miss waits for.
func (eb *Backoff) Wait() time.Duration { return eb.wait }

// Miss waits for the current wait or until ctx is done and increases the wait
// exponentially. It returns ctx.Err() if ctx was done first.
func (eb *Backoff) Miss(ctx context.Context) error {
	if eb.maxWait == 0 {
		panic("MaxWait cannot be zero")
	}
	tm := time.NewTimer(eb.wait)
	defer tm.Stop()
	eb.wait = min(2*eb.wait, eb.maxWait)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-tm.C:
		return nil
	}
}
