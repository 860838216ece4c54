// Package backoff bounds and spaces the retries of a contended CAS loop.
package backoff

import (
	"runtime"
	"time"

	jitter "github.com/jpillora/backoff"
)

// Defaults mirror the page table's CAS retry discipline.
const (
	DefaultMin       = 1 * time.Nanosecond
	DefaultMax       = 1 * time.Millisecond
	DefaultRetryCap  = 100
	DefaultSpinLimit = 10
)

// Controller produces progressively longer jittered waits between CAS
// retries. The first call never waits, matching a writer's first attempt
// at publishing a delta before any contention has been observed.
type Controller struct {
	attempt int
	inner   *jitter.Backoff
}

// New creates a Controller with the given bounds. Waits follow the wrapped
// jpillora/backoff schedule with factor 2 and jitter: the n-th wait is
// drawn uniformly from [min, min*2^(n-1)), so the first wait is exactly
// min, and every wait is capped at max. The jitter lowers a wait below
// its exponential bound; it is not an addend on top of it.
func New(min, max time.Duration) *Controller {
	return &Controller{
		inner: &jitter.Backoff{
			Min:    min,
			Max:    max,
			Factor: 2,
			Jitter: true,
		},
	}
}

// NewDefault creates a Controller using the default bounds.
func NewDefault() *Controller {
	return New(DefaultMin, DefaultMax)
}

// Backoff waits for the current attempt's duration, then advances the
// attempt counter. The zeroth attempt takes no wait at all.
func (c *Controller) Backoff() {
	if c.attempt == 0 {
		c.attempt++
		return
	}
	time.Sleep(c.inner.Duration())
	c.attempt++
}

// Reset zeroes the attempt counter, restarting the backoff schedule.
func (c *Controller) Reset() {
	c.attempt = 0
	c.inner.Reset()
}

// Attempts reports the number of Backoff calls since construction or the
// last Reset.
func (c *Controller) Attempts() int {
	return c.attempt
}

// ShouldRetry reports whether another attempt is permitted under cap.
func (c *Controller) ShouldRetry(cap int) bool {
	return c.attempt < cap
}

// SpinThenBackoff performs up to spinLimit tight CAS-retry iterations
// (yielding the processor between each via runtime.Gosched, standing in
// for a CPU pause hint) before delegating to an exponential-backoff
// Controller. It optimizes low-contention latency without sacrificing
// high-contention throughput.
type SpinThenBackoff struct {
	SpinLimit int
	spins     int
	ctrl      *Controller
}

// NewSpinThenBackoff creates a composite policy with the given spin limit
// and exponential backoff bounds.
func NewSpinThenBackoff(spinLimit int, min, max time.Duration) *SpinThenBackoff {
	return &SpinThenBackoff{
		SpinLimit: spinLimit,
		ctrl:      New(min, max),
	}
}

// Wait performs the next retry step: a tight spin with a pause hint while
// under the spin limit, otherwise an exponential-backoff wait.
func (s *SpinThenBackoff) Wait() {
	if s.spins < s.SpinLimit {
		s.spins++
		runtime.Gosched()
		return
	}
	s.ctrl.Backoff()
}

// Reset zeroes both the spin counter and the underlying Controller.
func (s *SpinThenBackoff) Reset() {
	s.spins = 0
	s.ctrl.Reset()
}

// Attempts reports total retries (spins plus backed-off attempts).
func (s *SpinThenBackoff) Attempts() int {
	return s.spins + s.ctrl.Attempts()
}

// ShouldRetry reports whether another attempt is permitted under cap,
// counting both spin and backoff attempts toward the cap.
func (s *SpinThenBackoff) ShouldRetry(cap int) bool {
	return s.Attempts() < cap
}
