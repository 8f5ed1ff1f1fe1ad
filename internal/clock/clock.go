// Package clock abstracts wall-clock time so the Curator's expiration engine
// and maintenance scheduler can run against an offset "virtual" clock during
// Trickle-driven test replay without touching any other code (Design Note
// "Virtual clock").
package clock

import "time"

// Clock is the capability every expiration/maintenance decision goes through.
type Clock interface {
	// Now returns the current instant (wall time in production, offset in test mode).
	Now() time.Time
	// SleepUntil blocks until t, or returns immediately if t is not in the future.
	SleepUntil(t time.Time)
}

// Wall is the production clock: Now() is time.Now(), SleepUntil blocks for real.
type Wall struct{}

func (Wall) Now() time.Time { return time.Now().UTC() }

func (Wall) SleepUntil(t time.Time) {
	d := time.Until(t)
	if d > 0 {
		time.Sleep(d)
	}
}

// Offset is the test-mode clock: virtual_now = wall_now + Delta. Delta is
// read from the Trickle sync file and may be updated concurrently by the
// caller holding a lock; Offset itself does no file I/O.
type Offset struct {
	Delta func() time.Duration
}

func NewOffset(delta time.Duration) *Offset {
	d := delta
	return &Offset{Delta: func() time.Duration { return d }}
}

func (o *Offset) Now() time.Time {
	return time.Now().UTC().Add(o.Delta())
}

// SleepUntil in test mode polls Now() every 10ms of wall time until it
// reaches t, so a change to Delta takes effect on the next poll.
func (o *Offset) SleepUntil(t time.Time) {
	for o.Now().Before(t) {
		time.Sleep(10 * time.Millisecond)
	}
}
