// Package app wires the leaf packages (grid, sph, density, foam, renderer)
// into the single-threaded cooperative frame loop spec §5 describes: the
// host side blocks only on device acquisition, the frame-sync tick, and
// command submission, with no other shared state requiring locks.
package app

import "time"

// Clock tracks wall-clock frame timing and applies spec §4.D's
// time-stepping contract: dt is clamped to 1/maxFPS, then scaled by
// timeScale before being divided into substeps by the caller. Grounded on
// the teacher's `mod_time.go` TimeModule, generalized from a fixed 10fps
// floor to the spec's configurable `maxTimestepFPS`.
type Clock struct {
	last       time.Time
	FrameCount uint64
}

// NewClock starts a clock at "now" so the first Tick reports a near-zero dt.
func NewClock() *Clock {
	return &Clock{last: time.Now()}
}

// Tick advances the clock and returns the clamped, scaled dt to feed
// sph.StepFrame (spec §4.D "frame dt is clamped to 1/maxFPS, scaled by
// timeScale").
func (c *Clock) Tick(maxTimestepFPS, timeScale float32) float32 {
	now := time.Now()
	raw := float32(now.Sub(c.last).Seconds())
	c.last = now
	c.FrameCount++

	if maxTimestepFPS > 0 {
		ceiling := 1 / maxTimestepFPS
		if raw > ceiling {
			raw = ceiling
		}
	}
	return raw * timeScale
}
