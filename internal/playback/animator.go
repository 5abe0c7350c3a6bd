package playback

import (
	"time"

	"github.com/skywatch-oss/fusion-engine/internal/aircraft"
	"github.com/skywatch-oss/fusion-engine/internal/timeutil"
)

// Animator steps through a recorded frame sequence on a monotonic
// clock: simulated elapsed time is wall elapsed time multiplied by the
// speed setting.
type Animator struct {
	frames []Frame
	clock  timeutil.Clock

	speed     float64
	startWall time.Time
	startSim  time.Time
	playing   bool
}

// NewAnimator builds an animator over frames, which must be ordered by
// timestamp. Speed defaults to 1×.
func NewAnimator(frames []Frame, clock timeutil.Clock) *Animator {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	a := &Animator{frames: frames, clock: clock, speed: 1}
	if len(frames) > 0 {
		a.startSim = frames[0].Timestamp
	}
	return a
}

// Play starts (or resumes) the animation from the current simulated
// position.
func (a *Animator) Play() {
	if a.playing {
		return
	}
	a.startWall = a.clock.Now()
	a.playing = true
}

// Pause freezes the simulated position.
func (a *Animator) Pause() {
	if !a.playing {
		return
	}
	a.startSim = a.simNow()
	a.playing = false
}

// SetSpeed changes the playback multiplier (1, 2, 4, ...) without
// jumping the simulated position.
func (a *Animator) SetSpeed(speed float64) {
	if speed <= 0 {
		return
	}
	a.startSim = a.simNow()
	a.startWall = a.clock.Now()
	a.speed = speed
}

// Seek jumps the simulated position to t.
func (a *Animator) Seek(t time.Time) {
	a.startSim = t
	a.startWall = a.clock.Now()
}

// simNow is the current simulated timestamp.
func (a *Animator) simNow() time.Time {
	if !a.playing {
		return a.startSim
	}
	elapsed := a.clock.Since(a.startWall)
	return a.startSim.Add(time.Duration(float64(elapsed) * a.speed))
}

// Current returns the interpolated snapshot at the animator's present
// simulated time.
func (a *Animator) Current() []aircraft.Position {
	return Snapshot(a.frames, a.simNow())
}

// Finished reports whether the simulated time has run past the last
// recorded frame.
func (a *Animator) Finished() bool {
	if len(a.frames) == 0 {
		return true
	}
	return a.simNow().After(a.frames[len(a.frames)-1].Timestamp)
}
