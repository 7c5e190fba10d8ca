// Package steering maps a line sensor reading to a curve for the differential drive.
//
// It is a proportional-only controller: ReactionRate scales how hard the robot reacts to the line
// moving off center and ReactionLimit caps the result so the robot does not oscillate when it is
// saturated.
package steering

import (
	"errors"
	"math"
	"time"

	"github.com/calvinmclean/linefollower"
)

// Parameters are the tunable values for following a path. They are only changed from the settings
// menu and are read-only to the follow loop.
type Parameters struct {
	Throttle      float64
	LoopPeriod    time.Duration
	ReactionRate  float64
	ReactionLimit float64
}

// Validate checks that the parameters are usable by the loop
func (p Parameters) Validate() error {
	if p.Throttle < 0 || p.Throttle > 1 {
		return errors.New("throttle must be in [0, 1]")
	}
	if p.LoopPeriod <= 0 {
		return errors.New("loop period must be positive")
	}
	if p.ReactionRate <= 0 {
		return errors.New("reaction rate must be positive")
	}
	if p.ReactionLimit <= 0 {
		return errors.New("reaction limit must be positive")
	}
	return nil
}

// Curve calculates the curve using these parameters
func (p Parameters) Curve(position int) (float64, bool) {
	return Curve(position, p.ReactionRate, p.ReactionLimit)
}

// Curve returns the curve for a position and whether it was clamped to the limit. A position below
// center gives a positive curve, which speeds up the left wheel.
func Curve(position int, reactionRate, reactionLimit float64) (float64, bool) {
	curve := -1 * float64(position-linefollower.CenterPosition) / (float64(linefollower.CenterPosition) / reactionRate)

	if math.Abs(curve) > reactionLimit {
		return math.Copysign(reactionLimit, curve), true
	}
	return curve, false
}
