// Package motors drives the two wheels of the robot. Throttle values run from -1 (full reverse) to 1
// (full forward). Calibration multipliers are applied only when writing to the hardware, so everything
// reported by the Driver is the requested throttle.
package motors

import (
	"math"
	"time"

	"github.com/benbjohnson/clock"
)

// Motor is a single DC motor
type Motor interface {
	SetThrottle(float64) error
}

// Reporter is notified of every throttle change so it can be shown on the dashboard
type Reporter interface {
	ShowThrottle(left, right float64)
}

// Clock is used for sleeping during acceleration and turns
type Clock interface {
	Now() time.Time
	Sleep(time.Duration)
}

// Throttle is the requested throttle for each side
type Throttle struct {
	Left  float64
	Right float64
}

// Calibration has values that depend on the specific motors and chassis
type Calibration struct {
	// Left and Right are multiplied with the throttle so the robot drives straight
	Left  float64
	Right float64

	// TurnLeft and TurnRight are used instead of Left and Right when turning in place
	TurnLeft  float64
	TurnRight float64

	// SecondsFor360 is how long a full turn in place takes at TurnThrottle
	SecondsFor360 time.Duration
	TurnThrottle  float64

	// MaxDelta is the largest throttle change allowed per Tick when accelerating
	MaxDelta float64
	Tick     time.Duration
}

// DefaultCalibration is measured on the robot with a 6V motor supply
var DefaultCalibration = Calibration{
	Left:          1.0,
	Right:         0.95,
	TurnLeft:      0.80,
	TurnRight:     1.0,
	SecondsFor360: 2500 * time.Millisecond,
	TurnThrottle:  0.25,
	MaxDelta:      0.1,
	Tick:          100 * time.Millisecond,
}

type noopReporter struct{}

var _ Reporter = noopReporter{}

func (noopReporter) ShowThrottle(float64, float64) {}

// Option configures a Driver
type Option func(*Driver)

// WithReporter sets the Reporter for throttle changes
func WithReporter(r Reporter) Option {
	return func(d *Driver) {
		d.reporter = r
	}
}

// WithClock replaces the real clock
func WithClock(c Clock) Option {
	return func(d *Driver) {
		d.clock = c
	}
}

// Driver controls both motors as a differential drive
type Driver struct {
	left, right Motor
	cal         Calibration
	reporter    Reporter
	clock       Clock

	current Throttle
	err     error
}

// New creates a Driver. Both motors start stopped.
func New(left, right Motor, cal Calibration, opts ...Option) *Driver {
	d := &Driver{
		left:     left,
		right:    right,
		cal:      cal,
		reporter: noopReporter{},
		clock:    clock.New(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Throttle returns the current requested throttle
func (d *Driver) Throttle() Throttle {
	return d.current
}

// Err returns the first hardware error since the last call to Err
func (d *Driver) Err() error {
	err := d.err
	d.err = nil
	return err
}

func (d *Driver) apply(t Throttle, calLeft, calRight float64) {
	d.current = t

	d.setMotor(d.left, t.Left*calLeft)
	d.setMotor(d.right, t.Right*calRight)

	d.reporter.ShowThrottle(t.Left, t.Right)
}

func (d *Driver) setMotor(m Motor, v float64) {
	err := m.SetThrottle(clamp(v, -1, 1))
	if err != nil && d.err == nil {
		d.err = err
	}
}

func (d *Driver) set(t Throttle) {
	d.apply(t, d.cal.Left, d.cal.Right)
}

// Forward drives both wheels forward at the same throttle
func (d *Driver) Forward(throttle float64) {
	d.set(Throttle{throttle, throttle})
}

// Backward drives both wheels backward at the same throttle
func (d *Driver) Backward(throttle float64) {
	d.set(Throttle{-throttle, -throttle})
}

// ForwardCurved drives forward while turning. A positive curve speeds up the left wheel and slows the
// right, turning right. Neither wheel goes backward.
func (d *Driver) ForwardCurved(throttle, curve float64) {
	d.set(Throttle{
		Left:  clamp(throttle+throttle*curve/2, 0, 1),
		Right: clamp(throttle-throttle*curve/2, 0, 1),
	})
}

// Accelerate ramps both wheels to the target throttle, changing each by at most MaxDelta per Tick
func (d *Driver) Accelerate(target float64) {
	for math.Abs(target-d.current.Left) > d.cal.MaxDelta || math.Abs(target-d.current.Right) > d.cal.MaxDelta {
		d.set(Throttle{
			Left:  step(d.current.Left, target, d.cal.MaxDelta),
			Right: step(d.current.Right, target, d.cal.MaxDelta),
		})
		d.clock.Sleep(d.cal.Tick)
	}

	d.set(Throttle{target, target})
}

// TurnInPlace spins the robot by the number of degrees and then stops. Negative degrees turn left.
func (d *Driver) TurnInPlace(degrees float64) {
	left := math.Copysign(d.cal.TurnThrottle, degrees)
	d.apply(Throttle{left, -left}, d.cal.TurnLeft, d.cal.TurnRight)

	d.clock.Sleep(time.Duration(math.Abs(degrees) * float64(d.cal.SecondsFor360) / 360))

	d.Stop()
}

// Stop stops both motors immediately without slowing down first
func (d *Driver) Stop() {
	d.set(Throttle{})
}

// step moves current toward target by at most delta
func step(current, target, delta float64) float64 {
	if math.Abs(target-current) <= delta {
		return target
	}
	if target > current {
		return current + delta
	}
	return current - delta
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
