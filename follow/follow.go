// Package follow runs the path-following loop. Each iteration reads the line position, steers toward
// the line and then sleeps for the rest of the loop period. The loop runs until it is canceled.
package follow

import (
	"fmt"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/calvinmclean/linefollower"
	"github.com/calvinmclean/linefollower/input"
	"github.com/calvinmclean/linefollower/steering"
)

// Sensor is the non-blocking part of the line sensor client
type Sensor interface {
	StartPositionRead() error
	IsPositionReady() (bool, error)
	Position() (int, error)
}

// Drive is the part of the motor driver used while following a path
type Drive interface {
	Accelerate(throttle float64)
	ForwardCurved(throttle, curve float64)
	Stop()
	Err() error
}

// Dashboard shows progress to the user
type Dashboard interface {
	ShowLinePosition(position int)
	ShowStatus(text string)
}

// ParameterSource provides the current parameters. It is read once per loop iteration, so changes
// take effect on the next loop.
type ParameterSource interface {
	Parameters() steering.Parameters
	DisplayEnabled() bool
}

// Clock is used for all timing in the loop
type Clock interface {
	Now() time.Time
	Sleep(time.Duration)
}

// State is the current stage of a run
type State int

const (
	StateIdle State = iota
	StateCountdown
	StateRunning
	StateCanceled
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateCountdown:
		return "Countdown"
	case StateRunning:
		return "Running"
	case StateCanceled:
		return "Canceled"
	case StateFaulted:
		return "Faulted"
	default:
		fallthrough
	case StateIdle:
		return "Idle"
	}
}

// Result is how a run ended
type Result int

const (
	// ResultAborted means the run was canceled during the countdown and the motors never moved
	ResultAborted Result = iota
	// ResultStopped means the run was canceled while following the path
	ResultStopped
	// ResultFault means the run stopped because of a hardware error
	ResultFault
)

func (r Result) String() string {
	switch r {
	case ResultAborted:
		return "Aborted"
	case ResultStopped:
		return "Stopped"
	case ResultFault:
		return "Fault"
	}
	return "Unknown"
}

// Config has the timing for a run
type Config struct {
	// CountdownTotal is how long to wait before starting so the robot can be placed on the track
	CountdownTotal time.Duration
	// CountdownTick is how often cancel is checked during the countdown
	CountdownTick time.Duration
	// MinSleep is slept at the end of each loop even if the loop overran its period
	MinSleep time.Duration
	// ReadyPoll is slept between sensor readiness checks. Zero spins.
	ReadyPoll time.Duration
	// Polarity is multiplied with the steering curve. Use -1 if the sensor is mounted reversed.
	Polarity float64

	Clock   Clock
	Verbose bool
}

// DefaultConfig has the timing used on the robot
var DefaultConfig = Config{
	CountdownTotal: 5 * time.Second,
	CountdownTick:  100 * time.Millisecond,
	MinSleep:       time.Millisecond,
	Polarity:       1,
}

// Follower runs follow-path runs
type Follower struct {
	sensor Sensor
	drive  Drive
	cancel input.Canceler
	dash   Dashboard
	params ParameterSource
	cfg    Config

	state State
	run   int
	stats linefollower.Statistics
}

// New creates a Follower. Zero values in cfg use DefaultConfig.
func New(sensor Sensor, drive Drive, cancel input.Canceler, dash Dashboard, params ParameterSource, cfg Config) *Follower {
	if cfg.CountdownTotal == 0 {
		cfg.CountdownTotal = DefaultConfig.CountdownTotal
	}
	if cfg.CountdownTick == 0 {
		cfg.CountdownTick = DefaultConfig.CountdownTick
	}
	if cfg.MinSleep == 0 {
		cfg.MinSleep = DefaultConfig.MinSleep
	}
	if cfg.Polarity == 0 {
		cfg.Polarity = DefaultConfig.Polarity
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}

	return &Follower{
		sensor: sensor,
		drive:  drive,
		cancel: cancel,
		dash:   dash,
		params: params,
		cfg:    cfg,
	}
}

// SetVerbose enables printing timing for every loop
func (f *Follower) SetVerbose(v bool) {
	f.cfg.Verbose = v
}

// State returns the state of the current or last run
func (f *Follower) State() State {
	return f.state
}

// Statistics returns the statistics of the current or last run
func (f *Follower) Statistics() linefollower.Statistics {
	return f.stats
}

// Countdown waits for total while checking cancel every tick. onSecond is called with the number of
// seconds left at the start of each second. It returns false if it was canceled.
func Countdown(clk Clock, cancel input.Canceler, total, tick time.Duration, onSecond func(int)) bool {
	if tick <= 0 {
		tick = total
	}

	nextSecond := time.Duration(0)
	for elapsed := time.Duration(0); elapsed < total; elapsed += tick {
		if elapsed >= nextSecond && onSecond != nil {
			onSecond(int((total - elapsed + time.Second - 1) / time.Second))
			nextSecond += time.Second
		}

		if cancel.Canceled() {
			return false
		}
		clk.Sleep(min(tick, total-elapsed))
	}
	return true
}

// Run does a full run: countdown, accelerate and then follow the line until canceled. The returned
// statistics are final.
func (f *Follower) Run() (Result, linefollower.Statistics, error) {
	f.run++
	f.stats = linefollower.Statistics{Run: f.run}
	f.state = StateCountdown

	f.dash.ShowStatus("Run # " + strconv.Itoa(f.run))
	f.dash.ShowStatus("Starting Soon")

	started := Countdown(f.cfg.Clock, f.cancel, f.cfg.CountdownTotal, f.cfg.CountdownTick, func(s int) {
		f.dash.ShowStatus("Starting in " + strconv.Itoa(s))
	})
	if !started {
		f.state = StateCanceled
		f.dash.ShowStatus(linefollower.StatusCanceled)
		return ResultAborted, f.stats, nil
	}

	params := f.params.Parameters()
	err := params.Validate()
	if err != nil {
		f.state = StateFaulted
		return ResultFault, f.stats, fmt.Errorf("invalid parameters: %w", err)
	}

	f.dash.ShowStatus(linefollower.StatusFollowing)
	f.state = StateRunning

	f.drive.Accelerate(params.Throttle)

	// prime the pipeline so the first loop has a reading in flight
	err = f.sensor.StartPositionRead()
	if err != nil {
		return f.fault(err)
	}

	runStart := f.cfg.Clock.Now()
	for {
		start := f.cfg.Clock.Now()

		if f.cancel.Canceled() {
			f.drive.Stop()
			f.stats.Duration = f.cfg.Clock.Now().Sub(runStart)
			f.state = StateCanceled
			f.dash.ShowStatus("Stopped")
			return ResultStopped, f.stats, nil
		}

		params = f.params.Parameters()
		f.stats.LoopPeriod = params.LoopPeriod

		position, err := f.nextPosition()
		if err != nil {
			f.stats.Duration = f.cfg.Clock.Now().Sub(runStart)
			return f.fault(err)
		}

		curve, limited := params.Curve(position)
		f.drive.ForwardCurved(params.Throttle, f.cfg.Polarity*curve)

		f.stats.Record(position, limited)

		if f.params.DisplayEnabled() {
			f.dash.ShowLinePosition(position)
		}

		err = f.drive.Err()
		if err != nil {
			f.stats.Duration = f.cfg.Clock.Now().Sub(runStart)
			return f.fault(err)
		}

		elapsed := f.cfg.Clock.Now().Sub(start)
		f.stats.ProcessingTime += elapsed
		if f.cfg.Verbose {
			println("loop", f.stats.Loops, "position", position, "elapsed", elapsed.String())
		}

		sleep := params.LoopPeriod - elapsed
		if sleep < f.cfg.MinSleep {
			sleep = f.cfg.MinSleep
		}
		f.cfg.Clock.Sleep(sleep)
	}
}

// nextPosition waits for the outstanding read, fetches it and immediately starts the next one so the
// sensor works while the rest of the loop runs
func (f *Follower) nextPosition() (int, error) {
	for {
		ready, err := f.sensor.IsPositionReady()
		if err != nil {
			return 0, err
		}
		if ready {
			break
		}
		if f.cfg.ReadyPoll > 0 {
			f.cfg.Clock.Sleep(f.cfg.ReadyPoll)
		}
	}

	position, err := f.sensor.Position()
	if err != nil {
		return 0, err
	}

	err = f.sensor.StartPositionRead()
	if err != nil {
		return 0, err
	}

	return position, nil
}

func (f *Follower) fault(err error) (Result, linefollower.Statistics, error) {
	f.drive.Stop()
	f.state = StateFaulted
	f.dash.ShowStatus("Fault")
	return ResultFault, f.stats, fmt.Errorf("error following path: %w", err)
}
