// Package robot puts the sensor, motors, settings and dashboard together and implements every mode
// that can be started from the joystick menu or the serial console.
package robot

import (
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/calvinmclean/linefollower"
	"github.com/calvinmclean/linefollower/follow"
	"github.com/calvinmclean/linefollower/input"
	"github.com/calvinmclean/linefollower/settings"
)

var ErrUnknownMode = errors.New("unknown mode")

// Sensor is everything the modes need from the line sensor
type Sensor interface {
	follow.Sensor
	StartCalibration() error
	CheckCalibration() (bool, error)
	ReadPosition() (int, error)
	SetLED(on bool) error
}

// Drive is everything the modes need from the motors
type Drive interface {
	follow.Drive
	Forward(throttle float64)
	TurnInPlace(degrees float64)
}

// Serial is the console connection. Protocol lines are written to it and commands are read from it.
type Serial interface {
	io.ByteReader
	io.Writer
}

// Clock is used for sleeping between polls
type Clock interface {
	Now() time.Time
	Sleep(time.Duration)
}

// Devices are the hardware adapters used by the Robot
type Devices struct {
	Sensor    Sensor
	Drive     Drive
	Dashboard follow.Dashboard
	Pad       *input.Pad
	// Cancel is checked by running modes in addition to the serial cancel flag. On the robot this is
	// button A.
	Cancel input.Canceler
	Serial Serial
	// SetVerbose is optional. It passes verbose mode on to the hardware drivers.
	SetVerbose func(bool)
}

// Config has timing for the modes
type Config struct {
	Countdown     time.Duration
	CountdownTick time.Duration
	// SensorPeriod is the time between readings when showing the sensor
	SensorPeriod time.Duration
	// MenuPoll is the time between joystick polls in the menu
	MenuPoll time.Duration

	Follow follow.Config
	Clock  Clock
}

// DefaultConfig is used on the robot
var DefaultConfig = Config{
	Countdown:     5 * time.Second,
	CountdownTick: 100 * time.Millisecond,
	SensorPeriod:  100 * time.Millisecond,
	MenuPoll:      50 * time.Millisecond,
	Follow:        follow.DefaultConfig,
}

// calibration sweeps the sensor back and forth over the line until the module reports that it is
// calibrated. The return sweep goes a little farther because the sensor picks up less on that side.
const (
	calibrationStart  = -75
	calibrationSweep  = 150
	calibrationReturn = -160
	calibrationEnd    = 75
	calibrationPause  = 200 * time.Millisecond
	calibrationSweeps = 6
)

type shape struct {
	title    string
	throttle float64
	curve    float64
	duration time.Duration
}

// straight drives about 100cm at 30cm/s
var shapes = map[linefollower.Mode]shape{
	linefollower.ModeDriveStraight: {"Driving Straight 100 cm", 0.6, 0, 100 * time.Second / 30},
	linefollower.ModeCurveLeft:     {"Curving Left", 0.5, -0.2, 2 * time.Second},
	linefollower.ModeCurveRight:    {"Curving Right", 0.5, 0.1, 2 * time.Second},
}

// Robot owns every device and the settings. It is created once in main.
type Robot struct {
	sensor     Sensor
	drive      Drive
	dash       follow.Dashboard
	pad        *input.Pad
	serial     Serial
	cancel     input.Canceler
	setVerbose func(bool)
	settings   *settings.Settings
	follower   *follow.Follower
	clock      Clock
	cfg        Config

	menu    linefollower.Mode
	last    linefollower.Statistics
	hasLast bool
	verbose bool
}

// New creates the Robot. Zero values in cfg use DefaultConfig.
func New(d Devices, s *settings.Settings, cfg Config) *Robot {
	if cfg.Countdown == 0 {
		cfg.Countdown = DefaultConfig.Countdown
	}
	if cfg.CountdownTick == 0 {
		cfg.CountdownTick = DefaultConfig.CountdownTick
	}
	if cfg.SensorPeriod == 0 {
		cfg.SensorPeriod = DefaultConfig.SensorPeriod
	}
	if cfg.MenuPoll == 0 {
		cfg.MenuPoll = DefaultConfig.MenuPoll
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Follow.Clock == nil {
		cfg.Follow.Clock = cfg.Clock
	}
	if cfg.Follow.CountdownTotal == 0 {
		cfg.Follow.CountdownTotal = cfg.Countdown
	}
	if cfg.Follow.CountdownTick == 0 {
		cfg.Follow.CountdownTick = cfg.CountdownTick
	}

	r := &Robot{
		sensor:     d.Sensor,
		drive:      d.Drive,
		dash:       d.Dashboard,
		pad:        d.Pad,
		serial:     d.Serial,
		setVerbose: d.SetVerbose,
		settings:   s,
		clock:      cfg.Clock,
		cfg:        cfg,
		menu:       linefollower.ModeFollowPath,
	}

	cancel := input.Canceler(input.CancelFunc(r.serialCanceled))
	if d.Cancel != nil {
		cancel = input.Any(d.Cancel, cancel)
	}
	r.cancel = cancel

	r.follower = follow.New(d.Sensor, d.Drive, cancel, d.Dashboard, s, cfg.Follow)

	return r
}

// serialCanceled consumes a pending serial byte. Anything other than the cancel flag is dropped while
// a mode is running.
func (r *Robot) serialCanceled() bool {
	b, err := r.serial.ReadByte()
	return err == nil && b == linefollower.CancelFlag
}

func (r *Robot) printLine(line string) {
	_, err := io.WriteString(r.serial, line+"\r\n")
	if err != nil && r.verbose {
		println("error writing to serial:", err.Error())
	}
}

func (r *Robot) log(msg string) {
	if r.verbose {
		println("[" + r.menu.String() + "] " + msg)
	}
}

// ReadByte reads the next command byte from the serial console
func (r *Robot) ReadByte() (byte, error) {
	return r.serial.ReadByte()
}

// RunMode starts a mode and blocks until it is done
func (r *Robot) RunMode(m linefollower.Mode) error {
	r.log("RunMode: " + m.String())
	switch m {
	case linefollower.ModeFollowPath:
		return r.FollowPath()
	case linefollower.ModeCalibrate:
		return r.Calibrate()
	case linefollower.ModeDisplaySensor:
		return r.ShowSensor()
	case linefollower.ModeDriveStraight, linefollower.ModeCurveLeft, linefollower.ModeCurveRight:
		return r.DriveShape(m)
	case linefollower.ModeConfigure:
		r.Configure()
		return nil
	}
	return ErrUnknownMode
}

// countdown gives the user time to place the robot. It returns false if it was canceled.
func (r *Robot) countdown(title string) bool {
	r.dash.ShowStatus(title)
	r.dash.ShowStatus("Starting Soon")

	ok := follow.Countdown(r.clock, r.cancel, r.cfg.Countdown, r.cfg.CountdownTick, func(s int) {
		r.dash.ShowStatus("Starting in " + strconv.Itoa(s))
	})
	if !ok {
		r.dash.ShowStatus(linefollower.StatusCanceled)
	}
	return ok
}

// wait sleeps for d while checking for cancel. It returns false if it was canceled.
func (r *Robot) wait(d time.Duration) bool {
	for elapsed := time.Duration(0); elapsed < d; elapsed += r.cfg.CountdownTick {
		if r.cancel.Canceled() {
			return false
		}
		r.clock.Sleep(min(r.cfg.CountdownTick, d-elapsed))
	}
	return true
}

// FollowPath runs the follower and prints the summary when it is done
func (r *Robot) FollowPath() error {
	r.follower.SetVerbose(r.verbose)

	result, stats, err := r.follower.Run()
	r.log("FollowPath: " + result.String())
	if result != follow.ResultAborted {
		r.last = stats
		r.hasLast = true
		r.printLine(stats.Line())
		r.showSummary(stats)
	}
	return err
}

// Calibrate sweeps the sensor over the line so the module can calibrate itself
func (r *Robot) Calibrate() error {
	if !r.countdown("Calibrate") {
		return nil
	}
	r.dash.ShowStatus("Calibrating...")

	err := r.sensor.StartCalibration()
	if err != nil {
		return err
	}

	r.drive.TurnInPlace(calibrationStart)

	var calibrated bool
	for i := 1; i <= calibrationSweeps; i++ {
		r.dash.ShowStatus("Sweep " + strconv.Itoa(i))

		r.drive.TurnInPlace(calibrationSweep)
		r.clock.Sleep(calibrationPause)
		r.drive.TurnInPlace(calibrationReturn)

		calibrated, err = r.sensor.CheckCalibration()
		if err != nil {
			r.drive.Stop()
			return err
		}
		if calibrated || r.cancel.Canceled() {
			break
		}
	}

	r.drive.TurnInPlace(calibrationEnd)
	r.drive.Stop()

	if calibrated {
		r.printLine(linefollower.PrefixCalibration + " ok")
		r.dash.ShowStatus("Calibrated")
	} else {
		r.printLine(linefollower.PrefixCalibration + " failed")
		r.dash.ShowStatus("Calibration failed")
	}
	return r.drive.Err()
}

// DriveShape drives a fixed pattern to check the motor calibration. Cancel stops the motors
// immediately, otherwise they slow down at the end.
func (r *Robot) DriveShape(m linefollower.Mode) error {
	s, ok := shapes[m]
	if !ok {
		return ErrUnknownMode
	}
	if !r.countdown(m.String()) {
		return nil
	}

	r.dash.ShowStatus(s.title)
	r.drive.Accelerate(s.throttle)
	if s.curve == 0 {
		r.drive.Forward(s.throttle)
	} else {
		r.drive.ForwardCurved(s.throttle, s.curve)
	}

	if r.wait(s.duration) {
		r.drive.Accelerate(0)
	}
	r.drive.Stop()

	return r.drive.Err()
}

// ShowSensor prints the line position until canceled. The robot is moved by hand.
func (r *Robot) ShowSensor() error {
	r.dash.ShowStatus("Manually move robot")
	for !r.cancel.Canceled() {
		p, err := r.sensor.ReadPosition()
		if err != nil {
			return err
		}
		r.printLine(linefollower.PrefixPosition + " " + strconv.Itoa(p))
		r.dash.ShowLinePosition(p)
		r.clock.Sleep(r.cfg.SensorPeriod)
	}
	return nil
}

// Configure lets the joystick change settings. Up and down pick a field and left and right change it.
func (r *Robot) Configure() {
	field := settings.FieldThrottle
	r.dash.ShowStatus("UP / DOWN select param")
	r.dash.ShowStatus("LEFT / RIGHT chg param")
	r.showField(field)

	for !r.cancel.Canceled() {
		pressed := r.pad.Poll()
		switch {
		case pressed.Has(input.ButtonUp):
			field = field.Prev()
		case pressed.Has(input.ButtonDown):
			field = field.Next()
		case pressed.Has(input.ButtonLeft):
			_ = r.settings.Scroll(field, -1)
		case pressed.Has(input.ButtonRight):
			_ = r.settings.Scroll(field, +1)
		default:
			r.clock.Sleep(r.cfg.MenuPoll)
			continue
		}
		r.showField(field)
		r.clock.Sleep(r.cfg.MenuPoll)
	}

	r.printLine(r.settings.Line())
}

func (r *Robot) showField(f settings.Field) {
	r.dash.ShowStatus(f.String() + ": " + r.settings.Label(f))
}

// Scroll changes a setting to the next or previous option
func (r *Robot) Scroll(f settings.Field, dir int) error {
	err := r.settings.Scroll(f, dir)
	if err != nil {
		return err
	}
	r.printLine(r.settings.Line())
	return nil
}

// SetIndex selects a specific option for a setting
func (r *Robot) SetIndex(f settings.Field, i int) error {
	err := r.settings.SetIndex(f, i)
	if err != nil {
		return err
	}
	r.printLine(r.settings.Line())
	return nil
}

// SetLED turns the line sensor's LED on or off
func (r *Robot) SetLED(on bool) error {
	return r.sensor.SetLED(on)
}

// Debug prints the settings and the robot's state
func (r *Robot) Debug() {
	r.printLine(r.settings.Line())
	r.printLine(linefollower.PrefixStatus + " menu=" + strconv.Quote(r.menu.String()) +
		" state=" + r.follower.State().String())
}

// PrintError reports a failed command or mode on the console
func (r *Robot) PrintError(err error) {
	r.printLine(linefollower.PrefixError + " " + err.Error())
}

// Summary prints the statistics of the last run
func (r *Robot) Summary() {
	if !r.hasLast {
		r.printLine(linefollower.PrefixError + " no runs yet")
		return
	}
	r.printLine(r.last.Line())
}

// Version prints the firmware version
func (r *Robot) Version() {
	r.printLine(linefollower.VersionLine())
}

// Verbose turns on extra logging
func (r *Robot) Verbose() {
	r.verbose = true
	r.follower.SetVerbose(true)
	if r.setVerbose != nil {
		r.setVerbose(true)
	}
	println("Set Verbose Mode")
}

// Idle is called when there is no serial input. It polls the joystick for the menu.
func (r *Robot) Idle() {
	pressed := r.pad.Poll()
	switch {
	case pressed.Has(input.ButtonUp):
		r.menu = r.menu.Prev()
		r.showMenu()
	case pressed.Has(input.ButtonDown):
		r.menu = r.menu.Next()
		r.showMenu()
	case pressed.Has(input.ButtonSelect):
		err := r.RunMode(r.menu)
		if err != nil {
			r.PrintError(err)
		}
		r.showMenu()
	}
	r.clock.Sleep(r.cfg.MenuPoll)
}

func (r *Robot) showMenu() {
	r.dash.ShowStatus("> " + r.menu.String())
}

// Menu returns the selected menu item
func (r *Robot) Menu() linefollower.Mode {
	return r.menu
}

// showSummary shows a run summary on the dashboard
func (r *Robot) showSummary(s linefollower.Statistics) {
	r.dash.ShowStatus("Run #: " + strconv.Itoa(s.Run) + " Dur: " + strconv.FormatFloat(s.Duration.Seconds(), 'f', 2, 64) + " s")
	r.dash.ShowStatus("L: " + strconv.Itoa(s.Percent(s.Left)) + " R: " + strconv.Itoa(s.Percent(s.Right)) +
		" G: " + strconv.Itoa(s.Percent(s.OnTrack)) + " OF: " + strconv.Itoa(s.Percent(s.OffTrack)))
	r.dash.ShowStatus("Proc: " + ms(s.AverageProcessing()) + " Free: " + ms(s.FreeTime()))
	r.dash.ShowStatus("Limited: " + strconv.Itoa(s.Percent(s.ReactionLimited)) + "%")
}

func ms(d time.Duration) string {
	return strconv.FormatFloat(float64(d)/float64(time.Millisecond), 'f', 1, 64) + " mS"
}
