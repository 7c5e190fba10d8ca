//go:build tinygo

package device

import (
	"errors"
	"machine"

	"github.com/benbjohnson/clock"

	"github.com/calvinmclean/linefollower/input"
	"github.com/calvinmclean/linefollower/linesense"
	"github.com/calvinmclean/linefollower/motors"
	"github.com/calvinmclean/linefollower/robot"
	"github.com/calvinmclean/linefollower/settings"
)

// Device owns the robot's hardware: the line sensor and joystick on the shared I2C bus, both motors and
// the screen
type Device struct {
	Sensor    *linesense.Client
	Drive     *motors.Driver
	Dashboard *Dashboard
	Joystick  *Joystick
	// Display is nil when the screen is disabled
	Display *Display
}

// New sets up the hardware. The settings control whether the dashboard is drawn during runs.
func New(cfg Config, s *settings.Settings) (*Device, error) {
	clk := clock.New()

	timeout := cfg.Sensor.AcquireTimeout
	if timeout == 0 {
		timeout = linesense.DefaultAcquireTimeout
	}
	bus := linesense.NewBus(cfg.I2C, timeout, clk)

	joystick, err := NewJoystick(bus)
	if err != nil {
		return nil, err
	}

	sensor, err := linesense.New(bus, linesense.Config{
		Address:        cfg.Sensor.Address,
		AcquireTimeout: timeout,
		Clock:          clk,
	})
	if err != nil {
		return nil, errors.New("error creating line sensor: " + err.Error())
	}

	left, err := NewMotor(cfg.LeftMotor)
	if err != nil {
		return nil, errors.New("error creating left motor: " + err.Error())
	}
	right, err := NewMotor(cfg.RightMotor)
	if err != nil {
		return nil, errors.New("error creating right motor: " + err.Error())
	}

	var display *Display
	var gauges Gauges
	if cfg.EnableScreen {
		display = NewDisplay(cfg.Display)
		gauges = display
	}
	dash := NewDashboard(machine.Serial, gauges, s)

	drive := motors.New(left, right, cfg.Calibration,
		motors.WithReporter(dash),
		motors.WithClock(clk),
	)

	return &Device{
		Sensor:    sensor,
		Drive:      drive,
		Dashboard:  dash,
		Joystick:  joystick,
		Display:   display,
	}, nil
}

// Robot returns the adapters used by the robot's modes. Button A cancels a running mode.
func (d *Device) Robot() robot.Devices {
	cancel := input.NewEdge(d.Joystick.Held(input.ButtonA))

	return robot.Devices{
		Sensor:     d.Sensor,
		Drive:      d.Drive,
		Dashboard:  d.Dashboard,
		Pad:        input.NewPad(d.Joystick.Buttons),
		Cancel:     input.CancelFunc(cancel.Pressed),
		Serial:     machine.Serial,
		SetVerbose: func(v bool) {
			d.Joystick.SetVerbose(v)
			if d.Display != nil {
				d.Display.SetVerbose(v)
			}
		},
	}
}
