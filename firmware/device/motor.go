//go:build tinygo

package device

import (
	"errors"
	"machine"

	"tinygo.org/x/drivers/l9110x"
)

// PWM is a timer that drives both pins of a motor
type PWM interface {
	l9110x.PWM
	Configure(machine.PWMConfig) error
	Channel(machine.Pin) (uint8, error)
}

var machinePWMConfig = machine.PWMConfig{Period: 1e9 / 1600}

// Motor drives one wheel through an L9110 style driver. Speed is a percentage of full PWM.
type Motor struct {
	dev l9110x.PWMDevice
}

// NewMotor configures the PWM channels for both pins of the motor
func NewMotor(cfg MotorConfig) (*Motor, error) {
	err := cfg.PWM.Configure(machinePWMConfig)
	if err != nil {
		return nil, errors.New("error configuring pwm: " + err.Error())
	}

	ca, err := cfg.PWM.Channel(cfg.PinA)
	if err != nil {
		return nil, errors.New("error getting pwm channel: " + err.Error())
	}
	cb, err := cfg.PWM.Channel(cfg.PinB)
	if err != nil {
		return nil, errors.New("error getting pwm channel: " + err.Error())
	}

	m := &Motor{dev: l9110x.NewWithSpeed(ca, cb, cfg.PWM)}
	err = m.dev.Configure()
	if err != nil {
		return nil, errors.New("error configuring motor: " + err.Error())
	}
	return m, nil
}

// SetThrottle runs the motor forward for positive values and backward for negative ones
func (m *Motor) SetThrottle(t float64) error {
	speed := uint32(100*abs(t) + 0.5)
	switch {
	case speed == 0:
		m.dev.Stop()
	case t > 0:
		m.dev.Forward(speed)
	default:
		m.dev.Backward(speed)
	}
	return nil
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
