//go:build tinygo

package device

import (
	"machine"
	"time"

	"tinygo.org/x/drivers"

	"github.com/calvinmclean/linefollower/motors"
)

// MotorConfig is the PWM and the two input pins of one side of the motor driver
type MotorConfig struct {
	PWM  PWM
	PinA machine.Pin
	PinB machine.Pin
}

// DisplayConfig has the pins for the ST7735 on the Mini TFT FeatherWing. The reset and backlight are
// controlled by the seesaw, so they are usually NoPin.
type DisplayConfig struct {
	SPI       drivers.SPI
	DC        machine.Pin
	CS        machine.Pin
	Reset     machine.Pin
	Backlight machine.Pin
}

// SensorConfig has values for the line sensor on the shared I2C bus
type SensorConfig struct {
	Address        uint16
	AcquireTimeout time.Duration
}

// Config has everything needed to set up the robot's hardware
type Config struct {
	I2C          drivers.I2C
	LeftMotor    MotorConfig
	RightMotor   MotorConfig
	Display      DisplayConfig
	Sensor       SensorConfig
	Calibration  motors.Calibration
	EnableScreen bool
}
