//go:build tinygo

package main

import (
	"machine"

	"github.com/calvinmclean/linefollower/firmware/commands"
	"github.com/calvinmclean/linefollower/firmware/device"
	"github.com/calvinmclean/linefollower/motors"
	"github.com/calvinmclean/linefollower/robot"
	"github.com/calvinmclean/linefollower/settings"
)

func main() {
	err := machine.I2C0.Configure(machine.I2CConfig{
		SCL:       machine.SCL_PIN,
		SDA:       machine.SDA_PIN,
		Frequency: 400 * machine.KHz,
	})
	if err != nil {
		panic(err)
	}

	err = machine.SPI0.Configure(machine.SPIConfig{
		SCK:       machine.SPI0_SCK_PIN,
		SDO:       machine.SPI0_SDO_PIN,
		SDI:       machine.SPI0_SDI_PIN,
		Frequency: 16 * machine.MHz,
	})
	if err != nil {
		panic(err)
	}

	cfg := device.Config{
		I2C: machine.I2C0,
		LeftMotor: device.MotorConfig{
			PWM:  machine.TCC0,
			PinA: machine.D10,
			PinB: machine.D9,
		},
		RightMotor: device.MotorConfig{
			PWM:  machine.TCC1,
			PinA: machine.D11,
			PinB: machine.D12,
		},
		Display: device.DisplayConfig{
			SPI:       machine.SPI0,
			DC:        machine.D6,
			CS:        machine.D5,
			Reset:     machine.NoPin,
			Backlight: machine.NoPin,
		},
		Calibration:  motors.DefaultCalibration,
		EnableScreen: true,
	}

	s := settings.New()

	d, err := device.New(cfg, s)
	if err != nil {
		panic(err)
	}

	r := robot.New(d.Robot(), s, robot.DefaultConfig)

	commands.Run(r)
}
