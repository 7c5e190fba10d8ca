package device

import (
	"encoding/binary"
	"errors"
	"time"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/seesaw"

	"github.com/calvinmclean/linefollower/input"
)

const (
	// JoystickAddress is the seesaw on the Mini TFT FeatherWing
	JoystickAddress = 0x5E

	// joystickReadDelay is how long the seesaw needs between selecting the GPIO bulk register and reading it
	joystickReadDelay = 250 * time.Microsecond
)

// joystickPins maps seesaw GPIO numbers to buttons
var joystickPins = []struct {
	pin    uint
	button input.Button
}{
	{7, input.ButtonRight},
	{4, input.ButtonDown},
	{3, input.ButtonLeft},
	{2, input.ButtonUp},
	{11, input.ButtonSelect},
	{10, input.ButtonA},
	{9, input.ButtonB},
}

// Joystick reads the buttons on the seesaw. All buttons are inputs with pull-ups, so a pressed button
// reads low.
type Joystick struct {
	dev     *seesaw.Device
	mask    uint32
	verbose bool
}

// NewJoystick configures the button pins and returns the Joystick
func NewJoystick(bus drivers.I2C) (*Joystick, error) {
	dev := seesaw.New(bus)
	dev.Address = JoystickAddress
	dev.ReadDelay = joystickReadDelay

	j := &Joystick{dev: dev}
	for _, p := range joystickPins {
		j.mask |= 1 << p.pin
	}

	mask := make([]byte, 4)
	binary.BigEndian.PutUint32(mask, j.mask)

	for _, fn := range []seesaw.FunctionAddress{
		seesaw.FunctionGpioDirclrBulk,
		seesaw.FunctionGpioPullenset,
		seesaw.FunctionGpioBulkSet,
	} {
		err := dev.Write(seesaw.ModuleGpioBase, fn, mask)
		if err != nil {
			return nil, errors.New("error configuring joystick: " + err.Error())
		}
	}

	return j, nil
}

// Read returns the buttons that are currently held
func (j *Joystick) Read() (input.Buttons, error) {
	buf := make([]byte, 4)
	err := j.dev.Read(seesaw.ModuleGpioBase, seesaw.FunctionGpioBulk, buf)
	if err != nil {
		return 0, err
	}
	levels := binary.BigEndian.Uint32(buf)

	var b input.Buttons
	for _, p := range joystickPins {
		if levels&(1<<p.pin) == 0 {
			b |= input.Buttons(p.button)
		}
	}
	return b, nil
}

// Buttons is Read for polling. A failed read counts as no buttons held.
func (j *Joystick) Buttons() input.Buttons {
	b, err := j.Read()
	if err != nil {
		if j.verbose {
			println("error reading joystick:", err.Error())
		}
		return 0
	}
	return b
}

// Held returns a level function for a single button
func (j *Joystick) Held(button input.Button) func() bool {
	return func() bool {
		return j.Buttons().Has(button)
	}
}

func (j *Joystick) SetVerbose(v bool) {
	j.verbose = v
}
