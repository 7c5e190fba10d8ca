package commands

import (
	"errors"

	"github.com/calvinmclean/linefollower"
	"github.com/calvinmclean/linefollower/settings"
)

type Command struct {
	Flag        byte
	InputSize   uint
	Run         func(Controller, []byte) error
	Description string
}

// Controller is used to control a device
type Controller interface {
	FollowPath() error
	Calibrate() error
	DriveShape(linefollower.Mode) error
	ShowSensor() error
	Scroll(settings.Field, int) error
	SetIndex(settings.Field, int) error
	SetLED(bool) error
	Debug()
	Summary()
	Version()
	Verbose()
	PrintError(error)

	// Idle is called whenever there is no serial input
	Idle()

	// I/O
	ReadByte() (byte, error)
}

var (
	FollowPathCommand = &Command{
		Flag:      'F',
		InputSize: 0,
		Run: func(c Controller, _ []byte) error {
			return c.FollowPath()
		},
		Description: "Follow the path after a countdown. Send X to stop.",
	}
	CalibrateCommand = &Command{
		Flag:      'C',
		InputSize: 0,
		Run: func(c Controller, _ []byte) error {
			return c.Calibrate()
		},
		Description: "Calibrate the line sensor by sweeping over the line.",
	}
	DriveShapeCommand = &Command{
		Flag:      'G',
		InputSize: 1,
		Run: func(c Controller, input []byte) error {
			mode := linefollower.ShapeMode(input[0])
			if mode == linefollower.ModeUnknown {
				return errors.New("invalid input: " + string(input))
			}
			return c.DriveShape(mode)
		},
		Description: "Drive a shape to check the motors. Input: 's' (straight), 'l' (curve left), 'r' (curve right).",
	}
	ShowSensorCommand = &Command{
		Flag:      'P',
		InputSize: 0,
		Run: func(c Controller, _ []byte) error {
			return c.ShowSensor()
		},
		Description: "Print line positions until X is sent.",
	}
	ScrollCommand = &Command{
		Flag:      'S',
		InputSize: 2,
		Run: func(c Controller, input []byte) error {
			f := settings.FieldFromKey(input[0])
			if f == settings.FieldUnknown {
				return errors.New("invalid field: " + string(input[:1]))
			}

			switch input[1] {
			case '-':
				return c.Scroll(f, -1)
			case '+':
				return c.Scroll(f, +1)
			}
			return errors.New("invalid input: " + string(input))
		},
		Description: "Change a setting to the next or previous option. Input: field (t, l, r, m, d), then '+' or '-'.",
	}
	SetIndexCommand = &Command{
		Flag:      'W',
		InputSize: 2,
		Run: func(c Controller, input []byte) error {
			f := settings.FieldFromKey(input[0])
			if f == settings.FieldUnknown {
				return errors.New("invalid field: " + string(input[:1]))
			}

			i, ok := digit(input[1])
			if !ok {
				return errors.New("invalid input: " + string(input))
			}
			return c.SetIndex(f, i)
		},
		Description: "Select a setting option by index. Input: field (t, l, r, m, d), then 0-9.",
	}
	DebugCommand = &Command{
		Flag:      'D',
		InputSize: 0,
		Run: func(c Controller, _ []byte) error {
			c.Debug()
			return nil
		},
		Description: "Print the settings and current state.",
	}
	SummaryCommand = &Command{
		Flag:      'R',
		InputSize: 0,
		Run: func(c Controller, _ []byte) error {
			c.Summary()
			return nil
		},
		Description: "Print the summary of the last run.",
	}
	VersionCommand = &Command{
		Flag:      'V',
		InputSize: 0,
		Run: func(c Controller, _ []byte) error {
			c.Version()
			return nil
		},
		Description: "Print the firmware version.",
	}
	VerboseCommand = &Command{
		Flag:      'v',
		InputSize: 0,
		Run: func(c Controller, _ []byte) error {
			c.Verbose()
			return nil
		},
		Description: "Enable verbose output.",
	}
	LEDCommand = &Command{
		Flag:      'L',
		InputSize: 1,
		Run: func(c Controller, input []byte) error {
			switch input[0] {
			case '1':
				return c.SetLED(true)
			case '0':
				return c.SetLED(false)
			}
			return errors.New("invalid input: " + string(input))
		},
		Description: "Turn the line sensor LED on or off. Input: '1' or '0'.",
	}
	HelpCommand = &Command{
		Flag:        'H',
		InputSize:   0,
		Description: "Show all available commands and their descriptions.",
		Run: func(c Controller, b []byte) error {
			println("Available Commands:")
			for _, cmd := range commands {
				flagStr := ""
				if cmd.Flag >= 32 && cmd.Flag <= 126 {
					flagStr = string(cmd.Flag)
				} else {
					flagStr = "0x" + string("0123456789ABCDEF"[(cmd.Flag>>4)&0xF]) + string("0123456789ABCDEF"[cmd.Flag&0xF])
				}
				println(flagStr + ": " + cmd.Description)
			}
			println(string(rune(linefollower.CancelFlag)) + ": Stop the running mode.")
			return nil
		},
	}
)

func digit(b byte) (int, bool) {
	if b < '0' || b > '9' {
		return 0, false
	}
	return int(b - '0'), true
}

var commands = []*Command{
	FollowPathCommand,
	CalibrateCommand,
	DriveShapeCommand,
	ShowSensorCommand,
	ScrollCommand,
	SetIndexCommand,
	DebugCommand,
	SummaryCommand,
	VersionCommand,
	VerboseCommand,
	LEDCommand,
}

// Dispatcher reads commands from a Controller and runs them
type Dispatcher struct {
	c      Controller
	cmdMap map[byte]*Command
}

func NewDispatcher(c Controller) *Dispatcher {
	cmdMap := map[byte]*Command{
		HelpCommand.Flag: HelpCommand,
	}

	for _, cmd := range commands {
		cmdMap[cmd.Flag] = cmd
	}

	return &Dispatcher{c, cmdMap}
}

// Next handles a single byte of input. When no byte is pending the Controller is idled instead. Bytes
// that are not a command flag are ignored.
func (d *Dispatcher) Next() {
	cmdIn, err := d.c.ReadByte()
	if err != nil {
		d.c.Idle()
		return
	}

	cmd, ok := d.cmdMap[cmdIn]
	if !ok {
		return
	}

	in := make([]byte, cmd.InputSize)
	for i := 0; i < int(cmd.InputSize); {
		b, err := d.c.ReadByte()
		if err != nil {
			continue
		}

		in[i] = b
		i++
	}

	err = cmd.Run(d.c, in)
	if err != nil {
		d.c.PrintError(err)
	}
}

// Run handles commands forever
func Run(c Controller) {
	d := NewDispatcher(c)
	for {
		d.Next()
	}
}
