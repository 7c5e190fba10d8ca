package commands

import (
	"errors"
	"io"
	"testing"

	"github.com/calvinmclean/linefollower"
	"github.com/calvinmclean/linefollower/settings"
	"github.com/stretchr/testify/assert"
)

type fakeController struct {
	input []byte
	calls []string

	field settings.Field
	value int
	led   []bool
	errs  []error
	err   error
}

func (c *fakeController) record(name string) error {
	c.calls = append(c.calls, name)
	return c.err
}

func (c *fakeController) FollowPath() error { return c.record("follow") }
func (c *fakeController) Calibrate() error  { return c.record("calibrate") }
func (c *fakeController) ShowSensor() error { return c.record("sensor") }
func (c *fakeController) Debug()            { _ = c.record("debug") }
func (c *fakeController) Summary()          { _ = c.record("summary") }
func (c *fakeController) Version()          { _ = c.record("version") }
func (c *fakeController) Verbose()          { _ = c.record("verbose") }
func (c *fakeController) Idle()             { _ = c.record("idle") }

func (c *fakeController) DriveShape(m linefollower.Mode) error {
	return c.record("shape " + m.String())
}

func (c *fakeController) Scroll(f settings.Field, dir int) error {
	c.field, c.value = f, dir
	return c.record("scroll")
}

func (c *fakeController) SetIndex(f settings.Field, i int) error {
	c.field, c.value = f, i
	return c.record("set")
}

func (c *fakeController) SetLED(on bool) error {
	c.led = append(c.led, on)
	return c.record("led")
}

func (c *fakeController) PrintError(err error) {
	c.errs = append(c.errs, err)
}

func (c *fakeController) ReadByte() (byte, error) {
	if len(c.input) == 0 {
		return 0, io.EOF
	}
	b := c.input[0]
	c.input = c.input[1:]
	return b, nil
}

func TestDispatcher(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		calls     []string
		field     settings.Field
		value     int
		errs      int
		remaining int
	}{
		{"NoInputIdles", "", []string{"idle"}, settings.FieldUnknown, 0, 0, 0},
		{"FollowPath", "F", []string{"follow"}, settings.FieldUnknown, 0, 0, 0},
		{"Calibrate", "C", []string{"calibrate"}, settings.FieldUnknown, 0, 0, 0},
		{"DriveStraight", "Gs", []string{"shape Drive Straight"}, settings.FieldUnknown, 0, 0, 0},
		{"CurveLeft", "Gl", []string{"shape Curve Left"}, settings.FieldUnknown, 0, 0, 0},
		{"CurveRight", "Gr", []string{"shape Curve Right"}, settings.FieldUnknown, 0, 0, 0},
		{"InvalidShape", "Gx", nil, settings.FieldUnknown, 0, 1, 0},
		{"ShowSensor", "P", []string{"sensor"}, settings.FieldUnknown, 0, 0, 0},
		{"ScrollUp", "St+", []string{"scroll"}, settings.FieldThrottle, 1, 0, 0},
		{"ScrollDown", "Sm-", []string{"scroll"}, settings.FieldReactionLimit, -1, 0, 0},
		{"ScrollInvalidDirection", "St5", nil, settings.FieldUnknown, 0, 1, 0},
		{"ScrollInvalidField", "Sz+", nil, settings.FieldUnknown, 0, 1, 0},
		{"SetIndex", "Wl0", []string{"set"}, settings.FieldLoopPeriod, 0, 0, 0},
		{"SetIndexDisplay", "Wd1", []string{"set"}, settings.FieldDisplay, 1, 0, 0},
		{"SetIndexNotDigit", "Wr+", nil, settings.FieldUnknown, 0, 1, 0},
		{"Debug", "D", []string{"debug"}, settings.FieldUnknown, 0, 0, 0},
		{"Summary", "R", []string{"summary"}, settings.FieldUnknown, 0, 0, 0},
		{"Version", "V", []string{"version"}, settings.FieldUnknown, 0, 0, 0},
		{"Verbose", "v", []string{"verbose"}, settings.FieldUnknown, 0, 0, 0},
		{"LEDInvalid", "L2", nil, settings.FieldUnknown, 0, 1, 0},
		{"Help", "H", nil, settings.FieldUnknown, 0, 0, 0},
		{"UnknownIgnored", "Zq", nil, settings.FieldUnknown, 0, 0, 1},
		{"StrayCancelIgnored", "X", nil, settings.FieldUnknown, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &fakeController{input: []byte(tt.input)}
			NewDispatcher(c).Next()

			assert.Equal(t, tt.calls, c.calls)
			assert.Equal(t, tt.field, c.field)
			assert.Equal(t, tt.value, c.value)
			assert.Len(t, c.errs, tt.errs)
			assert.Len(t, c.input, tt.remaining)
		})
	}
}

func TestDispatcherLED(t *testing.T) {
	c := &fakeController{input: []byte("L1L0")}
	d := NewDispatcher(c)
	d.Next()
	d.Next()

	assert.Equal(t, []bool{true, false}, c.led)
}

func TestDispatcherPrintsErrors(t *testing.T) {
	c := &fakeController{input: []byte("FC"), err: errors.New("bus busy")}
	d := NewDispatcher(c)
	d.Next()
	d.Next()
	d.Next()

	assert.Equal(t, []string{"follow", "calibrate", "idle"}, c.calls)
	assert.Len(t, c.errs, 2)
	for _, err := range c.errs {
		assert.EqualError(t, err, "bus busy")
	}
}

func TestCommandFlagsAreUnique(t *testing.T) {
	seen := map[byte]bool{HelpCommand.Flag: true, linefollower.CancelFlag: true}
	for _, cmd := range commands {
		assert.False(t, seen[cmd.Flag], "duplicate flag %q", cmd.Flag)
		seen[cmd.Flag] = true
	}
}
