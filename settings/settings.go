// Package settings holds the follow-path parameters that can be changed from the joystick menu or the
// serial console. Every parameter is picked from a fixed list of options, so the state is just the
// selected index per field.
package settings

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/calvinmclean/linefollower"
	"github.com/calvinmclean/linefollower/steering"
)

var (
	ErrUnknownField = errors.New("unknown field")
	ErrOutOfRange   = errors.New("option index out of range")
	ErrUnknownValue = errors.New("value is not one of the options")
)

// Field is a single configurable parameter
type Field int

const (
	FieldUnknown Field = iota
	FieldThrottle
	FieldLoopPeriod
	FieldReactionRate
	FieldReactionLimit
	FieldDisplay

	fieldCount
)

// Fields is every valid field in menu order
var Fields = []Field{FieldThrottle, FieldLoopPeriod, FieldReactionRate, FieldReactionLimit, FieldDisplay}

func (f Field) String() string {
	switch f {
	case FieldThrottle:
		return "Throttle"
	case FieldLoopPeriod:
		return "Loop Speed"
	case FieldReactionRate:
		return "Rxn Rate"
	case FieldReactionLimit:
		return "Rxn Limit"
	case FieldDisplay:
		return "Display"
	default:
		fallthrough
	case FieldUnknown:
		return "Unknown"
	}
}

// Key is the byte used to select this field in the S and W serial commands
func (f Field) Key() byte {
	switch f {
	case FieldThrottle:
		return 't'
	case FieldLoopPeriod:
		return 'l'
	case FieldReactionRate:
		return 'r'
	case FieldReactionLimit:
		return 'm'
	case FieldDisplay:
		return 'd'
	}
	return 0
}

// lineKey is the key used in the SET line
func (f Field) lineKey() string {
	switch f {
	case FieldThrottle:
		return "thr"
	case FieldLoopPeriod:
		return "lps"
	case FieldReactionRate:
		return "rr"
	case FieldReactionLimit:
		return "rl"
	case FieldDisplay:
		return "disp"
	}
	return ""
}

// FieldFromKey is the reverse of Key. It returns FieldUnknown for anything else.
func FieldFromKey(b byte) Field {
	for _, f := range Fields {
		if f.Key() == b {
			return f
		}
	}
	return FieldUnknown
}

func (f Field) valid() bool {
	return f > FieldUnknown && f < fieldCount
}

// Next moves down the menu, wrapping around
func (f Field) Next() Field {
	if f >= FieldDisplay || f < FieldThrottle {
		return FieldThrottle
	}
	return f + 1
}

// Prev moves up the menu, wrapping around
func (f Field) Prev() Field {
	if f <= FieldThrottle || f > FieldDisplay {
		return FieldDisplay
	}
	return f - 1
}

// option lists and defaults came from driving the robot on a test track. 0.4 throttle with 20ms loops and
// a 1.3 reaction rate is smooth; 1.4 starts to overcorrect.
var (
	throttleOptions      = []float64{0.2, 0.3, 0.4, 0.5, 0.6, 0.7}
	loopPeriodOptions    = []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond, 40 * time.Millisecond, 50 * time.Millisecond, 100 * time.Millisecond, 150 * time.Millisecond, 200 * time.Millisecond}
	reactionRateOptions  = []float64{0.5, 0.6, 0.7, 0.8, 0.9, 1.0, 1.2, 1.3, 1.4}
	reactionLimitOptions = []float64{0.25, 0.5, 0.75, 1.0, 1.25, 1.5}
	displayOptions       = []bool{false, true}

	defaults = [fieldCount]int{
		FieldThrottle:      2,
		FieldLoopPeriod:    1,
		FieldReactionRate:  7,
		FieldReactionLimit: 3,
		FieldDisplay:       1,
	}
)

// NumOptions is how many options the field has
func NumOptions(f Field) int {
	switch f {
	case FieldThrottle:
		return len(throttleOptions)
	case FieldLoopPeriod:
		return len(loopPeriodOptions)
	case FieldReactionRate:
		return len(reactionRateOptions)
	case FieldReactionLimit:
		return len(reactionLimitOptions)
	case FieldDisplay:
		return len(displayOptions)
	}
	return 0
}

// OptionLabel formats an option the same way it is printed in the SET line
func OptionLabel(f Field, i int) string {
	if i < 0 || i >= NumOptions(f) {
		return ""
	}
	switch f {
	case FieldThrottle:
		return formatFloat(throttleOptions[i])
	case FieldLoopPeriod:
		return loopPeriodOptions[i].String()
	case FieldReactionRate:
		return formatFloat(reactionRateOptions[i])
	case FieldReactionLimit:
		return formatFloat(reactionLimitOptions[i])
	case FieldDisplay:
		if displayOptions[i] {
			return "on"
		}
		return "off"
	}
	return ""
}

// IndexOf finds the option with the given label. Numbers are compared by value, so "1.0" matches "1".
func IndexOf(f Field, label string) (int, error) {
	if !f.valid() {
		return 0, ErrUnknownField
	}

	label = strings.TrimSpace(label)
	for i := 0; i < NumOptions(f); i++ {
		if OptionLabel(f, i) == label {
			return i, nil
		}
	}

	switch f {
	case FieldThrottle, FieldReactionRate, FieldReactionLimit:
		v, err := strconv.ParseFloat(label, 64)
		if err == nil {
			for i := 0; i < NumOptions(f); i++ {
				if OptionLabel(f, i) == formatFloat(v) {
					return i, nil
				}
			}
		}
	case FieldLoopPeriod:
		v, err := time.ParseDuration(label)
		if err == nil {
			for i, opt := range loopPeriodOptions {
				if opt == v {
					return i, nil
				}
			}
		}
	}

	return 0, &ValueError{Field: f, Value: label}
}

// ValueError is returned when a value does not match any option of its field. It matches
// ErrUnknownValue with errors.Is.
type ValueError struct {
	Field Field
	Value string
}

func (e *ValueError) Error() string {
	return ErrUnknownValue.Error() + ": " + e.Field.String() + "=" + e.Value
}

func (e *ValueError) Is(target error) bool {
	return target == ErrUnknownValue
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Settings is the selected option for every field
type Settings struct {
	index [fieldCount]int
}

// New creates Settings with the default options selected
func New() *Settings {
	return &Settings{index: defaults}
}

// Index returns the selected option index
func (s *Settings) Index(f Field) int {
	if !f.valid() {
		return 0
	}
	return s.index[f]
}

// SetIndex selects an option directly
func (s *Settings) SetIndex(f Field, i int) error {
	if !f.valid() {
		return ErrUnknownField
	}
	if i < 0 || i >= NumOptions(f) {
		return ErrOutOfRange
	}
	s.index[f] = i
	return nil
}

// Scroll moves the selection by dir, wrapping around at either end of the option list
func (s *Settings) Scroll(f Field, dir int) error {
	if !f.valid() {
		return ErrUnknownField
	}
	n := NumOptions(f)
	s.index[f] = ((s.index[f]+dir)%n + n) % n
	return nil
}

// Label is the selected option formatted for display
func (s *Settings) Label(f Field) string {
	return OptionLabel(f, s.Index(f))
}

func (s *Settings) Throttle() float64 {
	return throttleOptions[s.index[FieldThrottle]]
}

func (s *Settings) LoopPeriod() time.Duration {
	return loopPeriodOptions[s.index[FieldLoopPeriod]]
}

func (s *Settings) ReactionRate() float64 {
	return reactionRateOptions[s.index[FieldReactionRate]]
}

func (s *Settings) ReactionLimit() float64 {
	return reactionLimitOptions[s.index[FieldReactionLimit]]
}

// DisplayEnabled controls whether the dashboard is updated while following a path. Drawing takes time
// away from the loop, so it can be turned off for short loop periods.
func (s *Settings) DisplayEnabled() bool {
	return displayOptions[s.index[FieldDisplay]]
}

// Parameters returns a snapshot of the steering parameters
func (s *Settings) Parameters() steering.Parameters {
	return steering.Parameters{
		Throttle:      s.Throttle(),
		LoopPeriod:    s.LoopPeriod(),
		ReactionRate:  s.ReactionRate(),
		ReactionLimit: s.ReactionLimit(),
	}
}

// Line formats the settings like "SET thr=0.4 lps=20ms rr=1.3 rl=1 disp=on"
func (s *Settings) Line() string {
	var b strings.Builder
	b.WriteString(linefollower.PrefixSettings)
	for _, f := range Fields {
		b.WriteString(" " + f.lineKey() + "=" + s.Label(f))
	}
	return b.String()
}

// Parse reads a SET line. Fields missing from the line keep their default.
func Parse(line string) (*Settings, error) {
	prefix, values, err := linefollower.ParseKeyValues(line)
	if err != nil {
		return nil, err
	}
	if prefix != linefollower.PrefixSettings {
		return nil, errors.New("unexpected line prefix: " + prefix)
	}

	s := New()
	for _, f := range Fields {
		v, ok := values[f.lineKey()]
		if !ok {
			continue
		}
		i, err := IndexOf(f, v)
		if err != nil {
			return nil, err
		}
		s.index[f] = i
	}
	return s, nil
}
