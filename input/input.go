// Package input turns button levels into presses
package input

// Edge reports a press only when a button goes from released to pressed. Poll it once per loop.
type Edge struct {
	level   func() bool
	pressed bool
}

// NewEdge creates an Edge for a button. The level function returns true while the button is held.
func NewEdge(level func() bool) *Edge {
	return &Edge{level: level}
}

// Pressed is true the first time it is polled after the button goes down
func (e *Edge) Pressed() bool {
	down := e.level()
	pressed := down && !e.pressed
	e.pressed = down
	return pressed
}

// Canceler is polled by running modes to find out if they should stop
type Canceler interface {
	Canceled() bool
}

// CancelFunc adapts a function to a Canceler
type CancelFunc func() bool

func (f CancelFunc) Canceled() bool {
	return f()
}

type anyCanceler struct {
	cancelers []Canceler
}

// Any is canceled when any of the cancelers is. Every canceler is polled so edge-triggered sources
// stay in sync.
func Any(cancelers ...Canceler) Canceler {
	return anyCanceler{cancelers}
}

func (a anyCanceler) Canceled() bool {
	canceled := false
	for _, c := range a.cancelers {
		if c.Canceled() {
			canceled = true
		}
	}
	return canceled
}

// Button is a single button on the joystick board
type Button uint8

const (
	ButtonUp Button = 1 << iota
	ButtonDown
	ButtonLeft
	ButtonRight
	ButtonSelect
	ButtonA
	ButtonB
)

// Buttons is a set of buttons
type Buttons uint8

// Has is true if the button is in the set
func (b Buttons) Has(btn Button) bool {
	return b&Buttons(btn) != 0
}

// Pad tracks every button on the joystick board with a single read per poll
type Pad struct {
	read func() Buttons
	held Buttons
}

// NewPad creates a Pad. The read function returns the buttons that are currently held.
func NewPad(read func() Buttons) *Pad {
	return &Pad{read: read}
}

// Poll returns the buttons that were pressed since the last poll
func (p *Pad) Poll() Buttons {
	held := p.read()
	pressed := held &^ p.held
	p.held = held
	return pressed
}
