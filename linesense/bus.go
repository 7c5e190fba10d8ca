package linesense

import (
	"errors"
	"time"

	"tinygo.org/x/drivers"
)

// ErrSensorUnavailable is returned when the bus could not be acquired before the timeout
var ErrSensorUnavailable = errors.New("line sensor unavailable: i2c bus is busy")

const acquireRetry = time.Millisecond

// Clock is used for sleeping and measuring delays so they can be controlled in tests
type Clock interface {
	Now() time.Time
	Sleep(time.Duration)
}

// Bus gives exclusive access to a shared I2C bus. Every transaction holds the bus for exactly one Tx.
// The joystick board and the line sensor share the same bus, so both go through one Bus.
type Bus struct {
	i2c     drivers.I2C
	token   chan struct{}
	timeout time.Duration
	clock   Clock
}

var _ drivers.I2C = &Bus{}

// NewBus wraps an I2C bus. Acquiring the bus is retried until the timeout expires.
func NewBus(i2c drivers.I2C, timeout time.Duration, clock Clock) *Bus {
	return &Bus{
		i2c:     i2c,
		token:   make(chan struct{}, 1),
		timeout: timeout,
		clock:   clock,
	}
}

func (b *Bus) acquire() error {
	start := b.clock.Now()
	for {
		select {
		case b.token <- struct{}{}:
			return nil
		default:
		}

		if b.clock.Now().Sub(start) >= b.timeout {
			return ErrSensorUnavailable
		}
		b.clock.Sleep(acquireRetry)
	}
}

func (b *Bus) release() {
	<-b.token
}

// Tx runs a single write/read transaction while holding the bus
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	err := b.acquire()
	if err != nil {
		return err
	}
	defer b.release()

	return b.i2c.Tx(addr, w, r)
}

// ReadRegister reads len(buf) bytes starting at reg
func (b *Bus) ReadRegister(addr uint8, reg uint8, buf []byte) error {
	return b.Tx(uint16(addr), []byte{reg}, buf)
}

// WriteRegister writes buf starting at reg in one transaction
func (b *Bus) WriteRegister(addr uint8, reg uint8, buf []byte) error {
	return b.Tx(uint16(addr), append([]byte{reg}, buf...), nil)
}
