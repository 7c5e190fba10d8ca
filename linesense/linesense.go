// Package linesense is a client for the line sensor module. The module sits on the I2C bus, accepts
// single-byte commands and always answers with the same 7-byte register block.
package linesense

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"tinygo.org/x/drivers"
)

const (
	DefaultAddress        uint16 = 0x32
	DefaultAcquireTimeout        = 50 * time.Millisecond

	// ExpectedModuleID identifies the line sensor module. Anything else on the address is the wrong device.
	ExpectedModuleID = 83

	calibrationNoticeDelay = time.Millisecond
)

// commands understood by the module
const (
	cmdCalibrate byte = 0x01
	cmdReadPosition   = 0x02
	cmdLEDOn          = 0x04
	cmdLEDOff         = 0x05
)

// register block layout
const (
	regSensorType = 0
	regReadDelay  = 1
	regModuleID   = 2
	regCalibrated = 3
	regPosition   = 5

	blockSize = 7
)

// Registers is the decoded register block
type Registers struct {
	SensorType byte
	// ReadDelay is how many milliseconds a position read takes after it is started
	ReadDelay  byte
	ModuleID   byte
	Calibrated byte
	Position   byte
}

func decode(block []byte) Registers {
	return Registers{
		SensorType: block[regSensorType],
		ReadDelay:  block[regReadDelay],
		ModuleID:   block[regModuleID],
		Calibrated: block[regCalibrated],
		Position:   block[regPosition],
	}
}

// ReadDelayDuration converts ReadDelay to a time.Duration
func (r Registers) ReadDelayDuration() time.Duration {
	return time.Duration(r.ReadDelay) * time.Millisecond
}

// ModuleMismatchError means the device on the address is not a line sensor
type ModuleMismatchError struct {
	Got byte
}

func (e *ModuleMismatchError) Error() string {
	return "line sensor is not the expected module: module_id=" + strconv.Itoa(int(e.Got)) +
		" expected=" + strconv.Itoa(ExpectedModuleID)
}

// Config has the bus settings for the module
type Config struct {
	Address        uint16
	AcquireTimeout time.Duration
	Clock          Clock
}

// Client talks to the line sensor module
type Client struct {
	bus     drivers.I2C
	address uint16
	clock   Clock

	regs  Registers
	block [blockSize]byte

	readStarted time.Time
	reading     bool
}

// New creates a Client and checks that the module on the bus is a line sensor. If the bus is not
// already a *Bus it is wrapped in one so every transaction is exclusive.
func New(bus drivers.I2C, cfg Config) (*Client, error) {
	if cfg.Clock == nil {
		return nil, errors.New("missing clock")
	}
	if cfg.Address == 0 {
		cfg.Address = DefaultAddress
	}
	if cfg.AcquireTimeout == 0 {
		cfg.AcquireTimeout = DefaultAcquireTimeout
	}

	if _, ok := bus.(*Bus); !ok {
		bus = NewBus(bus, cfg.AcquireTimeout, cfg.Clock)
	}

	c := &Client{
		bus:     bus,
		address: cfg.Address,
		clock:   cfg.Clock,
	}

	err := c.read()
	if err != nil {
		return nil, err
	}
	if c.regs.ModuleID != ExpectedModuleID {
		return nil, &ModuleMismatchError{Got: c.regs.ModuleID}
	}

	return c, nil
}

func (c *Client) write(cmd byte) error {
	err := c.bus.Tx(c.address, []byte{cmd}, nil)
	if err != nil {
		return fmt.Errorf("error writing command 0x%02x: %w", cmd, err)
	}
	return nil
}

func (c *Client) read() error {
	err := c.bus.Tx(c.address, nil, c.block[:])
	if err != nil {
		return fmt.Errorf("error reading registers: %w", err)
	}
	c.regs = decode(c.block[:])
	return nil
}

// Registers returns the most recently read register block
func (c *Client) Registers() Registers {
	return c.regs
}

// StartCalibration tells the module to start calibrating. The robot needs to sweep the sensor across
// the line until CheckCalibration reports success.
func (c *Client) StartCalibration() error {
	err := c.write(cmdCalibrate)
	if err != nil {
		return err
	}
	c.clock.Sleep(calibrationNoticeDelay)
	return nil
}

// CheckCalibration reads the status and returns true if the module is calibrated
func (c *Client) CheckCalibration() (bool, error) {
	err := c.read()
	if err != nil {
		return false, err
	}
	return c.regs.Calibrated == 1, nil
}

// StartPositionRead starts reading the position without waiting for it to finish
func (c *Client) StartPositionRead() error {
	err := c.write(cmdReadPosition)
	if err != nil {
		return err
	}
	c.readStarted = c.clock.Now()
	c.reading = true
	return nil
}

// IsPositionReady is true once the module's read delay has passed since StartPositionRead. It does
// not use the bus.
func (c *Client) IsPositionReady() (bool, error) {
	if !c.reading {
		return false, nil
	}
	return c.clock.Now().Sub(c.readStarted) >= c.regs.ReadDelayDuration(), nil
}

// Position reads the register block and returns the position of the line, from 0 to 250
func (c *Client) Position() (int, error) {
	err := c.read()
	if err != nil {
		return 0, err
	}
	c.reading = false
	return int(c.regs.Position), nil
}

// ReadPosition starts a read, waits for it and returns the position
func (c *Client) ReadPosition() (int, error) {
	err := c.StartPositionRead()
	if err != nil {
		return 0, err
	}
	c.clock.Sleep(c.regs.ReadDelayDuration())
	return c.Position()
}

// SetLED turns the module's indicator LED on or off
func (c *Client) SetLED(on bool) error {
	if on {
		return c.write(cmdLEDOn)
	}
	return c.write(cmdLEDOff)
}
