package linesense

import (
	"errors"
	"testing"
	"time"

	"github.com/calvinmclean/linefollower/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tx struct {
	addr  uint16
	write []byte
	read  int
}

// fakeSensor behaves like the module: reads return the register block and commands are recorded
type fakeSensor struct {
	block [blockSize]byte
	txs   []tx
	err   error

	// onTx can change the block before it is returned
	onTx func(f *fakeSensor, w []byte)
}

func newFakeSensor() *fakeSensor {
	return &fakeSensor{block: [blockSize]byte{1, 3, ExpectedModuleID, 0, 0, 125, 0}}
}

func (f *fakeSensor) Tx(addr uint16, w, r []byte) error {
	f.txs = append(f.txs, tx{addr: addr, write: append([]byte(nil), w...), read: len(r)})
	if f.err != nil {
		return f.err
	}
	if f.onTx != nil {
		f.onTx(f, w)
	}
	copy(r, f.block[:])
	return nil
}

func (f *fakeSensor) ReadRegister(addr uint8, reg uint8, buf []byte) error {
	return f.Tx(uint16(addr), []byte{reg}, buf)
}

func (f *fakeSensor) WriteRegister(addr uint8, reg uint8, buf []byte) error {
	return f.Tx(uint16(addr), append([]byte{reg}, buf...), nil)
}

func (f *fakeSensor) commands() []byte {
	var cmds []byte
	for _, t := range f.txs {
		if len(t.write) > 0 {
			cmds = append(cmds, t.write[0])
		}
	}
	return cmds
}

func newClient(t *testing.T) (*Client, *fakeSensor, *testutil.Clock) {
	t.Helper()
	sensor := newFakeSensor()
	clk := testutil.NewClock()
	c, err := New(sensor, Config{Clock: clk})
	require.NoError(t, err)
	return c, sensor, clk
}

func TestNew(t *testing.T) {
	c, sensor, _ := newClient(t)

	require.Len(t, sensor.txs, 1)
	assert.Equal(t, DefaultAddress, sensor.txs[0].addr)
	assert.Empty(t, sensor.txs[0].write)
	assert.Equal(t, blockSize, sensor.txs[0].read)

	assert.Equal(t, Registers{SensorType: 1, ReadDelay: 3, ModuleID: 83, Position: 125}, c.Registers())
	assert.Equal(t, 3*time.Millisecond, c.Registers().ReadDelayDuration())
}

func TestNewModuleMismatch(t *testing.T) {
	sensor := newFakeSensor()
	sensor.block[regModuleID] = 12

	_, err := New(sensor, Config{Clock: testutil.NewClock()})
	require.Error(t, err)

	var mismatch *ModuleMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, byte(12), mismatch.Got)
	assert.Equal(t, "line sensor is not the expected module: module_id=12 expected=83", err.Error())
}

func TestNewMissingClock(t *testing.T) {
	_, err := New(newFakeSensor(), Config{})
	assert.Error(t, err)
}

func TestCalibration(t *testing.T) {
	c, sensor, clk := newClient(t)

	require.NoError(t, c.StartCalibration())
	assert.Equal(t, []byte{cmdCalibrate}, sensor.commands())
	assert.Equal(t, []time.Duration{time.Millisecond}, clk.Slept())

	ok, err := c.CheckCalibration()
	require.NoError(t, err)
	assert.False(t, ok)

	sensor.block[regCalibrated] = 1
	ok, err = c.CheckCalibration()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNonBlockingPositionRead(t *testing.T) {
	c, sensor, clk := newClient(t)

	ready, err := c.IsPositionReady()
	require.NoError(t, err)
	assert.False(t, ready, "no read was started")

	sensor.onTx = func(f *fakeSensor, w []byte) {
		if len(w) == 1 && w[0] == cmdReadPosition {
			f.block[regPosition] = 87
		}
	}

	require.NoError(t, c.StartPositionRead())
	txCount := len(sensor.txs)

	ready, err = c.IsPositionReady()
	require.NoError(t, err)
	assert.False(t, ready)

	clk.Add(2 * time.Millisecond)
	ready, err = c.IsPositionReady()
	require.NoError(t, err)
	assert.False(t, ready)

	clk.Add(time.Millisecond)
	ready, err = c.IsPositionReady()
	require.NoError(t, err)
	assert.True(t, ready)

	assert.Len(t, sensor.txs, txCount, "readiness check does not use the bus")

	pos, err := c.Position()
	require.NoError(t, err)
	assert.Equal(t, 87, pos)

	ready, err = c.IsPositionReady()
	require.NoError(t, err)
	assert.False(t, ready, "position was already fetched")
}

func TestReadPosition(t *testing.T) {
	c, sensor, clk := newClient(t)
	sensor.block[regPosition] = 200

	pos, err := c.ReadPosition()
	require.NoError(t, err)
	assert.Equal(t, 200, pos)
	assert.Equal(t, []byte{cmdReadPosition}, sensor.commands())
	assert.Equal(t, []time.Duration{3 * time.Millisecond}, clk.Slept())
}

func TestSetLED(t *testing.T) {
	c, sensor, _ := newClient(t)

	require.NoError(t, c.SetLED(true))
	require.NoError(t, c.SetLED(false))
	assert.Equal(t, []byte{cmdLEDOn, cmdLEDOff}, sensor.commands())
}

func TestBusErrorsAreWrapped(t *testing.T) {
	c, sensor, _ := newClient(t)
	busErr := errors.New("nack")
	sensor.err = busErr

	_, err := c.Position()
	assert.ErrorIs(t, err, busErr)

	err = c.StartPositionRead()
	assert.ErrorIs(t, err, busErr)
	assert.Contains(t, err.Error(), "0x02")
}

func TestBusUnavailable(t *testing.T) {
	sensor := newFakeSensor()
	clk := testutil.NewClock()
	bus := NewBus(sensor, 5*time.Millisecond, clk)

	c, err := New(bus, Config{Clock: clk})
	require.NoError(t, err)

	// something else is holding the bus
	require.NoError(t, bus.acquire())
	txCount := len(sensor.txs)

	_, err = c.Position()
	assert.ErrorIs(t, err, ErrSensorUnavailable)
	assert.Len(t, sensor.txs, txCount)
	assert.Len(t, clk.Slept(), 5)

	bus.release()
	_, err = c.Position()
	assert.NoError(t, err)
}

func TestBusRegisterHelpers(t *testing.T) {
	sensor := newFakeSensor()
	bus := NewBus(sensor, time.Millisecond, testutil.NewClock())

	buf := make([]byte, 2)
	require.NoError(t, bus.ReadRegister(0x5E, 0x04, buf))
	require.NoError(t, bus.WriteRegister(0x5E, 0x01, []byte{0xAA}))

	require.Len(t, sensor.txs, 2)
	assert.Equal(t, tx{addr: 0x5E, write: []byte{0x04}, read: 2}, sensor.txs[0])
	assert.Equal(t, tx{addr: 0x5E, write: []byte{0x01, 0xAA}, read: 0}, sensor.txs[1])
}
