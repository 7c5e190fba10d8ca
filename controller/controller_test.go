package controller

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/calvinmclean/linefollower"
	"github.com/calvinmclean/linefollower/runlog"
	"github.com/calvinmclean/linefollower/tuning"
)

const settingsLine = "SET thr=0.4 lps=20ms rr=1.3 rl=1 disp=on"

// fakeRobot answers the version and debug commands like the firmware does
type fakeRobot struct {
	version string

	mtx      sync.Mutex
	received bytes.Buffer

	r   *io.PipeReader
	w   *io.PipeWriter
	out chan string
}

func newFakeRobot(version string) *fakeRobot {
	r, w := io.Pipe()
	f := &fakeRobot{version: version, r: r, w: w, out: make(chan string, 16)}
	go func() {
		for line := range f.out {
			_, err := io.WriteString(f.w, line+"\r\n")
			if err != nil {
				return
			}
		}
	}()
	return f
}

func (f *fakeRobot) Read(p []byte) (int, error) {
	return f.r.Read(p)
}

func (f *fakeRobot) Write(p []byte) (int, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.received.Write(p)

	for _, b := range p {
		switch b {
		case 'V':
			if f.version != "" {
				f.out <- linefollower.PrefixVersion + " " + f.version
			}
		case 'D':
			f.out <- settingsLine
		}
	}
	return len(p), nil
}

func (f *fakeRobot) Close() error {
	return f.r.Close()
}

// disconnect is like unplugging the robot
func (f *fakeRobot) disconnect() {
	_ = f.w.Close()
}

func (f *fakeRobot) send(line string) {
	f.out <- line
}

func (f *fakeRobot) commands() string {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return f.received.String()
}

type syncBuffer struct {
	mtx sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return b.buf.String()
}

type upload struct {
	robot    string
	settings string
	stats    linefollower.Statistics
}

type fakeRunLog struct {
	mtx     sync.Mutex
	uploads []upload
}

func (f *fakeRunLog) Upload(_ context.Context, robot, settingsLine string, stats linefollower.Statistics) (*runlog.Run, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.uploads = append(f.uploads, upload{robot, settingsLine, stats})
	return &runlog.Run{Robot: robot}, nil
}

func (f *fakeRunLog) get() []upload {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return append([]upload(nil), f.uploads...)
}

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
)

// runController starts Run in the background. The returned function cancels it and returns its error.
func runController(t *testing.T, c *Controller, in io.Reader, out io.Writer) func() error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- c.Run(ctx, in, out)
	}()

	return func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(waitFor):
			t.Fatal("Run did not return")
			return nil
		}
	}
}

func TestRunUploadsSummaries(t *testing.T) {
	robot := newFakeRobot("0.1.0")
	c, err := NewWithPort(Config{RobotName: "bot"}, robot, zaptest.NewLogger(t))
	require.NoError(t, err)
	runLog := &fakeRunLog{}
	c.runLog = runLog

	var out syncBuffer
	stop := runController(t, c, strings.NewReader(""), &out)

	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "VER 0.1.0\n")
	}, waitFor, tick)

	stats := linefollower.Statistics{Run: 1, Loops: 10, OnTrack: 9, LoopPeriod: 20 * time.Millisecond}
	robot.send(settingsLine)
	robot.send("MSG Stopped")
	robot.send(stats.Line())

	assert.Eventually(t, func() bool {
		return len(runLog.get()) == 1
	}, waitFor, tick)

	require.NoError(t, stop())

	assert.Equal(t, upload{"bot", settingsLine, stats}, runLog.get()[0])
	assert.Equal(t, "0.1.0", c.Firmware().String())
	assert.Equal(t, "V", robot.commands())
	assert.Equal(t, strings.Join([]string{"VER 0.1.0", settingsLine, "MSG Stopped", stats.Line()}, "\n")+"\n", out.String())
}

func TestRunForwardsInput(t *testing.T) {
	robot := newFakeRobot("0.1.3")
	c, err := NewWithPort(Config{}, robot, zaptest.NewLogger(t))
	require.NoError(t, err)

	stop := runController(t, c, strings.NewReader("F\nX"), io.Discard)

	assert.Eventually(t, func() bool {
		cmds := robot.commands()
		return strings.Contains(cmds, "V") && strings.Contains(cmds, "F\nX")
	}, waitFor, tick)

	require.NoError(t, stop())
}

func TestHandshake(t *testing.T) {
	tests := []struct {
		name    string
		version string
		err     error
	}{
		{"Compatible", "0.1.9", nil},
		{"TooNew", "0.2.0", ErrIncompatibleFirmware},
		{"TooOld", "0.0.4", ErrIncompatibleFirmware},
		{"Invalid", "abc", ErrIncompatibleFirmware},
		{"NoAnswer", "", ErrNoVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			robot := newFakeRobot(tt.version)
			c, err := NewWithPort(Config{}, robot, zaptest.NewLogger(t))
			require.NoError(t, err)
			c.HandshakeTimeout = 50 * time.Millisecond

			ctx, cancel := context.WithTimeout(context.Background(), waitFor)
			defer cancel()

			lines := make(chan string)
			readErr := make(chan error, 1)
			go c.readLines(ctx, lines, readErr)

			err = c.handshake(ctx, lines, readErr, io.Discard)
			if tt.err == nil {
				require.NoError(t, err)
				assert.Equal(t, tt.version, c.Firmware().String())
				return
			}
			assert.ErrorIs(t, err, tt.err)
			assert.Nil(t, c.Firmware())
		})
	}
}

func TestRunIncompatibleFirmware(t *testing.T) {
	robot := newFakeRobot("1.0.0")
	c, err := NewWithPort(Config{}, robot, zaptest.NewLogger(t))
	require.NoError(t, err)

	err = c.Run(context.Background(), strings.NewReader(""), io.Discard)
	assert.ErrorIs(t, err, ErrIncompatibleFirmware)
}

func TestRunDisconnected(t *testing.T) {
	robot := newFakeRobot("0.1.0")
	c, err := NewWithPort(Config{}, robot, zaptest.NewLogger(t))
	require.NoError(t, err)

	var out syncBuffer
	done := make(chan error, 1)
	go func() {
		done <- c.Run(context.Background(), strings.NewReader(""), &out)
	}()

	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "VER")
	}, waitFor, tick)
	robot.disconnect()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, io.EOF)
	case <-time.After(waitFor):
		t.Fatal("Run did not return")
	}
}

func TestRunAppliesTuning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
version: 1
presets:
  race:
    throttle: 0.6
    loop_period: 10ms
`), 0o600))

	robot := newFakeRobot("0.1.0")
	c, err := NewWithPort(Config{TuningFile: path, TuningPreset: "race"}, robot, zaptest.NewLogger(t))
	require.NoError(t, err)

	var out syncBuffer
	stop := runController(t, c, strings.NewReader(""), &out)

	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), settingsLine)
	}, waitFor, tick)
	require.NoError(t, stop())

	assert.Equal(t, "VWt4Wl0D", robot.commands())
}

func TestNewWithPortTuningErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 1\npresets:\n  race: {}\n"), 0o600))

	_, err := NewWithPort(Config{TuningFile: path, TuningPreset: "slow"}, nil, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, tuning.ErrUnknownPreset)

	_, err = NewWithPort(Config{TuningFile: filepath.Join(t.TempDir(), "missing.yaml")}, nil, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRobotErrorsAreLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	robot := newFakeRobot("0.1.0")
	c, err := NewWithPort(Config{}, robot, zap.New(core))
	require.NoError(t, err)

	stop := runController(t, c, strings.NewReader(""), io.Discard)

	robot.send("ERR no runs yet")
	robot.send("SUM loops=abc")

	assert.Eventually(t, func() bool {
		return logs.Len() == 2
	}, waitFor, tick)
	require.NoError(t, stop())

	entries := logs.All()
	assert.Equal(t, "robot error", entries[0].Message)
	assert.Equal(t, "no runs yet", entries[0].ContextMap()["message"])
	assert.Equal(t, "invalid summary", entries[1].Message)
}

func TestRunLogIntegration(t *testing.T) {
	router, err := runlog.NewAPI().Router()
	require.NoError(t, err)
	server := httptest.NewServer(router)
	defer server.Close()

	core, logs := observer.New(zapcore.InfoLevel)
	robot := newFakeRobot("0.1.0")
	c, err := NewWithPort(Config{RunLogAddr: server.URL, RobotName: "bot"}, robot, zap.New(core))
	require.NoError(t, err)

	stop := runController(t, c, strings.NewReader(""), io.Discard)

	stats := linefollower.Statistics{Run: 2, Loops: 4, OnTrack: 4}
	robot.send(stats.Line())

	assert.Eventually(t, func() bool {
		return logs.FilterMessage("uploaded run").Len() == 1
	}, waitFor, tick)
	require.NoError(t, stop())

	id, ok := logs.FilterMessage("uploaded run").All()[0].ContextMap()["id"].(string)
	require.True(t, ok)

	run, err := runlog.NewClient(server.URL).Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "bot", run.Robot)
	assert.Equal(t, stats, run.Statistics)
}

func TestOffline(t *testing.T) {
	c, err := New(Config{SerialPort: SerialPortNone}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Send("F"))

	stop := runController(t, c, strings.NewReader("C"), io.Discard)
	require.NoError(t, stop())
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("SERIAL_PORT", SerialPortNone)

	c, err := NewFromEnv(zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Nil(t, c.port)
	assert.Equal(t, "linefollower", c.cfg.RobotName)
}

func TestNewErrors(t *testing.T) {
	_, err := New(Config{}, zaptest.NewLogger(t))
	assert.EqualError(t, err, "missing serial port")

	_, err = New(Config{SerialPort: "/dev/ttyACM0", BaudRate: "fast"}, zaptest.NewLogger(t))
	assert.ErrorContains(t, err, "invalid baud rate")
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("SERIAL_PORT", "/dev/ttyACM0")
	t.Setenv("RUNLOG_ADDR", "http://localhost:8080")
	t.Setenv("DEBUG", "true")

	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, Config{
		SerialPort: "/dev/ttyACM0",
		BaudRate:   "115200",
		RunLogAddr: "http://localhost:8080",
		RobotName:  "linefollower",
		Debug:      true,
	}, cfg)
}
