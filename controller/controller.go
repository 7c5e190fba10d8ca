// Package controller bridges the robot's serial console to the host. It checks the firmware version,
// applies tuning presets, forwards commands and uploads run summaries.
package controller

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"

	"github.com/calvinmclean/linefollower"
	"github.com/calvinmclean/linefollower/runlog"
	"github.com/calvinmclean/linefollower/tuning"
)

// SerialPortNone runs without a robot so the UI can be used offline
const SerialPortNone = "None"

// SupportedFirmware is the range of firmware versions this host can drive
const SupportedFirmware = "~0.1"

const DefaultHandshakeTimeout = 2 * time.Second

var (
	ErrNoUSBSerial          = errors.New("no USB serial ports found")
	ErrIncompatibleFirmware = errors.New("incompatible firmware version")
	ErrNoVersion            = errors.New("robot did not report its version")
)

// Controller talks to the robot over a serial port
type Controller struct {
	cfg    Config
	logger *zap.Logger
	runLog runLogClient

	// HandshakeTimeout is how long Run waits for the robot's version
	HandshakeTimeout time.Duration

	portMtx sync.Mutex
	port    io.ReadWriteCloser

	tuningCommands []string
	settingsLine   string
	firmware       *semver.Version
}

// NewFromEnv creates a Controller from the environment
func NewFromEnv(logger *zap.Logger) (*Controller, error) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return New(cfg, logger)
}

// New opens the configured serial port and creates the Controller
func New(cfg Config, logger *zap.Logger) (*Controller, error) {
	port, err := openPort(cfg)
	if err != nil {
		return nil, err
	}

	c, err := NewWithPort(cfg, port, logger)
	if err != nil && port != nil {
		_ = port.Close()
	}
	return c, err
}

// NewWithPort creates a Controller that uses an already open port. A nil port runs offline.
func NewWithPort(cfg Config, port io.ReadWriteCloser, logger *zap.Logger) (*Controller, error) {
	c := &Controller{
		cfg:              cfg,
		logger:           logger,
		runLog:           noopRunLogClient{},
		HandshakeTimeout: DefaultHandshakeTimeout,
		port:             port,
	}

	if cfg.RunLogAddr != "" {
		c.runLog = runlog.NewClient(cfg.RunLogAddr)
	}

	if cfg.TuningFile != "" {
		f, err := tuning.Load(cfg.TuningFile)
		if err != nil {
			return nil, err
		}
		preset, err := f.Preset(cfg.TuningPreset)
		if err != nil {
			return nil, fmt.Errorf("error selecting tuning preset: %w", err)
		}
		c.tuningCommands, err = preset.Commands()
		if err != nil {
			return nil, fmt.Errorf("invalid tuning preset: %w", err)
		}
	}

	return c, nil
}

func openPort(cfg Config) (io.ReadWriteCloser, error) {
	switch cfg.SerialPort {
	case "":
		return nil, errors.New("missing serial port")
	case SerialPortNone:
		return nil, nil
	}

	baudRate, err := strconv.Atoi(cfg.BaudRate)
	if err != nil {
		return nil, fmt.Errorf("invalid baud rate %q: %w", cfg.BaudRate, err)
	}

	port, err := serial.Open(cfg.SerialPort, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("error opening serial port: %w", err)
	}
	return port, nil
}

// GetSerialPorts lists the USB serial ports
func GetSerialPorts() ([]string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("error listing serial ports: %w", err)
	}

	var names []string
	for _, p := range ports {
		if p.IsUSB {
			names = append(names, p.Name)
		}
	}
	if len(names) == 0 {
		return nil, ErrNoUSBSerial
	}
	return names, nil
}

func (c *Controller) Close() error {
	if c.port == nil {
		return nil
	}
	return c.port.Close()
}

// Firmware is the robot's version after a successful handshake
func (c *Controller) Firmware() *semver.Version {
	return c.firmware
}

// Write sends raw command bytes to the robot
func (c *Controller) Write(p []byte) (int, error) {
	if c.port == nil {
		c.logger.Debug("offline, dropping command", zap.ByteString("command", p))
		return len(p), nil
	}

	c.portMtx.Lock()
	defer c.portMtx.Unlock()
	return c.port.Write(p)
}

// Send writes a single command to the robot
func (c *Controller) Send(cmd string) error {
	_, err := io.WriteString(c, cmd)
	if err != nil {
		return fmt.Errorf("error sending command %q: %w", cmd, err)
	}
	return nil
}

// Run forwards commands from in to the robot and writes every line from the robot to out. It returns
// when ctx is done or the port is closed.
func (c *Controller) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	go func() {
		_, err := io.Copy(c, in)
		if err != nil {
			c.logger.Error("error forwarding input", zap.Error(err))
		}
	}()

	if c.port == nil {
		c.logger.Warn("no serial port selected, running offline")
		<-ctx.Done()
		return nil
	}

	lines := make(chan string)
	readErr := make(chan error, 1)
	go c.readLines(ctx, lines, readErr)

	err := c.handshake(ctx, lines, readErr, out)
	if err != nil {
		return err
	}

	err = c.applyTuning()
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case line := <-lines:
			c.handleLine(ctx, line, out)
		}
	}
}

func (c *Controller) readLines(ctx context.Context, lines chan<- string, readErr chan<- error) {
	scanner := bufio.NewScanner(c.port)
	for scanner.Scan() {
		line := strings.Trim(scanner.Text(), "\x00 \r")
		if line == "" {
			continue
		}

		select {
		case lines <- line:
		case <-ctx.Done():
			return
		}
	}

	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	readErr <- fmt.Errorf("error reading from robot: %w", err)
}

// handshake asks for the firmware version and makes sure it is supported
func (c *Controller) handshake(ctx context.Context, lines <-chan string, readErr <-chan error, out io.Writer) error {
	constraint, err := semver.NewConstraint(SupportedFirmware)
	if err != nil {
		return fmt.Errorf("invalid firmware constraint: %w", err)
	}

	err = c.Send("V")
	if err != nil {
		return err
	}

	timeout := time.NewTimer(c.HandshakeTimeout)
	defer timeout.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout.C:
			return ErrNoVersion
		case err := <-readErr:
			return err
		case line := <-lines:
			c.handleLine(ctx, line, out)

			raw, ok := linefollower.ParseVersion(line)
			if !ok {
				continue
			}

			v, err := semver.NewVersion(raw)
			if err != nil {
				return fmt.Errorf("%w: %q: %w", ErrIncompatibleFirmware, raw, err)
			}
			if !constraint.Check(v) {
				return fmt.Errorf("%w: %s does not satisfy %s", ErrIncompatibleFirmware, v, SupportedFirmware)
			}

			c.firmware = v
			c.logger.Info("connected to robot", zap.String("firmware", v.String()))
			return nil
		}
	}
}

// applyTuning sends the preset's commands and then asks for the settings so the new values are printed
func (c *Controller) applyTuning() error {
	if len(c.tuningCommands) == 0 {
		return nil
	}

	c.logger.Info("applying tuning preset", zap.String("preset", c.cfg.TuningPreset), zap.Strings("commands", c.tuningCommands))
	for _, cmd := range append(c.tuningCommands, "D") {
		err := c.Send(cmd)
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) handleLine(ctx context.Context, line string, out io.Writer) {
	_, err := fmt.Fprintln(out, line)
	if err != nil {
		c.logger.Error("error writing output", zap.Error(err))
	}

	switch linefollower.Prefix(line) {
	case linefollower.PrefixSettings:
		c.settingsLine = line
	case linefollower.PrefixSummary:
		stats, err := linefollower.ParseStatistics(line)
		if err != nil {
			c.logger.Warn("invalid summary", zap.String("line", line), zap.Error(err))
			return
		}
		c.upload(ctx, stats)
	case linefollower.PrefixError:
		c.logger.Warn("robot error", zap.String("message", strings.TrimPrefix(line, linefollower.PrefixError+" ")))
	}
}

func (c *Controller) upload(ctx context.Context, stats linefollower.Statistics) {
	if stats.Loops == 0 {
		c.logger.Debug("skipping upload of run without loops", zap.Int("run", stats.Run))
		return
	}

	run, err := c.runLog.Upload(ctx, c.cfg.RobotName, c.settingsLine, stats)
	if err != nil {
		c.logger.Error("error uploading run", zap.Int("run", stats.Run), zap.Error(err))
		return
	}
	if run != nil {
		c.logger.Info("uploaded run", zap.Int("run", stats.Run), zap.String("id", run.GetID()))
	}
}
