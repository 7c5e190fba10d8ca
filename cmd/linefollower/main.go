package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/calvinmclean/linefollower/controller"
	"github.com/calvinmclean/linefollower/runlog"
	"github.com/calvinmclean/linefollower/ui"
)

const appID = "com.calvinmclean.linefollower"

func main() {
	root, err := newRootCommand()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	err = root.Execute()
	if err != nil {
		os.Exit(1)
	}
}

type cli struct {
	cfg    controller.Config
	logger *zap.Logger
}

// newRootCommand reads the environment first so it can be used for the flag defaults
func newRootCommand() (*cobra.Command, error) {
	cfg, err := controller.ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	c := &cli{cfg: cfg}

	root := &cobra.Command{
		Use:          "linefollower",
		Short:        "Control a line following robot over USB serial",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			logger, err := newLogger(c.cfg.Debug)
			if err != nil {
				return fmt.Errorf("error creating logger: %w", err)
			}
			c.logger = logger
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfg.SerialPort, "port", cfg.SerialPort, "serial port of the robot, or "+controller.SerialPortNone+" to run offline")
	flags.StringVar(&c.cfg.BaudRate, "baud", cfg.BaudRate, "serial baud rate")
	flags.StringVar(&c.cfg.RunLogAddr, "runlog-addr", cfg.RunLogAddr, "run log server to upload summaries to")
	flags.StringVar(&c.cfg.RobotName, "robot", cfg.RobotName, "robot name used for uploaded runs")
	flags.StringVar(&c.cfg.TuningFile, "tuning-file", cfg.TuningFile, "YAML file with tuning presets")
	flags.StringVar(&c.cfg.TuningPreset, "preset", cfg.TuningPreset, "tuning preset to apply after connecting")
	flags.BoolVar(&c.cfg.Debug, "debug", cfg.Debug, "enable debug logs")

	root.AddCommand(
		c.consoleCommand(),
		c.uiCommand(),
		c.portsCommand(),
		c.runLogCommand(),
	)

	return root, nil
}

func (c *cli) consoleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Send commands from stdin and print the robot's output",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			ctrl, err := controller.New(c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			return ctrl.Run(ctx, os.Stdin, os.Stdout)
		},
	}
}

func (c *cli) uiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ui",
		Short: "Open the desktop dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer cancel()

			application := app.NewWithID(appID)
			runErr := make(chan error, 1)

			configWindow := ui.NewConfigWindow(application)
			configWindow.OnSubmit = func(cfg controller.Config) error {
				ctrl, err := controller.New(cfg, c.logger)
				if err != nil {
					return err
				}

				dashboard := ui.New(application, ctrl.Send, c.logger)
				dashboard.Show(ctx)

				go func() {
					defer ctrl.Close()
					err := ctrl.Run(ctx, os.Stdin, io.MultiWriter(os.Stdout, dashboard))
					if err != nil {
						runErr <- err
						cancel()
					}
				}()
				return nil
			}

			cfg := c.cfg
			configWindow.Show(&cfg)
			application.Run()
			cancel()

			select {
			case err := <-runErr:
				return err
			default:
				return nil
			}
		},
	}
}

func (c *cli) portsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List USB serial ports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ports, err := controller.GetSerialPorts()
			if errors.Is(err, controller.ErrNoUSBSerial) {
				c.logger.Warn("no USB serial ports found")
				return nil
			}
			if err != nil {
				return err
			}

			for _, p := range ports {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}

func (c *cli) runLogCommand() *cobra.Command {
	runLog := &cobra.Command{
		Use:   "runlog",
		Short: "Run log server for uploaded run summaries",
	}

	var addr string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve the run log API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			return runlog.Serve(ctx, addr, c.logger)
		},
	}
	serve.Flags().StringVar(&addr, "addr", ":8080", "address to listen on")

	runLog.AddCommand(serve)
	return runLog
}
