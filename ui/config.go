package ui

import (
	"errors"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/calvinmclean/linefollower/controller"
	"github.com/calvinmclean/linefollower/tuning"
)

type ConfigWindow struct {
	app fyne.App

	// OnSubmit is called with the final config. The window stays open if it returns an error.
	OnSubmit func(controller.Config) error
}

func NewConfigWindow(app fyne.App) *ConfigWindow {
	return &ConfigWindow{
		app: app,
	}
}

// loadConfigFromPreferences fills the fields that are not already set
func (cw *ConfigWindow) loadConfigFromPreferences(cfg *controller.Config) {
	prefs := cw.app.Preferences()
	fallback := func(value *string, key, def string) {
		if *value == "" {
			*value = prefs.StringWithFallback(key, def)
		}
	}

	fallback(&cfg.SerialPort, "serialPort", "")
	fallback(&cfg.BaudRate, "baudRate", "115200")
	fallback(&cfg.RunLogAddr, "runLogAddr", "")
	fallback(&cfg.RobotName, "robotName", "linefollower")
	fallback(&cfg.TuningFile, "tuningFile", "")
	fallback(&cfg.TuningPreset, "tuningPreset", "")
}

func (cw *ConfigWindow) saveConfigToPreferences(cfg *controller.Config) {
	prefs := cw.app.Preferences()
	prefs.SetString("serialPort", cfg.SerialPort)
	prefs.SetString("baudRate", cfg.BaudRate)
	prefs.SetString("runLogAddr", cfg.RunLogAddr)
	prefs.SetString("robotName", cfg.RobotName)
	prefs.SetString("tuningFile", cfg.TuningFile)
	prefs.SetString("tuningPreset", cfg.TuningPreset)
}

// validConfig is true when the window can be submitted
func validConfig(cfg *controller.Config) bool {
	return cfg.SerialPort != "" &&
		cfg.BaudRate != "" &&
		cfg.RobotName != "" &&
		(cfg.TuningFile == "" || cfg.TuningPreset != "")
}

func (cw *ConfigWindow) Show(cfg *controller.Config) {
	window := cw.app.NewWindow("Line Follower - Configuration")
	window.Resize(fyne.NewSize(400, 300))
	window.SetCloseIntercept(func() {
		// Treat window close as cancel
		window.Close()
		cw.app.Quit()
	})
	window.Show()

	cw.loadConfigFromPreferences(cfg)

	serialPorts, err := controller.GetSerialPorts()
	if err != nil && !errors.Is(err, controller.ErrNoUSBSerial) {
		showError(cw.app, window, fmt.Errorf("error getting serial ports: %w", err))
		return
	}

	serialPorts = append(serialPorts, controller.SerialPortNone)

	serialEntry := widget.NewSelect(serialPorts, nil)
	if cfg.SerialPort == "" {
		cfg.SerialPort = serialPorts[0]
	}
	serialEntry.Bind(binding.BindString(&cfg.SerialPort))

	baudRateEntry := widget.NewEntry()
	baudRateEntry.Bind(binding.BindString(&cfg.BaudRate))

	runLogAddrEntry := widget.NewEntry()
	runLogAddrEntry.SetPlaceHolder("optional")
	runLogAddrEntry.Bind(binding.BindString(&cfg.RunLogAddr))

	robotNameEntry := widget.NewEntry()
	robotNameEntry.Bind(binding.BindString(&cfg.RobotName))

	presetEntry := widget.NewSelect(presetNames(cfg.TuningFile), nil)
	presetEntry.Bind(binding.BindString(&cfg.TuningPreset))

	tuningFileEntry := widget.NewEntry()
	tuningFileEntry.SetPlaceHolder("optional")
	tuningFileEntry.Bind(binding.BindString(&cfg.TuningFile))

	submitButton := widget.NewButton("Submit", func() {
		err := cw.OnSubmit(*cfg)
		if err != nil {
			dialog.ShowError(err, window)
			return
		}
		cw.saveConfigToPreferences(cfg)
		window.Close()
	})

	validateForm := func() {
		if validConfig(cfg) {
			submitButton.Enable()
		} else {
			submitButton.Disable()
		}
	}

	serialEntry.OnChanged = func(_ string) { validateForm() }
	baudRateEntry.OnChanged = func(_ string) { validateForm() }
	robotNameEntry.OnChanged = func(_ string) { validateForm() }
	presetEntry.OnChanged = func(_ string) { validateForm() }
	tuningFileEntry.OnChanged = func(path string) {
		presetEntry.SetOptions(presetNames(path))
		validateForm()
	}

	validateForm()

	form := container.NewVBox(
		widget.NewCard("Configuration", "", container.NewVBox(
			container.NewGridWithColumns(2,
				widget.NewLabel("Serial Port:"),
				serialEntry,
			),
			container.NewGridWithColumns(2,
				widget.NewLabel("Baud Rate:"),
				baudRateEntry,
			),
			container.NewGridWithColumns(2,
				widget.NewLabel("Robot Name:"),
				robotNameEntry,
			),
			container.NewGridWithColumns(2,
				widget.NewLabel("Run Log Address:"),
				runLogAddrEntry,
			),
			container.NewGridWithColumns(2,
				widget.NewLabel("Tuning File:"),
				tuningFileEntry,
			),
			container.NewGridWithColumns(2,
				widget.NewLabel("Tuning Preset:"),
				presetEntry,
			),
		)),
		container.NewHBox(
			widget.NewButton("Cancel", func() {
				window.Close()
				cw.app.Quit()
			}),
			submitButton,
		),
	)

	window.SetContent(form)
}

// presetNames lists the presets in a tuning file, or nothing if it can't be read
func presetNames(path string) []string {
	if path == "" {
		return nil
	}
	f, err := tuning.Load(path)
	if err != nil {
		return nil
	}
	return f.Names()
}

func showError(app fyne.App, window fyne.Window, err error) {
	d := dialog.NewError(err, window)
	d.SetOnClosed(func() {
		app.Quit()
	})
	d.Show()
}
