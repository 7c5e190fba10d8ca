// Package ui is a desktop dashboard for the robot. It shows the robot's serial output and sends
// commands with buttons.
package ui

import (
	"context"
	"fmt"
	"image/color"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"github.com/calvinmclean/linefollower"
	"github.com/calvinmclean/linefollower/settings"
)

const maxLogLines = 200

var errorColor = color.RGBA{R: 139, G: 0, B: 0, A: 255}

// UI shows the robot's output. Lines are written to it by the controller.
type UI struct {
	app    fyne.App
	logger *zap.Logger
	cmd    *commander
	timer  *timer

	mtx   sync.Mutex
	lines lineBuffer
	state *state
	log   []string
	ready bool

	status        *widget.Label
	firmware      *widget.Label
	lastError     *canvas.Text
	position      *widget.ProgressBar
	leftThrottle  *widget.ProgressBar
	rightThrottle *widget.ProgressBar
	settingValues map[settings.Field]*widget.Label
	summary       *widget.Label
	logContent    *widget.Label
}

// New creates the UI. Commands from the buttons are passed to send.
func New(app fyne.App, send func(string) error, logger *zap.Logger) *UI {
	ui := &UI{
		app:    app,
		logger: logger,
		timer:  newTimer(),
		state:  newState(),
	}
	ui.cmd = &commander{
		send: send,
		onError: func(err error) {
			logger.Error("error sending command", zap.Error(err))
		},
	}
	return ui
}

// Write parses lines from the robot and refreshes the widgets they change
func (ui *UI) Write(p []byte) (int, error) {
	ui.mtx.Lock()
	defer ui.mtx.Unlock()

	var changed []section
	for _, line := range ui.lines.write(p) {
		ui.log = append(ui.log, line)
		if len(ui.log) > maxLogLines {
			ui.log = ui.log[len(ui.log)-maxLogLines:]
		}

		s, err := ui.state.apply(line)
		if err != nil {
			ui.logger.Warn("ignoring line", zap.String("line", line), zap.Error(err))
			continue
		}
		ui.timer.track(s, ui.state.status, time.Now())
		changed = append(changed, s)
	}

	if ui.ready && len(changed) > 0 {
		snapshot := *ui.state
		logText := strings.Join(ui.log, "\n")
		fyne.Do(func() {
			for _, s := range changed {
				ui.refresh(&snapshot, s)
			}
			ui.logContent.SetText(logText)
		})
	}

	return len(p), nil
}

func (ui *UI) refresh(s *state, sec section) {
	switch sec {
	case sectionTelemetry:
		ui.position.SetValue(float64(s.telemetry.Position))
		ui.leftThrottle.SetValue(s.telemetry.Left)
		ui.rightThrottle.SetValue(s.telemetry.Right)
	case sectionSettings:
		for f, label := range ui.settingValues {
			label.SetText(s.settings.Label(f))
		}
	case sectionSummary:
		ui.summary.SetText(s.summaryText())
	case sectionStatus:
		ui.status.SetText(s.status)
	case sectionError:
		ui.lastError.Text = s.lastError
		ui.lastError.Refresh()
	case sectionVersion:
		ui.firmware.SetText("Firmware " + s.firmware)
	}
}

func (ui *UI) refreshAll() {
	ui.mtx.Lock()
	snapshot := *ui.state
	logText := strings.Join(ui.log, "\n")
	ui.ready = true
	ui.mtx.Unlock()

	for _, s := range []section{sectionTelemetry, sectionSettings, sectionSummary, sectionStatus, sectionError, sectionVersion} {
		ui.refresh(&snapshot, s)
	}
	ui.logContent.SetText(logText)
}

func throttleBar() *widget.ProgressBar {
	bar := widget.NewProgressBar()
	bar.Min = -1
	bar.Max = 1
	bar.TextFormatter = func() string {
		return fmt.Sprintf("%.2f", bar.Value)
	}
	return bar
}

func (ui *UI) createGauges() fyne.CanvasObject {
	ui.position = widget.NewProgressBar()
	ui.position.Min = linefollower.MinPosition
	ui.position.Max = linefollower.MaxPosition
	ui.position.TextFormatter = func() string {
		return fmt.Sprintf("%.0f", ui.position.Value)
	}

	ui.leftThrottle = throttleBar()
	ui.rightThrottle = throttleBar()

	return widget.NewCard("Sensor", "", container.NewVBox(
		container.NewBorder(nil, nil, widget.NewLabel("Line"), nil, ui.position),
		container.NewGridWithColumns(2,
			container.NewBorder(nil, nil, widget.NewLabel("Left"), nil, ui.leftThrottle),
			container.NewBorder(nil, nil, widget.NewLabel("Right"), nil, ui.rightThrottle),
		),
	))
}

func (ui *UI) createSettings() fyne.CanvasObject {
	ui.settingValues = map[settings.Field]*widget.Label{}

	rows := container.NewVBox()
	for _, f := range settings.Fields {
		value := widget.NewLabel("")
		ui.settingValues[f] = value

		rows.Add(container.NewGridWithColumns(4,
			widget.NewLabel(f.String()),
			value,
			widget.NewButton("-", func() { ui.cmd.Scroll(f, -1) }),
			widget.NewButton("+", func() { ui.cmd.Scroll(f, +1) }),
		))
	}

	return widget.NewCard("Settings", "", container.NewVBox(
		rows,
		widget.NewButton("Refresh", ui.cmd.Settings),
	))
}

func (ui *UI) createButtons() fyne.CanvasObject {
	stop := widget.NewButton("Stop", ui.cmd.Cancel)
	stop.Importance = widget.DangerImportance

	follow := widget.NewButton("Follow", ui.cmd.FollowPath)
	follow.Importance = widget.HighImportance

	return container.NewVBox(
		container.NewGridWithColumns(2, follow, stop),
		container.NewGridWithColumns(4,
			widget.NewButton("Calibrate", ui.cmd.Calibrate),
			widget.NewButton("Sensor", ui.cmd.ShowSensor),
			widget.NewButton("Summary", ui.cmd.Summary),
			widget.NewButton("Straight", func() { ui.cmd.DriveShape('s') }),
			widget.NewButton("Curve Left", func() { ui.cmd.DriveShape('l') }),
			widget.NewButton("Curve Right", func() { ui.cmd.DriveShape('r') }),
		),
	)
}

func (ui *UI) createLogAccordion() *widget.Accordion {
	ui.logContent = widget.NewLabel("")
	logScroll := container.NewVScroll(ui.logContent)
	logScroll.SetMinSize(fyne.NewSize(300, 100))

	return widget.NewAccordion(
		widget.NewAccordionItem("Logs", logScroll),
	)
}

// Show opens the dashboard window. The app quits when ctx is done or the window is closed.
func (ui *UI) Show(ctx context.Context) {
	window := ui.app.NewWindow("Line Follower")

	ui.status = widget.NewLabel("")
	ui.firmware = widget.NewLabel("")
	ui.lastError = canvas.NewText("", errorColor)
	ui.summary = widget.NewLabel("")

	contentContainer := container.NewVBox(
		container.NewHBox(
			container.NewPadded(ui.timer.text),
			ui.status,
			layout.NewSpacer(),
			ui.firmware,
		),
		ui.createButtons(),
		ui.createGauges(),
		ui.createSettings(),
		widget.NewCard("Last Run", "", ui.summary),
		ui.lastError,
		ui.createLogAccordion(),
	)

	ui.refreshAll()
	ui.timer.Go(ctx)

	go func() {
		<-ctx.Done()
		fyne.Do(func() {
			ui.app.Quit()
		})
	}()

	window.SetContent(contentContainer)
	window.Resize(fyne.NewSize(480, 640))
	window.SetMaster()
	window.Show()
}
