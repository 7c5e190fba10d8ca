package device

import (
	"io"

	"github.com/calvinmclean/linefollower"
)

// Gauges draws the status text, line position and throttles
type Gauges interface {
	ShowStatus(text string)
	ShowLinePosition(position int)
	ShowThrottle(left, right float64)
}

// DisplaySetting reports whether the dashboard should be updated
type DisplaySetting interface {
	DisplayEnabled() bool
}

// Dashboard shows the robot's progress on the gauges and as protocol lines on the console. Status text
// is always shown. Gauges and telemetry are skipped while the display setting is off.
type Dashboard struct {
	out     io.Writer
	gauges  Gauges
	setting DisplaySetting

	left, right float64
}

// NewDashboard creates a Dashboard. gauges can be nil if there is no screen.
func NewDashboard(out io.Writer, gauges Gauges, setting DisplaySetting) *Dashboard {
	return &Dashboard{out: out, gauges: gauges, setting: setting}
}

func (d *Dashboard) ShowStatus(text string) {
	if d.gauges != nil {
		d.gauges.ShowStatus(text)
	}
	d.writeLine(linefollower.PrefixStatus + " " + text)
}

// ShowLinePosition draws the position and sends a telemetry frame with the latest throttles
func (d *Dashboard) ShowLinePosition(position int) {
	if !d.setting.DisplayEnabled() {
		return
	}
	if d.gauges != nil {
		d.gauges.ShowLinePosition(position)
	}
	d.writeLine(linefollower.Telemetry{Left: d.left, Right: d.right, Position: position}.Line())
}

// ShowThrottle keeps the throttles for the next telemetry frame
func (d *Dashboard) ShowThrottle(left, right float64) {
	d.left, d.right = left, right
	if d.gauges != nil && d.setting.DisplayEnabled() {
		d.gauges.ShowThrottle(left, right)
	}
}

func (d *Dashboard) writeLine(line string) {
	_, err := io.WriteString(d.out, line+"\r\n")
	if err != nil {
		println("error writing to serial:", err.Error())
	}
}
