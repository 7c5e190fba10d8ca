package linefollower

// Version is the firmware version reported by the V command. The host refuses to drive firmware
// outside of its supported range.
const Version = "0.1.0"

// CancelFlag is the serial byte that cancels a running mode, the same as pressing button A
const CancelFlag = 'X'

// Mode is an activity the robot can run from the menu or the serial console
type Mode int

const (
	ModeUnknown Mode = iota
	ModeFollowPath
	ModeCalibrate
	ModeDisplaySensor
	ModeDriveStraight
	ModeCurveLeft
	ModeCurveRight
	ModeConfigure
)

func (m Mode) String() string {
	switch m {
	case ModeFollowPath:
		return "Follow Path"
	case ModeCalibrate:
		return "Calibrate Sensors"
	case ModeDisplaySensor:
		return "Display Linesensor"
	case ModeDriveStraight:
		return "Drive Straight"
	case ModeCurveLeft:
		return "Curve Left"
	case ModeCurveRight:
		return "Curve Right"
	case ModeConfigure:
		return "Configure"
	default:
		fallthrough
	case ModeUnknown:
		return "Unknown"
	}
}

// Next goes to the next item in the menu, wrapping around after the last one
func (m Mode) Next() Mode {
	if m >= ModeConfigure || m < ModeFollowPath {
		return ModeFollowPath
	}
	return m + 1
}

// Prev goes to the previous item in the menu, wrapping around before the first one
func (m Mode) Prev() Mode {
	if m <= ModeFollowPath || m > ModeConfigure {
		return ModeConfigure
	}
	return m - 1
}

// ShapeMode maps the input byte of the drive-shape command to a Mode
func ShapeMode(b byte) Mode {
	switch b {
	case 's':
		return ModeDriveStraight
	case 'l':
		return ModeCurveLeft
	case 'r':
		return ModeCurveRight
	}
	return ModeUnknown
}
