package linefollower

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// Every line the firmware prints for the host starts with one of these prefixes. Anything else is
// free-form log output.
const (
	PrefixVersion     = "VER"
	PrefixSettings    = "SET"
	PrefixTelemetry   = "TLM"
	PrefixSummary     = "SUM"
	PrefixPosition    = "POS"
	PrefixCalibration = "CAL"
	PrefixStatus      = "MSG"
	PrefixError       = "ERR"
)

// Status text the host watches for to time a run
const (
	StatusFollowing = "Click A to quit"
	StatusCanceled  = "Canceled"
)

var errWrongPrefix = errors.New("unexpected line prefix")

// Prefix returns the first word of a line
func Prefix(line string) string {
	line = strings.TrimSpace(line)
	if i := strings.IndexByte(line, ' '); i >= 0 {
		return line[:i]
	}
	return line
}

// VersionLine is printed in response to the V command
func VersionLine() string {
	return PrefixVersion + " " + Version
}

// ParseVersion returns the version from a VER line
func ParseVersion(line string) (string, bool) {
	fields := strings.Fields(line)
	if len(fields) != 2 || fields[0] != PrefixVersion {
		return "", false
	}
	return fields[1], true
}

// Telemetry is a single frame of dashboard data
type Telemetry struct {
	Left     float64
	Right    float64
	Position int
}

// Line formats the telemetry like "TLM 0.400 0.350 125"
func (t Telemetry) Line() string {
	return PrefixTelemetry + " " +
		strconv.FormatFloat(t.Left, 'f', 3, 64) + " " +
		strconv.FormatFloat(t.Right, 'f', 3, 64) + " " +
		strconv.Itoa(t.Position)
}

// ParseTelemetry reads a TLM line
func ParseTelemetry(line string) (Telemetry, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 || fields[0] != PrefixTelemetry {
		return Telemetry{}, errWrongPrefix
	}

	var (
		t   Telemetry
		err error
	)
	t.Left, err = strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return Telemetry{}, errors.New("invalid left throttle: " + err.Error())
	}
	t.Right, err = strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return Telemetry{}, errors.New("invalid right throttle: " + err.Error())
	}
	t.Position, err = strconv.Atoi(fields[3])
	if err != nil {
		return Telemetry{}, errors.New("invalid position: " + err.Error())
	}
	return t, nil
}

// Line formats the statistics as a SUM line of key=value pairs
func (s Statistics) Line() string {
	var b strings.Builder
	b.WriteString(PrefixSummary)
	writeInt := func(k string, v int) {
		b.WriteString(" " + k + "=" + strconv.Itoa(v))
	}
	writeDuration := func(k string, v time.Duration) {
		b.WriteString(" " + k + "=" + v.String())
	}

	writeInt("run", s.Run)
	writeInt("loops", s.Loops)
	writeInt("ontrack", s.OnTrack)
	writeInt("left", s.Left)
	writeInt("right", s.Right)
	writeInt("offtrack", s.OffTrack)
	writeInt("limited", s.ReactionLimited)
	writeDuration("proc", s.ProcessingTime)
	writeDuration("dur", s.Duration)
	writeDuration("period", s.LoopPeriod)

	return b.String()
}

// ParseStatistics reads a SUM line. Unknown keys are ignored so older hosts can read newer firmware.
func ParseStatistics(line string) (Statistics, error) {
	prefix, values, err := ParseKeyValues(line)
	if err != nil {
		return Statistics{}, err
	}
	if prefix != PrefixSummary {
		return Statistics{}, errWrongPrefix
	}

	var s Statistics
	ints := map[string]*int{
		"run":      &s.Run,
		"loops":    &s.Loops,
		"ontrack":  &s.OnTrack,
		"left":     &s.Left,
		"right":    &s.Right,
		"offtrack": &s.OffTrack,
		"limited":  &s.ReactionLimited,
	}
	durations := map[string]*time.Duration{
		"proc":   &s.ProcessingTime,
		"dur":    &s.Duration,
		"period": &s.LoopPeriod,
	}

	for k, v := range values {
		if dst, ok := ints[k]; ok {
			*dst, err = strconv.Atoi(v)
			if err != nil {
				return Statistics{}, errors.New("invalid " + k + ": " + err.Error())
			}
			continue
		}
		if dst, ok := durations[k]; ok {
			*dst, err = time.ParseDuration(v)
			if err != nil {
				return Statistics{}, errors.New("invalid " + k + ": " + err.Error())
			}
		}
	}

	return s, nil
}

// ParseKeyValues splits a line like "SET thr=0.4 rr=1.3" into its prefix and values
func ParseKeyValues(line string) (string, map[string]string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil, errors.New("empty line")
	}

	values := make(map[string]string, len(fields)-1)
	for _, f := range fields[1:] {
		k, v, ok := strings.Cut(f, "=")
		if !ok || k == "" {
			return "", nil, errors.New("invalid field: " + f)
		}
		values[k] = v
	}
	return fields[0], values, nil
}
