package ui

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/calvinmclean/linefollower"
	"github.com/calvinmclean/linefollower/settings"
)

// section is the part of the dashboard that a line changed
type section int

const (
	sectionNone section = iota
	sectionTelemetry
	sectionSettings
	sectionSummary
	sectionStatus
	sectionError
	sectionVersion
)

// state is everything the dashboard shows. It only changes from lines sent by the robot.
type state struct {
	telemetry linefollower.Telemetry
	settings  *settings.Settings
	summary   *linefollower.Statistics
	status    string
	lastError string
	firmware  string
}

func newState() *state {
	return &state{
		settings: settings.New(),
		status:   "Not connected",
	}
}

func (s *state) apply(line string) (section, error) {
	switch linefollower.Prefix(line) {
	case linefollower.PrefixTelemetry:
		t, err := linefollower.ParseTelemetry(line)
		if err != nil {
			return sectionNone, fmt.Errorf("error parsing telemetry: %w", err)
		}
		s.telemetry = t
		return sectionTelemetry, nil
	case linefollower.PrefixSettings:
		set, err := settings.Parse(line)
		if err != nil {
			return sectionNone, fmt.Errorf("error parsing settings: %w", err)
		}
		s.settings = set
		return sectionSettings, nil
	case linefollower.PrefixSummary:
		stats, err := linefollower.ParseStatistics(line)
		if err != nil {
			return sectionNone, fmt.Errorf("error parsing summary: %w", err)
		}
		s.summary = &stats
		return sectionSummary, nil
	case linefollower.PrefixStatus:
		s.status = strings.TrimSpace(strings.TrimPrefix(line, linefollower.PrefixStatus))
		return sectionStatus, nil
	case linefollower.PrefixError:
		s.lastError = strings.TrimSpace(strings.TrimPrefix(line, linefollower.PrefixError))
		return sectionError, nil
	case linefollower.PrefixVersion:
		v, ok := linefollower.ParseVersion(line)
		if !ok {
			return sectionNone, fmt.Errorf("invalid version line %q", line)
		}
		s.firmware = v
		return sectionVersion, nil
	}
	return sectionNone, nil
}

func (s *state) summaryText() string {
	if s.summary == nil {
		return "No runs yet"
	}

	stats := *s.summary
	return strings.Join([]string{
		fmt.Sprintf("Run %d: %d loops in %s", stats.Run, stats.Loops, stats.Duration),
		fmt.Sprintf("On track %d%%, left %d%%, right %d%%, off track %d%%",
			stats.Percent(stats.OnTrack), stats.Percent(stats.Left), stats.Percent(stats.Right), stats.Percent(stats.OffTrack)),
		fmt.Sprintf("Reaction limited %d%%", stats.Percent(stats.ReactionLimited)),
		fmt.Sprintf("Processing %s of %s per loop", stats.AverageProcessing(), stats.LoopPeriod),
	}, "\n")
}

// lineBuffer splits written bytes into complete lines
type lineBuffer struct {
	partial []byte
}

func (b *lineBuffer) write(p []byte) []string {
	b.partial = append(b.partial, p...)

	var lines []string
	for {
		i := bytes.IndexByte(b.partial, '\n')
		if i < 0 {
			return lines
		}

		line := strings.TrimRight(string(b.partial[:i]), "\r")
		b.partial = b.partial[i+1:]
		if line != "" {
			lines = append(lines, line)
		}
	}
}
