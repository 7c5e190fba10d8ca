package linefollower

import "time"

// Line sensor readings run from 0 to 250. Small numbers mean the robot is left of the line (the line is
// to its right) and big numbers mean it is right of the line.
const (
	MinPosition    = 0
	CenterPosition = 125
	MaxPosition    = 250

	// OnTrackBand is the distance from center that still counts as on track
	OnTrackBand = 30

	OffTrackLow  = 5
	OffTrackHigh = 245

	LeftThreshold  = 95
	RightThreshold = 155
)

// Classification is how a single reading is counted. The thresholds are independent, so a reading can
// be both Left and OffTrack.
type Classification struct {
	OnTrack  bool
	Left     bool
	Right    bool
	OffTrack bool
}

// Classify applies the statistics thresholds to a position
func Classify(position int) Classification {
	offset := position - CenterPosition
	if offset < 0 {
		offset = -offset
	}
	return Classification{
		OnTrack:  offset < OnTrackBand,
		Left:     position < LeftThreshold,
		Right:    position > RightThreshold,
		OffTrack: position < OffTrackLow || position > OffTrackHigh,
	}
}

// Statistics are collected for a single follow-path run. They are reset at the start of each run,
// updated once per loop and frozen when the run is canceled.
type Statistics struct {
	Run int

	Loops           int
	OnTrack         int
	Left            int
	Right           int
	OffTrack        int
	ReactionLimited int

	// ProcessingTime is the total time spent in the loop body, not including the sleep
	ProcessingTime time.Duration
	// Duration is wall-clock time from the first loop until cancellation
	Duration time.Duration
	// LoopPeriod is the configured period used for the run
	LoopPeriod time.Duration
}

// Record counts a single loop iteration
func (s *Statistics) Record(position int, limited bool) Classification {
	c := Classify(position)

	s.Loops++
	if c.OnTrack {
		s.OnTrack++
	}
	if c.Left {
		s.Left++
	}
	if c.Right {
		s.Right++
	}
	if c.OffTrack {
		s.OffTrack++
	}
	if limited {
		s.ReactionLimited++
	}

	return c
}

// Percent returns the integer percentage of loops that the count represents
func (s Statistics) Percent(count int) int {
	if s.Loops == 0 {
		return 0
	}
	return 100 * count / s.Loops
}

// AverageProcessing is the mean processing time per loop
func (s Statistics) AverageProcessing() time.Duration {
	if s.Loops == 0 {
		return 0
	}
	return s.ProcessingTime / time.Duration(s.Loops)
}

// FreeTime is how much of the loop period was left over on average. It is negative when the loop
// overran its period.
func (s Statistics) FreeTime() time.Duration {
	return s.LoopPeriod - s.AverageProcessing()
}
