package linefollower

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		position int
		expected Classification
	}{
		{"Center", 125, Classification{OnTrack: true}},
		{"JustInsideBand", 96, Classification{OnTrack: true}},
		{"EdgeOfBand", 95, Classification{}},
		{"LeftNotOffTrack", 10, Classification{Left: true}},
		{"FarLeftOffTrack", 3, Classification{Left: true, OffTrack: true}},
		{"ZeroIsOffTrack", 0, Classification{Left: true, OffTrack: true}},
		{"OffTrackBoundaryLow", 5, Classification{Left: true}},
		{"RightOfCenter", 160, Classification{Right: true}},
		{"RightButOnTrack", 154, Classification{OnTrack: true}},
		{"FarRightOffTrack", 246, Classification{Right: true, OffTrack: true}},
		{"OffTrackBoundaryHigh", 245, Classification{Right: true}},
		{"Max", 250, Classification{Right: true, OffTrack: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.position))
		})
	}
}

func TestStatisticsRecord(t *testing.T) {
	var s Statistics
	for _, p := range []int{125, 10, 3, 200, 250, 120} {
		s.Record(p, false)
	}
	s.Record(0, true)

	assert.Equal(t, 7, s.Loops)
	assert.Equal(t, 2, s.OnTrack)
	assert.Equal(t, 3, s.Left)
	assert.Equal(t, 2, s.Right)
	assert.Equal(t, 3, s.OffTrack)
	assert.Equal(t, 1, s.ReactionLimited)

	// on-track and off-track never overlap, but together they need not cover every loop
	assert.Less(t, s.OnTrack+s.OffTrack, s.Loops)
}

func TestStatisticsSummaryHelpers(t *testing.T) {
	t.Run("NoLoops", func(t *testing.T) {
		var s Statistics
		assert.Equal(t, 0, s.Percent(5))
		assert.Equal(t, time.Duration(0), s.AverageProcessing())
	})

	t.Run("Overrun", func(t *testing.T) {
		s := Statistics{
			Loops:          4,
			OnTrack:        3,
			ProcessingTime: 100 * time.Millisecond,
			LoopPeriod:     20 * time.Millisecond,
		}
		assert.Equal(t, 75, s.Percent(s.OnTrack))
		assert.Equal(t, 25*time.Millisecond, s.AverageProcessing())
		assert.Equal(t, -5*time.Millisecond, s.FreeTime())
	})

	t.Run("RoundsDown", func(t *testing.T) {
		s := Statistics{Loops: 3, Left: 2}
		require.Equal(t, 66, s.Percent(s.Left))
	})
}
