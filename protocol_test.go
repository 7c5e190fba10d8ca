package linefollower

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatisticsLine(t *testing.T) {
	s := Statistics{
		Run:             3,
		Loops:           250,
		OnTrack:         200,
		Left:            20,
		Right:           30,
		OffTrack:        4,
		ReactionLimited: 12,
		ProcessingTime:  4 * time.Second,
		Duration:        5500 * time.Millisecond,
		LoopPeriod:      20 * time.Millisecond,
	}

	line := s.Line()
	assert.Equal(t, "SUM run=3 loops=250 ontrack=200 left=20 right=30 offtrack=4 limited=12 proc=4s dur=5.5s period=20ms", line)

	parsed, err := ParseStatistics(line + "\r")
	require.NoError(t, err)
	assert.Equal(t, s, parsed)
}

func TestParseStatisticsErrors(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"WrongPrefix", "SET thr=0.4"},
		{"BadInt", "SUM loops=abc"},
		{"BadDuration", "SUM proc=fast"},
		{"NotKeyValue", "SUM loops"},
		{"Empty", "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseStatistics(tt.line)
			assert.Error(t, err)
		})
	}
}

func TestTelemetry(t *testing.T) {
	tlm := Telemetry{Left: 0.4, Right: -0.25, Position: 87}
	assert.Equal(t, "TLM 0.400 -0.250 87", tlm.Line())

	parsed, err := ParseTelemetry("TLM 0.400 -0.250 87\r\n")
	require.NoError(t, err)
	assert.Equal(t, tlm, parsed)

	_, err = ParseTelemetry("TLM 0.4 0.2")
	assert.Error(t, err)

	_, err = ParseTelemetry("TLM 0.4 0.2 x")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	v, ok := ParseVersion(VersionLine())
	require.True(t, ok)
	assert.Equal(t, Version, v)

	_, ok = ParseVersion("SUM run=1")
	assert.False(t, ok)
}

func TestPrefix(t *testing.T) {
	assert.Equal(t, "TLM", Prefix("TLM 1 2 3"))
	assert.Equal(t, "VER", Prefix("  VER"))
	assert.Equal(t, "", Prefix(""))
}

func TestModeMenuOrder(t *testing.T) {
	assert.Equal(t, ModeCalibrate, ModeFollowPath.Next())
	assert.Equal(t, ModeConfigure, ModeCurveRight.Next())
	assert.Equal(t, ModeFollowPath, ModeConfigure.Next())
	assert.Equal(t, ModeConfigure, ModeFollowPath.Prev())
	assert.Equal(t, ModeFollowPath, ModeUnknown.Next())
	assert.Equal(t, ModeCurveLeft, ShapeMode('l'))
	assert.Equal(t, ModeUnknown, ShapeMode('x'))
}
