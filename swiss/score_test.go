package swiss

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMultiplier(t *testing.T) {
	assert.Equal(t, 1.25, Multiplier(1))
	assert.Equal(t, 1.5, Multiplier(2))
	assert.Equal(t, 1.75, Multiplier(3))
	assert.Equal(t, 2.0, Multiplier(4))

	assert.Equal(t, 1.0, Multiplier(0))
	assert.Equal(t, 1.0, Multiplier(5))
	assert.Equal(t, 1.0, Multiplier(-1))
}

func TestAggregateScore(t *testing.T) {
	tests := []struct {
		name      string
		breakdown ScoreBreakdown
		want      int
	}{
		{
			name:      "two team alliance rounds half up",
			breakdown: ScoreBreakdown{AutoPoints: 10, DrivePoints: 8, EndgameBonus: 2, PenaltyPoints: 3, TeamCount: 2},
			want:      26, // (10+8+2-3) * 1.5 = 25.5
		},
		{
			name:      "single robot",
			breakdown: ScoreBreakdown{AutoPoints: 4, DrivePoints: 4, TeamCount: 1},
			want:      10,
		},
		{
			name:      "full alliance doubles",
			breakdown: ScoreBreakdown{AutoPoints: 5, DrivePoints: 10, EndgameBonus: 5, TeamCount: 4},
			want:      40,
		},
		{
			name:      "unknown team count is neutral",
			breakdown: ScoreBreakdown{AutoPoints: 7, DrivePoints: 7, TeamCount: 7},
			want:      14,
		},
		{
			name:      "penalties can push the total negative",
			breakdown: ScoreBreakdown{DrivePoints: 2, PenaltyPoints: 7, TeamCount: 1},
			want:      -6, // -5 * 1.25 = -6.25
		},
		{
			name:      "zero breakdown",
			breakdown: ScoreBreakdown{TeamCount: 2},
			want:      0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AggregateScore(tt.breakdown))
		})
	}
}

func TestAggregateScoreRoundsOnceAtTheEnd(t *testing.T) {
	// 3 * 1.75 = 5.25 rounds to 5; rounding sub-scores first would give 6.
	got := AggregateScore(ScoreBreakdown{AutoPoints: 1, DrivePoints: 1, EndgameBonus: 1, TeamCount: 3})
	assert.Equal(t, 5, got)
}
