package services

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robostage/arena/models"
)

func intPtr(v int) *int { return &v }

func newMatchFixture(stage *models.Stage, matches ...*models.Match) (MatchService, *fakeMatchRepo, *fakeScoreRepo, *fakeStatsRepo, *recordingBroadcaster) {
	stageRepo := newFakeStageRepo(stage)
	matchRepo := newFakeMatchRepo(matches...)
	scoreRepo := newFakeScoreRepo()
	statsRepo := newFakeStatsRepo()
	broadcaster := &recordingBroadcaster{}
	rankings := NewRankingService(stageRepo, statsRepo, matchRepo)
	svc := NewMatchService(matchRepo, scoreRepo, stageRepo, rankings, broadcaster, testLogger())
	return svc, matchRepo, scoreRepo, statsRepo, broadcaster
}

func pendingMatch(id, stageID int) *models.Match {
	return &models.Match{
		ID:          id,
		StageID:     stageID,
		MatchNumber: 1,
		RoundNumber: 1,
		Status:      models.MatchStatusPending,
		Alliances: []*models.Alliance{
			{ID: id*10 + 1, MatchID: id, Color: models.AllianceRed},
			{ID: id*10 + 2, MatchID: id, Color: models.AllianceBlue},
		},
	}
}

func TestUpdateScoreCreatesAndAggregates(t *testing.T) {
	match := pendingMatch(5, 1)
	match.Status = models.MatchStatusInProgress
	svc, _, _, _, broadcaster := newMatchFixture(testStage(1, 10, 1, 2, 3, 4), match)

	score, err := svc.UpdateScore(context.Background(), 5, models.AllianceRed, UpdateScoreInput{
		AutoPoints:    intPtr(10),
		DrivePoints:   intPtr(8),
		EndgameBonus:  intPtr(2),
		PenaltyPoints: intPtr(3),
	})
	require.NoError(t, err)

	// Team count defaults to the alliance size.
	assert.Equal(t, 2, score.TeamCount)
	assert.Equal(t, 1.5, score.Multiplier)
	assert.Equal(t, 26, score.TotalPoints)
	assert.NotZero(t, score.ID)

	require.Len(t, broadcaster.scorePatches, 1)
	patch := broadcaster.scorePatches[0]
	assert.Equal(t, 5, patch.MatchID)
	assert.Equal(t, models.AllianceRed, patch.AllianceColor)
	require.NotNil(t, patch.TotalPoints)
	assert.Equal(t, 26, *patch.TotalPoints)
}

func TestUpdateScoreMergesPartialEdit(t *testing.T) {
	match := pendingMatch(5, 1)
	match.Status = models.MatchStatusInProgress
	svc, _, _, _, _ := newMatchFixture(testStage(1, 10, 1, 2, 3, 4), match)

	_, err := svc.UpdateScore(context.Background(), 5, models.AllianceBlue, UpdateScoreInput{
		AutoPoints:  intPtr(10),
		DrivePoints: intPtr(8),
	})
	require.NoError(t, err)

	// Only penalties change; the earlier sub-scores survive the merge.
	score, err := svc.UpdateScore(context.Background(), 5, models.AllianceBlue, UpdateScoreInput{
		PenaltyPoints: intPtr(4),
	})
	require.NoError(t, err)
	assert.Equal(t, 10, score.AutoPoints)
	assert.Equal(t, 8, score.DrivePoints)
	assert.Equal(t, 4, score.PenaltyPoints)
	assert.Equal(t, 21, score.TotalPoints) // (10+8-4) * 1.5
}

func TestUpdateScoreTeamCountChangesMultiplier(t *testing.T) {
	match := pendingMatch(5, 1)
	match.Status = models.MatchStatusInProgress
	svc, _, _, _, _ := newMatchFixture(testStage(1, 10, 1, 2, 3, 4), match)

	score, err := svc.UpdateScore(context.Background(), 5, models.AllianceRed, UpdateScoreInput{
		AutoPoints: intPtr(10),
		TeamCount:  intPtr(4),
	})
	require.NoError(t, err)
	assert.Equal(t, 2.0, score.Multiplier)
	assert.Equal(t, 20, score.TotalPoints)
}

func TestUpdateScoreRejectsBadColor(t *testing.T) {
	svc, _, _, _, _ := newMatchFixture(testStage(1, 10), pendingMatch(5, 1))

	_, err := svc.UpdateScore(context.Background(), 5, "green", UpdateScoreInput{})
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestUpdateScoreRejectsCompletedMatch(t *testing.T) {
	match := pendingMatch(5, 1)
	match.Status = models.MatchStatusCompleted
	svc, _, _, _, _ := newMatchFixture(testStage(1, 10), match)

	_, err := svc.UpdateScore(context.Background(), 5, models.AllianceRed, UpdateScoreInput{AutoPoints: intPtr(1)})
	assert.ErrorIs(t, err, ErrMatchAlreadyCompleted)
}

func TestUpdateScoreMatchNotFound(t *testing.T) {
	svc, _, _, _, _ := newMatchFixture(testStage(1, 10))

	_, err := svc.UpdateScore(context.Background(), 99, models.AllianceRed, UpdateScoreInput{})
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestSetStatusStartsMatch(t *testing.T) {
	svc, _, _, _, broadcaster := newMatchFixture(testStage(1, 10, 1, 2, 3, 4), pendingMatch(5, 1))

	match, err := svc.SetStatus(context.Background(), 5, models.MatchStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusInProgress, match.Status)
	require.NotNil(t, match.StartedAt)
	assert.Nil(t, match.EndedAt)

	require.Len(t, broadcaster.statePatches, 1)
	assert.Equal(t, models.MatchStatusInProgress, *broadcaster.statePatches[0].Status)
}

func TestSetStatusWarnsWhenStageLookupFailsForBroadcast(t *testing.T) {
	stageRepo := newFakeStageRepo() // no stages, so the tournament lookup fails
	matchRepo := newFakeMatchRepo(pendingMatch(5, 1))
	broadcaster := &recordingBroadcaster{}
	rankings := NewRankingService(stageRepo, newFakeStatsRepo(), matchRepo)

	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))
	svc := NewMatchService(matchRepo, newFakeScoreRepo(), stageRepo, rankings, broadcaster, logger)

	match, err := svc.SetStatus(context.Background(), 5, models.MatchStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusInProgress, match.Status)

	assert.Empty(t, broadcaster.statePatches)
	assert.Contains(t, logBuf.String(), "failed to resolve tournament for state broadcast")
}

func TestSetStatusCompletesMatchAndReranks(t *testing.T) {
	match := pendingMatch(5, 1)
	match.Status = models.MatchStatusInProgress
	red := match.Alliance(models.AllianceRed)
	blue := match.Alliance(models.AllianceBlue)
	red.TeamSlots = []*models.TeamAlliance{{TeamID: 1, Station: 1}, {TeamID: 2, Station: 2}}
	blue.TeamSlots = []*models.TeamAlliance{{TeamID: 3, Station: 1}, {TeamID: 4, Station: 2}}
	red.Scores = []*models.MatchScore{{MatchID: 5, AllianceColor: models.AllianceRed, TotalPoints: 26}}
	blue.Scores = []*models.MatchScore{{MatchID: 5, AllianceColor: models.AllianceBlue, TotalPoints: 14}}

	svc, matchRepo, _, statsRepo, _ := newMatchFixture(testStage(1, 10, 1, 2, 3, 4), match)

	updated, err := svc.SetStatus(context.Background(), 5, models.MatchStatusCompleted)
	require.NoError(t, err)
	require.NotNil(t, updated.EndedAt)

	// Alliance totals were frozen onto their rows.
	assert.Equal(t, 26, matchRepo.finalizedScores[red.ID])
	assert.Equal(t, 14, matchRepo.finalizedScores[blue.ID])

	// Completion re-ran the stage rankings.
	rows, err := statsRepo.ListByStage(context.Background(), nil, 1)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	for _, row := range rows {
		if row.TeamID == 1 || row.TeamID == 2 {
			assert.Equal(t, 2, row.RankingPoints)
		} else {
			assert.Equal(t, 0, row.RankingPoints)
		}
	}
}

func TestSetStatusRejectsInvalidTransitions(t *testing.T) {
	tests := []struct {
		name string
		from models.MatchStatus
		to   models.MatchStatus
	}{
		{"pending straight to completed", models.MatchStatusPending, models.MatchStatusCompleted},
		{"completed back to in_progress", models.MatchStatusCompleted, models.MatchStatusInProgress},
		{"in_progress back to pending", models.MatchStatusInProgress, models.MatchStatusPending},
		{"pending to pending", models.MatchStatusPending, models.MatchStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match := pendingMatch(5, 1)
			match.Status = tt.from
			svc, _, _, _, _ := newMatchFixture(testStage(1, 10, 1, 2), match)

			_, err := svc.SetStatus(context.Background(), 5, tt.to)
			assert.ErrorIs(t, err, ErrInvalidStatusChange)
		})
	}
}

func TestSetStatusMatchNotFound(t *testing.T) {
	svc, _, _, _, _ := newMatchFixture(testStage(1, 10))

	_, err := svc.SetStatus(context.Background(), 99, models.MatchStatusInProgress)
	assert.ErrorIs(t, err, ErrMatchNotFound)
}
