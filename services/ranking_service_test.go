package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robostage/arena/models"
)

func TestUpdateSwissRankingsSeedsRoster(t *testing.T) {
	stageRepo := newFakeStageRepo(testStage(1, 10, 1, 2, 3))
	matchRepo := newFakeMatchRepo()
	statsRepo := newFakeStatsRepo()
	svc := NewRankingService(stageRepo, statsRepo, matchRepo)

	require.NoError(t, svc.UpdateSwissRankings(context.Background(), 1))

	rows, err := statsRepo.ListByStage(context.Background(), nil, 1)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for _, row := range rows {
		assert.Zero(t, row.MatchesPlayed)
		assert.Zero(t, row.RankingPoints)
		assert.NotZero(t, row.ID)
	}
}

func TestUpdateSwissRankingsComputesFromMatches(t *testing.T) {
	stageRepo := newFakeStageRepo(testStage(1, 10, 1, 2, 3, 4))
	matchRepo := newFakeMatchRepo(
		finishedMatch(1, 1, 1, []int{1, 2}, []int{3, 4}, 45, 30),
	)
	statsRepo := newFakeStatsRepo()
	svc := NewRankingService(stageRepo, statsRepo, matchRepo)

	require.NoError(t, svc.UpdateSwissRankings(context.Background(), 1))

	ranked, err := svc.GetSwissRankings(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, ranked, 4)

	// Winners first; within each pair the comparator falls back to id.
	assert.Equal(t, 1, ranked[0].TeamID)
	assert.Equal(t, 2, ranked[1].TeamID)
	assert.Equal(t, 2, ranked[0].RankingPoints)
	assert.Equal(t, 15, ranked[0].PointDifferential)
	assert.Equal(t, 0, ranked[2].RankingPoints)
}

func TestUpdateSwissRankingsSeedsLateRosterAddition(t *testing.T) {
	stage := testStage(1, 10, 1, 2, 3, 4)
	stageRepo := newFakeStageRepo(stage)
	matchRepo := newFakeMatchRepo(
		finishedMatch(1, 1, 1, []int{1, 2}, []int{3, 4}, 45, 30),
	)
	statsRepo := newFakeStatsRepo()
	svc := NewRankingService(stageRepo, statsRepo, matchRepo)

	require.NoError(t, svc.UpdateSwissRankings(context.Background(), 1))
	before, err := statsRepo.ListByStage(context.Background(), nil, 1)
	require.NoError(t, err)
	require.Len(t, before, 4)

	// Team 5 registers after the first round has already been played.
	stage.TournamentTeams = append(stage.TournamentTeams, &models.Team{ID: 5, TournamentID: 10})
	require.NoError(t, svc.UpdateSwissRankings(context.Background(), 1))

	after, err := statsRepo.ListByStage(context.Background(), nil, 1)
	require.NoError(t, err)
	require.Len(t, after, 5)

	byTeam := make(map[int]*models.TeamStats, len(after))
	for _, row := range after {
		byTeam[row.TeamID] = row
	}
	newcomer := byTeam[5]
	require.NotNil(t, newcomer)
	assert.NotZero(t, newcomer.ID)
	assert.Zero(t, newcomer.MatchesPlayed)
	assert.Zero(t, newcomer.RankingPoints)
	assert.Zero(t, newcomer.OpponentWinPct)
	for _, row := range before {
		assert.Equal(t, *row, *byTeam[row.TeamID])
	}
}

func TestUpdateSwissRankingsIsIdempotent(t *testing.T) {
	stageRepo := newFakeStageRepo(testStage(1, 10, 1, 2, 3, 4))
	matchRepo := newFakeMatchRepo(
		finishedMatch(1, 1, 1, []int{1, 2}, []int{3, 4}, 45, 30),
	)
	statsRepo := newFakeStatsRepo()
	svc := NewRankingService(stageRepo, statsRepo, matchRepo)

	require.NoError(t, svc.UpdateSwissRankings(context.Background(), 1))
	first, err := statsRepo.ListByStage(context.Background(), nil, 1)
	require.NoError(t, err)

	require.NoError(t, svc.UpdateSwissRankings(context.Background(), 1))
	second, err := statsRepo.ListByStage(context.Background(), nil, 1)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		// Same row ids, same numbers: the recompute updated in place.
		assert.Equal(t, *first[i], *second[i])
	}
}

func TestUpdateSwissRankingsStageNotFound(t *testing.T) {
	svc := NewRankingService(newFakeStageRepo(), newFakeStatsRepo(), newFakeMatchRepo())

	err := svc.UpdateSwissRankings(context.Background(), 42)
	assert.ErrorIs(t, err, ErrStageNotFound)
}

func TestGetSwissRankingsStageNotFound(t *testing.T) {
	svc := NewRankingService(newFakeStageRepo(), newFakeStatsRepo(), newFakeMatchRepo())

	_, err := svc.GetSwissRankings(context.Background(), 42)
	assert.ErrorIs(t, err, ErrStageNotFound)
}
