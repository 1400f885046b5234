package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/robostage/arena/live"
	"github.com/robostage/arena/models"
	"github.com/robostage/arena/repositories"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStageRepo is an in-memory StageRepository. enterGetByID, when set,
// receives a signal on entry and then blocks until gate is closed, which
// lets tests hold a service call mid-flight.
type fakeStageRepo struct {
	mu     sync.Mutex
	stages map[int]*models.Stage
	rounds map[int]int

	enterGetByID chan struct{}
	gate         chan struct{}
}

func newFakeStageRepo(stages ...*models.Stage) *fakeStageRepo {
	r := &fakeStageRepo{
		stages: make(map[int]*models.Stage),
		rounds: make(map[int]int),
	}
	for _, stage := range stages {
		r.stages[stage.ID] = stage
	}
	return r
}

func (r *fakeStageRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, stageID int, withTournamentTeams bool) (*models.Stage, error) {
	if r.enterGetByID != nil {
		r.enterGetByID <- struct{}{}
		<-r.gate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stage, ok := r.stages[stageID]
	if !ok {
		return nil, repositories.ErrStageNotFound
	}
	return stage, nil
}

func (r *fakeStageRepo) UpdateCurrentRound(ctx context.Context, exec repositories.SQLExecutor, stageID, round int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stage, ok := r.stages[stageID]; ok {
		stage.CurrentRound = round
	}
	r.rounds[stageID] = round
	return nil
}

type fakeMatchRepo struct {
	mu      sync.Mutex
	matches []*models.Match
	nextID  int

	createErr       error
	createErrAfter  int
	createdCount    int
	finalizedScores map[int]int
}

func newFakeMatchRepo(matches ...*models.Match) *fakeMatchRepo {
	r := &fakeMatchRepo{nextID: 1000, finalizedScores: make(map[int]int), createErrAfter: -1}
	r.matches = append(r.matches, matches...)
	return r
}

func (r *fakeMatchRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, matchID int, withAlliances bool) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.matches {
		if m.ID == matchID {
			return m, nil
		}
	}
	return nil, repositories.ErrMatchNotFound
}

func (r *fakeMatchRepo) ListByStage(ctx context.Context, exec repositories.SQLExecutor, stageID int, withAlliances bool) ([]*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Match
	for _, m := range r.matches {
		if m.StageID == stageID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MatchNumber < out[j].MatchNumber })
	return out, nil
}

func (r *fakeMatchRepo) NextMatchNumber(ctx context.Context, exec repositories.SQLExecutor, stageID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	max := 0
	for _, m := range r.matches {
		if m.StageID == stageID && m.MatchNumber > max {
			max = m.MatchNumber
		}
	}
	return max + 1, nil
}

func (r *fakeMatchRepo) Create(ctx context.Context, match *models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil && r.createdCount >= r.createErrAfter {
		return r.createErr
	}
	match.ID = r.nextID
	r.nextID++
	for _, alliance := range match.Alliances {
		alliance.ID = r.nextID
		alliance.MatchID = match.ID
		r.nextID++
	}
	r.matches = append(r.matches, match)
	r.createdCount++
	return nil
}

func (r *fakeMatchRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	return nil
}

func (r *fakeMatchRepo) UpdateAllianceScore(ctx context.Context, exec repositories.SQLExecutor, allianceID, score int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finalizedScores[allianceID] = score
	return nil
}

type fakeStatsRepo struct {
	mu     sync.Mutex
	rows   map[int]map[int]*models.TeamStats // stageID -> teamID -> row
	nextID int

	upserts int
}

func newFakeStatsRepo() *fakeStatsRepo {
	return &fakeStatsRepo{rows: make(map[int]map[int]*models.TeamStats), nextID: 1}
}

func (r *fakeStatsRepo) ListByStage(ctx context.Context, exec repositories.SQLExecutor, stageID int) ([]*models.TeamStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.TeamStats
	for _, row := range r.rows[stageID] {
		copied := *row
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TeamID < out[j].TeamID })
	return out, nil
}

func (r *fakeStatsRepo) BatchUpsert(ctx context.Context, exec repositories.SQLExecutor, stats []*models.TeamStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts++
	for _, row := range stats {
		byTeam, ok := r.rows[row.StageID]
		if !ok {
			byTeam = make(map[int]*models.TeamStats)
			r.rows[row.StageID] = byTeam
		}
		if row.ID == 0 {
			if existing, ok := byTeam[row.TeamID]; ok {
				row.ID = existing.ID
			} else {
				row.ID = r.nextID
				r.nextID++
			}
		}
		copied := *row
		byTeam[row.TeamID] = &copied
	}
	return nil
}

type fakeScoreRepo struct {
	mu     sync.Mutex
	scores map[string]*models.MatchScore
	nextID int
}

func newFakeScoreRepo() *fakeScoreRepo {
	return &fakeScoreRepo{scores: make(map[string]*models.MatchScore), nextID: 1}
}

func scoreKey(matchID int, color models.AllianceColor) string {
	return fmt.Sprintf("%d/%s", matchID, color)
}

func (r *fakeScoreRepo) GetByMatchAndColor(ctx context.Context, exec repositories.SQLExecutor, matchID int, color models.AllianceColor) (*models.MatchScore, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	score, ok := r.scores[scoreKey(matchID, color)]
	if !ok {
		return nil, repositories.ErrMatchScoreNotFound
	}
	copied := *score
	return &copied, nil
}

func (r *fakeScoreRepo) Upsert(ctx context.Context, exec repositories.SQLExecutor, score *models.MatchScore) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if score.ID == 0 {
		if existing, ok := r.scores[scoreKey(score.MatchID, score.AllianceColor)]; ok {
			score.ID = existing.ID
		} else {
			score.ID = r.nextID
			r.nextID++
		}
	}
	copied := *score
	r.scores[scoreKey(score.MatchID, score.AllianceColor)] = &copied
	return nil
}

// recordingBroadcaster captures everything published through the
// MatchBroadcaster slice of the live channel.
type recordingBroadcaster struct {
	mu           sync.Mutex
	matchPatches []live.MatchPatch
	statePatches []live.MatchPatch
	scorePatches []live.ScorePatch
}

func (b *recordingBroadcaster) PublishMatchUpdate(tournamentID int, fieldID *int, patch live.MatchPatch) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.matchPatches = append(b.matchPatches, patch)
	return nil
}

func (b *recordingBroadcaster) PublishMatchState(tournamentID int, fieldID *int, patch live.MatchPatch) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statePatches = append(b.statePatches, patch)
	return nil
}

func (b *recordingBroadcaster) PublishScoreUpdate(tournamentID int, fieldID *int, patch live.ScorePatch) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scorePatches = append(b.scorePatches, patch)
	return nil
}
