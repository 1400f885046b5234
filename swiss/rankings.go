package swiss

import (
	"sort"

	"github.com/robostage/arena/models"
)

// ComputeStats rederives the full TeamStats table for a stage from its
// completed matches. Every roster team gets a row, zeroed if it has not
// played; teams that show up in match history but are missing from the
// roster get a row too, so the function never loses a result.
//
// The computation is a single pass plus an OWP pass: a team's opponent
// win percentage is the mean of its distinct opponents' raw win
// percentages over the same match set. That is deliberately non-iterative
// (no recursive strength-of-schedule adjustment), which keeps repeated
// calls idempotent and order-independent.
func ComputeStats(stageID int, roster []*models.Team, matches []*models.Match) []*models.TeamStats {
	statsByTeam := make(map[int]*models.TeamStats, len(roster))
	opponents := make(map[int]map[int]struct{})

	ensure := func(teamID int) *models.TeamStats {
		if s, ok := statsByTeam[teamID]; ok {
			return s
		}
		s := &models.TeamStats{StageID: stageID, TeamID: teamID}
		statsByTeam[teamID] = s
		opponents[teamID] = make(map[int]struct{})
		return s
	}

	for _, team := range roster {
		ensure(team.ID)
	}

	for _, match := range matches {
		if match.Status != models.MatchStatusCompleted {
			continue
		}
		red := match.Alliance(models.AllianceRed)
		blue := match.Alliance(models.AllianceBlue)
		if red == nil || blue == nil {
			continue
		}
		redTotal := red.TotalPoints()
		blueTotal := blue.TotalPoints()

		recordAlliance(ensure, opponents, red.TeamIDs(), blue.TeamIDs(), redTotal, blueTotal)
		recordAlliance(ensure, opponents, blue.TeamIDs(), red.TeamIDs(), blueTotal, redTotal)
	}

	for teamID, s := range statsByTeam {
		s.RankingPoints = s.Wins*2 + s.Ties
		s.PointDifferential = s.PointsScored - s.PointsConceded
		s.OpponentWinPct = opponentWinPct(statsByTeam, opponents[teamID])
	}

	result := make([]*models.TeamStats, 0, len(statsByTeam))
	for _, s := range statsByTeam {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].TeamID < result[j].TeamID })
	return result
}

func recordAlliance(
	ensure func(int) *models.TeamStats,
	opponents map[int]map[int]struct{},
	ownTeams, oppTeams []int,
	ownTotal, oppTotal int,
) {
	for _, teamID := range ownTeams {
		s := ensure(teamID)
		s.MatchesPlayed++
		s.PointsScored += ownTotal
		s.PointsConceded += oppTotal
		switch {
		case ownTotal > oppTotal:
			s.Wins++
		case ownTotal < oppTotal:
			s.Losses++
		default:
			s.Ties++
		}
		for _, oppID := range oppTeams {
			opponents[teamID][oppID] = struct{}{}
		}
	}
}

// opponentWinPct averages the raw win percentage of each distinct
// opponent faced. An opponent met twice still counts once.
func opponentWinPct(statsByTeam map[int]*models.TeamStats, opps map[int]struct{}) float64 {
	if len(opps) == 0 {
		return 0
	}
	sum := 0.0
	for oppID := range opps {
		if opp, ok := statsByTeam[oppID]; ok {
			sum += opp.WinPct()
		}
	}
	return sum / float64(len(opps))
}

// CompareStats orders two standings rows: ranking points, then opponent
// win percentage, then point differential, then matches played, all
// descending, with team id ascending as the final deterministic key.
// This is the one comparator used everywhere rankings are ordered, for
// display and for pairing alike.
func CompareStats(a, b *models.TeamStats) int {
	if a.RankingPoints != b.RankingPoints {
		if a.RankingPoints > b.RankingPoints {
			return -1
		}
		return 1
	}
	if a.OpponentWinPct != b.OpponentWinPct {
		if a.OpponentWinPct > b.OpponentWinPct {
			return -1
		}
		return 1
	}
	if a.PointDifferential != b.PointDifferential {
		if a.PointDifferential > b.PointDifferential {
			return -1
		}
		return 1
	}
	if a.MatchesPlayed != b.MatchesPlayed {
		if a.MatchesPlayed > b.MatchesPlayed {
			return -1
		}
		return 1
	}
	if a.TeamID != b.TeamID {
		if a.TeamID < b.TeamID {
			return -1
		}
		return 1
	}
	return 0
}

// SortStats sorts standings in place using CompareStats.
func SortStats(stats []*models.TeamStats) {
	sort.SliceStable(stats, func(i, j int) bool {
		return CompareStats(stats[i], stats[j]) < 0
	})
}
