package swiss

import "github.com/robostage/arena/models"

// AllianceSize is the number of teams per alliance in a Swiss match.
const AllianceSize = 2

// MatchPlan is a planned Swiss match before persistence: two alliances
// of two teams each, stations assigned in standing order.
type MatchPlan struct {
	MatchNumber int
	RoundNumber int
	RedTeams    [AllianceSize]int
	BlueTeams   [AllianceSize]int
}

// PairTeams greedily groups a ranked standings list into matches of four:
// the two best unused teams form the red alliance (stations 1 and 2), the
// next two form blue. Leftover teams, zero to three of them, are not
// paired this round; a partial group never forms a match. Match numbers
// run from firstMatchNumber so they stay unique within the stage.
//
// The input must already be sorted with SortStats. No team appears in
// more than one returned plan.
func PairTeams(ranked []*models.TeamStats, roundNumber, firstMatchNumber int) []*MatchPlan {
	plans := make([]*MatchPlan, 0, len(ranked)/(2*AllianceSize))
	used := make(map[int]struct{}, len(ranked))
	matchNumber := firstMatchNumber

	for {
		group := make([]int, 0, 2*AllianceSize)
		for _, standing := range ranked {
			if _, taken := used[standing.TeamID]; taken {
				continue
			}
			group = append(group, standing.TeamID)
			if len(group) == 2*AllianceSize {
				break
			}
		}
		if len(group) < 2*AllianceSize {
			break
		}
		for _, teamID := range group {
			used[teamID] = struct{}{}
		}
		plans = append(plans, &MatchPlan{
			MatchNumber: matchNumber,
			RoundNumber: roundNumber,
			RedTeams:    [AllianceSize]int{group[0], group[1]},
			BlueTeams:   [AllianceSize]int{group[2], group[3]},
		})
		matchNumber++
	}

	return plans
}
