package services

import (
	"sort"

	"github.com/Dosada05/fencing-club/brackets"
	"github.com/Dosada05/fencing-club/models"
	"go.uber.org/zap"
)

// ComputeStandings ranks the roster from approved, complete matches. Each
// normalized pair counts once whatever orientations are stored, and self
// pairs or matches against athletes outside the roster are skipped with a
// warning. Ordering is wins, then point difference, then athlete id.
func ComputeStandings(athletes []int, matches []*models.Match, names map[int]string, logger *zap.Logger) []models.TournamentStanding {
	rows := make(map[int]*models.TournamentStanding, len(athletes))
	for _, id := range athletes {
		rows[id] = &models.TournamentStanding{AthleteID: id, Name: names[id]}
	}

	ordered := make([]*models.Match, 0, len(matches))
	for _, m := range matches {
		if m != nil {
			ordered = append(ordered, m)
		}
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	counted := make(map[brackets.PairKey]struct{}, len(ordered))
	for _, m := range ordered {
		if m.Status != models.MatchApproved || !m.IsComplete() {
			continue
		}
		if m.IsSelfPair() {
			logger.Warn("skipping self-paired match in standings", zap.Int("match_id", m.ID), zap.Int("athlete_id", m.AthleteAID))
			continue
		}
		a, okA := rows[m.AthleteAID]
		b, okB := rows[m.AthleteBID]
		if !okA || !okB {
			logger.Warn("skipping match with athlete outside roster", zap.Int("match_id", m.ID))
			continue
		}
		key := brackets.NewPairKey(m.AthleteAID, m.AthleteBID)
		if _, dup := counted[key]; dup {
			logger.Warn("skipping duplicate match for pair", zap.Int("match_id", m.ID), zap.Int("low", key.Low), zap.Int("high", key.High))
			continue
		}
		counted[key] = struct{}{}

		scoreA, scoreB := *m.ScoreA, *m.ScoreB
		record(a, scoreA, scoreB)
		record(b, scoreB, scoreA)
	}

	standings := make([]models.TournamentStanding, 0, len(rows))
	for _, id := range athletes {
		r := rows[id]
		r.PointDiff = r.ScoreFor - r.ScoreAgainst
		standings = append(standings, *r)
	}
	sort.SliceStable(standings, func(i, j int) bool {
		x, y := standings[i], standings[j]
		if x.Wins != y.Wins {
			return x.Wins > y.Wins
		}
		if x.PointDiff != y.PointDiff {
			return x.PointDiff > y.PointDiff
		}
		return x.AthleteID < y.AthleteID
	})
	for i := range standings {
		standings[i].Rank = i + 1
	}
	return standings
}

func record(row *models.TournamentStanding, own, other int) {
	row.Played++
	row.ScoreFor += own
	row.ScoreAgainst += other
	switch {
	case own > other:
		row.Wins++
	case own < other:
		row.Losses++
	}
}
