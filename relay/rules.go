// Package relay holds the rules of a 3v3 relay team match: nine legs with
// escalating cumulative targets, a per-leg touch cap, a per-leg time limit and
// a sudden-death overtime after a tied ninth leg.
package relay

import (
	"fmt"
	"time"

	"github.com/Dosada05/fencing-club/models"
)

const (
	BoutCount     = 9
	TeamSize      = 3
	TargetStep    = 5
	FinalTarget   = BoutCount * TargetStep
	TouchCap      = 5
	BoutTimeLimit = 180 * time.Second
	OvertimeLimit = 60 * time.Second
)

// boutOrder is the standard relay sheet 3-6, 1-5, 2-4, 1-6, 3-4, 2-5, 1-4, 2-6, 3-5
// expressed as 0-based roster slots (team B fencers 4..6 map to slots 0..2).
var boutOrder = [BoutCount][2]int{
	{2, 2}, {0, 1}, {1, 0},
	{0, 2}, {2, 0}, {1, 1},
	{0, 0}, {1, 2}, {2, 1},
}

// TargetFor returns the cumulative score that ends bout n.
func TargetFor(boutNumber int) int {
	return boutNumber * TargetStep
}

// Slots returns which roster slots fence in bout n.
func Slots(boutNumber int) (slotA, slotB int) {
	p := boutOrder[boutNumber-1]
	return p[0], p[1]
}

// NewBouts builds the nine pending legs of a team match.
func NewBouts(teamMatchID int) []*models.TeamMatchBout {
	bouts := make([]*models.TeamMatchBout, 0, BoutCount)
	for n := 1; n <= BoutCount; n++ {
		a, b := Slots(n)
		bouts = append(bouts, &models.TeamMatchBout{
			TeamMatchID: teamMatchID,
			BoutNumber:  n,
			SlotA:       a,
			SlotB:       b,
			TargetScore: TargetFor(n),
			Status:      models.BoutPending,
		})
	}
	return bouts
}

// ValidateTeams checks both rosters: three distinct athletes, nobody on both sides.
func ValidateTeams(teamA, teamB [TeamSize]int) error {
	seen := make(map[int]models.Team, TeamSize*2)
	for _, side := range []struct {
		team   models.Team
		roster [TeamSize]int
	}{{models.TeamA, teamA}, {models.TeamB, teamB}} {
		for _, id := range side.roster {
			if id <= 0 {
				return fmt.Errorf("%w: team %s has an empty slot", ErrInvalidRoster, side.team)
			}
			if _, dup := seen[id]; dup {
				return fmt.Errorf("%w: athlete %d listed twice", ErrInvalidRoster, id)
			}
			seen[id] = side.team
		}
	}
	return nil
}

type EndKind string

const (
	EndTarget   EndKind = "target"
	EndTouchCap EndKind = "touch_cap"
	EndTime     EndKind = "time"
	EndManual   EndKind = "manual"
)

// BoutEndReason explains why a leg stopped.
type BoutEndReason struct {
	Kind    EndKind      `json:"kind"`
	Team    *models.Team `json:"team,omitempty"`
	Message string       `json:"message"`
}

func teamPtr(t models.Team) *models.Team { return &t }

// BoutEnd evaluates the leg-end rule. The first satisfied condition names the
// reason: cumulative target, then touch cap, then time.
func BoutEnd(m *models.TeamMatch, b *models.TeamMatchBout, elapsed time.Duration) (BoutEndReason, bool) {
	for _, t := range []models.Team{models.TeamA, models.TeamB} {
		if m.Total(t) >= b.TargetScore {
			return BoutEndReason{
				Kind:    EndTarget,
				Team:    teamPtr(t),
				Message: fmt.Sprintf("Team %s reached target (%d)", t, b.TargetScore),
			}, true
		}
	}
	for _, t := range []models.Team{models.TeamA, models.TeamB} {
		if b.Touches(t) >= TouchCap {
			return BoutEndReason{
				Kind:    EndTouchCap,
				Team:    teamPtr(t),
				Message: fmt.Sprintf("Team %s fencer reached touch cap (%d)", t, TouchCap),
			}, true
		}
	}
	if elapsed >= BoutTimeLimit {
		return BoutEndReason{
			Kind:    EndTime,
			Message: fmt.Sprintf("Time limit reached (%ds)", int(BoutTimeLimit/time.Second)),
		}, true
	}
	return BoutEndReason{}, false
}

type OutcomeKind string

const (
	OutcomeAdvance   OutcomeKind = "advance"
	OutcomeOvertime  OutcomeKind = "overtime"
	OutcomeCompleted OutcomeKind = "completed"
)

type Outcome struct {
	Kind   OutcomeKind  `json:"kind"`
	Winner *models.Team `json:"winner,omitempty"`
}

// MatchEnd decides what follows the end of bout n.
func MatchEnd(m *models.TeamMatch, boutNumber int) Outcome {
	switch {
	case m.TotalScoreA >= FinalTarget:
		return Outcome{Kind: OutcomeCompleted, Winner: teamPtr(models.TeamA)}
	case m.TotalScoreB >= FinalTarget:
		return Outcome{Kind: OutcomeCompleted, Winner: teamPtr(models.TeamB)}
	case boutNumber >= BoutCount && m.TotalScoreA > m.TotalScoreB:
		return Outcome{Kind: OutcomeCompleted, Winner: teamPtr(models.TeamA)}
	case boutNumber >= BoutCount && m.TotalScoreB > m.TotalScoreA:
		return Outcome{Kind: OutcomeCompleted, Winner: teamPtr(models.TeamB)}
	case boutNumber >= BoutCount:
		return Outcome{Kind: OutcomeOvertime}
	}
	return Outcome{Kind: OutcomeAdvance}
}
