package models

import "time"

type TeamMatchStatus string

const (
	TeamMatchSetup      TeamMatchStatus = "setup"
	TeamMatchInProgress TeamMatchStatus = "in_progress"
	TeamMatchOvertime   TeamMatchStatus = "overtime"
	TeamMatchCompleted  TeamMatchStatus = "completed"
	TeamMatchCancelled  TeamMatchStatus = "cancelled"
)

func (s TeamMatchStatus) Terminal() bool {
	return s == TeamMatchCompleted || s == TeamMatchCancelled
}

type BoutStatus string

const (
	BoutPending    BoutStatus = "pending"
	BoutInProgress BoutStatus = "in_progress"
	BoutCompleted  BoutStatus = "completed"
)

// Team names one side of a relay.
type Team string

const (
	TeamA Team = "A"
	TeamB Team = "B"
)

func (t Team) Valid() bool { return t == TeamA || t == TeamB }

// TeamMatch is a live 3v3 relay.
type TeamMatch struct {
	ID             int             `json:"id"`
	GymID          int             `json:"gym_id"`
	CreatorID      int             `json:"creator_id"`
	Status         TeamMatchStatus `json:"status"`
	TeamAName      string          `json:"team_a_name"`
	TeamBName      string          `json:"team_b_name"`
	TeamA          [3]int          `json:"team_a"`
	TeamB          [3]int          `json:"team_b"`
	TotalScoreA    int             `json:"total_score_a"`
	TotalScoreB    int             `json:"total_score_b"`
	CurrentBout    int             `json:"current_bout"`
	Winner         *Team           `json:"winner,omitempty"`
	OvertimeScoreA *int            `json:"overtime_score_a,omitempty"`
	OvertimeScoreB *int            `json:"overtime_score_b,omitempty"`
	TimerRunning   bool            `json:"timer_running"`
	// The period clock is stored as the time banked before the last resume
	// plus, while running, the wall time since ClockStartedAt.
	ClockElapsedMs int64           `json:"clock_elapsed_ms"`
	ClockStartedAt *time.Time      `json:"clock_started_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (m *TeamMatch) Total(t Team) int {
	if t == TeamA {
		return m.TotalScoreA
	}
	return m.TotalScoreB
}

// IsParticipant reports whether the athlete is on either roster.
func (m *TeamMatch) IsParticipant(athleteID int) bool {
	for i := 0; i < 3; i++ {
		if m.TeamA[i] == athleteID || m.TeamB[i] == athleteID {
			return true
		}
	}
	return false
}

// TeamMatchBout is one of the nine fixed relay legs.
type TeamMatchBout struct {
	ID             int        `json:"id"`
	TeamMatchID    int        `json:"team_match_id"`
	BoutNumber     int        `json:"bout_number"`
	SlotA          int        `json:"slot_a"`
	SlotB          int        `json:"slot_b"`
	TargetScore    int        `json:"target_score"`
	StartScoreA    int        `json:"start_score_a"`
	StartScoreB    int        `json:"start_score_b"`
	EndScoreA      *int       `json:"end_score_a,omitempty"`
	EndScoreB      *int       `json:"end_score_b,omitempty"`
	BoutTouchesA   int        `json:"bout_touches_a"`
	BoutTouchesB   int        `json:"bout_touches_b"`
	ElapsedSeconds int        `json:"elapsed_seconds"`
	Status         BoutStatus `json:"status"`
	EndReason      *string    `json:"end_reason,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
}

func (b *TeamMatchBout) Touches(t Team) int {
	if t == TeamA {
		return b.BoutTouchesA
	}
	return b.BoutTouchesB
}

func (b *TeamMatchBout) StartScore(t Team) int {
	if t == TeamA {
		return b.StartScoreA
	}
	return b.StartScoreB
}
