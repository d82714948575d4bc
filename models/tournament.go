package models

import "time"

// TournamentStatus mirrors the CHECK constraint on tournaments.status.
type TournamentStatus string

const (
	TournamentSetup      TournamentStatus = "setup"
	TournamentInProgress TournamentStatus = "in_progress"
	TournamentCompleted  TournamentStatus = "completed"
	TournamentCancelled  TournamentStatus = "cancelled"
)

func (s TournamentStatus) Terminal() bool {
	return s == TournamentCompleted || s == TournamentCancelled
}

// Tournament is a round-robin competition among 3..16 athletes.
type Tournament struct {
	ID          int              `json:"id" db:"id"`
	Name        string           `json:"name" db:"name"`
	Slug        string           `json:"slug" db:"slug"`
	Date        time.Time        `json:"date" db:"date"`
	Status      TournamentStatus `json:"status" db:"status"`
	CreatorID   int              `json:"creator_id" db:"creator_id"`
	GymID       int              `json:"gym_id" db:"gym_id"`
	AthleteIDs  []int            `json:"athlete_ids" db:"athlete_ids"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty" db:"completed_at"`
}
