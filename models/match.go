package models

import "time"

type MatchStatus string

const (
	MatchPending   MatchStatus = "pending"
	MatchApproved  MatchStatus = "approved"
	MatchCancelled MatchStatus = "cancelled"
)

type Weapon string

const (
	WeaponFoil  Weapon = "foil"
	WeaponEpee  Weapon = "epee"
	WeaponSabre Weapon = "sabre"
)

func (w Weapon) Valid() bool {
	switch w {
	case WeaponFoil, WeaponEpee, WeaponSabre:
		return true
	}
	return false
}

// Side identifies one of the two participants of a match.
type Side int

const (
	SideNone Side = iota
	SideA
	SideB
)

// Match is a single bout between two athletes, inside a tournament or standalone.
type Match struct {
	ID           int         `json:"id"`
	TournamentID *int        `json:"tournament_id,omitempty"`
	AthleteAID   int         `json:"athlete_a_id"`
	AthleteBID   int         `json:"athlete_b_id"`
	ScoreA       *int        `json:"score_a"`
	ScoreB       *int        `json:"score_b"`
	Weapon       *Weapon     `json:"weapon"`
	Status       MatchStatus `json:"status"`
	ApprovedByA  *int        `json:"approved_by_a"`
	ApprovedByB  *int        `json:"approved_by_b"`
	CreatorID    int         `json:"creator_id"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// IsComplete reports whether both scores and a weapon have been recorded.
func (m *Match) IsComplete() bool {
	return m.ScoreA != nil && m.ScoreB != nil && m.Weapon != nil
}

func (m *Match) HasScores() bool {
	return m.ScoreA != nil && m.ScoreB != nil
}

func (m *Match) IsSelfPair() bool {
	return m.AthleteAID == m.AthleteBID
}

func (m *Match) IsStandalone() bool {
	return m.TournamentID == nil
}

// SideOf returns which side the athlete fences on, SideNone when not a participant.
func (m *Match) SideOf(athleteID int) Side {
	switch athleteID {
	case m.AthleteAID:
		return SideA
	case m.AthleteBID:
		return SideB
	}
	return SideNone
}

// Opponent returns the other participant's id for the given side.
func (m *Match) Opponent(side Side) int {
	if side == SideA {
		return m.AthleteBID
	}
	return m.AthleteAID
}

func (m *Match) ApprovedBy(side Side) *int {
	if side == SideA {
		return m.ApprovedByA
	}
	return m.ApprovedByB
}

func (m *Match) ClearResult() {
	m.ScoreA, m.ScoreB, m.Weapon = nil, nil, nil
	m.ApprovedByA, m.ApprovedByB = nil, nil
	m.Status = MatchPending
}
