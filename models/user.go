package models

import "time"

// UserRole mirrors the role column of gym_members.
type UserRole string

const (
	RoleAthlete    UserRole = "athlete"
	RoleInstructor UserRole = "instructor"
	RoleAdmin      UserRole = "admin"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleAthlete, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

// Member is a gym member as the membership collaborator exposes it.
type Member struct {
	ID        int       `json:"id"`
	GymID     int       `json:"gym_id"`
	Name      string    `json:"name"`
	Role      UserRole  `json:"role"`
	Shift     *string   `json:"shift,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Actor is the explicit identity every state-mutating call receives.
type Actor struct {
	ID   int
	Role UserRole
}

// IsStaff reports whether the actor holds an instructor-equivalent role.
func (a Actor) IsStaff() bool {
	return a.Role == RoleInstructor || a.Role == RoleAdmin
}
