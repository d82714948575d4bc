package services

import "github.com/Dosada05/fencing-club/models"

// Every permission decision the engine makes lives in this file. Entry points
// call these predicates instead of inspecting roles themselves.

// IsOrganizer reports whether the actor may run the tournament: its creator
// or any instructor-equivalent member.
func IsOrganizer(actor models.Actor, t *models.Tournament) bool {
	if actor.IsStaff() {
		return true
	}
	return t != nil && t.CreatorID == actor.ID
}

// CanOverrideApproval reports whether the actor may settle a match result
// without the athletes' co-approval. Standalone bouts have no organizer, so
// only staff qualify there.
func CanOverrideApproval(actor models.Actor, m *models.Match, t *models.Tournament) bool {
	if m.IsStandalone() {
		return actor.IsStaff()
	}
	return IsOrganizer(actor, t)
}

// CanControlTeamMatch covers scoring, the clock and cancellation of a relay.
func CanControlTeamMatch(actor models.Actor, m *models.TeamMatch) bool {
	return actor.IsStaff() || m.CreatorID == actor.ID || m.IsParticipant(actor.ID)
}

// CanDecideTeamMatch covers the priority decision after a silent overtime.
func CanDecideTeamMatch(actor models.Actor, m *models.TeamMatch) bool {
	return actor.IsStaff() || m.CreatorID == actor.ID
}
