package models

import (
	"encoding/json"
	"time"
)

type NotificationKind string

const (
	NotifyApprovalRequested NotificationKind = "match_approval_requested"
	NotifyMatchRejected     NotificationKind = "match_rejected"
	NotifyMatchApproved     NotificationKind = "match_approved"
	NotifyTournamentClosed  NotificationKind = "tournament_closed"
)

type Notification struct {
	ID        int              `json:"id"`
	UserID    int              `json:"user_id"`
	Kind      NotificationKind `json:"kind"`
	Payload   json.RawMessage  `json:"payload"`
	ReadAt    *time.Time       `json:"read_at,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
