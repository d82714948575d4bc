package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventInsert EventKind = "insert"
	EventUpdate EventKind = "update"
)

// Event announces that a record changed. Payloads are hints only: receivers
// re-read the record before acting on it.
type Event struct {
	ID       string      `json:"id"`
	Topic    string      `json:"topic"`
	Kind     EventKind   `json:"kind"`
	Entity   string      `json:"entity"`
	EntityID int         `json:"entity_id"`
	At       time.Time   `json:"at"`
	Data     interface{} `json:"data,omitempty"`
}

func NewEvent(topic string, kind EventKind, entity string, entityID int, data interface{}) Event {
	return Event{
		ID:       uuid.NewString(),
		Topic:    topic,
		Kind:     kind,
		Entity:   entity,
		EntityID: entityID,
		At:       time.Now().UTC(),
		Data:     data,
	}
}

func TournamentTopic(id int) string { return fmt.Sprintf("tournament:%d", id) }
func TeamMatchTopic(id int) string  { return fmt.Sprintf("team_match:%d", id) }
func UserTopic(id int) string       { return fmt.Sprintf("user:%d", id) }

// Publisher fans an event out to everyone watching its topic.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}
