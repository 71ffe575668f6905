package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "events").Logger()

type Type string

const (
	PostCreated         Type = "post-created"
	PostLiked           Type = "post-liked"
	CommentCreated      Type = "comment-created"
	GroupCreated        Type = "group-created"
	GroupJoined         Type = "group-joined"
	GroupDeleted        Type = "group-deleted"
	GroupMessageCreated Type = "group_message-created"
)

// Event is the envelope written to the bus. Key groups related events onto one partition.
type Event struct {
	Type       Type            `json:"type"`
	Key        string          `json:"key"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// New builds an event keyed "<type>-<subjectID>", e.g. "post-created-12".
func New(eventType Type, subjectID int64, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}

	return Event{
		Type:       eventType,
		Key:        fmt.Sprintf("%s-%d", eventType, subjectID),
		Payload:    raw,
		OccurredAt: time.Now().UTC(),
	}, nil
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Handler reacts to a delivered event. Handlers must not block for long.
type Handler func(ctx context.Context, e Event)
