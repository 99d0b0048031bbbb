package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeChatReply is emitted after every /api/chat request.
	EventTypeChatReply = "lilly.chat.reply"
)

// ChatReplyEvent describes one chat request. It never carries message text.
type ChatReplyEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`

	// Strategy is the upstream path that produced the reply, empty on failure.
	Strategy   string `json:"strategy,omitempty"`
	Model      string `json:"model,omitempty"`
	TurnCount  int    `json:"turn_count"`
	DurationMs int64  `json:"duration_ms"`
	HTTPStatus int    `json:"http_status"`
	Failed     bool   `json:"failed"`
}

// NewChatReplyEvent stamps a new event with a fresh ID and time.
func NewChatReplyEvent(now time.Time) *ChatReplyEvent {
	return &ChatReplyEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeChatReply,
		EventID:       uuid.NewString(),
		EmittedAt:     now.UTC(),
	}
}
