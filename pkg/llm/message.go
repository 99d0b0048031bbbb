package llm

import (
	"fmt"
	"strings"
)

// Role identifies who authored a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message is a single conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewTextMessage creates a message with the given role and content.
func NewTextMessage(role Role, text string) Message {
	return Message{Role: role, Content: text}
}

// Conversation is an ordered list of turns. When a system turn is present it
// is the first element.
type Conversation []Message

// Validate checks every turn carries a known role and that a system turn,
// if any, only appears first.
func (c Conversation) Validate() error {
	for i, m := range c {
		if !m.Role.Valid() {
			return fmt.Errorf("message %d: invalid role %q", i, m.Role)
		}
		if m.Role == RoleSystem && i != 0 {
			return fmt.Errorf("message %d: system turn must be first", i)
		}
	}
	return nil
}

// UserTurns returns the user-authored turns in order.
func (c Conversation) UserTurns() []Message {
	out := make([]Message, 0, len(c))
	for _, m := range c {
		if m.Role == RoleUser {
			out = append(out, m)
		}
	}
	return out
}

// WithoutSystem returns a copy of c with every system turn removed.
func (c Conversation) WithoutSystem() Conversation {
	out := make(Conversation, 0, len(c))
	for _, m := range c {
		if m.Role != RoleSystem {
			out = append(out, m)
		}
	}
	return out
}

// Last returns the final turn and false when the conversation is empty.
func (c Conversation) Last() (Message, bool) {
	if len(c) == 0 {
		return Message{}, false
	}
	return c[len(c)-1], true
}

// IsBlank reports whether s contains only whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
