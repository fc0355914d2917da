package chat

import (
	"time"

	"github.com/google/uuid"
)

// Role tags the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one committed message of the conversation. Turns are never edited after they
// are appended to a transcript.
type Turn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewTurn stamps a turn with a fresh identifier and creation time.
func NewTurn(role Role, content string) Turn {
	return Turn{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// UserTurn is shorthand for NewTurn(RoleUser, content).
func UserTurn(content string) Turn {
	return NewTurn(RoleUser, content)
}

// AssistantTurn is shorthand for NewTurn(RoleAssistant, content).
func AssistantTurn(content string) Turn {
	return NewTurn(RoleAssistant, content)
}
