package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is a single entry of a widget conversation. ID stays stable for the lifetime of the message so a
// streamed bot reply can be located and updated in place while its Content grows.
type Message struct {
	ID        string
	Role      Role
	Content   string
	Timestamp time.Time
}

// Role represents the author of a message.
type Role string

const (
	// RoleUser represents a message typed by the visitor.
	RoleUser Role = "user"
	// RoleBot represents a message produced by the assistant, either canned or streamed.
	RoleBot Role = "bot"
)

// NewMessage returns a message with a fresh ID and the current time as its timestamp.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// WireRole maps the stored role to the role name used by chat-completion APIs.
func (r Role) WireRole() string {
	if r == RoleBot {
		return "assistant"
	}
	return "user"
}
