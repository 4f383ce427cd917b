// Package message defines the conversation message types exchanged between
// session storage, the context manager, and the model-invocation layer.
package message

import "time"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single immutable conversation turn. Instances are owned by
// the handler that created them; the context subsystem only reads them.
type Message struct {
	Role      Role
	Content   string
	Timestamp time.Time
}

// System returns a system message stamped with the current time.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content, Timestamp: time.Now()}
}

// User returns a user message stamped with the current time.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content, Timestamp: time.Now()}
}

// Assistant returns an assistant message stamped with the current time.
func Assistant(content string) Message {
	return Message{Role: RoleAssistant, Content: content, Timestamp: time.Now()}
}
