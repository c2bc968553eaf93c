package chat

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Greeting is the assistant message every new transcript starts with.
const Greeting = "Hello! I'm your Python tutor. What would you like to learn today?"

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole converts a wire value into a Role.
// Matching is exact; anything other than "user" or "assistant" is rejected.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAssistant:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown message role %q", s)
	}
}

// UnmarshalJSON rejects roles outside the known set.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("role must be a string: %w", err)
	}
	role, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// Message is a single transcript entry.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserMessage builds a message authored by the learner.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds a message authored by the tutor.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Validate checks the role of a message built outside JSON decoding.
func (m Message) Validate() error {
	_, err := ParseRole(string(m.Role))
	return err
}

// ValidateAll validates every message, reporting the index of the first bad one.
func ValidateAll(msgs []Message) error {
	for i, m := range msgs {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("messages[%d]: %w", i, err)
		}
	}
	return nil
}

// Transcript is an append-only conversation. The zero value is an empty transcript.
// Append never modifies the receiver, so a Transcript can be shared freely.
type Transcript struct {
	messages []Message
}

// NewTranscript returns a transcript holding only the tutor greeting.
func NewTranscript() Transcript {
	return FromMessages([]Message{AssistantMessage(Greeting)})
}

// FromMessages builds a transcript from a copy of msgs.
func FromMessages(msgs []Message) Transcript {
	return Transcript{messages: append([]Message(nil), msgs...)}
}

// Append returns a new transcript with m added at the end.
func (t Transcript) Append(m Message) Transcript {
	next := make([]Message, len(t.messages), len(t.messages)+1)
	copy(next, t.messages)
	return Transcript{messages: append(next, m)}
}

// Messages returns a copy of the messages in order.
func (t Transcript) Messages() []Message {
	return append([]Message(nil), t.messages...)
}

// Len returns the number of messages.
func (t Transcript) Len() int {
	return len(t.messages)
}

// Last returns the most recent message.
func (t Transcript) Last() (Message, bool) {
	if len(t.messages) == 0 {
		return Message{}, false
	}
	return t.messages[len(t.messages)-1], true
}

// LastUser returns the most recent message authored by the learner.
func (t Transcript) LastUser() (Message, bool) {
	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].Role == RoleUser {
			return t.messages[i], true
		}
	}
	return Message{}, false
}

// IsBlank reports whether input has no visible content.
func IsBlank(input string) bool {
	return strings.TrimSpace(input) == ""
}
