package entities

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MessageRole represents the role of a message sender
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)

// MessageOrigin distinguishes typed input from transcribed speech
type MessageOrigin string

const (
	MessageOriginTyped  MessageOrigin = "typed"
	MessageOriginSpoken MessageOrigin = "spoken"
)

// Message is a single immutable unit of conversation. Messages are
// appended to the session transcript in arrival order; transcript order
// is display order.
type Message struct {
	Timestamp     time.Time     `json:"timestamp"`
	Role          MessageRole   `json:"role"`
	Content       string        `json:"content"`
	Origin        MessageOrigin `json:"origin,omitempty"`
	LatencyMs     int64         `json:"latency_ms,omitempty"`
	CorrelationID string        `json:"correlation_id,omitempty"`
}

// Session represents one WebSocket connection's conversation state.
// The session id is assigned server-side on connect and reissued on
// every reconnect; the transcript and voice flags live for the
// connection's duration only.
type Session struct {
	ID            string    `json:"id"`
	VoiceEnabled  bool      `json:"voice_enabled"`
	SelectedVoice string    `json:"selected_voice"`
	CreatedAt     time.Time `json:"created_at"`
	Messages      []Message `json:"messages"`
}

// NewSession creates a session with a fresh server-assigned id.
func NewSession(defaultVoice string) *Session {
	return &Session{
		ID:            uuid.NewString(),
		SelectedVoice: defaultVoice,
		CreatedAt:     time.Now(),
		Messages:      make([]Message, 0),
	}
}

// AddUserMessage appends a user turn to the transcript and returns it.
func (s *Session) AddUserMessage(text string, origin MessageOrigin, correlationID string) Message {
	msg := Message{
		Timestamp:     time.Now(),
		Role:          MessageRoleUser,
		Content:       text,
		Origin:        origin,
		CorrelationID: correlationID,
	}
	s.Messages = append(s.Messages, msg)
	return msg
}

// AddAssistantMessage appends an assistant turn to the transcript,
// tagged with the completion latency and the correlation id that ties
// any later synthesized audio back to this message.
func (s *Session) AddAssistantMessage(text string, latencyMs int64, correlationID string) Message {
	msg := Message{
		Timestamp:     time.Now(),
		Role:          MessageRoleAssistant,
		Content:       text,
		LatencyMs:     latencyMs,
		CorrelationID: correlationID,
	}
	s.Messages = append(s.Messages, msg)
	return msg
}

// EnableVoice turns spoken output on. Spoken input implies spoken
// output is desired, so voice_message handling calls this as a side
// effect.
func (s *Session) EnableVoice() {
	s.VoiceEnabled = true
}

// SetVoice selects the synthesis voice profile for subsequent turns.
// Blank input keeps the current selection.
func (s *Session) SetVoice(voice string) {
	if strings.TrimSpace(voice) != "" {
		s.SelectedVoice = voice
	}
}

// History returns a copy of the transcript for LLM context.
func (s *Session) History() []Message {
	history := make([]Message, len(s.Messages))
	copy(history, s.Messages)
	return history
}

// Validate validates the session data
func (s *Session) Validate() error {
	if s.ID == "" {
		return errors.New("session id is required")
	}
	if s.SelectedVoice == "" {
		return errors.New("selected voice is required")
	}
	return nil
}
