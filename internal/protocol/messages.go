package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Supported message types
const (
	// Client to server
	MessageTypeText         MessageType = "message"
	MessageTypeVoiceMessage MessageType = "voice_message"
	MessageTypeVoiceRequest MessageType = "voice_request"

	// Server to client
	MessageTypeSystem            MessageType = "system"
	MessageTypeAssistant         MessageType = "assistant"
	MessageTypeVoiceMsgResponse  MessageType = "voice_message_response"
	MessageTypeVoiceResponse     MessageType = "voice_response"
	MessageTypeError             MessageType = "error"
)

// Inbound is implemented by every client-to-server message kind. New
// kinds are added here and handled exhaustively at the protocol
// boundary, so an unhandled kind is a compile-time omission rather
// than a silent runtime fallthrough.
type Inbound interface {
	inbound()
}

// TextMessage is a typed user turn.
type TextMessage struct {
	Text        string
	ClientAgent string
}

func (TextMessage) inbound() {}

// VoiceMessageIn is a locally transcribed spoken user turn.
type VoiceMessageIn struct {
	Transcript  string
	ClientAgent string
}

func (VoiceMessageIn) inbound() {}

// VoiceRequest is an explicit synthesis request for text the user can
// already see, independent of the completion flow.
type VoiceRequest struct {
	Text  string
	Voice string
}

func (VoiceRequest) inbound() {}

// inboundEnvelope is the loose wire shape; fields beyond these are
// ignored for forward compatibility.
type inboundEnvelope struct {
	Type        MessageType `json:"type"`
	Message     string      `json:"message"`
	Text        string      `json:"text"`
	Voice       string      `json:"voice"`
	ClientAgent string      `json:"client_agent"`
}

// DecodeInbound parses a client frame into its typed message kind.
// A missing type field means a plain chat message.
func DecodeInbound(data []byte) (Inbound, error) {
	var env inboundEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	if env.Type == "" {
		env.Type = MessageTypeText
	}

	switch env.Type {
	case MessageTypeText:
		return TextMessage{Text: env.Message, ClientAgent: env.ClientAgent}, nil
	case MessageTypeVoiceMessage:
		return VoiceMessageIn{Transcript: env.Message, ClientAgent: env.ClientAgent}, nil
	case MessageTypeVoiceRequest:
		return VoiceRequest{Text: env.Text, Voice: env.Voice}, nil
	default:
		return nil, fmt.Errorf("unsupported message type: %s", env.Type)
	}
}

// EncodeInbound serializes a client message to its wire form, the
// inverse of DecodeInbound. Used by the terminal client.
func EncodeInbound(msg Inbound) ([]byte, error) {
	var env inboundEnvelope
	switch m := msg.(type) {
	case TextMessage:
		env = inboundEnvelope{Type: MessageTypeText, Message: m.Text, ClientAgent: m.ClientAgent}
	case VoiceMessageIn:
		env = inboundEnvelope{Type: MessageTypeVoiceMessage, Message: m.Transcript, ClientAgent: m.ClientAgent}
	case VoiceRequest:
		env = inboundEnvelope{Type: MessageTypeVoiceRequest, Text: m.Text, Voice: m.Voice}
	default:
		return nil, fmt.Errorf("unsupported message kind: %T", msg)
	}

	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to encode inbound message: %w", err)
	}
	return data, nil
}

// Outbound is implemented by every server-to-client event.
type Outbound interface {
	outbound()
}

// SystemEvent announces an established session; ClientID is the
// server-assigned session id.
type SystemEvent struct {
	Type      MessageType `json:"type"`
	ClientID  string      `json:"client_id"`
	Message   string      `json:"message"`
	Timestamp string      `json:"timestamp"`
}

func (SystemEvent) outbound() {}

// AssistantEvent is the terminal completion result for one turn. Type
// is "assistant" for typed input and "voice_message_response" for
// spoken input.
type AssistantEvent struct {
	Type           MessageType `json:"type"`
	Message        string      `json:"message"`
	ResponseTimeMs int64       `json:"response_time_ms"`
	CorrelationID  string      `json:"correlation_id,omitempty"`
	Timestamp      string      `json:"timestamp"`
}

func (AssistantEvent) outbound() {}

// VoiceResponseEvent delivers synthesized audio for a prior message.
type VoiceResponseEvent struct {
	Type          MessageType `json:"type"`
	AudioData     string      `json:"audio_data"` // base64 encoded WAV
	Text          string      `json:"text"`
	Voice         string      `json:"voice"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Timestamp     string      `json:"timestamp"`
}

func (VoiceResponseEvent) outbound() {}

// ErrorEvent surfaces any failure to the user.
type ErrorEvent struct {
	Type      MessageType `json:"type"`
	Message   string      `json:"message"`
	Timestamp string      `json:"timestamp"`
}

func (ErrorEvent) outbound() {}

// NewSystemEvent creates a session-established announcement.
func NewSystemEvent(clientID, message string) SystemEvent {
	return SystemEvent{
		Type:      MessageTypeSystem,
		ClientID:  clientID,
		Message:   message,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// NewAssistantEvent creates a terminal completion event of the given
// kind ("assistant" or "voice_message_response").
func NewAssistantEvent(kind MessageType, message string, responseTimeMs int64, correlationID string) AssistantEvent {
	return AssistantEvent{
		Type:           kind,
		Message:        message,
		ResponseTimeMs: responseTimeMs,
		CorrelationID:  correlationID,
		Timestamp:      time.Now().Format(time.RFC3339),
	}
}

// NewVoiceResponseEvent creates a synthesized-audio event.
func NewVoiceResponseEvent(audioBase64, text, voice, correlationID string) VoiceResponseEvent {
	return VoiceResponseEvent{
		Type:          MessageTypeVoiceResponse,
		AudioData:     audioBase64,
		Text:          text,
		Voice:         voice,
		CorrelationID: correlationID,
		Timestamp:     time.Now().Format(time.RFC3339),
	}
}

// NewErrorEvent creates a user-visible failure event.
func NewErrorEvent(message string) ErrorEvent {
	return ErrorEvent{
		Type:      MessageTypeError,
		Message:   message,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// EncodeOutbound serializes a server event to its wire form.
func EncodeOutbound(event Outbound) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to encode outbound event: %w", err)
	}
	return data, nil
}

// outboundEnvelope mirrors every server event field so clients can
// decode a frame without knowing its kind up front.
type outboundEnvelope struct {
	Type           MessageType `json:"type"`
	ClientID       string      `json:"client_id"`
	Message        string      `json:"message"`
	ResponseTimeMs int64       `json:"response_time_ms"`
	AudioData      string      `json:"audio_data"`
	Text           string      `json:"text"`
	Voice          string      `json:"voice"`
	CorrelationID  string      `json:"correlation_id"`
	Timestamp      string      `json:"timestamp"`
}

// DecodeOutbound parses a server frame into its typed event, used by
// the terminal client. Fields beyond the known set are ignored.
func DecodeOutbound(data []byte) (Outbound, error) {
	var env outboundEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	switch env.Type {
	case MessageTypeSystem:
		return SystemEvent{Type: env.Type, ClientID: env.ClientID, Message: env.Message, Timestamp: env.Timestamp}, nil
	case MessageTypeAssistant, MessageTypeVoiceMsgResponse:
		return AssistantEvent{
			Type:           env.Type,
			Message:        env.Message,
			ResponseTimeMs: env.ResponseTimeMs,
			CorrelationID:  env.CorrelationID,
			Timestamp:      env.Timestamp,
		}, nil
	case MessageTypeVoiceResponse:
		return VoiceResponseEvent{
			Type:          env.Type,
			AudioData:     env.AudioData,
			Text:          env.Text,
			Voice:         env.Voice,
			CorrelationID: env.CorrelationID,
			Timestamp:     env.Timestamp,
		}, nil
	case MessageTypeError:
		return ErrorEvent{Type: env.Type, Message: env.Message, Timestamp: env.Timestamp}, nil
	default:
		return nil, fmt.Errorf("unsupported message type: %s", env.Type)
	}
}
