// Package session implements the per-connection conversation protocol:
// it consumes decoded inbound messages, drives completion and synthesis,
// and emits outbound events through an injected sink. The protocol holds
// no transport state, so it is exercised directly in tests without a
// WebSocket in the loop.
package session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wicara-ai/wicara/domain/entities"
	"github.com/wicara-ai/wicara/domain/repositories"
	"github.com/wicara-ai/wicara/internal/chatlog"
	"github.com/wicara-ai/wicara/internal/observability"
	"github.com/wicara-ai/wicara/internal/protocol"
	"github.com/wicara-ai/wicara/internal/voicecache"
)

// EmitFunc delivers one outbound event to the connected client. The
// transport owns delivery; the protocol only guarantees emission order.
type EmitFunc func(event protocol.Outbound)

// Config carries the tunables for one protocol instance.
type Config struct {
	DefaultVoice      string
	CompletionTimeout time.Duration
	SynthesisTimeout  time.Duration
	CacheCapacity     int
}

// Protocol is the per-session state machine. One instance serves one
// connection; all conversation state lives here, guarded by a mutex, so
// concurrent frames from the read loop stay consistent.
type Protocol struct {
	mu      sync.Mutex
	session *entities.Session

	completion repositories.ChatCompletion
	synthesis  repositories.SpeechSynthesis
	cache      *voicecache.Cache
	chatLog    *chatlog.Logger
	logger     *zap.Logger
	emit       EmitFunc

	completionTimeout time.Duration
	synthesisTimeout  time.Duration
}

// New creates a protocol instance with a fresh session. chatLog may be
// nil when activity logging is disabled.
func New(
	config Config,
	completion repositories.ChatCompletion,
	synthesis repositories.SpeechSynthesis,
	chatLog *chatlog.Logger,
	logger *zap.Logger,
	emit EmitFunc,
) *Protocol {
	if config.CompletionTimeout <= 0 {
		config.CompletionTimeout = 30 * time.Second
	}
	if config.SynthesisTimeout <= 0 {
		config.SynthesisTimeout = 30 * time.Second
	}
	if config.DefaultVoice == "" {
		config.DefaultVoice = "Kore"
	}
	return &Protocol{
		session:           entities.NewSession(config.DefaultVoice),
		completion:        completion,
		synthesis:         synthesis,
		cache:             voicecache.New(config.CacheCapacity),
		chatLog:           chatLog,
		logger:            logger,
		emit:              emit,
		completionTimeout: config.CompletionTimeout,
		synthesisTimeout:  config.SynthesisTimeout,
	}
}

// ID returns the server-assigned session id.
func (p *Protocol) ID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session.ID
}

// VoiceEnabled reports whether spoken output is currently on.
func (p *Protocol) VoiceEnabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session.VoiceEnabled
}

// History returns a copy of the transcript.
func (p *Protocol) History() []entities.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session.History()
}

// CacheStats reports the voice cache hit/miss counters and size.
func (p *Protocol) CacheStats() (hits, misses int64, size int) {
	return p.cache.Stats()
}

// Announce emits the session-established system event. Called once by
// the transport right after the connection is accepted.
func (p *Protocol) Announce() {
	p.emit(protocol.NewSystemEvent(p.ID(), "Connected to Wicara voice chat"))
}

// Handle processes one decoded inbound message to completion. Every
// turn ends with exactly one terminal event: an assistant event, a
// voice_message_response event, a voice_response event, or an error
// event.
func (p *Protocol) Handle(ctx context.Context, msg protocol.Inbound) {
	switch m := msg.(type) {
	case protocol.TextMessage:
		observability.RecordMessage(string(protocol.MessageTypeText))
		p.handleChat(ctx, m.Text, m.ClientAgent, entities.MessageOriginTyped)
	case protocol.VoiceMessageIn:
		observability.RecordMessage(string(protocol.MessageTypeVoiceMessage))
		// Spoken input implies the user wants to hear responses.
		p.mu.Lock()
		p.session.EnableVoice()
		p.mu.Unlock()
		p.handleChat(ctx, m.Transcript, m.ClientAgent, entities.MessageOriginSpoken)
	case protocol.VoiceRequest:
		observability.RecordMessage(string(protocol.MessageTypeVoiceRequest))
		p.handleVoiceRequest(ctx, m.Text, m.Voice)
	default:
		p.logger.Warn("Unhandled inbound message kind", zap.Any("message", msg))
		p.emit(protocol.NewErrorEvent("unsupported message"))
	}
}

// handleChat runs one conversational turn: validate, complete, emit the
// terminal text event, then synthesize audio if voice output is on.
// Text always precedes audio; a synthesis failure never retracts the
// already-emitted text.
func (p *Protocol) handleChat(ctx context.Context, text, clientAgent string, origin entities.MessageOrigin) {
	messageType := "chat"
	terminalKind := protocol.MessageTypeAssistant
	if origin == entities.MessageOriginSpoken {
		messageType = "voice_message"
		terminalKind = protocol.MessageTypeVoiceMsgResponse
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		p.emit(protocol.NewErrorEvent("Empty message received"))
		p.logEntry(chatlog.Entry{
			MessageType:      messageType,
			ClientAgent:      clientAgent,
			ErrorMessage:     "empty message",
			ProcessingStatus: "error",
		})
		return
	}

	correlationID := uuid.NewString()

	p.mu.Lock()
	history := p.session.History()
	p.session.AddUserMessage(trimmed, origin, correlationID)
	p.mu.Unlock()

	start := time.Now()
	cctx, cancel := context.WithTimeout(ctx, p.completionTimeout)
	reply, err := p.completion.Complete(cctx, history, trimmed)
	cancel()
	elapsed := time.Since(start)
	observability.RecordCompletion(elapsed.Seconds(), err == nil)

	if err != nil {
		p.logger.Error("Completion failed",
			zap.String("session_id", p.ID()),
			zap.Error(err))
		p.emit(protocol.NewErrorEvent(userFacingError(err)))
		p.logEntry(chatlog.Entry{
			MessageType:      messageType,
			UserMessage:      trimmed,
			ClientAgent:      clientAgent,
			ErrorMessage:     err.Error(),
			ProcessingStatus: "error",
		})
		return
	}

	latencyMs := elapsed.Milliseconds()

	p.mu.Lock()
	p.session.AddAssistantMessage(reply, latencyMs, correlationID)
	voiceEnabled := p.session.VoiceEnabled
	voice := p.session.SelectedVoice
	p.mu.Unlock()

	p.emit(protocol.NewAssistantEvent(terminalKind, reply, latencyMs, correlationID))

	voiceGenerated := false
	if voiceEnabled {
		if audio, synthErr := p.synthesizeCached(ctx, reply, voice); synthErr != nil {
			p.logger.Warn("Synthesis failed after text delivery",
				zap.String("session_id", p.ID()),
				zap.Error(synthErr))
			p.emit(protocol.NewErrorEvent(userFacingError(synthErr)))
		} else {
			p.emit(protocol.NewVoiceResponseEvent(
				base64.StdEncoding.EncodeToString(audio), reply, voice, correlationID))
			voiceGenerated = true
		}
	}

	p.logEntry(chatlog.Entry{
		MessageType:       messageType,
		UserMessage:       trimmed,
		AssistantResponse: reply,
		ResponseTimeMs:    latencyMs,
		MessageLength:     len(reply),
		VoiceGenerated:    voiceGenerated,
		VoiceName:         voice,
		ClientAgent:       clientAgent,
		ProcessingStatus:  "success",
	})
}

// handleVoiceRequest synthesizes text the client already has, outside
// the completion flow. A supplied voice becomes the session's selected
// voice for this and subsequent turns.
func (p *Protocol) handleVoiceRequest(ctx context.Context, text, voice string) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		p.emit(protocol.NewErrorEvent("Text is required for voice request"))
		p.logEntry(chatlog.Entry{
			MessageType:      "voice_request",
			ErrorMessage:     "empty text",
			ProcessingStatus: "error",
		})
		return
	}

	p.mu.Lock()
	p.session.SetVoice(voice)
	selected := p.session.SelectedVoice
	p.mu.Unlock()

	audio, err := p.synthesizeCached(ctx, trimmed, selected)
	if err != nil {
		p.logger.Error("Voice request failed",
			zap.String("session_id", p.ID()),
			zap.Error(err))
		p.emit(protocol.NewErrorEvent(userFacingError(err)))
		p.logEntry(chatlog.Entry{
			MessageType:      "voice_request",
			UserMessage:      trimmed,
			VoiceName:        selected,
			ErrorMessage:     err.Error(),
			ProcessingStatus: "error",
		})
		return
	}

	p.emit(protocol.NewVoiceResponseEvent(
		base64.StdEncoding.EncodeToString(audio), trimmed, selected, uuid.NewString()))
	p.logEntry(chatlog.Entry{
		MessageType:      "voice_request",
		UserMessage:      trimmed,
		MessageLength:    len(trimmed),
		VoiceGenerated:   true,
		VoiceName:        selected,
		ProcessingStatus: "success",
	})
}

// synthesizeCached serves audio from the session cache, falling through
// to the synthesis backend on a miss. Concurrent misses for the same
// (text, voice) coalesce into a single upstream call.
func (p *Protocol) synthesizeCached(ctx context.Context, text, voice string) ([]byte, error) {
	sctx, cancel := context.WithTimeout(ctx, p.synthesisTimeout)
	defer cancel()

	synthesized := false
	start := time.Now()
	audio, err := p.cache.GetOrSynthesize(sctx, text, voice, func(ctx context.Context) ([]byte, error) {
		synthesized = true
		return p.synthesis.Synthesize(ctx, text, voice)
	})
	observability.RecordCacheLookup(!synthesized)
	if synthesized {
		observability.RecordSynthesis(time.Since(start).Seconds(), err == nil)
	}
	return audio, err
}

func (p *Protocol) logEntry(e chatlog.Entry) {
	if p.chatLog == nil {
		return
	}
	e.SessionID = p.ID()
	if err := p.chatLog.Append(e); err != nil {
		p.logger.Warn("Failed to append chat log entry", zap.Error(err))
	}
}

// userFacingError maps internal failures to the message shown to the
// client, keeping upstream detail out of the wire.
func userFacingError(err error) string {
	var upstream *entities.UpstreamError
	if errors.As(err, &upstream) {
		switch upstream.Op {
		case "completion":
			return "Failed to generate response, please try again"
		case "synthesis":
			return "Voice synthesis failed"
		}
	}
	var validation *entities.ValidationError
	if errors.As(err, &validation) {
		return validation.Reason
	}
	return fmt.Sprintf("Request failed: %v", err)
}
