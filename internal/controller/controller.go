// Package controller drives the terminal client's conversation state:
// what to send, what to show, and when received audio actually plays.
package controller

import (
	"encoding/base64"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/wicara-ai/wicara/internal/protocol"
)

// Sender ships one message to the server.
type Sender interface {
	Send(msg protocol.Inbound) error
}

// AudioSink receives decoded clips for playback.
type AudioSink interface {
	Enqueue(audio []byte)
	Clear()
}

// Controller mediates between user input, the server connection, and
// local playback. Voice output is a local toggle: turning it off drops
// pending and in-flight audio without touching the text transcript.
type Controller struct {
	sender  Sender
	audio   AudioSink
	display func(line string)
	logger  *zap.Logger

	clientAgent string

	mu            sync.Mutex
	voiceEnabled  bool
	serverVoice   bool // server auto-attaches audio once we have spoken
	selectedVoice string
	pending       map[string]struct{}
	transcript    []string
	lastAudio     []byte
}

// New creates a controller. display receives every user-visible line.
func New(sender Sender, audio AudioSink, defaultVoice, clientAgent string, display func(string), logger *zap.Logger) *Controller {
	if display == nil {
		display = func(string) {}
	}
	return &Controller{
		sender:        sender,
		audio:         audio,
		display:       display,
		logger:        logger,
		clientAgent:   clientAgent,
		selectedVoice: defaultVoice,
		pending:       make(map[string]struct{}),
	}
}

// SendText ships a typed user turn.
func (c *Controller) SendText(text string) error {
	c.appendTranscript("You: " + text)
	return c.sender.Send(protocol.TextMessage{Text: text, ClientAgent: c.clientAgent})
}

// SendSpoken ships a transcribed spoken turn. Speaking to the system
// implies wanting to hear it, so this enables voice output locally and
// marks that the server will attach audio on its own.
func (c *Controller) SendSpoken(transcript string) error {
	c.mu.Lock()
	c.voiceEnabled = true
	c.serverVoice = true
	c.mu.Unlock()

	c.appendTranscript("You (voice): " + transcript)
	return c.sender.Send(protocol.VoiceMessageIn{Transcript: transcript, ClientAgent: c.clientAgent})
}

// EnableVoice turns spoken output on for subsequent responses.
func (c *Controller) EnableVoice() {
	c.mu.Lock()
	c.voiceEnabled = true
	c.mu.Unlock()
	c.display("[voice output on]")
}

// DisableVoice turns spoken output off: the clip being played stops
// and everything queued is dropped. Text output is unaffected.
func (c *Controller) DisableVoice() {
	c.mu.Lock()
	c.voiceEnabled = false
	c.pending = make(map[string]struct{})
	c.mu.Unlock()
	c.audio.Clear()
	c.display("[voice output off]")
}

// VoiceEnabled reports the local voice output toggle.
func (c *Controller) VoiceEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.voiceEnabled
}

// SetVoice selects the synthesis voice used for explicit requests.
func (c *Controller) SetVoice(voice string) {
	if voice == "" {
		return
	}
	c.mu.Lock()
	c.selectedVoice = voice
	c.mu.Unlock()
	c.display("[voice set to " + voice + "]")
}

// Transcript returns a copy of the display transcript.
func (c *Controller) Transcript() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.transcript))
	copy(out, c.transcript)
	return out
}

// OnConnect implements transport.Handler. A new connection means a new
// server session: expected audio from the previous one is discarded,
// the transcript stays.
func (c *Controller) OnConnect() {
	c.mu.Lock()
	c.pending = make(map[string]struct{})
	c.serverVoice = false
	c.mu.Unlock()
	c.audio.Clear()
	c.display("[connected]")
}

// OnEvent implements transport.Handler.
func (c *Controller) OnEvent(event protocol.Outbound) {
	switch e := event.(type) {
	case protocol.SystemEvent:
		c.display(fmt.Sprintf("[session %s] %s", e.ClientID, e.Message))

	case protocol.AssistantEvent:
		c.handleAssistant(e)

	case protocol.VoiceResponseEvent:
		c.handleVoiceResponse(e)

	case protocol.ErrorEvent:
		c.display("[error] " + e.Message)

	default:
		c.logger.Warn("Unhandled event kind", zap.Any("event", event))
	}
}

func (c *Controller) handleAssistant(e protocol.AssistantEvent) {
	c.appendTranscript(fmt.Sprintf("Assistant: %s (%dms)", e.Message, e.ResponseTimeMs))

	c.mu.Lock()
	voiceEnabled := c.voiceEnabled
	serverVoice := c.serverVoice
	voice := c.selectedVoice
	if serverVoice && e.CorrelationID != "" {
		c.pending[e.CorrelationID] = struct{}{}
	}
	c.mu.Unlock()

	// The server only attaches audio by itself once the session has
	// spoken input. For a locally enabled toggle we ask explicitly.
	if voiceEnabled && !serverVoice {
		if err := c.sender.Send(protocol.VoiceRequest{Text: e.Message, Voice: voice}); err != nil {
			c.logger.Warn("Voice request failed", zap.Error(err))
		}
	}
}

func (c *Controller) handleVoiceResponse(e protocol.VoiceResponseEvent) {
	c.mu.Lock()
	enabled := c.voiceEnabled
	delete(c.pending, e.CorrelationID)
	c.mu.Unlock()

	if !enabled {
		return
	}

	audio, err := base64.StdEncoding.DecodeString(e.AudioData)
	if err != nil {
		c.logger.Warn("Undecodable audio payload", zap.Error(err))
		return
	}
	c.mu.Lock()
	c.lastAudio = audio
	c.mu.Unlock()
	c.audio.Enqueue(audio)
}

// Replay plays the most recently received clip again from the local
// copy, without asking the server to resynthesize.
func (c *Controller) Replay() {
	c.mu.Lock()
	audio := c.lastAudio
	c.mu.Unlock()

	if len(audio) == 0 {
		c.display("[nothing to replay]")
		return
	}
	c.audio.Enqueue(audio)
}

func (c *Controller) appendTranscript(line string) {
	c.mu.Lock()
	c.transcript = append(c.transcript, line)
	c.mu.Unlock()
	c.display(line)
}
