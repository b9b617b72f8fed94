package controller

import (
	"encoding/base64"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/wicara-ai/wicara/internal/protocol"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []protocol.Inbound
}

func (f *fakeSender) Send(msg protocol.Inbound) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSender) messages() []protocol.Inbound {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]protocol.Inbound, len(f.sent))
	copy(out, f.sent)
	return out
}

type fakeSink struct {
	mu       sync.Mutex
	enqueued [][]byte
	cleared  int
}

func (f *fakeSink) Enqueue(audio []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, audio)
}

func (f *fakeSink) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
}

func (f *fakeSink) clips() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.enqueued)
}

func (f *fakeSink) clearCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cleared
}

func newTestController() (*Controller, *fakeSender, *fakeSink) {
	sender := &fakeSender{}
	sink := &fakeSink{}
	c := New(sender, sink, "Kore", "test-client", nil, zap.NewNop())
	return c, sender, sink
}

func TestTypedFlowNoVoice(t *testing.T) {
	c, sender, sink := newTestController()

	if err := c.SendText("hello"); err != nil {
		t.Fatal(err)
	}
	c.OnEvent(protocol.NewAssistantEvent(protocol.MessageTypeAssistant, "hi", 12, "c1"))

	msgs := sender.messages()
	if len(msgs) != 1 {
		t.Fatalf("expected only the text message, got %d messages", len(msgs))
	}
	if sink.clips() != 0 {
		t.Error("no audio should play with voice off")
	}
}

func TestToggleRequestsVoiceForAssistantText(t *testing.T) {
	c, sender, _ := newTestController()
	c.EnableVoice()
	c.SetVoice("Puck")

	c.OnEvent(protocol.NewAssistantEvent(protocol.MessageTypeAssistant, "read me", 10, "c1"))

	msgs := sender.messages()
	if len(msgs) != 1 {
		t.Fatalf("expected a voice request, got %d messages", len(msgs))
	}
	req, ok := msgs[0].(protocol.VoiceRequest)
	if !ok {
		t.Fatalf("expected VoiceRequest, got %T", msgs[0])
	}
	if req.Text != "read me" || req.Voice != "Puck" {
		t.Errorf("voice request = %+v", req)
	}
}

func TestSpokenFlowDoesNotDuplicateVoiceRequest(t *testing.T) {
	c, sender, sink := newTestController()

	if err := c.SendSpoken("hello there"); err != nil {
		t.Fatal(err)
	}
	if !c.VoiceEnabled() {
		t.Fatal("speaking should enable voice output")
	}

	// Server attaches audio on its own after spoken input; the
	// controller must not also request it.
	c.OnEvent(protocol.NewAssistantEvent(protocol.MessageTypeVoiceMsgResponse, "reply", 20, "c2"))
	audio := base64.StdEncoding.EncodeToString([]byte("wav-bytes"))
	c.OnEvent(protocol.VoiceResponseEvent{
		Type:          protocol.MessageTypeVoiceResponse,
		AudioData:     audio,
		Text:          "reply",
		Voice:         "Kore",
		CorrelationID: "c2",
	})

	msgs := sender.messages()
	if len(msgs) != 1 {
		t.Fatalf("expected only the spoken message, got %d", len(msgs))
	}
	if sink.clips() != 1 {
		t.Errorf("expected 1 clip enqueued, got %d", sink.clips())
	}
}

func TestDisableVoiceClearsPlaybackAndIgnoresAudio(t *testing.T) {
	c, _, sink := newTestController()
	c.SendSpoken("speak up")

	c.DisableVoice()
	if sink.clearCalls() == 0 {
		t.Error("disabling voice must clear the playback queue")
	}

	audio := base64.StdEncoding.EncodeToString([]byte("late"))
	c.OnEvent(protocol.VoiceResponseEvent{
		Type:      protocol.MessageTypeVoiceResponse,
		AudioData: audio,
	})
	if sink.clips() != 0 {
		t.Error("audio arriving after disable must not play")
	}

	before := len(c.Transcript())
	c.OnEvent(protocol.NewAssistantEvent(protocol.MessageTypeAssistant, "still text", 5, "c3"))
	if len(c.Transcript()) != before+1 {
		t.Error("text must keep flowing with voice off")
	}
}

func TestReconnectKeepsTranscriptDiscardsAudioState(t *testing.T) {
	c, sender, sink := newTestController()
	c.SendText("before drop")
	c.OnEvent(protocol.NewAssistantEvent(protocol.MessageTypeAssistant, "answer", 7, "c1"))
	transcriptLen := len(c.Transcript())

	c.OnConnect()

	if got := len(c.Transcript()); got != transcriptLen {
		t.Errorf("transcript length changed across reconnect: %d -> %d", transcriptLen, got)
	}
	if sink.clearCalls() == 0 {
		t.Error("reconnect must clear queued audio")
	}

	// The new server session has voice off, so spoken-mode state is
	// reset and a voice-enabled client asks explicitly again.
	c.SendSpoken("speak")
	c.OnConnect()
	c.EnableVoice()
	c.OnEvent(protocol.NewAssistantEvent(protocol.MessageTypeAssistant, "fresh", 9, "c9"))
	msgs := sender.messages()
	if _, ok := msgs[len(msgs)-1].(protocol.VoiceRequest); !ok {
		t.Errorf("expected explicit voice request after reconnect, got %T", msgs[len(msgs)-1])
	}
}

func TestReplayReusesDeliveredAudio(t *testing.T) {
	c, sender, sink := newTestController()
	c.SendSpoken("say it")

	audio := base64.StdEncoding.EncodeToString([]byte("clip"))
	c.OnEvent(protocol.VoiceResponseEvent{
		Type:          protocol.MessageTypeVoiceResponse,
		AudioData:     audio,
		CorrelationID: "c1",
	})
	sentBefore := len(sender.messages())

	c.Replay()

	if sink.clips() != 2 {
		t.Errorf("expected 2 enqueues (original + replay), got %d", sink.clips())
	}
	if len(sender.messages()) != sentBefore {
		t.Error("replay must not contact the server")
	}
}
