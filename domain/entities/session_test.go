package entities

import "testing"

func TestNewSessionDefaults(t *testing.T) {
	s := NewSession("Kore")

	if s.ID == "" {
		t.Error("expected a generated session id")
	}
	if s.VoiceEnabled {
		t.Error("voice must start disabled")
	}
	if s.SelectedVoice != "Kore" {
		t.Errorf("selected voice = %q, want %q", s.SelectedVoice, "Kore")
	}
	if err := s.Validate(); err != nil {
		t.Errorf("fresh session should validate: %v", err)
	}
}

func TestSetVoiceKeepsCurrentOnBlank(t *testing.T) {
	s := NewSession("Kore")

	s.SetVoice("Puck")
	if s.SelectedVoice != "Puck" {
		t.Errorf("selected voice = %q, want %q", s.SelectedVoice, "Puck")
	}

	s.SetVoice("   ")
	if s.SelectedVoice != "Puck" {
		t.Errorf("blank input changed voice to %q", s.SelectedVoice)
	}
}

func TestHistoryReturnsCopy(t *testing.T) {
	s := NewSession("Kore")
	s.AddUserMessage("hello", MessageOriginTyped, "c1")
	s.AddAssistantMessage("hi", 10, "c1")

	history := s.History()
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	history[0].Content = "mutated"
	if s.Messages[0].Content != "hello" {
		t.Error("mutating the copy must not touch the transcript")
	}
}

func TestAddMessagesCarryMetadata(t *testing.T) {
	s := NewSession("Kore")

	user := s.AddUserMessage("spoken words", MessageOriginSpoken, "c9")
	if user.Role != MessageRoleUser || user.Origin != MessageOriginSpoken {
		t.Errorf("user message = %+v", user)
	}

	assistant := s.AddAssistantMessage("reply", 42, "c9")
	if assistant.Role != MessageRoleAssistant || assistant.LatencyMs != 42 {
		t.Errorf("assistant message = %+v", assistant)
	}
	if assistant.CorrelationID != user.CorrelationID {
		t.Error("turn messages must share a correlation id")
	}
}
