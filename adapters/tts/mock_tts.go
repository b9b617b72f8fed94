package tts

import (
	"context"
	"sync"

	"github.com/wicara-ai/wicara/domain/repositories"
)

// MockSynthesis is a placeholder SpeechSynthesis implementation for
// tests and demo mode. It returns deterministic bytes derived from the
// input so callers can assert on cache behavior.
type MockSynthesis struct {
	mu    sync.Mutex
	calls int

	// Err, when set, is returned from every Synthesize call.
	Err error
	// Delay optionally blocks each call until the channel is closed,
	// letting tests hold a synthesis in flight.
	Delay chan struct{}
}

var _ repositories.SpeechSynthesis = (*MockSynthesis)(nil)

// NewMockSynthesis creates a mock synthesis client.
func NewMockSynthesis() *MockSynthesis {
	return &MockSynthesis{}
}

// Synthesize implements repositories.SpeechSynthesis.
func (m *MockSynthesis) Synthesize(ctx context.Context, text string, voice string) ([]byte, error) {
	m.mu.Lock()
	m.calls++
	delay := m.Delay
	err := m.Err
	m.mu.Unlock()

	if delay != nil {
		select {
		case <-delay:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return []byte("audio:" + voice + ":" + text), nil
}

// Calls reports how many times Synthesize was invoked.
func (m *MockSynthesis) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
