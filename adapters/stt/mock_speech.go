package stt

import (
	"context"
	"sync"

	"github.com/wicara-ai/wicara/domain/repositories"
)

// MockSpeechCapture is a scripted SpeechCapture for tests. Transcripts
// queued before Start are replayed on the returned channel in order.
type MockSpeechCapture struct {
	mu      sync.Mutex
	script  []repositories.Transcript
	started bool
	stopped bool
}

var _ repositories.SpeechCapture = (*MockSpeechCapture)(nil)

// NewMockSpeechCapture creates a capture that will replay the given
// transcripts.
func NewMockSpeechCapture(script ...repositories.Transcript) *MockSpeechCapture {
	return &MockSpeechCapture{script: script}
}

// Start replays the scripted transcripts and closes the channel.
func (m *MockSpeechCapture) Start(ctx context.Context) (<-chan repositories.Transcript, error) {
	m.mu.Lock()
	m.started = true
	script := make([]repositories.Transcript, len(m.script))
	copy(script, m.script)
	m.mu.Unlock()

	out := make(chan repositories.Transcript, len(script))
	go func() {
		defer close(out)
		for _, t := range script {
			select {
			case out <- t:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Stop marks the capture as stopped.
func (m *MockSpeechCapture) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	return nil
}

// Stopped reports whether Stop was called.
func (m *MockSpeechCapture) Stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}
