package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/wicara-ai/wicara/domain/entities"
	"github.com/wicara-ai/wicara/domain/repositories"
)

// MockCompletion is a placeholder ChatCompletion implementation for
// tests and demo mode.
type MockCompletion struct {
	mu    sync.Mutex
	calls int

	// Reply overrides the generated response when non-empty.
	Reply string
	// Err, when set, is returned from every Complete call.
	Err error
}

var _ repositories.ChatCompletion = (*MockCompletion)(nil)

// NewMockCompletion creates a mock completion client.
func NewMockCompletion() *MockCompletion {
	return &MockCompletion{}
}

// Complete implements repositories.ChatCompletion.
func (m *MockCompletion) Complete(ctx context.Context, history []entities.Message, userText string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", entities.NewUpstreamError("completion", err)
	}
	if m.Err != nil {
		return "", m.Err
	}
	if m.Reply != "" {
		return m.Reply, nil
	}
	return fmt.Sprintf("You said: %s", userText), nil
}

// Calls reports how many times Complete was invoked.
func (m *MockCompletion) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
