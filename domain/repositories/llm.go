package repositories

import (
	"context"

	"github.com/wicara-ai/wicara/domain/entities"
)

// ChatCompletion abstracts the language-model collaborator. Complete
// takes the conversation so far plus the new user text and returns the
// assistant's reply. Implementations must honor ctx cancellation and
// return within a bounded time.
type ChatCompletion interface {
	Complete(ctx context.Context, history []entities.Message, userText string) (string, error)
}
