package repositories

import "context"

// SpeechSynthesis abstracts the speech-synthesis collaborator. The
// returned bytes are a complete, ready-to-play audio file (WAV).
type SpeechSynthesis interface {
	Synthesize(ctx context.Context, text string, voice string) ([]byte, error)
}
