package repositories

import "context"

// Transcript is one speech-recognition result. Interim results refine
// as the user keeps speaking; only final transcripts are submitted as
// voice messages.
type Transcript struct {
	Text  string
	Final bool
}

// AudioConfig describes the raw audio fed into speech recognition.
type AudioConfig struct {
	SampleRate int
	Encoding   string
	Language   string
}

// SpeechCapture abstracts local, on-device speech recognition. Start
// begins capturing and returns a channel of transcripts; the channel
// is closed when capture ends or ctx is cancelled.
type SpeechCapture interface {
	Start(ctx context.Context) (<-chan Transcript, error)
	Stop() error
}
