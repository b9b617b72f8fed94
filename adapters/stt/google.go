package stt

import (
	"context"
	"fmt"
	"io"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/wicara-ai/wicara/domain/repositories"
)

const captureChunkSize = 3200 // 100ms of 16kHz 16-bit mono audio

// GoogleSpeechCapture implements SpeechCapture using the Google Cloud
// Speech streaming API. Audio frames are read from the configured
// source (typically a microphone pipe) and streamed to the recognizer;
// interim and final transcripts are delivered on the channel returned
// by Start.
type GoogleSpeechCapture struct {
	source io.Reader
	config repositories.AudioConfig
	logger *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

var _ repositories.SpeechCapture = (*GoogleSpeechCapture)(nil)

// NewGoogleSpeechCapture creates a capture adapter reading raw audio
// from source.
func NewGoogleSpeechCapture(source io.Reader, config repositories.AudioConfig, logger *zap.Logger) (*GoogleSpeechCapture, error) {
	if source == nil {
		return nil, fmt.Errorf("audio source is required")
	}
	if config.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive")
	}
	if config.Language == "" {
		config.Language = "en-US"
	}
	return &GoogleSpeechCapture{
		source: source,
		config: config,
		logger: logger,
	}, nil
}

// Start opens the streaming recognizer and begins pumping audio.
// The returned channel is closed when the stream ends or Stop is
// called.
func (g *GoogleSpeechCapture) Start(ctx context.Context) (<-chan repositories.Transcript, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancel != nil {
		return nil, fmt.Errorf("capture already started")
	}

	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	stream, err := client.StreamingRecognize(streamCtx)
	if err != nil {
		cancel()
		client.Close()
		return nil, fmt.Errorf("failed to open streaming recognize: %w", err)
	}

	encoding, err := audioEncoding(g.config.Encoding)
	if err != nil {
		cancel()
		stream.CloseSend()
		client.Close()
		return nil, err
	}

	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:        encoding,
					SampleRateHertz: int32(g.config.SampleRate),
					LanguageCode:    g.config.Language,
				},
				InterimResults: true,
			},
		},
	}); err != nil {
		cancel()
		stream.CloseSend()
		client.Close()
		return nil, fmt.Errorf("failed to send streaming config: %w", err)
	}

	transcripts := make(chan repositories.Transcript, 8)
	done := make(chan struct{})
	g.cancel = cancel
	g.done = done

	go g.pumpAudio(streamCtx, stream)
	go func() {
		defer close(done)
		defer close(transcripts)
		defer client.Close()
		g.receiveResults(streamCtx, stream, transcripts)
	}()

	return transcripts, nil
}

// Stop cancels the stream and waits for the receiver to drain.
func (g *GoogleSpeechCapture) Stop() error {
	g.mu.Lock()
	cancel := g.cancel
	done := g.done
	g.cancel = nil
	g.done = nil
	g.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	if done != nil {
		<-done
	}
	if closer, ok := g.source.(io.Closer); ok {
		closer.Close()
	}
	return nil
}

func (g *GoogleSpeechCapture) pumpAudio(ctx context.Context, stream speechpb.Speech_StreamingRecognizeClient) {
	defer stream.CloseSend()

	buf := make([]byte, captureChunkSize)
	for {
		if ctx.Err() != nil {
			return
		}
		n, err := g.source.Read(buf)
		if n > 0 {
			if sendErr := stream.Send(&speechpb.StreamingRecognizeRequest{
				StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
					AudioContent: buf[:n],
				},
			}); sendErr != nil {
				g.logger.Warn("Failed to send audio frame", zap.Error(sendErr))
				return
			}
		}
		if err != nil {
			if err != io.EOF && ctx.Err() == nil {
				g.logger.Warn("Audio source read failed", zap.Error(err))
			}
			return
		}
	}
}

func (g *GoogleSpeechCapture) receiveResults(ctx context.Context, stream speechpb.Speech_StreamingRecognizeClient, out chan<- repositories.Transcript) {
	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			return
		}
		if err != nil {
			if ctx.Err() == nil {
				g.logger.Warn("Speech stream receive failed", zap.Error(err))
			}
			return
		}
		for _, result := range resp.Results {
			if len(result.Alternatives) == 0 {
				continue
			}
			transcript := repositories.Transcript{
				Text:  result.Alternatives[0].Transcript,
				Final: result.IsFinal,
			}
			select {
			case out <- transcript:
			case <-ctx.Done():
				return
			}
		}
	}
}

// AwaitFinal drains transcripts until the recognizer commits a final
// result, passing interim updates to interim as they arrive. If the
// stream ends before a final result, ok is false and any partial text
// is discarded: an interim transcript is a display hint, never input.
func AwaitFinal(transcripts <-chan repositories.Transcript, interim func(string)) (text string, ok bool) {
	for t := range transcripts {
		if t.Final {
			return t.Text, true
		}
		if interim != nil {
			interim(t.Text)
		}
	}
	return "", false
}

func audioEncoding(name string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch name {
	case "", "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported audio encoding: %s", name)
	}
}
