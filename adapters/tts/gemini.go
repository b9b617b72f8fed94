package tts

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/wicara-ai/wicara/domain/entities"
	"github.com/wicara-ai/wicara/domain/repositories"
)

const (
	defaultTTSModel = "gemini-2.5-flash-preview-tts"
	defaultVoice    = "Kore"

	// Gemini TTS returns raw PCM at this rate.
	pcmSampleRate = 24000
	pcmChannels   = 1
	pcmSampleBits = 16
)

// GeminiConfig holds configuration for the Gemini TTS client.
type GeminiConfig struct {
	APIKey string // Required
	Model  string
}

// GeminiSynthesis implements the SpeechSynthesis interface using the
// Gemini TTS models. The raw PCM output is wrapped into a WAV container
// so clients can play it directly.
type GeminiSynthesis struct {
	client *genai.Client
	logger *zap.Logger
	model  string
}

var _ repositories.SpeechSynthesis = (*GeminiSynthesis)(nil)

// NewGeminiSynthesis creates a new Gemini TTS client.
func NewGeminiSynthesis(ctx context.Context, config GeminiConfig, logger *zap.Logger) (*GeminiSynthesis, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := config.Model
	if model == "" {
		model = defaultTTSModel
		logger.Info("Using default TTS model", zap.String("model", model))
	}

	return &GeminiSynthesis{
		client: client,
		logger: logger,
		model:  model,
	}, nil
}

// Synthesize converts text to speech with the given prebuilt voice and
// returns WAV-encoded audio bytes.
func (g *GeminiSynthesis) Synthesize(ctx context.Context, text string, voice string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, entities.NewValidationError("text cannot be empty")
	}
	if voice == "" {
		voice = defaultVoice
	}

	g.logger.Info("Synthesizing speech",
		zap.Int("text_length", len(text)),
		zap.String("voice", voice))

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{
					VoiceName: voice,
				},
			},
		},
	}

	contents := genai.Text(fmt.Sprintf("Say cheerfully: %s", text))
	response, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return nil, entities.NewUpstreamError("synthesis", err)
	}

	pcm, err := extractAudioData(response)
	if err != nil {
		return nil, entities.NewUpstreamError("synthesis", err)
	}

	wav := EncodeWAV(pcm, pcmSampleRate, pcmChannels, pcmSampleBits)
	g.logger.Info("Speech synthesized",
		zap.Int("pcm_bytes", len(pcm)),
		zap.Int("wav_bytes", len(wav)))
	return wav, nil
}

func extractAudioData(response *genai.GenerateContentResponse) ([]byte, error) {
	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no candidates in TTS response")
	}
	for _, part := range response.Candidates[0].Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData.Data, nil
		}
	}
	return nil, fmt.Errorf("no audio data in TTS response")
}
