package llm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/wicara-ai/wicara/domain/entities"
	"github.com/wicara-ai/wicara/domain/repositories"
)

const (
	defaultModel       = "gemini-2.0-flash"
	defaultTemperature = 0.7
	defaultMaxTokens   = 1000

	// Number of most recent exchanges carried as conversation context.
	historyWindow = 5

	systemPreamble = "You are a helpful AI assistant. Be concise, friendly, and helpful in your responses."
)

// GeminiConfig holds configuration for the Gemini completion client.
type GeminiConfig struct {
	APIKey      string // Required
	Model       string
	Temperature float64
	MaxTokens   int
}

// GeminiCompletion implements the ChatCompletion interface using
// Google's Gemini API.
type GeminiCompletion struct {
	client      *genai.Client
	logger      *zap.Logger
	model       string
	temperature float32
	maxTokens   int32
}

var _ repositories.ChatCompletion = (*GeminiCompletion)(nil)

// NewGeminiCompletion creates a new Gemini completion client.
func NewGeminiCompletion(ctx context.Context, config GeminiConfig, logger *zap.Logger) (*GeminiCompletion, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if config.Temperature < 0 || config.Temperature > 1 {
		return nil, fmt.Errorf("temperature must be between 0 and 1, got %f", config.Temperature)
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
		model = defaultModel
		logger.Info("Using default model", zap.String("model", model))
	}
	temperature := config.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}
	maxTokens := config.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	return &GeminiCompletion{
		client:      client,
		logger:      logger,
		model:       model,
		temperature: float32(temperature),
		maxTokens:   int32(maxTokens),
	}, nil
}

// Complete sends the conversation context plus the new user text and
// returns the assistant reply. Failures after retries are surfaced as
// an UpstreamError; the caller decides how to report them.
func (g *GeminiCompletion) Complete(ctx context.Context, history []entities.Message, userText string) (string, error) {
	contents := buildContents(history, userText)

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.temperature),
		MaxOutputTokens: g.maxTokens,
	}

	var response *genai.GenerateContentResponse
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		response, err = g.client.Models.GenerateContent(ctx, g.model, contents, config)
		if err == nil {
			break
		}

		g.logger.Warn("Failed to generate content, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		if ctx.Err() != nil {
			break
		}
		if attempt < 2 {
			select {
			case <-time.After(time.Duration(attempt+1) * time.Second):
			case <-ctx.Done():
			}
		}
	}
	if err != nil {
		return "", entities.NewUpstreamError("completion", err)
	}

	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil || len(response.Candidates[0].Content.Parts) == 0 {
		return "", entities.NewUpstreamError("completion", fmt.Errorf("no content generated"))
	}

	var responseText string
	for _, part := range response.Candidates[0].Content.Parts {
		if part.Text != "" {
			responseText += part.Text
		}
	}
	if responseText == "" {
		return "", entities.NewUpstreamError("completion", fmt.Errorf("empty response"))
	}

	g.logger.Info("Completion generated",
		zap.Int("history_length", len(history)),
		zap.Int("response_length", len(responseText)))

	return responseText, nil
}

// buildContents assembles the prompt: system preamble, the last
// historyWindow exchanges, then the new user message.
func buildContents(history []entities.Message, userText string) []*genai.Content {
	contents := []*genai.Content{
		genai.NewContentFromText(systemPreamble, genai.RoleUser),
	}

	recent := history
	if max := historyWindow * 2; len(recent) > max {
		recent = recent[len(recent)-max:]
	}

	for _, msg := range recent {
		var role genai.Role
		switch msg.Role {
		case entities.MessageRoleAssistant:
			role = genai.RoleModel
		default:
			role = genai.RoleUser
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}

	contents = append(contents, genai.NewContentFromText(userText, genai.RoleUser))
	return contents
}
