package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/all2prosperity/audio-svc/domain/repositories"
)

const (
	defaultGeminiModel = "gemini-2.0-flash"
	defaultMaxTokens   = 512
	defaultTimeout     = 60 * time.Second
)

// GeminiConfig configures the Gemini backend
type GeminiConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// GeminiLLM implements the LargeLanguageModel interface using Google's Gemini API
type GeminiLLM struct {
	client    *genai.Client
	logger    *zap.Logger
	model     string
	maxTokens int
	timeout   time.Duration
}

var _ repositories.LargeLanguageModel = (*GeminiLLM)(nil)

// NewGeminiLLM creates a new Gemini LLM instance
func NewGeminiLLM(ctx context.Context, config GeminiConfig, logger *zap.Logger) (*GeminiLLM, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
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
		model = defaultGeminiModel
		logger.Info("Using default model", zap.String("model", model))
	}

	return &GeminiLLM{
		client:    client,
		logger:    logger,
		model:     model,
		maxTokens: orDefault(config.MaxTokens, defaultMaxTokens),
		timeout:   orDefault(config.Timeout, defaultTimeout),
	}, nil
}

// Complete implements repositories.LargeLanguageModel
func (g *GeminiLLM) Complete(ctx context.Context, messages []repositories.ChatMessage) (string, error) {
	system, contents := convertToGeminiFormat(messages)
	if len(contents) == 0 {
		return "", fmt.Errorf("no messages to send")
	}

	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(g.maxTokens),
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	response, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var text strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("gemini returned an empty response")
	}

	g.logger.Debug("Gemini completion",
		zap.String("model", g.model),
		zap.Int("messages", len(messages)),
		zap.Int("response_length", text.Len()))

	return text.String(), nil
}

// convertToGeminiFormat splits system prompts out of the conversation;
// Gemini takes them as a system instruction.
func convertToGeminiFormat(messages []repositories.ChatMessage) (string, []*genai.Content) {
	var system []string
	var contents []*genai.Content

	for _, msg := range messages {
		switch msg.Role {
		case repositories.SystemRole:
			system = append(system, msg.Content)
		case repositories.AssistantRole:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	return strings.Join(system, "\n"), contents
}

func orDefault[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
