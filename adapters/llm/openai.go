package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/all2prosperity/audio-svc/domain/repositories"
)

const (
	defaultOpenAIBaseURL = "https://api.deepseek.com"
	defaultOpenAIModel   = "deepseek-chat"
)

// OpenAIConfig configures any OpenAI-compatible chat completions backend
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// OpenAILLM implements the LargeLanguageModel interface on the chat completions API
type OpenAILLM struct {
	api       *openai.Client
	logger    *zap.Logger
	model     string
	maxTokens int
}

var _ repositories.LargeLanguageModel = (*OpenAILLM)(nil)

// NewOpenAILLM creates a client for config.BaseURL, DeepSeek by default
func NewOpenAILLM(config OpenAIConfig, logger *zap.Logger) (*OpenAILLM, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OPEN_API_KEY is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	clientConfig.BaseURL = orDefault(config.BaseURL, defaultOpenAIBaseURL)
	clientConfig.HTTPClient = &http.Client{Timeout: orDefault(config.Timeout, defaultTimeout)}

	return &OpenAILLM{
		api:       openai.NewClientWithConfig(clientConfig),
		logger:    logger,
		model:     orDefault(config.Model, defaultOpenAIModel),
		maxTokens: orDefault(config.MaxTokens, defaultMaxTokens),
	}, nil
}

// Complete implements repositories.LargeLanguageModel
func (o *OpenAILLM) Complete(ctx context.Context, messages []repositories.ChatMessage) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("no messages to send")
	}

	request := openai.ChatCompletionRequest{
		Model:     o.model,
		MaxTokens: o.maxTokens,
		Messages:  convertToOpenAIFormat(messages),
	}

	resp, err := o.api.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	o.logger.Debug("Chat completion",
		zap.String("model", o.model),
		zap.Int("messages", len(messages)),
		zap.Int("total_tokens", resp.Usage.TotalTokens))

	return resp.Choices[0].Message.Content, nil
}

func convertToOpenAIFormat(messages []repositories.ChatMessage) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		role := openai.ChatMessageRoleUser
		switch msg.Role {
		case repositories.SystemRole:
			role = openai.ChatMessageRoleSystem
		case repositories.AssistantRole:
			role = openai.ChatMessageRoleAssistant
		}
		result = append(result, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}
	return result
}
