package mqtt

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/all2prosperity/audio-svc/domain"
	"github.com/all2prosperity/audio-svc/domain/repositories"
)

const (
	publishPath    = "/api/v5/publish"
	defaultTimeout = 10 * time.Second
)

// Config holds the broker's HTTP API endpoint and credentials
type Config struct {
	URL     string
	APIKey  string
	Secret  string
	Timeout time.Duration
}

// Publisher publishes messages through the broker's HTTP publish API
type Publisher struct {
	baseURL string
	apiKey  string
	secret  string
	hc      *http.Client
	logger  *zap.Logger
}

var _ repositories.Publisher = (*Publisher)(nil)

// PublishError is returned when the broker answers with a non-2xx status.
type PublishError struct {
	StatusCode int
	Body       []byte
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish failed with status %d: %s", e.StatusCode, strings.TrimSpace(string(e.Body)))
}

// NewPublisher creates a publisher for the broker at config.URL
func NewPublisher(config Config, logger *zap.Logger) (*Publisher, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("mqtt url is required")
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &Publisher{
		baseURL: strings.TrimRight(config.URL, "/"),
		apiKey:  config.APIKey,
		secret:  config.Secret,
		hc:      &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

// Publish sends payload to topic and returns the broker's raw response.
// payload is JSON encoded unless it already is a string or raw JSON.
func (p *Publisher) Publish(ctx context.Context, topic string, payload any) ([]byte, error) {
	encoded, err := encodePayload(payload)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(domain.PublishEnvelope{
		Topic:   topic,
		Payload: encoded,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal publish envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+publishPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+p.authorization())

	p.logger.Debug("Publishing message",
		zap.String("topic", topic),
		zap.String("url", req.URL.String()))

	resp, err := p.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read publish response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return respBody, &PublishError{StatusCode: resp.StatusCode, Body: respBody}
	}

	p.logger.Debug("Published message",
		zap.String("topic", topic),
		zap.Int("statusCode", resp.StatusCode),
		zap.ByteString("response", respBody))

	return respBody, nil
}

// PublishStatus publishes an app status event, e.g. "online".
func (p *Publisher) PublishStatus(ctx context.Context, appID, event string) ([]byte, error) {
	return p.Publish(ctx, fmt.Sprintf("app/%s/status", appID), domain.EventPayload{Event: event})
}

// PublishEvent implements repositories.Publisher
func (p *Publisher) PublishEvent(ctx context.Context, deviceID, event string) error {
	_, err := p.Publish(ctx, fmt.Sprintf("device/%s/event", deviceID), domain.EventPayload{Event: event})
	return err
}

// PublishMessage implements repositories.Publisher
func (p *Publisher) PublishMessage(ctx context.Context, deviceID, userMessage, deviceMessage string) error {
	transcript := []domain.MessagePayload{
		{Source: domain.MessageSourceUser, Content: userMessage},
		{Source: domain.MessageSourceDevice, Content: deviceMessage},
	}
	_, err := p.Publish(ctx, fmt.Sprintf("app/%s/chat", deviceID), transcript)
	return err
}

func (p *Publisher) authorization() string {
	return base64.StdEncoding.EncodeToString([]byte(p.apiKey + ":" + p.secret))
}

func encodePayload(payload any) (string, error) {
	switch v := payload.(type) {
	case string:
		return v, nil
	case json.RawMessage:
		return string(v), nil
	case []byte:
		return string(v), nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}
	return string(data), nil
}
