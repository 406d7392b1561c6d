// Package client talks to the audio service over HTTP and WebSocket.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/all2prosperity/audio-svc/domain"
)

const defaultTimeout = 30 * time.Second

// Config identifies the caller to the service.
type Config struct {
	BaseURL  string
	Token    string
	DeviceID string
	DevID    string
	UserID   string

	// HTTPClient defaults to a client with a 30s timeout.
	HTTPClient *http.Client
}

// APIError is returned with the body when the service answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, strings.TrimSpace(string(e.Body)))
}

// Client calls the chat endpoints and returns raw response bodies.
type Client struct {
	baseURL string
	config  Config
	hc      *http.Client
	logger  *zap.Logger
}

// New creates a new client
func New(config Config, logger *zap.Logger) *Client {
	hc := config.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL: strings.TrimSuffix(config.BaseURL, "/"),
		config:  config,
		hc:      hc,
		logger:  logger,
	}
}

// Chat sends one message. POST /api/chat
func (c *Client) Chat(ctx context.Context, req domain.ChatRequest) ([]byte, error) {
	return c.do(ctx, http.MethodPost, "/api/chat", nil, req)
}

// History lists chat sessions. GET /api/chat/history
func (c *Client) History(ctx context.Context, offset, limit int64) ([]byte, error) {
	query := url.Values{}
	query.Set("offset", strconv.FormatInt(offset, 10))
	query.Set("limit", strconv.FormatInt(limit, 10))
	return c.do(ctx, http.MethodGet, "/api/chat/history", query, nil)
}

// SessionHistory lists the exchanges of one session. POST /api/chat/session_history
func (c *Client) SessionHistory(ctx context.Context, req domain.SessionHistoryRequest) ([]byte, error) {
	return c.do(ctx, http.MethodPost, "/api/chat/session_history", nil, req)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(domain.HeaderDeviceID, c.config.DeviceID)
	req.Header.Set(domain.HeaderDevID, c.config.DevID)
	req.Header.Set(domain.HeaderUserID, c.config.UserID)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.Token)

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("Request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return data, &APIError{StatusCode: resp.StatusCode, Body: data}
	}
	return data, nil
}
