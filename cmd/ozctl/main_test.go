package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/all2prosperity/audio-svc/domain"
)

func TestNewClient_UsesTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	savedCfg, savedLogger := cfg, logger
	t.Cleanup(func() { cfg, logger = savedCfg, savedLogger })
	cfg.BaseURL = srv.URL
	cfg.Timeout = 50 * time.Millisecond
	logger = zaptest.NewLogger(t)

	start := time.Now()
	_, err := newClient().Chat(context.Background(), domain.ChatRequest{Message: "hello"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
