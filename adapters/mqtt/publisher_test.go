package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/all2prosperity/audio-svc/domain"
)

type capturedRequest struct {
	method string
	path   string
	header http.Header
	body   domain.PublishEnvelope
}

func newBroker(t *testing.T, status int, reply string) (*httptest.Server, <-chan capturedRequest) {
	t.Helper()
	captured := make(chan capturedRequest, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var envelope domain.PublishEnvelope
		require.NoError(t, json.Unmarshal(raw, &envelope))

		captured <- capturedRequest{
			method: r.Method,
			path:   r.URL.Path,
			header: r.Header.Clone(),
			body:   envelope,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)

	return srv, captured
}

func newTestPublisher(t *testing.T, url string) *Publisher {
	t.Helper()
	p, err := NewPublisher(Config{URL: url + "/", APIKey: "api_key", Secret: "secret"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return p
}

func TestNewPublisher_RequiresURL(t *testing.T) {
	_, err := NewPublisher(Config{}, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestPublisher_PublishStatus(t *testing.T) {
	srv, captured := newBroker(t, http.StatusOK, `{"id":"0006"}`)
	p := newTestPublisher(t, srv.URL)

	resp, err := p.PublishStatus(context.Background(), "11222", "online")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"0006"}`, string(resp))

	req := <-captured
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/api/v5/publish", req.path)
	// base64("api_key:secret")
	assert.Equal(t, "Basic YXBpX2tleTpzZWNyZXQ=", req.header.Get("Authorization"))
	assert.Equal(t, "application/json", req.header.Get("Content-Type"))
	assert.Equal(t, "app/11222/status", req.body.Topic)
	assert.JSONEq(t, `{"event":"online"}`, req.body.Payload)
}

func TestPublisher_PublishEvent(t *testing.T) {
	srv, captured := newBroker(t, http.StatusOK, `{}`)
	p := newTestPublisher(t, srv.URL)

	require.NoError(t, p.PublishEvent(context.Background(), "dev-7", "offline"))

	req := <-captured
	assert.Equal(t, "device/dev-7/event", req.body.Topic)
	assert.JSONEq(t, `{"event":"offline"}`, req.body.Payload)
}

func TestPublisher_PublishMessage(t *testing.T) {
	srv, captured := newBroker(t, http.StatusOK, `{}`)
	p := newTestPublisher(t, srv.URL)

	require.NoError(t, p.PublishMessage(context.Background(), "dev-7", "hi", "hello!"))

	req := <-captured
	assert.Equal(t, "app/dev-7/chat", req.body.Topic)
	assert.JSONEq(t, `[{"source":"1","content":"hi"},{"source":"0","content":"hello!"}]`, req.body.Payload)
}

func TestPublisher_PreEncodedPayload(t *testing.T) {
	srv, captured := newBroker(t, http.StatusOK, `{}`)
	p := newTestPublisher(t, srv.URL)

	_, err := p.Publish(context.Background(), "app/1/status", `{"event":"online"}`)
	require.NoError(t, err)

	req := <-captured
	assert.Equal(t, `{"event":"online"}`, req.body.Payload)
}

func TestPublisher_ErrorStatus(t *testing.T) {
	srv, _ := newBroker(t, http.StatusUnauthorized, `{"code":"BAD_API_KEY_OR_SECRET"}`)
	p := newTestPublisher(t, srv.URL)

	resp, err := p.PublishStatus(context.Background(), "1", "online")

	var publishErr *PublishError
	require.True(t, errors.As(err, &publishErr))
	assert.Equal(t, http.StatusUnauthorized, publishErr.StatusCode)
	assert.Contains(t, string(resp), "BAD_API_KEY_OR_SECRET")
}
