package client

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

type recorded struct {
	method string
	path   string
	query  string
	header http.Header
	body   []byte
}

func newRecordingServer(t *testing.T, status int, reply string) (*httptest.Server, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.method = r.Method
		rec.path = r.URL.Path
		rec.query = r.URL.RawQuery
		rec.header = r.Header.Clone()
		rec.body, _ = io.ReadAll(r.Body)
		w.WriteHeader(status)
		w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func newTestClient(t *testing.T, baseURL string) *Client {
	return New(Config{
		BaseURL:  baseURL + "/",
		Token:    "1234567890",
		DeviceID: "dev-1",
		DevID:    "dev-2",
		UserID:   "user-1",
	}, zaptest.NewLogger(t))
}

func assertHeaders(t *testing.T, header http.Header) {
	t.Helper()
	assert.Equal(t, "dev-1", header.Get(domain.HeaderDeviceID))
	assert.Equal(t, "dev-2", header.Get(domain.HeaderDevID))
	assert.Equal(t, "user-1", header.Get(domain.HeaderUserID))
	assert.Equal(t, "Bearer 1234567890", header.Get("Authorization"))
	assert.Equal(t, "application/json", header.Get("Content-Type"))
}

func TestClient_Chat(t *testing.T) {
	srv, rec := newRecordingServer(t, http.StatusOK, `{"message":"hi","session_id":"s1","role_id":"1"}`)
	c := newTestClient(t, srv.URL)

	body, err := c.Chat(context.Background(), domain.ChatRequest{Message: "1", UserID: "2", RoleID: "1"})
	require.NoError(t, err)

	assert.JSONEq(t, `{"message":"hi","session_id":"s1","role_id":"1"}`, string(body))
	assert.Equal(t, http.MethodPost, rec.method)
	assert.Equal(t, "/api/chat", rec.path)
	assert.JSONEq(t, `{"message":"1","session_id":"","user_id":"2","role_id":"1"}`, string(rec.body))
	assertHeaders(t, rec.header)
}

func TestClient_History(t *testing.T) {
	srv, rec := newRecordingServer(t, http.StatusOK, `{"code":0}`)
	c := newTestClient(t, srv.URL)

	body, err := c.History(context.Background(), 2, 10)
	require.NoError(t, err)

	assert.Equal(t, `{"code":0}`, string(body))
	assert.Equal(t, http.MethodGet, rec.method)
	assert.Equal(t, "/api/chat/history", rec.path)
	assert.Equal(t, "limit=10&offset=2", rec.query)
	assert.Empty(t, rec.body)
	assertHeaders(t, rec.header)
}

func TestClient_SessionHistory(t *testing.T) {
	srv, rec := newRecordingServer(t, http.StatusOK, `{"code":0,"history":[]}`)
	c := newTestClient(t, srv.URL)

	_, err := c.SessionHistory(context.Background(), domain.SessionHistoryRequest{ChatID: "chat-1", Offset: 0, Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, rec.method)
	assert.Equal(t, "/api/chat/session_history", rec.path)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(rec.body, &sent))
	assert.Equal(t, map[string]any{"chat_id": "chat-1", "offset": float64(0), "limit": float64(10)}, sent)
	assertHeaders(t, rec.header)
}

func TestClient_ErrorStatusKeepsBody(t *testing.T) {
	srv, _ := newRecordingServer(t, http.StatusInternalServerError, `{"error":"internal_error"}`)
	c := newTestClient(t, srv.URL)

	body, err := c.Chat(context.Background(), domain.ChatRequest{Message: "x"})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, `{"error":"internal_error"}`, string(body))
	assert.Contains(t, apiErr.Error(), "500")
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, err := newTestClient(t, srv.URL).History(context.Background(), 0, 10)

	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}
