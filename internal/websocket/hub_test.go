package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/all2prosperity/audio-svc/adapters/audio"
	"github.com/all2prosperity/audio-svc/domain"
	"github.com/all2prosperity/audio-svc/usecase"
)

type eventRecorder struct {
	events chan string
}

func (r *eventRecorder) PublishEvent(ctx context.Context, deviceID, event string) error {
	r.events <- deviceID + ":" + event
	return nil
}

func (r *eventRecorder) PublishMessage(ctx context.Context, deviceID, userMessage, deviceMessage string) error {
	return nil
}

type testServer struct {
	hub    *Hub
	url    string
	events chan string
}

func setupTestHub(t *testing.T, linger time.Duration) *testServer {
	t.Helper()
	logger := zaptest.NewLogger(t)

	recorder := &eventRecorder{events: make(chan string, 10)}
	pipeline := audio.NewEchoPipeline(logger)
	pipeline.ChunkSize = 4
	streams := usecase.NewStreamService(pipeline, recorder, logger)
	hub := NewHub(streams, linger, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	e := echo.New()
	e.GET("/api/stream", hub.ServeStream)
	srv := httptest.NewServer(e)

	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-hub.done
	})

	return &testServer{
		hub:    hub,
		url:    "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/stream",
		events: recorder.events,
	}
}

func (s *testServer) dial(t *testing.T, header http.Header) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(s.url, header)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendFrame(t *testing.T, conn *websocket.Conn, frame domain.StreamFrame) {
	t.Helper()
	if err := conn.WriteJSON(frame); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) domain.StreamFrame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var frame domain.StreamFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return frame
}

func startSession(t *testing.T, conn *websocket.Conn, payload domain.StartSessionPayload) domain.StreamFrame {
	t.Helper()
	frame, err := domain.NewStreamFrame(domain.StreamStartSession, payload)
	if err != nil {
		t.Fatal(err)
	}
	sendFrame(t, conn, frame)
	return readFrame(t, conn)
}

func TestHub_EchoRoundTrip(t *testing.T) {
	s := setupTestHub(t, 100*time.Millisecond)
	conn := s.dial(t, http.Header{domain.HeaderDeviceID: []string{"dev-1"}})

	started := startSession(t, conn, domain.StartSessionPayload{SessionID: "abc", InputFormat: "pcm", SampleRate: 24000})
	if started.Type != domain.StreamSessionStarted {
		t.Fatalf("Expected session_started, got %s", started.Type)
	}
	var ack domain.SessionStartedPayload
	if err := started.DecodePayload(&ack); err != nil || ack.SessionID != "abc" {
		t.Fatalf("Unexpected session_started payload %s (%v)", started.Payload, err)
	}

	input := []byte("0123456789")
	sendFrame(t, conn, domain.NewAudioFrame(domain.StreamAudioInputChunk, input[:6]))
	sendFrame(t, conn, domain.NewAudioFrame(domain.StreamAudioInputChunk, input[6:]))
	sendFrame(t, conn, domain.StreamFrame{Type: domain.StreamAudioInputFinish})

	var output []byte
	chunks := 0
	for {
		frame := readFrame(t, conn)
		if frame.Type == domain.StreamAudioOutputFinished {
			break
		}
		if frame.Type != domain.StreamAudioOutputChunk {
			t.Fatalf("Unexpected frame %s", frame.Type)
		}
		data, err := frame.AudioData()
		if err != nil {
			t.Fatalf("AudioData() error = %v", err)
		}
		output = append(output, data...)
		chunks++
	}

	if !bytes.Equal(output, input) {
		t.Errorf("Expected echo %q, got %q", input, output)
	}
	if chunks != 3 {
		t.Errorf("Expected 3 output chunks of at most 4 bytes, got %d", chunks)
	}

	// the server closes the connection once the linger period is over
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) || closeErr.Code != websocket.CloseNormalClosure {
		t.Errorf("Expected a normal close, got %v", err)
	}

	want := map[string]bool{"dev-1:online": false, "dev-1:offline": false}
	for range want {
		select {
		case event := <-s.events:
			want[event] = true
		case <-time.After(2 * time.Second):
			t.Fatal("Timed out waiting for device events")
		}
	}
	for event, seen := range want {
		if !seen {
			t.Errorf("Expected event %s", event)
		}
	}
}

func TestHub_ErrorsKeepConnection(t *testing.T) {
	s := setupTestHub(t, time.Second)
	conn := s.dial(t, nil)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatal(err)
	}
	sendFrame(t, conn, domain.StreamFrame{Type: "bogus"})
	// chunk before start_session is ignored
	sendFrame(t, conn, domain.NewAudioFrame(domain.StreamAudioInputChunk, []byte{1, 2}))

	sendFrame(t, conn, domain.StreamFrame{Type: domain.StreamAudioInputFinish})
	if frame := readFrame(t, conn); frame.Type != domain.StreamError {
		t.Fatalf("Expected error frame for finish before start, got %s", frame.Type)
	}

	tests := []struct {
		name    string
		payload any
	}{
		{name: "missing session id", payload: domain.StartSessionPayload{SampleRate: 24000}},
		{name: "bad sample rate", payload: domain.StartSessionPayload{SessionID: "s", SampleRate: 1}},
		{name: "wrong payload shape", payload: "text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, _ := domain.NewStreamFrame(domain.StreamStartSession, tt.payload)
			sendFrame(t, conn, frame)
			reply := readFrame(t, conn)
			if reply.Type != domain.StreamError {
				t.Fatalf("Expected error frame, got %s", reply.Type)
			}
			var payload domain.StreamErrorPayload
			if err := reply.DecodePayload(&payload); err != nil || payload.Message == "" {
				t.Errorf("Expected an error message, got %s", reply.Payload)
			}
		})
	}

	started := startSession(t, conn, domain.StartSessionPayload{SessionID: "ok", SampleRate: 16000})
	if started.Type != domain.StreamSessionStarted {
		t.Errorf("Expected the connection to survive errors, got %s", started.Type)
	}

	sendFrame(t, conn, domain.StreamFrame{Type: domain.StreamAudioInputChunk, Payload: json.RawMessage(`"***"`)})
	if frame := readFrame(t, conn); frame.Type != domain.StreamError {
		t.Errorf("Expected error frame for undecodable audio, got %s", frame.Type)
	}

	select {
	case event := <-s.events:
		t.Errorf("No device events expected without a device id, got %s", event)
	default:
	}
}

func TestHub_DeviceIDFromQuery(t *testing.T) {
	s := setupTestHub(t, time.Second)

	conn, _, err := websocket.DefaultDialer.Dial(s.url+"?device_id=dev-q", nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	startSession(t, conn, domain.StartSessionPayload{SessionID: "s", SampleRate: 24000})

	select {
	case event := <-s.events:
		if event != "dev-q:online" {
			t.Errorf("Unexpected event %s", event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for online event")
	}
}

func TestHub_UnregistersClosedClients(t *testing.T) {
	s := setupTestHub(t, time.Second)
	conn := s.dial(t, nil)

	waitFor(t, func() bool { return s.hub.ActiveClients() == 1 })

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	waitFor(t, func() bool { return s.hub.ActiveClients() == 0 })
}

func TestHub_ShutdownWithQueuedOutput(t *testing.T) {
	// observer instead of zaptest: the pumps may still log after Run returns
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	pipeline := audio.NewEchoPipeline(logger)
	pipeline.ChunkSize = 4
	hub := NewHub(usecase.NewStreamService(pipeline, nil, logger), time.Minute, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	e := echo.New()
	e.GET("/api/stream", hub.ServeStream)
	srv := httptest.NewServer(e)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/stream", nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	startSession(t, conn, domain.StartSessionPayload{SessionID: "big", SampleRate: 24000})

	// far more 4-byte output frames than the send buffer and socket can hold
	audioData := bytes.Repeat([]byte{7}, 600_000)
	sendFrame(t, conn, domain.NewAudioFrame(domain.StreamAudioInputChunk, audioData))
	sendFrame(t, conn, domain.NewAudioFrame(domain.StreamAudioInputChunk, audioData))
	sendFrame(t, conn, domain.StreamFrame{Type: domain.StreamAudioInputFinish})

	// leave the output unread until the writer backs up
	time.Sleep(300 * time.Millisecond)
	cancel()

	select {
	case <-hub.done:
	case <-time.After(5 * time.Second):
		t.Fatal("Hub did not stop")
	}
	if n := hub.ActiveClients(); n != 0 {
		t.Errorf("Expected no clients after shutdown, got %d", n)
	}

	// the server drops the connection instead of delivering the rest
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			t.Fatal("Connection stayed open after shutdown")
		}
		break
	}

	if logs.FilterMessage("Hub stopped").Len() != 1 {
		t.Error("Expected the hub to log its shutdown")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
