package websocket

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/all2prosperity/audio-svc/domain"
	"github.com/all2prosperity/audio-svc/domain/repositories"
	"github.com/all2prosperity/audio-svc/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1 << 20 // base64 audio chunks

	// DefaultLinger keeps a finished connection open for late frames.
	DefaultLinger = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

var errWriterClosed = errors.New("write pump closed")

// Hub maintains the set of active stream clients.
type Hub struct {
	// Registered clients.
	clients map[*Client]struct{}

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Closed when Run returns.
	done chan struct{}

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	streams *usecase.StreamService
	linger  time.Duration

	logger *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(streams *usecase.StreamService, linger time.Duration, logger *zap.Logger) *Hub {
	if linger <= 0 {
		linger = DefaultLinger
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		streams:    streams,
		linger:     linger,
		logger:     logger,
	}
}

// Run starts the hub's main loop. Open connections are closed when ctx ends.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
			h.logger.Info("Client registered", zap.String("deviceID", client.deviceID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Info("Client unregistered", zap.String("deviceID", client.deviceID))

		case <-ctx.Done():
			// readPump may still be enqueueing; it closes send once it sees done
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				client.cancel()
				client.conn.Close()
			}
			h.mu.Unlock()
			h.logger.Info("Hub stopped")
			return
		}
	}
}

// ActiveClients returns the number of open stream connections.
func (h *Hub) ActiveClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeStream upgrades the request and runs the stream protocol on it.
// The device id comes from the x-oz-device-id header or the device_id query.
func (h *Hub) ServeStream(c echo.Context) error {
	deviceID := c.Request().Header.Get(domain.HeaderDeviceID)
	if deviceID == "" {
		deviceID = c.QueryParam("device_id")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		hub:        h,
		conn:       conn,
		send:       make(chan WriteData, 256),
		writerDone: make(chan struct{}),
		deviceID:   deviceID,
		logger:     h.logger.With(zap.String("deviceID", deviceID)),
		ctx:        ctx,
		cancel:     cancel,
	}

	select {
	case h.register <- client:
	case <-h.done:
		cancel()
		conn.Close()
		return nil
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()

	return nil
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan WriteData

	// Closed when writePump returns.
	writerDone chan struct{}

	// Device ID for this client, may be empty
	deviceID string

	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// Owned by readPump.
	sessionID string
	processor repositories.AudioProcessor
	started   bool
	announced bool

	// Set once output was flushed; pongs stop extending the read deadline.
	finishing atomic.Bool
}

// readPump pumps messages from the websocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		c.cancel()
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
			// the hub stopped without closing send; readPump is its only sender
			close(c.send)
		}
		// send is closed by now; let writePump deliver the close frame
		<-c.writerDone
		c.conn.Close()
		if c.announced {
			c.hub.streams.EndSession(c.deviceID)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		if !c.finishing.Load() {
			c.conn.SetReadDeadline(time.Now().Add(pongWait))
		}
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) && !c.finishing.Load() {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		switch messageType {
		case websocket.TextMessage:
			if err := c.processMessage(message); err != nil {
				if errors.Is(err, errWriterClosed) {
					return
				}
				c.logger.Warn("Failed to process message", zap.Error(err))
			}
		default:
			c.logger.Warn("Received unsupported message type", zap.Int("type", messageType))
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(c.writerDone)
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue hands a message to writePump, blocking while the buffer is full.
func (c *Client) enqueue(message WriteData, err error) error {
	if err != nil {
		return err
	}
	select {
	case c.send <- message:
		return nil
	case <-c.writerDone:
		return errWriterClosed
	case <-c.ctx.Done():
		return errWriterClosed
	}
}

func (c *Client) sendError(message string) error {
	msg, err := CreateErrorMessage(message)
	return c.enqueue(msg, err)
}

// processMessage processes incoming frames from the client
func (c *Client) processMessage(message []byte) error {
	frame, err := ParseFrame(message)
	if err != nil {
		return err
	}

	switch frame.Type {
	case domain.StreamStartSession:
		return c.handleStartSession(frame)
	case domain.StreamAudioInputChunk:
		return c.handleInputChunk(frame)
	case domain.StreamAudioInputFinish:
		return c.handleInputFinish()
	default:
		c.logger.Warn("Unknown message type", zap.String("type", string(frame.Type)))
		return nil
	}
}

// handleStartSession negotiates a new round; a started session may be restarted.
func (c *Client) handleStartSession(frame domain.StreamFrame) error {
	payload, err := DecodeStartSession(frame)
	if err == nil {
		c.processor, err = c.hub.streams.StartSession(c.ctx, c.deviceID, payload)
	}
	if err != nil {
		c.logger.Warn("Rejected start_session", zap.Error(err))
		return c.sendError(err.Error())
	}

	c.started = true
	c.announced = c.announced || c.deviceID != ""
	c.sessionID = payload.SessionID
	if c.finishing.Swap(false) {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
	}

	return c.enqueue(sessionStartedMessage(payload.SessionID))
}

func (c *Client) handleInputChunk(frame domain.StreamFrame) error {
	if !c.started {
		c.logger.Warn("Received audio chunk before start_session")
		return nil
	}

	data, err := frame.AudioData()
	if err != nil {
		return c.sendError(err.Error())
	}

	if err := c.processor.Write(data); err != nil {
		c.logger.Error("Failed to process audio chunk",
			zap.String("sessionID", c.sessionID),
			zap.Error(err))
		return c.sendError(err.Error())
	}
	return nil
}

// handleInputFinish flushes the processor and starts the linger period.
func (c *Client) handleInputFinish() error {
	if !c.started {
		c.logger.Warn("Received audio_input_finish before start_session")
		return c.sendError("session not started")
	}
	c.started = false

	chunks, err := c.processor.Finish(c.ctx)
	if err != nil {
		c.logger.Error("Failed to finish audio processing",
			zap.String("sessionID", c.sessionID),
			zap.Error(err))
		return c.sendError(err.Error())
	}

	for _, chunk := range chunks {
		if err := c.enqueue(audioOutputMessage(chunk)); err != nil {
			return err
		}
	}
	if err := c.enqueue(outputFinishedMessage()); err != nil {
		return err
	}

	c.logger.Info("Audio output sent",
		zap.String("sessionID", c.sessionID),
		zap.Int("chunks", len(chunks)))

	c.finishing.Store(true)
	c.conn.SetReadDeadline(time.Now().Add(c.hub.linger))
	return nil
}
