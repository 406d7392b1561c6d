package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/all2prosperity/audio-svc/domain"
)

// Stream defaults.
const (
	DefaultStreamURL   = "ws://localhost:3000/api/stream"
	DefaultSampleRate  = 24000
	DefaultChunkFrames = 48000
)

var ErrSessionNotStarted = errors.New("failed to start session")

// StreamConfig drives one audio round trip.
type StreamConfig struct {
	URL              string
	DeviceID         string
	WAVPath          string
	SampleRate       int
	OutputSampleRate int
	ChunkFrames      int

	// Output receives the decoded audio returned by the service.
	Output io.Writer
	// Messages receives the progress lines, os.Stdout when nil.
	Messages io.Writer
}

// StreamResult summarizes a finished round trip.
type StreamResult struct {
	SessionID      string
	ChunksSent     int
	BytesSent      int64
	ChunksReceived int
	BytesReceived  int64
	Completed      bool
}

func (c *StreamConfig) setDefaults() {
	if c.URL == "" {
		c.URL = DefaultStreamURL
	}
	if c.SampleRate <= 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.OutputSampleRate <= 0 {
		c.OutputSampleRate = c.SampleRate
	}
	if c.ChunkFrames <= 0 {
		c.ChunkFrames = DefaultChunkFrames
	}
	if c.Messages == nil {
		c.Messages = os.Stdout
	}
}

// RunStream starts a session, uploads the PCM data of the WAV file and
// collects the audio the service sends back, one step at a time.
func RunStream(ctx context.Context, config StreamConfig, logger *zap.Logger) (StreamResult, error) {
	config.setDefaults()
	result := StreamResult{SessionID: uuid.NewString()}

	wav, err := OpenWAV(config.WAVPath)
	if err != nil {
		return result, fmt.Errorf("open wav: %w", err)
	}
	defer wav.Close()

	header := http.Header{}
	if config.DeviceID != "" {
		header.Set(domain.HeaderDeviceID, config.DeviceID)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, config.URL, header)
	if err != nil {
		return result, fmt.Errorf("dial %s: %w", config.URL, err)
	}
	defer conn.Close()

	// unblock reads and writes when the caller gives up
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	logger.Info("Connected",
		zap.String("url", config.URL),
		zap.String("sessionID", result.SessionID),
		zap.Int("channels", wav.Format.Channels),
		zap.Int("wavSampleRate", wav.Format.SampleRate))

	start, err := domain.NewStreamFrame(domain.StreamStartSession, domain.StartSessionPayload{
		SessionID:        result.SessionID,
		InputFormat:      "pcm",
		OutputFormat:     "pcm",
		SampleRate:       config.SampleRate,
		OutputSampleRate: config.OutputSampleRate,
		Round:            0,
	})
	if err != nil {
		return result, err
	}
	if err := conn.WriteJSON(start); err != nil {
		return result, streamError(ctx, "send start_session", err)
	}

	var reply domain.StreamFrame
	if err := conn.ReadJSON(&reply); err != nil {
		if isClosed(err) {
			fmt.Fprintln(config.Messages, "Connection closed")
			return result, nil
		}
		return result, streamError(ctx, "read session reply", err)
	}
	if reply.Type != domain.StreamSessionStarted {
		fmt.Fprintln(config.Messages, "Failed to start session")
		return result, ErrSessionNotStarted
	}

	for {
		chunk, err := wav.ReadFrames(config.ChunkFrames)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return result, fmt.Errorf("read wav: %w", err)
		}

		if err := conn.WriteJSON(domain.NewAudioFrame(domain.StreamAudioInputChunk, chunk)); err != nil {
			return result, streamError(ctx, "send audio chunk", err)
		}
		result.ChunksSent++
		result.BytesSent += int64(len(chunk))
	}

	if err := conn.WriteJSON(domain.StreamFrame{Type: domain.StreamAudioInputFinish}); err != nil {
		return result, streamError(ctx, "send audio_input_finish", err)
	}
	logger.Info("Audio uploaded",
		zap.Int("chunks", result.ChunksSent),
		zap.Int64("bytes", result.BytesSent))

	for {
		var frame domain.StreamFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if isClosed(err) {
				fmt.Fprintln(config.Messages, "Connection closed")
				return result, nil
			}
			return result, streamError(ctx, "read output", err)
		}

		switch frame.Type {
		case domain.StreamAudioOutputChunk:
			data, err := frame.AudioData()
			if err != nil {
				return result, err
			}
			if config.Output != nil {
				if _, err := config.Output.Write(data); err != nil {
					return result, fmt.Errorf("write output: %w", err)
				}
			}
			result.ChunksReceived++
			result.BytesReceived += int64(len(data))

		case domain.StreamAudioOutputFinished:
			fmt.Fprintln(config.Messages, "Audio processing completed")
			result.Completed = true
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return result, nil

		default:
			logger.Warn("Ignoring frame", zap.String("type", string(frame.Type)), zap.ByteString("payload", frame.Payload))
		}
	}
}

func isClosed(err error) bool {
	var closeErr *websocket.CloseError
	return errors.As(err, &closeErr)
}

// streamError prefers the context error once the caller cancelled.
func streamError(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%s: %w", op, err)
}
