package websocket

import (
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/all2prosperity/audio-svc/domain"
)

// WriteData is one outbound websocket message.
type WriteData struct {
	// MessageType is the type of the websocket message.
	// Expect websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

// ParseFrame decodes a text message into a stream frame
func ParseFrame(message []byte) (domain.StreamFrame, error) {
	var frame domain.StreamFrame
	if err := json.Unmarshal(message, &frame); err != nil {
		return frame, fmt.Errorf("invalid JSON format: %w", err)
	}
	if frame.Type == "" {
		return frame, fmt.Errorf("message missing type field")
	}
	return frame, nil
}

// DecodeStartSession extracts the start_session payload.
// Field validation happens when the session is started.
func DecodeStartSession(frame domain.StreamFrame) (domain.StartSessionPayload, error) {
	var payload domain.StartSessionPayload
	if frame.Type != domain.StreamStartSession {
		return payload, fmt.Errorf("expected %s, got %s", domain.StreamStartSession, frame.Type)
	}
	if err := frame.DecodePayload(&payload); err != nil {
		return payload, err
	}
	return payload, nil
}

func encodeFrame(frame domain.StreamFrame) (WriteData, error) {
	data, err := json.Marshal(frame)
	if err != nil {
		return WriteData{}, fmt.Errorf("marshal %s frame: %w", frame.Type, err)
	}
	return WriteData{Type: websocket.TextMessage, Payload: data}, nil
}

func sessionStartedMessage(sessionID string) (WriteData, error) {
	frame, err := domain.NewStreamFrame(domain.StreamSessionStarted, domain.SessionStartedPayload{SessionID: sessionID})
	if err != nil {
		return WriteData{}, err
	}
	return encodeFrame(frame)
}

func audioOutputMessage(chunk []byte) (WriteData, error) {
	return encodeFrame(domain.NewAudioFrame(domain.StreamAudioOutputChunk, chunk))
}

func outputFinishedMessage() (WriteData, error) {
	return encodeFrame(domain.StreamFrame{Type: domain.StreamAudioOutputFinished})
}

// CreateErrorMessage creates a standardized error frame
func CreateErrorMessage(message string) (WriteData, error) {
	frame, err := domain.NewStreamFrame(domain.StreamError, domain.StreamErrorPayload{Message: message})
	if err != nil {
		return WriteData{}, err
	}
	return encodeFrame(frame)
}
