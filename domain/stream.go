package domain

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// StreamMessageType tags the frames exchanged on the audio stream
type StreamMessageType string

const (
	StreamStartSession        StreamMessageType = "start_session"
	StreamSessionStarted      StreamMessageType = "session_started"
	StreamAudioInputChunk     StreamMessageType = "audio_input_chunk"
	StreamAudioInputFinish    StreamMessageType = "audio_input_finish"
	StreamAudioOutputChunk    StreamMessageType = "audio_output_chunk"
	StreamAudioOutputFinished StreamMessageType = "audio_output_finished"
	StreamError               StreamMessageType = "error"
)

// StreamFrame is the {type, payload} envelope of every stream message.
// Audio chunks carry a base64 string payload; control frames carry an object or nothing.
type StreamFrame struct {
	Type    StreamMessageType `json:"type"`
	Payload json.RawMessage   `json:"payload,omitempty"`
}

// StartSessionPayload is sent by the client with start_session.
type StartSessionPayload struct {
	SessionID        string `json:"session_id"`
	InputFormat      string `json:"input_format"`
	OutputFormat     string `json:"output_format"`
	SampleRate       int    `json:"sample_rate"`
	OutputSampleRate int    `json:"output_sample_rate"`
	Round            int    `json:"round"`
}

// SessionStartedPayload acknowledges start_session.
type SessionStartedPayload struct {
	SessionID string `json:"session_id"`
}

// StreamErrorPayload explains an error frame.
type StreamErrorPayload struct {
	Message string `json:"message"`
}

var ErrEmptyPayload = errors.New("frame has no payload")

// NewStreamFrame builds a frame whose payload is payload marshaled to JSON.
// A nil payload produces a frame without a payload field.
func NewStreamFrame(t StreamMessageType, payload any) (StreamFrame, error) {
	frame := StreamFrame{Type: t}
	if payload == nil {
		return frame, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return frame, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	frame.Payload = raw
	return frame, nil
}

// NewAudioFrame builds an audio frame with data base64 encoded as a JSON string.
func NewAudioFrame(t StreamMessageType, data []byte) StreamFrame {
	// a quoted base64 string is always valid JSON
	encoded := base64.StdEncoding.EncodeToString(data)
	return StreamFrame{Type: t, Payload: json.RawMessage(`"` + encoded + `"`)}
}

// DecodePayload unmarshals the frame payload into v.
func (f StreamFrame) DecodePayload(v any) error {
	if len(f.Payload) == 0 || string(f.Payload) == "null" {
		return ErrEmptyPayload
	}
	if err := json.Unmarshal(f.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", f.Type, err)
	}
	return nil
}

// AudioData decodes the base64 string payload of an audio frame.
func (f StreamFrame) AudioData() ([]byte, error) {
	var encoded string
	if err := f.DecodePayload(&encoded); err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode %s audio: %w", f.Type, err)
	}
	return data, nil
}
