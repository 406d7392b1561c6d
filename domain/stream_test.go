package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNewStreamFrame(t *testing.T) {
	frame, err := NewStreamFrame(StreamStartSession, StartSessionPayload{
		SessionID:  "abc",
		SampleRate: 24000,
	})
	if err != nil {
		t.Fatalf("NewStreamFrame() error = %v", err)
	}

	data, err := json.Marshal(frame)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded["type"] != "start_session" {
		t.Errorf("Expected type start_session, got %v", decoded["type"])
	}
	payload, ok := decoded["payload"].(map[string]any)
	if !ok {
		t.Fatalf("Expected object payload, got %T", decoded["payload"])
	}
	if payload["session_id"] != "abc" || payload["sample_rate"] != float64(24000) {
		t.Errorf("Unexpected payload %v", payload)
	}
}

func TestNewStreamFrame_NoPayload(t *testing.T) {
	frame, err := NewStreamFrame(StreamAudioInputFinish, nil)
	if err != nil {
		t.Fatalf("NewStreamFrame() error = %v", err)
	}

	data, _ := json.Marshal(frame)
	if string(data) != `{"type":"audio_input_finish"}` {
		t.Errorf("Unexpected encoding %s", data)
	}

	var v StartSessionPayload
	if err := frame.DecodePayload(&v); !errors.Is(err, ErrEmptyPayload) {
		t.Errorf("Expected ErrEmptyPayload, got %v", err)
	}
}

func TestAudioFrame(t *testing.T) {
	pcm := []byte{0x00, 0x01, 0xfe, 0xff}
	frame := NewAudioFrame(StreamAudioInputChunk, pcm)

	data, _ := json.Marshal(frame)
	if string(data) != `{"type":"audio_input_chunk","payload":"AAH+/w=="}` {
		t.Errorf("Unexpected encoding %s", data)
	}

	var parsed StreamFrame
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	got, err := parsed.AudioData()
	if err != nil {
		t.Fatalf("AudioData() error = %v", err)
	}
	if string(got) != string(pcm) {
		t.Errorf("Expected %v, got %v", pcm, got)
	}
}

func TestAudioData_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "not base64", payload: `"***"`},
		{name: "not a string", payload: `{"a":1}`},
		{name: "null", payload: `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := StreamFrame{Type: StreamAudioOutputChunk, Payload: json.RawMessage(tt.payload)}
			if _, err := frame.AudioData(); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}
