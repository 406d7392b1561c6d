package audio

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/all2prosperity/audio-svc/domain/repositories"
)

func newProcessor(t *testing.T, chunkSize, maxBuffered int) repositories.AudioProcessor {
	t.Helper()
	p := NewEchoPipeline(zaptest.NewLogger(t))
	p.ChunkSize = chunkSize
	p.MaxBuffered = maxBuffered

	proc, err := p.NewProcessor(context.Background(), repositories.AudioSessionConfig{SessionID: "s1", SampleRate: 24000})
	if err != nil {
		t.Fatalf("NewProcessor() error = %v", err)
	}
	return proc
}

func TestEchoProcessor_Chunks(t *testing.T) {
	tests := []struct {
		name       string
		input      [][]byte
		chunkSize  int
		wantChunks int
	}{
		{name: "empty", input: nil, chunkSize: 4, wantChunks: 0},
		{name: "exact multiple", input: [][]byte{[]byte("abcd"), []byte("efgh")}, chunkSize: 4, wantChunks: 2},
		{name: "remainder", input: [][]byte{[]byte("abcdefghij")}, chunkSize: 4, wantChunks: 3},
		{name: "single", input: [][]byte{[]byte("ab"), []byte("c")}, chunkSize: 48000, wantChunks: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := newProcessor(t, tt.chunkSize, 0)

			var want []byte
			for _, chunk := range tt.input {
				want = append(want, chunk...)
				if err := proc.Write(chunk); err != nil {
					t.Fatalf("Write() error = %v", err)
				}
			}

			chunks, err := proc.Finish(context.Background())
			if err != nil {
				t.Fatalf("Finish() error = %v", err)
			}
			if len(chunks) != tt.wantChunks {
				t.Errorf("Expected %d chunks, got %d", tt.wantChunks, len(chunks))
			}
			for _, chunk := range chunks {
				if len(chunk) > tt.chunkSize {
					t.Errorf("Chunk of %d bytes exceeds %d", len(chunk), tt.chunkSize)
				}
			}
			if got := bytes.Join(chunks, nil); !bytes.Equal(got, want) {
				t.Errorf("Expected %q, got %q", want, got)
			}
		})
	}
}

func TestEchoProcessor_WriteAfterFinish(t *testing.T) {
	proc := newProcessor(t, 4, 0)

	if _, err := proc.Finish(context.Background()); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	if err := proc.Write([]byte("late")); !errors.Is(err, ErrProcessorFinished) {
		t.Errorf("Expected ErrProcessorFinished, got %v", err)
	}
	if _, err := proc.Finish(context.Background()); !errors.Is(err, ErrProcessorFinished) {
		t.Errorf("Expected ErrProcessorFinished on second Finish, got %v", err)
	}
}

func TestEchoProcessor_BufferLimit(t *testing.T) {
	proc := newProcessor(t, 4, 6)

	if err := proc.Write([]byte("abcd")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := proc.Write([]byte("efg")); !errors.Is(err, ErrBufferFull) {
		t.Errorf("Expected ErrBufferFull, got %v", err)
	}
}

func TestEchoPipeline_RequiresSessionID(t *testing.T) {
	p := NewEchoPipeline(zaptest.NewLogger(t))
	if _, err := p.NewProcessor(context.Background(), repositories.AudioSessionConfig{}); err == nil {
		t.Error("Expected an error without session id")
	}
}
