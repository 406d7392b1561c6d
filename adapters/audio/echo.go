package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/all2prosperity/audio-svc/domain/repositories"
)

const (
	// DefaultChunkSize bounds each output chunk.
	DefaultChunkSize = 48000
	// DefaultMaxBuffered bounds the audio held for one session.
	DefaultMaxBuffered = 64 << 20
)

var (
	ErrProcessorFinished = errors.New("audio processor already finished")
	ErrBufferFull        = errors.New("audio buffer limit exceeded")
)

// EchoPipeline plays back whatever audio a session sent.
type EchoPipeline struct {
	ChunkSize   int
	MaxBuffered int
	logger      *zap.Logger
}

var _ repositories.AudioPipeline = (*EchoPipeline)(nil)

func NewEchoPipeline(logger *zap.Logger) *EchoPipeline {
	return &EchoPipeline{
		ChunkSize:   DefaultChunkSize,
		MaxBuffered: DefaultMaxBuffered,
		logger:      logger,
	}
}

// NewProcessor implements repositories.AudioPipeline
func (p *EchoPipeline) NewProcessor(ctx context.Context, config repositories.AudioSessionConfig) (repositories.AudioProcessor, error) {
	if config.SessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}

	p.logger.Debug("Creating echo processor",
		zap.String("sessionID", config.SessionID),
		zap.String("inputFormat", config.InputFormat),
		zap.Int("sampleRate", config.SampleRate))

	return &EchoProcessor{
		sessionID:   config.SessionID,
		chunkSize:   p.ChunkSize,
		maxBuffered: p.MaxBuffered,
		logger:      p.logger,
	}, nil
}

// EchoProcessor buffers input until Finish.
type EchoProcessor struct {
	mu          sync.Mutex
	buf         bytes.Buffer
	finished    bool
	sessionID   string
	chunkSize   int
	maxBuffered int
	logger      *zap.Logger
}

var _ repositories.AudioProcessor = (*EchoProcessor)(nil)

// Write implements repositories.AudioProcessor
func (e *EchoProcessor) Write(chunk []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.finished {
		return ErrProcessorFinished
	}
	if e.maxBuffered > 0 && e.buf.Len()+len(chunk) > e.maxBuffered {
		return ErrBufferFull
	}
	e.buf.Write(chunk)
	return nil
}

// Finish implements repositories.AudioProcessor
func (e *EchoProcessor) Finish(ctx context.Context) ([][]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.finished {
		return nil, ErrProcessorFinished
	}
	e.finished = true

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := e.buf.Bytes()
	size := e.chunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}

	chunks := make([][]byte, 0, (len(data)+size-1)/size)
	for start := 0; start < len(data); start += size {
		end := min(start+size, len(data))
		chunk := make([]byte, end-start)
		copy(chunk, data[start:end])
		chunks = append(chunks, chunk)
	}

	e.logger.Debug("Echo processor finished",
		zap.String("sessionID", e.sessionID),
		zap.Int("bytes", len(data)),
		zap.Int("chunks", len(chunks)))

	e.buf.Reset()
	return chunks, nil
}
