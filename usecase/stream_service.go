package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/all2prosperity/audio-svc/domain"
	"github.com/all2prosperity/audio-svc/domain/repositories"
)

// Device events published when a stream opens and closes.
const (
	DeviceEventOnline  = "online"
	DeviceEventOffline = "offline"
)

const publishTimeout = 5 * time.Second

var (
	ErrInvalidSession = errors.New("invalid start_session payload")
	supportedFormats  = map[string]bool{"pcm": true, "wav": true, "mp3": true, "opus": true}
)

// StreamService orchestrates the audio flow of stream sessions
type StreamService struct {
	pipeline  repositories.AudioPipeline
	publisher repositories.Publisher
	logger    *zap.Logger
}

// NewStreamService creates a new stream service. publisher may be nil.
func NewStreamService(
	pipeline repositories.AudioPipeline,
	publisher repositories.Publisher,
	logger *zap.Logger,
) *StreamService {
	return &StreamService{
		pipeline:  pipeline,
		publisher: publisher,
		logger:    logger,
	}
}

// StartSession validates the negotiated audio and creates its processor.
func (s *StreamService) StartSession(ctx context.Context, deviceID string, payload domain.StartSessionPayload) (repositories.AudioProcessor, error) {
	config, err := SessionConfig(payload)
	if err != nil {
		return nil, err
	}

	processor, err := s.pipeline.NewProcessor(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio processor: %w", err)
	}

	s.logger.Info("Stream session started",
		zap.String("deviceID", deviceID),
		zap.String("sessionID", config.SessionID),
		zap.String("inputFormat", config.InputFormat),
		zap.Int("sampleRate", config.SampleRate),
		zap.Int("round", config.Round))

	s.publishEvent(deviceID, DeviceEventOnline)
	return processor, nil
}

// EndSession is called once the connection of a started session closes.
func (s *StreamService) EndSession(deviceID string) {
	s.publishEvent(deviceID, DeviceEventOffline)
}

// publishEvent runs in the background so broker latency never stalls the stream.
func (s *StreamService) publishEvent(deviceID, event string) {
	if s.publisher == nil || deviceID == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := s.publisher.PublishEvent(ctx, deviceID, event); err != nil {
			s.logger.Warn("Failed to publish device event",
				zap.String("deviceID", deviceID),
				zap.String("event", event),
				zap.Error(err))
		}
	}()
}

// SessionConfig validates a start_session payload and fills defaults.
// Both sample rates must lie within 8000 to 48000 Hz.
func SessionConfig(payload domain.StartSessionPayload) (repositories.AudioSessionConfig, error) {
	config := repositories.AudioSessionConfig{
		SessionID:        payload.SessionID,
		InputFormat:      payload.InputFormat,
		OutputFormat:     payload.OutputFormat,
		SampleRate:       payload.SampleRate,
		OutputSampleRate: payload.OutputSampleRate,
		Round:            payload.Round,
	}

	if config.SessionID == "" {
		return config, fmt.Errorf("%w: session_id is required", ErrInvalidSession)
	}
	if config.InputFormat == "" {
		config.InputFormat = "pcm"
	}
	if config.OutputFormat == "" {
		config.OutputFormat = config.InputFormat
	}
	if !supportedFormats[config.InputFormat] || !supportedFormats[config.OutputFormat] {
		return config, fmt.Errorf("%w: unsupported format %s/%s", ErrInvalidSession, config.InputFormat, config.OutputFormat)
	}
	if config.SampleRate < 8000 || config.SampleRate > 48000 {
		return config, fmt.Errorf("%w: sample_rate %d out of range", ErrInvalidSession, config.SampleRate)
	}
	if config.OutputSampleRate == 0 {
		config.OutputSampleRate = config.SampleRate
	}
	if config.OutputSampleRate < 8000 || config.OutputSampleRate > 48000 {
		return config, fmt.Errorf("%w: output_sample_rate %d out of range", ErrInvalidSession, config.OutputSampleRate)
	}
	if config.Round < 0 {
		return config, fmt.Errorf("%w: round must not be negative", ErrInvalidSession)
	}
	return config, nil
}
