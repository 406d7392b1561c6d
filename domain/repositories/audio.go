package repositories

import "context"

// AudioSessionConfig describes the audio negotiated by start_session.
type AudioSessionConfig struct {
	SessionID        string
	InputFormat      string
	OutputFormat     string
	SampleRate       int
	OutputSampleRate int
	Round            int
}

// AudioPipeline creates a processor per stream session.
type AudioPipeline interface {
	NewProcessor(ctx context.Context, config AudioSessionConfig) (AudioProcessor, error)
}

// AudioProcessor consumes input audio and produces output audio once input ends.
type AudioProcessor interface {
	Write(chunk []byte) error
	// Finish returns the output audio chunks in playback order.
	Finish(ctx context.Context) ([][]byte, error)
}
