package main

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/all2prosperity/audio-svc/client"
)

var (
	streamConfig client.StreamConfig
	streamOut    string
)

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Send a WAV file through the audio pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		config := streamConfig
		if config.URL == "" {
			config.URL = cfg.StreamURL
		}
		config.DeviceID = cfg.DeviceID
		config.Messages = cmd.OutOrStdout()

		if streamOut != "" {
			f, err := os.Create(streamOut)
			if err != nil {
				return err
			}
			defer f.Close()
			config.Output = f
		}

		result, err := client.RunStream(ctx, config, logger)
		if err != nil {
			return err
		}

		logger.Info("Stream finished",
			zap.String("sessionID", result.SessionID),
			zap.Int("chunksSent", result.ChunksSent),
			zap.Int64("bytesSent", result.BytesSent),
			zap.Int("chunksReceived", result.ChunksReceived),
			zap.Int64("bytesReceived", result.BytesReceived),
			zap.Bool("completed", result.Completed))
		return nil
	},
}

func init() {
	flags := streamCmd.Flags()
	flags.StringVar(&streamConfig.URL, "url", "", "stream endpoint, defaults to OZ_STREAM_URL")
	flags.StringVar(&streamConfig.WAVPath, "wav", "test.wav", "WAV file to send")
	flags.IntVar(&streamConfig.SampleRate, "sample-rate", client.DefaultSampleRate, "input sample rate")
	flags.IntVar(&streamConfig.OutputSampleRate, "output-sample-rate", client.DefaultSampleRate, "output sample rate")
	flags.IntVar(&streamConfig.ChunkFrames, "chunk-frames", client.DefaultChunkFrames, "frames per audio_input_chunk")
	flags.StringVarP(&streamOut, "out", "o", "", "write the returned PCM to this file")
}
