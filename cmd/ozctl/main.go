// Command ozctl exercises the audio service from the command line.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/all2prosperity/audio-svc/client"
	"github.com/all2prosperity/audio-svc/internal/config"
)

var (
	cfg    config.Client
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "ozctl",
	Short:         "Talk to the audio service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	var err error
	logger, err = zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg, err = config.LoadClient(); err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// flags default to the environment so they override it when given
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "service base URL")
	flags.StringVar(&cfg.Token, "token", cfg.Token, "bearer token")
	flags.StringVar(&cfg.DeviceID, "device-id", cfg.DeviceID, "x-oz-device-id header")
	flags.StringVar(&cfg.DevID, "dev-id", cfg.DevID, "x-oz-dev-id header")
	flags.StringVar(&cfg.UserID, "user-id", cfg.UserID, "x-oz-user-id header")
	flags.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "request timeout")

	rootCmd.AddCommand(chatCmd, historyCmd, sessionHistoryCmd, streamCmd, publishCmd, tokenCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.Error("Command failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func newClient() *client.Client {
	return client.New(client.Config{
		BaseURL:    cfg.BaseURL,
		Token:      cfg.Token,
		DeviceID:   cfg.DeviceID,
		DevID:      cfg.DevID,
		UserID:     cfg.UserID,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
	}, logger)
}

// printBody writes a raw response, including error bodies.
func printBody(cmd *cobra.Command, body []byte) {
	if len(body) > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), string(body))
	}
}
