package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/all2prosperity/audio-svc/adapters/mqtt"
	"github.com/all2prosperity/audio-svc/internal/config"
)

var (
	publishFile    string
	publishApp     string
	publishEvent   string
	publishTopic   string
	publishPayload string
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish a status event through the broker's HTTP API",
	Long: `Publish {"event": <event>} to app/<app>/status, or a raw JSON payload
to --topic. Credentials are read from .mqtt.config.json.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := publishFile
		if path == "" {
			path = cfg.MQTTFile
		}
		creds, err := config.LoadMQTTFile(path)
		if err != nil {
			return err
		}

		publisher, err := mqtt.NewPublisher(mqtt.Config{
			URL:     creds.URL,
			APIKey:  creds.APIKey,
			Secret:  creds.Secret,
			Timeout: cfg.Timeout,
		}, logger)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
		defer cancel()

		var body []byte
		switch {
		case publishTopic != "":
			if publishPayload == "" {
				return errors.New("--payload is required with --topic")
			}
			body, err = publisher.Publish(ctx, publishTopic, publishPayload)
		default:
			body, err = publisher.PublishStatus(ctx, publishApp, publishEvent)
		}
		printBody(cmd, body)
		return err
	},
}

func init() {
	flags := publishCmd.Flags()
	flags.StringVar(&publishFile, "config", "", "credentials file, defaults to OZ_MQTT_CONFIG")
	flags.StringVar(&publishApp, "app", "11222", "app id of the status topic")
	flags.StringVar(&publishEvent, "event", "online", "status event")
	flags.StringVar(&publishTopic, "topic", "", "raw topic, overrides --app and --event")
	flags.StringVar(&publishPayload, "payload", "", "raw JSON payload for --topic")
}
