package repositories

import "context"

// Publisher forwards device events and chat transcripts to the message broker.
type Publisher interface {
	PublishEvent(ctx context.Context, deviceID, event string) error
	PublishMessage(ctx context.Context, deviceID, userMessage, deviceMessage string) error
}
