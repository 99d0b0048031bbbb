package eventstream

import "context"

// Publisher publishes chat events to an event stream backend.
type Publisher interface {
	Publish(ctx context.Context, event *ChatReplyEvent) error
	Close() error
}
