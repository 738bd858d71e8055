package events

import (
	"context"
	"fmt"
	"log/slog"
)

// Sender is the transport used to publish outbound events. Satisfied by
// kafka.Producer.
type Sender interface {
	SendJSON(topic string, key string, payload any) error
}

// Topics names the outbound topics.
type Topics struct {
	RejectedMessage string
	NoAnswer        string
	StatusFanout    string
}

// Publisher emits the service's outbound events. Callers persist their
// idempotency marker only after a publish returns nil.
type Publisher struct {
	sender Sender
	topics Topics
	logger *slog.Logger
}

// NewPublisher creates a publisher for the configured topics.
func NewPublisher(sender Sender, topics Topics, logger *slog.Logger) *Publisher {
	return &Publisher{
		sender: sender,
		topics: topics,
		logger: logger.With("component", "event_publisher"),
	}
}

// PublishRejected emits a rejected-message notification.
func (p *Publisher) PublishRejected(ctx context.Context, ev RejectedMessageEvent) error {
	if err := p.sender.SendJSON(p.topics.RejectedMessage, ev.ConversationRef.String(), ev); err != nil {
		return fmt.Errorf("publish rejected message event: %w", err)
	}
	p.logger.DebugContext(ctx, "Published rejected message event", "message_uuid", ev.MessageUUID)
	return nil
}

// PublishNoAnswer emits a no-answer notification.
func (p *Publisher) PublishNoAnswer(ctx context.Context, ev NoAnswerEvent) error {
	if err := p.sender.SendJSON(p.topics.NoAnswer, ev.ConversationRef.String(), ev); err != nil {
		return fmt.Errorf("publish no answer event: %w", err)
	}
	p.logger.DebugContext(ctx, "Published no answer event", "message_uuid", ev.MessageUUID)
	return nil
}

// PublishStatusChange emits the status fan-out for one applied status event.
func (p *Publisher) PublishStatusChange(ctx context.Context, ev StatusChangeEvent) error {
	if err := p.sender.SendJSON(p.topics.StatusFanout, ev.ConversationRef.String(), ev); err != nil {
		return fmt.Errorf("publish status change event: %w", err)
	}
	p.logger.DebugContext(ctx, "Published status change event", "message_uuid", ev.MessageUUID, "status", ev.Status)
	return nil
}
