package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/velferd/behandlerdialog/internal/dialog/domain"
	"github.com/velferd/behandlerdialog/internal/dialog/events"
	"github.com/velferd/behandlerdialog/internal/dialog/repository"
)

// StatusFanoutPublisher mirrors applied status changes onto the fan-out topic.
type StatusFanoutPublisher interface {
	PublishStatusChange(ctx context.Context, ev events.StatusChangeEvent) error
}

// StatusTracker applies delivery-status events to outbound messages.
// Idempotent per (message uuid, status, text): the upsert overwrites the whole
// row, last writer wins by arrival order.
type StatusTracker struct {
	messages  repository.MessageRepository
	statuses  repository.StatusRepository
	publisher StatusFanoutPublisher
	logger    *slog.Logger
}

// NewStatusTracker creates a StatusTracker.
func NewStatusTracker(
	messages repository.MessageRepository,
	statuses repository.StatusRepository,
	publisher StatusFanoutPublisher,
	logger *slog.Logger,
) *StatusTracker {
	return &StatusTracker{
		messages:  messages,
		statuses:  statuses,
		publisher: publisher,
		logger:    logger.With("component", "status_tracker"),
	}
}

// Apply processes one status event. Unknown message uuids are expected for
// out-of-order delivery across systems and are dropped with a metric, not
// retried. An error return aborts the batch; the idempotent upsert makes
// redelivery safe.
func (t *StatusTracker) Apply(ctx context.Context, ev domain.StatusEvent) error {
	messageUUID, err := uuid.Parse(ev.MessageUUID)
	if err != nil {
		statusEventsSkippedCounter.WithLabelValues("malformed").Inc()
		t.logger.WarnContext(ctx, "Malformed message uuid in status event, dropping", "message_uuid", ev.MessageUUID, "error", err)
		return nil
	}

	status, err := domain.ParseDeliveryStatus(ev.Status)
	if err != nil {
		statusEventsSkippedCounter.WithLabelValues("malformed").Inc()
		t.logger.WarnContext(ctx, "Unknown status in status event, dropping", "message_uuid", ev.MessageUUID, "status", ev.Status)
		return nil
	}

	msg, err := t.messages.GetByUUID(ctx, messageUUID)
	if err != nil {
		if errors.Is(err, domain.ErrMessageNotFound) {
			statusEventsSkippedCounter.WithLabelValues("unknown_message").Inc()
			t.logger.InfoContext(ctx, "Status event for unknown message, dropping", "message_uuid", messageUUID)
			return nil
		}
		return fmt.Errorf("message lookup for status event: %w", err)
	}

	if err := t.statuses.Upsert(ctx, messageUUID, status, ev.Text); err != nil {
		return fmt.Errorf("upsert message status: %w", err)
	}

	fanout := events.StatusChangeEvent{
		MessageUUID:     messageUUID,
		SubjectID:       msg.SubjectID,
		ConversationRef: msg.ConversationRef,
		Status:          string(status),
		Text:            ev.Text,
		UpdatedAt:       time.Now().UTC(),
	}
	if err := t.publisher.PublishStatusChange(ctx, fanout); err != nil {
		// Fail the batch so the fan-out is retried; the upsert above is
		// idempotent under redelivery.
		return fmt.Errorf("publish status fanout: %w", err)
	}

	// Counted only once the fan-out is out, so a redelivered batch does not
	// double-count the same event.
	statusEventsAppliedCounter.Inc()
	t.logger.InfoContext(ctx, "Applied status event", "message_uuid", messageUUID, "status", status)

	return nil
}
