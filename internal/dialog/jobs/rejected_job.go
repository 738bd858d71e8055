package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/velferd/behandlerdialog/internal/dialog/events"
	"github.com/velferd/behandlerdialog/internal/dialog/repository"
	"github.com/velferd/behandlerdialog/internal/platform/cronjob"
)

// RejectedPublisher emits rejected-message notifications downstream.
type RejectedPublisher interface {
	PublishRejected(ctx context.Context, ev events.RejectedMessageEvent) error
}

// RejectedJob finds messages whose delivery status resolved to rejected and
// emits a rejected-message event exactly once per message.
type RejectedJob struct {
	repo          repository.MessageRepository
	publisher     RejectedPublisher
	initialDelay  time.Duration
	intervalDelay time.Duration
	logger        *slog.Logger
}

// NewRejectedJob creates the rejected-message publisher job.
func NewRejectedJob(
	repo repository.MessageRepository,
	publisher RejectedPublisher,
	initialDelay time.Duration,
	intervalDelay time.Duration,
	logger *slog.Logger,
) *RejectedJob {
	return &RejectedJob{
		repo:          repo,
		publisher:     publisher,
		initialDelay:  initialDelay,
		intervalDelay: intervalDelay,
		logger:        logger.With("job", "rejected"),
	}
}

func (j *RejectedJob) Name() string                 { return "rejected" }
func (j *RejectedJob) InitialDelay() time.Duration  { return j.initialDelay }
func (j *RejectedJob) IntervalDelay() time.Duration { return j.intervalDelay }

// Run publishes a rejected event for every rejected, unpublished message.
// Items fail independently; a failed item keeps its null marker and is
// retried on the next run.
func (j *RejectedJob) Run(ctx context.Context) (cronjob.Result, error) {
	timer := prometheus.NewTimer(jobRunDurationHist.WithLabelValues("rejected"))
	defer timer.ObserveDuration()

	messages, err := j.repo.FindRejectedUnpublished(ctx)
	if err != nil {
		return cronjob.Result{}, err
	}

	var result cronjob.Result
	for _, msg := range messages {
		now := time.Now().UTC()
		ev := events.RejectedMessageEvent{
			MessageUUID:     msg.UUID,
			SubjectID:       msg.SubjectID,
			ConversationRef: msg.ConversationRef,
			Kind:            string(msg.Kind),
			StatusText:      msg.StatusText,
			PublishedAt:     now,
		}
		if err := j.publisher.PublishRejected(ctx, ev); err != nil {
			result.Failed++
			jobItemsProcessedCounter.WithLabelValues("rejected", "failed").Inc()
			j.logger.ErrorContext(ctx, "Failed to publish rejected event, will retry next run",
				"message_uuid", msg.UUID, "error", err)
			continue
		}
		if err := j.repo.SetRejectedPublished(ctx, msg.ID, now); err != nil {
			result.Failed++
			jobItemsProcessedCounter.WithLabelValues("rejected", "failed").Inc()
			j.logger.ErrorContext(ctx, "Failed to mark rejected event as published",
				"message_uuid", msg.UUID, "error", err)
			continue
		}
		result.Updated++
		jobItemsProcessedCounter.WithLabelValues("rejected", "updated").Inc()
	}

	return result, nil
}
