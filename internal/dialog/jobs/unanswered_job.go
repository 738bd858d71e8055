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

// NoAnswerPublisher emits no-answer notifications downstream.
type NoAnswerPublisher interface {
	PublishNoAnswer(ctx context.Context, ev events.NoAnswerEvent) error
}

// UnansweredJob finds outbound messages past the reply deadline whose
// conversation has no inbound reply and emits a no-answer event exactly once
// per message. The published-at marker is set only after a confirmed publish.
type UnansweredJob struct {
	repo          repository.MessageRepository
	publisher     NoAnswerPublisher
	replyDeadline time.Duration
	initialDelay  time.Duration
	intervalDelay time.Duration
	logger        *slog.Logger
}

// NewUnansweredJob creates the unanswered/escalation job.
func NewUnansweredJob(
	repo repository.MessageRepository,
	publisher NoAnswerPublisher,
	replyDeadline time.Duration,
	initialDelay time.Duration,
	intervalDelay time.Duration,
	logger *slog.Logger,
) *UnansweredJob {
	return &UnansweredJob{
		repo:          repo,
		publisher:     publisher,
		replyDeadline: replyDeadline,
		initialDelay:  initialDelay,
		intervalDelay: intervalDelay,
		logger:        logger.With("job", "unanswered"),
	}
}

func (j *UnansweredJob) Name() string                 { return "unanswered" }
func (j *UnansweredJob) InitialDelay() time.Duration  { return j.initialDelay }
func (j *UnansweredJob) IntervalDelay() time.Duration { return j.intervalDelay }

// Run publishes a no-answer event for every overdue, unanswered outbound
// message. Items fail independently; a failed item keeps its null marker and
// is retried on the next run.
func (j *UnansweredJob) Run(ctx context.Context) (cronjob.Result, error) {
	timer := prometheus.NewTimer(jobRunDurationHist.WithLabelValues("unanswered"))
	defer timer.ObserveDuration()

	cutoff := time.Now().UTC().Add(-j.replyDeadline)
	messages, err := j.repo.FindUnansweredOutbound(ctx, cutoff)
	if err != nil {
		return cronjob.Result{}, err
	}

	var result cronjob.Result
	for _, msg := range messages {
		now := time.Now().UTC()
		ev := events.NoAnswerEvent{
			MessageUUID:     msg.UUID,
			SubjectID:       msg.SubjectID,
			ConversationRef: msg.ConversationRef,
			Kind:            string(msg.Kind),
			SentAt:          msg.CreatedAt,
			PublishedAt:     now,
		}
		if err := j.publisher.PublishNoAnswer(ctx, ev); err != nil {
			result.Failed++
			jobItemsProcessedCounter.WithLabelValues("unanswered", "failed").Inc()
			j.logger.ErrorContext(ctx, "Failed to publish no-answer event, will retry next run",
				"message_uuid", msg.UUID, "error", err)
			continue
		}
		if err := j.repo.SetNoAnswerPublished(ctx, msg.ID, now); err != nil {
			result.Failed++
			jobItemsProcessedCounter.WithLabelValues("unanswered", "failed").Inc()
			j.logger.ErrorContext(ctx, "Failed to mark no-answer event as published",
				"message_uuid", msg.UUID, "error", err)
			continue
		}
		result.Updated++
		jobItemsProcessedCounter.WithLabelValues("unanswered", "updated").Inc()
	}

	return result, nil
}
