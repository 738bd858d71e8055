package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/velferd/behandlerdialog/internal/dialog/adapters/archive"
	"github.com/velferd/behandlerdialog/internal/dialog/domain"
	"github.com/velferd/behandlerdialog/internal/dialog/repository"
	"github.com/velferd/behandlerdialog/internal/platform/cronjob"
)

// PractitionerNameResolver resolves the counterparty display name for the
// archived document.
type PractitionerNameResolver interface {
	ResolvePractitionerName(ctx context.Context, practitionerID string) (string, error)
}

// PDFRenderer renders a message's structured document to PDF bytes.
type PDFRenderer interface {
	RenderMessagePDF(ctx context.Context, document json.RawMessage, practitionerName string) ([]byte, error)
}

// Archiver journals a document, idempotent on the external reference id.
type Archiver interface {
	Archive(ctx context.Context, req archive.Request) (string, error)
}

// JournalJob archives a legal copy of every outbound message. Selection is
// all outbound messages without an archive reference, oldest first; each item
// is processed independently and a failed item is retried on the next tick
// because its archive reference is still unset.
type JournalJob struct {
	enabled       bool
	repo          repository.MessageRepository
	parties       PractitionerNameResolver
	pdf           PDFRenderer
	archiver      Archiver
	initialDelay  time.Duration
	intervalDelay time.Duration
	logger        *slog.Logger
}

// NewJournalJob creates the journaling job. With enabled false the job is a
// no-op, used to pause journaling during incident response.
func NewJournalJob(
	enabled bool,
	repo repository.MessageRepository,
	parties PractitionerNameResolver,
	pdf PDFRenderer,
	archiver Archiver,
	initialDelay time.Duration,
	intervalDelay time.Duration,
	logger *slog.Logger,
) *JournalJob {
	return &JournalJob{
		enabled:       enabled,
		repo:          repo,
		parties:       parties,
		pdf:           pdf,
		archiver:      archiver,
		initialDelay:  initialDelay,
		intervalDelay: intervalDelay,
		logger:        logger.With("job", "journal"),
	}
}

func (j *JournalJob) Name() string                 { return "journal" }
func (j *JournalJob) InitialDelay() time.Duration  { return j.initialDelay }
func (j *JournalJob) IntervalDelay() time.Duration { return j.intervalDelay }

// Run archives every outbound message still missing an archive reference.
func (j *JournalJob) Run(ctx context.Context) (cronjob.Result, error) {
	if !j.enabled {
		return cronjob.Result{}, nil
	}

	timer := prometheus.NewTimer(jobRunDurationHist.WithLabelValues("journal"))
	defer timer.ObserveDuration()

	messages, err := j.repo.FindUnarchivedOutbound(ctx)
	if err != nil {
		return cronjob.Result{}, err
	}

	var result cronjob.Result
	for _, msg := range messages {
		if err := j.archiveMessage(ctx, msg); err != nil {
			result.Failed++
			jobItemsProcessedCounter.WithLabelValues("journal", "failed").Inc()
			j.logger.ErrorContext(ctx, "Failed to archive message, will retry next run",
				"message_uuid", msg.UUID, "error", err)
			continue
		}
		result.Updated++
		jobItemsProcessedCounter.WithLabelValues("journal", "updated").Inc()
	}

	return result, nil
}

func (j *JournalJob) archiveMessage(ctx context.Context, msg domain.Message) error {
	var practitionerName string
	switch {
	case msg.PractitionerID != nil:
		name, err := j.parties.ResolvePractitionerName(ctx, *msg.PractitionerID)
		if err != nil {
			return err
		}
		practitionerName = name
	case msg.PractitionerName != nil:
		practitionerName = *msg.PractitionerName
	}

	pdf, err := j.pdf.RenderMessagePDF(ctx, msg.Document, practitionerName)
	if err != nil {
		return err
	}

	// Deterministic reference id: at most one archive entry per message even
	// across retries and crashes.
	req := archive.Request{
		ExternalReferenceID: journalReferenceID(msg),
		SubjectID:           msg.SubjectID,
		RecipientName:       practitionerName,
		Title:               journalTitle(msg.Kind),
		PDF:                 pdf,
	}
	archiveID, err := j.archiver.Archive(ctx, req)
	if err != nil {
		return err
	}

	if err := j.repo.SetArchived(ctx, msg.ID, archiveID, time.Now().UTC()); err != nil {
		return err
	}

	j.logger.InfoContext(ctx, "Archived outbound message",
		"message_uuid", msg.UUID, "archive_reference_id", archiveID)
	return nil
}

func journalReferenceID(msg domain.Message) string {
	return "journal-" + msg.UUID.String()
}

func journalTitle(kind domain.MessageKind) string {
	switch kind {
	case domain.KindAdditionalInfoRequest:
		return "Request for additional information"
	case domain.KindReminder:
		return "Reminder to healthcare provider"
	default:
		return "Message to healthcare provider"
	}
}
