package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/velferd/behandlerdialog/internal/dialog/domain"
	"github.com/velferd/behandlerdialog/internal/dialog/repository"
)

// Outcome classifies the result of ingesting one inbound provider message.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeRejected  Outcome = "rejected"
	OutcomeIgnored   Outcome = "ignored"
)

// Rejection reasons.
const (
	RejectionNotAddressed = "not_addressed"
	RejectionNoCaseWindow = "no_case_window"
)

// AttachmentFetcher fetches the attachments of an inbound message from the
// external attachment store.
type AttachmentFetcher interface {
	FetchAttachments(ctx context.Context, externalMessageID string) ([]domain.Attachment, error)
}

// CaseWindowChecker answers whether a subject has an active, qualifying
// case-tracking window.
type CaseWindowChecker interface {
	HasActiveCaseWindow(ctx context.Context, subjectID string) (bool, error)
}

// Correlator matches newly received provider messages to existing
// conversations, or decides that they start a new one or are not accepted at
// all. First match wins; see Ingest.
type Correlator struct {
	repo        repository.MessageRepository
	attachments AttachmentFetcher
	caseWindows CaseWindowChecker
	logger      *slog.Logger
}

// NewCorrelator creates a Correlator.
func NewCorrelator(
	repo repository.MessageRepository,
	attachments AttachmentFetcher,
	caseWindows CaseWindowChecker,
	logger *slog.Logger,
) *Correlator {
	return &Correlator{
		repo:        repo,
		attachments: attachments,
		caseWindows: caseWindows,
		logger:      logger.With("component", "correlator"),
	}
}

// Ingest resolves which conversation the inbound message belongs to and
// persists it. Matching order, first match wins:
//
//  1. messages of a category owned by a sibling system are ignored
//  2. a known external message id is a duplicate, no write
//  3. an outbound message with the declared conversation ref, same subject,
//     is adopted; the reply inherits its kind
//  4. same lookup with the parent ref as conversation key
//  5. otherwise the message must be addressed to the case worker and the
//     subject must have an active case window; then a new conversation starts
//
// An error return aborts the current stream batch; the records are
// redelivered and dedup makes reprocessing safe.
func (c *Correlator) Ingest(ctx context.Context, ev domain.InboundMessageEvent, rawPayload []byte) (Outcome, error) {
	log := c.logger.With("external_message_id", ev.ExternalMessageID)

	if ev.Category != domain.CategoryProviderDialog {
		inboundMessagesIgnoredCounter.WithLabelValues("foreign_category").Inc()
		log.DebugContext(ctx, "Ignoring message of foreign category", "category", ev.Category)
		return OutcomeIgnored, nil
	}

	_, err := c.repo.GetByExternalMessageID(ctx, ev.ExternalMessageID)
	if err == nil {
		inboundMessagesDuplicateCounter.Inc()
		log.InfoContext(ctx, "Duplicate inbound message, no write")
		return OutcomeDuplicate, nil
	}
	if !errors.Is(err, domain.ErrMessageNotFound) {
		return "", fmt.Errorf("dedup lookup: %w", err)
	}

	msg := domain.Message{
		Kind:              domain.KindProviderInquiry,
		ExternalMessageID: &ev.ExternalMessageID,
		SubjectID:         ev.SubjectID,
		Text:              ev.Text,
		Document:          ev.Document,
		AttachmentCount:   ev.AttachmentCount,
		Timestamp:         ev.Timestamp,
		RawPayload:        rawPayload,
	}
	if ev.PractitionerID != "" {
		msg.PractitionerID = &ev.PractitionerID
	}
	if ev.PractitionerName != "" {
		msg.PractitionerName = &ev.PractitionerName
	}

	matched, declaredRef, err := c.correlate(ctx, &msg, ev, log)
	if err != nil {
		return "", err
	}

	if !matched {
		outcome, reason, err := c.gateNewConversation(ctx, ev)
		if err != nil {
			return "", err
		}
		if outcome == OutcomeRejected {
			inboundMessagesRejectedCounter.WithLabelValues(reason).Inc()
			log.InfoContext(ctx, "Rejected uncorrelated inbound message", "reason", reason)
			return OutcomeRejected, nil
		}
		if declaredRef != uuid.Nil {
			msg.ConversationRef = declaredRef
		} else {
			msg.ConversationRef = uuid.New()
		}
	}

	var attachments []domain.Attachment
	if ev.AttachmentCount > 0 {
		// A fetch failure aborts the whole ingestion; no partial row is
		// written and the batch is redelivered.
		attachments, err = c.attachments.FetchAttachments(ctx, ev.ExternalMessageID)
		if err != nil {
			return "", fmt.Errorf("fetch attachments: %w", err)
		}
	}

	created, err := c.repo.CreateInbound(ctx, &msg, attachments)
	if err != nil {
		return "", fmt.Errorf("create inbound message: %w", err)
	}

	inboundMessagesCreatedCounter.Inc()
	log.InfoContext(ctx, "Created inbound message",
		"message_uuid", created.UUID,
		"conversation_ref", created.ConversationRef,
		"kind", created.Kind,
	)
	return OutcomeCreated, nil
}

// correlate tries the conversation-ref and parent-ref lookups, mutating msg on
// a match. It also returns the declared conversation ref (if parseable) for
// reuse when a new conversation starts. A malformed declared conversation ref
// is an integrity violation at the step that needs it and fails the batch; a
// malformed parent ref is logged and treated as absent.
func (c *Correlator) correlate(ctx context.Context, msg *domain.Message, ev domain.InboundMessageEvent, log *slog.Logger) (bool, uuid.UUID, error) {
	// The declared parent ref is a message attribute in its own right and is
	// stored no matter which lookup wins.
	if ev.ParentRef != "" {
		parentRef, err := uuid.Parse(ev.ParentRef)
		if err != nil {
			log.WarnContext(ctx, "Malformed parent ref, treating as absent", "parent_ref", ev.ParentRef, "error", err)
		} else {
			msg.ParentRef = &parentRef
		}
	}

	declaredRef := uuid.Nil
	if ev.ConversationRef != "" {
		ref, err := uuid.Parse(ev.ConversationRef)
		if err != nil {
			return false, uuid.Nil, fmt.Errorf("parse declared conversation ref %q: %w", ev.ConversationRef, err)
		}
		declaredRef = ref

		outbound, err := c.repo.FindOutboundByConversationRef(ctx, ev.SubjectID, ref)
		if err != nil {
			return false, uuid.Nil, fmt.Errorf("conversation ref lookup: %w", err)
		}
		if len(outbound) > 0 {
			msg.ConversationRef = ref
			// The reply is typed by what it answers, not by its own
			// declared type.
			msg.Kind = outbound[0].Kind
			return true, declaredRef, nil
		}
	}

	if msg.ParentRef != nil {
		outbound, err := c.repo.FindOutboundByConversationRef(ctx, ev.SubjectID, *msg.ParentRef)
		if err != nil {
			return false, uuid.Nil, fmt.Errorf("parent ref lookup: %w", err)
		}
		if len(outbound) > 0 {
			msg.ConversationRef = *msg.ParentRef
			msg.Kind = outbound[0].Kind
			return true, declaredRef, nil
		}
	}

	return false, declaredRef, nil
}

// gateNewConversation applies the eligibility rule for inbound messages with
// no correlation target.
func (c *Correlator) gateNewConversation(ctx context.Context, ev domain.InboundMessageEvent) (Outcome, string, error) {
	if !ev.AddressedToCaseWorker() {
		return OutcomeRejected, RejectionNotAddressed, nil
	}

	active, err := c.caseWindows.HasActiveCaseWindow(ctx, ev.SubjectID)
	if err != nil {
		return "", "", fmt.Errorf("case window lookup: %w", err)
	}
	if !active {
		return OutcomeRejected, RejectionNoCaseWindow, nil
	}
	return OutcomeCreated, "", nil
}
