package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/velferd/behandlerdialog/internal/dialog/domain"
)

// Querier is the subset of pgxpool.Pool the repositories use. Mock pools
// satisfy it too, so repository tests can run without a database.
type Querier interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// MessageRepository is the durable store of dialog messages.
type MessageRepository interface {
	// GetByExternalMessageID looks a message up by the provider-assigned id,
	// the dedup key for inbound messages. Returns domain.ErrMessageNotFound
	// when absent.
	GetByExternalMessageID(ctx context.Context, externalMessageID string) (*domain.Message, error)

	// GetByUUID looks a message up by its external-safe identifier. Returns
	// domain.ErrMessageNotFound when absent.
	GetByUUID(ctx context.Context, messageUUID uuid.UUID) (*domain.Message, error)

	// FindOutboundByConversationRef returns the outbound messages of a
	// conversation, scoped to the subject, newest first.
	FindOutboundByConversationRef(ctx context.Context, subjectID string, conversationRef uuid.UUID) ([]domain.Message, error)

	// CreateInbound persists an inbound message together with its attachments
	// and the verbatim stream payload in a single transaction.
	CreateInbound(ctx context.Context, msg *domain.Message, attachments []domain.Attachment) (*domain.Message, error)

	// FindUnarchivedOutbound returns outbound messages without an archive
	// reference, oldest first.
	FindUnarchivedOutbound(ctx context.Context) ([]domain.Message, error)

	// SetArchived records the archive result for a message.
	SetArchived(ctx context.Context, messageID int64, archiveReferenceID string, archivedAt time.Time) error

	// FindUnansweredOutbound returns outbound messages created before the
	// cutoff whose conversation has no inbound message and whose no-answer
	// event has not been published, oldest first.
	FindUnansweredOutbound(ctx context.Context, createdBefore time.Time) ([]domain.Message, error)

	// SetNoAnswerPublished marks the no-answer event as published.
	SetNoAnswerPublished(ctx context.Context, messageID int64, publishedAt time.Time) error

	// FindRejectedUnpublished returns messages whose delivery status resolved
	// to rejected and whose rejection event has not been published, oldest
	// first.
	FindRejectedUnpublished(ctx context.Context) ([]domain.RejectedMessage, error)

	// SetRejectedPublished marks the rejected event as published.
	SetRejectedPublished(ctx context.Context, messageID int64, publishedAt time.Time) error

	// UpdateSubjectID rewrites message ownership from one person identifier to
	// another, returning the number of rewritten rows.
	UpdateSubjectID(ctx context.Context, fromIdent string, toIdent string) (int64, error)
}

// StatusRepository is the durable store of delivery-status rows.
type StatusRepository interface {
	// Upsert creates the status row for a message, or overwrites status and
	// text on the existing row. Last writer wins; idempotent per
	// (messageUUID, status, text).
	Upsert(ctx context.Context, messageUUID uuid.UUID, status domain.DeliveryStatus, text string) error

	// GetByMessageUUID returns the status row of a message. Returns
	// domain.ErrStatusNotFound when absent.
	GetByMessageUUID(ctx context.Context, messageUUID uuid.UUID) (*domain.MessageStatus, error)
}
