package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/velferd/behandlerdialog/internal/dialog/domain"
	"github.com/velferd/behandlerdialog/internal/dialog/repository"
)

const messageColumns = `
	id, uuid, created_at, direction, kind, conversation_ref, parent_ref,
	external_message_id, subject_id, practitioner_id, practitioner_name,
	text, document, attachment_count, business_timestamp, raw_payload,
	archived_at, archive_reference_id, no_answer_published_at, rejected_published_at`

type pgMessageRepository struct {
	db repository.Querier
}

// NewPgMessageRepository creates a MessageRepository backed by PostgreSQL.
func NewPgMessageRepository(db repository.Querier) repository.MessageRepository {
	return &pgMessageRepository{db: db}
}

func (r *pgMessageRepository) GetByExternalMessageID(ctx context.Context, externalMessageID string) (*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM message WHERE external_message_id = $1`
	msg, err := scanMessage(r.db.QueryRow(ctx, query, externalMessageID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}
	return msg, nil
}

func (r *pgMessageRepository) GetByUUID(ctx context.Context, messageUUID uuid.UUID) (*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM message WHERE uuid = $1`
	msg, err := scanMessage(r.db.QueryRow(ctx, query, messageUUID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}
	return msg, nil
}

func (r *pgMessageRepository) FindOutboundByConversationRef(ctx context.Context, subjectID string, conversationRef uuid.UUID) ([]domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM message
		WHERE direction = $1 AND subject_id = $2 AND conversation_ref = $3
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, domain.DirectionOutbound, subjectID, conversationRef)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (r *pgMessageRepository) CreateInbound(ctx context.Context, msg *domain.Message, attachments []domain.Attachment) (*domain.Message, error) {
	if msg.UUID == uuid.Nil {
		msg.UUID = uuid.New()
	}
	msg.CreatedAt = time.Now().UTC()
	msg.Direction = domain.DirectionInbound

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin inbound create tx: %w", err)
	}
	defer tx.Rollback(ctx)

	insertQuery := `
		INSERT INTO message (
			uuid, created_at, direction, kind, conversation_ref, parent_ref,
			external_message_id, subject_id, practitioner_id, practitioner_name,
			text, document, attachment_count, business_timestamp, raw_payload
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)
		RETURNING id
	`
	err = tx.QueryRow(ctx, insertQuery,
		msg.UUID, msg.CreatedAt, msg.Direction, msg.Kind, msg.ConversationRef, msg.ParentRef,
		msg.ExternalMessageID, msg.SubjectID, msg.PractitionerID, msg.PractitionerName,
		msg.Text, msg.Document, msg.AttachmentCount, msg.Timestamp, msg.RawPayload,
	).Scan(&msg.ID)
	if err != nil {
		return nil, fmt.Errorf("insert inbound message: %w", err)
	}

	for i := range attachments {
		attachments[i].MessageID = msg.ID
		err = tx.QueryRow(ctx,
			`INSERT INTO message_attachment (message_id, content_type, data) VALUES ($1, $2, $3) RETURNING id`,
			attachments[i].MessageID, attachments[i].ContentType, attachments[i].Data,
		).Scan(&attachments[i].ID)
		if err != nil {
			return nil, fmt.Errorf("insert attachment: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit inbound create tx: %w", err)
	}
	return msg, nil
}

func (r *pgMessageRepository) FindUnarchivedOutbound(ctx context.Context) ([]domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM message
		WHERE direction = $1 AND archive_reference_id IS NULL
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, domain.DirectionOutbound)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (r *pgMessageRepository) SetArchived(ctx context.Context, messageID int64, archiveReferenceID string, archivedAt time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE message SET archive_reference_id = $2, archived_at = $3 WHERE id = $1`,
		messageID, archiveReferenceID, archivedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

func (r *pgMessageRepository) FindUnansweredOutbound(ctx context.Context, createdBefore time.Time) ([]domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM message m
		WHERE m.direction = $1
		  AND m.no_answer_published_at IS NULL
		  AND m.created_at < $2
		  AND NOT EXISTS (
			SELECT 1 FROM message i
			WHERE i.conversation_ref = m.conversation_ref AND i.direction = $3
		  )
		ORDER BY m.created_at ASC
	`
	rows, err := r.db.Query(ctx, query, domain.DirectionOutbound, createdBefore, domain.DirectionInbound)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (r *pgMessageRepository) SetNoAnswerPublished(ctx context.Context, messageID int64, publishedAt time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE message SET no_answer_published_at = $2 WHERE id = $1`,
		messageID, publishedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

func (r *pgMessageRepository) FindRejectedUnpublished(ctx context.Context) ([]domain.RejectedMessage, error) {
	query := `
		SELECT m.id, m.uuid, m.created_at, m.direction, m.kind, m.conversation_ref, m.parent_ref,
		       m.external_message_id, m.subject_id, m.practitioner_id, m.practitioner_name,
		       m.text, m.document, m.attachment_count, m.business_timestamp, m.raw_payload,
		       m.archived_at, m.archive_reference_id, m.no_answer_published_at, m.rejected_published_at,
		       COALESCE(s.text, '')
		FROM message m
		JOIN message_status s ON s.message_uuid = m.uuid
		WHERE s.status = $1 AND m.rejected_published_at IS NULL
		ORDER BY m.created_at ASC
	`
	rows, err := r.db.Query(ctx, query, domain.StatusRejected)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.RejectedMessage
	for rows.Next() {
		var rm domain.RejectedMessage
		if err := scanMessageFields(rows, &rm.Message, &rm.StatusText); err != nil {
			return nil, err
		}
		result = append(result, rm)
	}
	return result, rows.Err()
}

func (r *pgMessageRepository) SetRejectedPublished(ctx context.Context, messageID int64, publishedAt time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE message SET rejected_published_at = $2 WHERE id = $1`,
		messageID, publishedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

func (r *pgMessageRepository) UpdateSubjectID(ctx context.Context, fromIdent string, toIdent string) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE message SET subject_id = $2 WHERE subject_id = $1`,
		fromIdent, toIdent,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var msg domain.Message
	if err := scanMessageFields(row, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func scanMessages(rows pgx.Rows) ([]domain.Message, error) {
	var result []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := scanMessageFields(rows, &msg); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}

// scanMessageFields scans the messageColumns set into msg, plus any extra
// trailing columns.
func scanMessageFields(row pgx.Row, msg *domain.Message, extra ...any) error {
	dest := []any{
		&msg.ID, &msg.UUID, &msg.CreatedAt, &msg.Direction, &msg.Kind, &msg.ConversationRef, &msg.ParentRef,
		&msg.ExternalMessageID, &msg.SubjectID, &msg.PractitionerID, &msg.PractitionerName,
		&msg.Text, &msg.Document, &msg.AttachmentCount, &msg.Timestamp, &msg.RawPayload,
		&msg.ArchivedAt, &msg.ArchiveReferenceID, &msg.NoAnswerPublishedAt, &msg.RejectedPublishedAt,
	}
	dest = append(dest, extra...)
	return row.Scan(dest...)
}
