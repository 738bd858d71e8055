package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/velferd/behandlerdialog/internal/dialog/domain"
	"github.com/velferd/behandlerdialog/internal/dialog/repository"
)

type pgStatusRepository struct {
	db repository.Querier
}

// NewPgStatusRepository creates a StatusRepository backed by PostgreSQL.
func NewPgStatusRepository(db repository.Querier) repository.StatusRepository {
	return &pgStatusRepository{db: db}
}

func (r *pgStatusRepository) Upsert(ctx context.Context, messageUUID uuid.UUID, status domain.DeliveryStatus, text string) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO message_status (message_uuid, status, text, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (message_uuid) DO UPDATE
		SET status = EXCLUDED.status, text = EXCLUDED.text, updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.Exec(ctx, query, messageUUID, status, text, now)
	return err
}

func (r *pgStatusRepository) GetByMessageUUID(ctx context.Context, messageUUID uuid.UUID) (*domain.MessageStatus, error) {
	query := `
		SELECT id, message_uuid, status, text, created_at, updated_at
		FROM message_status
		WHERE message_uuid = $1
	`
	var status domain.MessageStatus
	err := r.db.QueryRow(ctx, query, messageUUID).Scan(
		&status.ID, &status.MessageUUID, &status.Status, &status.Text, &status.CreatedAt, &status.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrStatusNotFound
		}
		return nil, err
	}
	return &status, nil
}
