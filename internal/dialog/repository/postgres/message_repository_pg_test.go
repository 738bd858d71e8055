package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velferd/behandlerdialog/internal/dialog/domain"
	"github.com/velferd/behandlerdialog/internal/dialog/repository"
)

var messageColumnNames = []string{
	"id", "uuid", "created_at", "direction", "kind", "conversation_ref", "parent_ref",
	"external_message_id", "subject_id", "practitioner_id", "practitioner_name",
	"text", "document", "attachment_count", "business_timestamp", "raw_payload",
	"archived_at", "archive_reference_id", "no_answer_published_at", "rejected_published_at",
}

// messageRowValues lays out a message in messageColumns order. UUID columns go
// in as strings and the kind as a plain string so the scanners accept them.
func messageRowValues(msg domain.Message) []any {
	return []any{
		msg.ID, msg.UUID.String(), msg.CreatedAt, msg.Direction, string(msg.Kind), msg.ConversationRef.String(), msg.ParentRef,
		msg.ExternalMessageID, msg.SubjectID, msg.PractitionerID, msg.PractitionerName,
		msg.Text, msg.Document, msg.AttachmentCount, msg.Timestamp, msg.RawPayload,
		msg.ArchivedAt, msg.ArchiveReferenceID, msg.NoAnswerPublishedAt, msg.RejectedPublishedAt,
	}
}

func setupMessageRepoTest(t *testing.T) (repository.MessageRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	return NewPgMessageRepository(mockPool), mockPool
}

func strPtr(s string) *string { return &s }

func outboundMessageFixture() domain.Message {
	return domain.Message{
		ID:              3,
		UUID:            uuid.New(),
		CreatedAt:       time.Now().UTC().Add(-time.Hour),
		Direction:       domain.DirectionOutbound,
		Kind:            domain.KindAdditionalInfoRequest,
		ConversationRef: uuid.New(),
		SubjectID:       "01017012345",
		Text:            "please send the assessment",
		Timestamp:       time.Now().UTC().Add(-time.Hour),
	}
}

func TestPgMessageRepository_GetByExternalMessageID(t *testing.T) {
	repo, mockPool := setupMessageRepoTest(t)
	defer mockPool.Close()

	query := `FROM message WHERE external_message_id = \$1`

	t.Run("Found", func(t *testing.T) {
		msg := outboundMessageFixture()
		msg.Direction = domain.DirectionInbound
		msg.ExternalMessageID = strPtr("ext-1")

		rows := mockPool.NewRows(messageColumnNames).AddRow(messageRowValues(msg)...)
		mockPool.ExpectQuery(query).WithArgs("ext-1").WillReturnRows(rows)

		found, err := repo.GetByExternalMessageID(context.Background(), "ext-1")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, msg.UUID, found.UUID)
		assert.Equal(t, msg.Kind, found.Kind)
		assert.Equal(t, msg.ConversationRef, found.ConversationRef)
		require.NotNil(t, found.ExternalMessageID)
		assert.Equal(t, "ext-1", *found.ExternalMessageID)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		mockPool.ExpectQuery(query).WithArgs("ext-2").WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetByExternalMessageID(context.Background(), "ext-2")
		assert.ErrorIs(t, err, domain.ErrMessageNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("DBError", func(t *testing.T) {
		dbErr := errors.New("connection reset")
		mockPool.ExpectQuery(query).WithArgs("ext-3").WillReturnError(dbErr)

		_, err := repo.GetByExternalMessageID(context.Background(), "ext-3")
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrMessageNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPgMessageRepository_FindOutboundByConversationRef(t *testing.T) {
	repo, mockPool := setupMessageRepoTest(t)
	defer mockPool.Close()

	msg := outboundMessageFixture()
	rows := mockPool.NewRows(messageColumnNames).AddRow(messageRowValues(msg)...)

	mockPool.ExpectQuery(`WHERE direction = \$1 AND subject_id = \$2 AND conversation_ref = \$3 ORDER BY created_at DESC`).
		WithArgs(domain.DirectionOutbound, msg.SubjectID, msg.ConversationRef).
		WillReturnRows(rows)

	found, err := repo.FindOutboundByConversationRef(context.Background(), msg.SubjectID, msg.ConversationRef)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, msg.UUID, found[0].UUID)
	assert.Equal(t, msg.Kind, found[0].Kind)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPgMessageRepository_CreateInbound(t *testing.T) {
	insertMessage := `INSERT INTO message \(`
	insertAttachment := `INSERT INTO message_attachment \(message_id, content_type, data\) VALUES \(\$1, \$2, \$3\) RETURNING id`

	t.Run("MessageAndAttachmentsInOneTransaction", func(t *testing.T) {
		repo, mockPool := setupMessageRepoTest(t)
		defer mockPool.Close()

		msg := domain.Message{
			Kind:            domain.KindProviderInquiry,
			ConversationRef: uuid.New(),
			SubjectID:       "01017012345",
			Text:            "inbound text",
			RawPayload:      []byte(`{"a":1}`),
		}
		attachments := []domain.Attachment{{ContentType: "application/pdf", Data: []byte("%PDF")}}

		mockPool.ExpectBegin()
		mockPool.ExpectQuery(insertMessage).
			WithArgs(
				pgxmock.AnyArg(), pgxmock.AnyArg(), domain.DirectionInbound, msg.Kind, msg.ConversationRef,
				pgxmock.AnyArg(), pgxmock.AnyArg(), msg.SubjectID, pgxmock.AnyArg(), pgxmock.AnyArg(),
				msg.Text, pgxmock.AnyArg(), 0, pgxmock.AnyArg(), msg.RawPayload,
			).
			WillReturnRows(mockPool.NewRows([]string{"id"}).AddRow(int64(21)))
		mockPool.ExpectQuery(insertAttachment).
			WithArgs(int64(21), "application/pdf", []byte("%PDF")).
			WillReturnRows(mockPool.NewRows([]string{"id"}).AddRow(int64(5)))
		mockPool.ExpectCommit()

		created, err := repo.CreateInbound(context.Background(), &msg, attachments)
		require.NoError(t, err)
		assert.Equal(t, int64(21), created.ID)
		assert.Equal(t, domain.DirectionInbound, created.Direction)
		assert.NotEqual(t, uuid.Nil, created.UUID)
		assert.Equal(t, int64(21), attachments[0].MessageID)
		assert.Equal(t, int64(5), attachments[0].ID)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("InsertFailureRollsBack", func(t *testing.T) {
		repo, mockPool := setupMessageRepoTest(t)
		defer mockPool.Close()

		msg := domain.Message{Kind: domain.KindProviderInquiry, ConversationRef: uuid.New(), SubjectID: "01017012345"}

		mockPool.ExpectBegin()
		mockPool.ExpectQuery(insertMessage).
			WithArgs(
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			).
			WillReturnError(errors.New("insert failed"))
		mockPool.ExpectRollback()

		_, err := repo.CreateInbound(context.Background(), &msg, nil)
		require.Error(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("AttachmentFailureRollsBack", func(t *testing.T) {
		repo, mockPool := setupMessageRepoTest(t)
		defer mockPool.Close()

		msg := domain.Message{Kind: domain.KindProviderInquiry, ConversationRef: uuid.New(), SubjectID: "01017012345"}
		attachments := []domain.Attachment{{ContentType: "application/pdf", Data: []byte("%PDF")}}

		mockPool.ExpectBegin()
		mockPool.ExpectQuery(insertMessage).
			WithArgs(
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			).
			WillReturnRows(mockPool.NewRows([]string{"id"}).AddRow(int64(22)))
		mockPool.ExpectQuery(insertAttachment).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(errors.New("attachment insert failed"))
		mockPool.ExpectRollback()

		_, err := repo.CreateInbound(context.Background(), &msg, attachments)
		require.Error(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPgMessageRepository_FindUnarchivedOutbound(t *testing.T) {
	repo, mockPool := setupMessageRepoTest(t)
	defer mockPool.Close()

	msg := outboundMessageFixture()
	rows := mockPool.NewRows(messageColumnNames).AddRow(messageRowValues(msg)...)

	mockPool.ExpectQuery(`WHERE direction = \$1 AND archive_reference_id IS NULL ORDER BY created_at ASC`).
		WithArgs(domain.DirectionOutbound).
		WillReturnRows(rows)

	found, err := repo.FindUnarchivedOutbound(context.Background())
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Nil(t, found[0].ArchiveReferenceID)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPgMessageRepository_SetArchived(t *testing.T) {
	repo, mockPool := setupMessageRepoTest(t)
	defer mockPool.Close()

	query := `UPDATE message SET archive_reference_id = \$2, archived_at = \$3 WHERE id = \$1`
	archivedAt := time.Now().UTC()

	t.Run("Updated", func(t *testing.T) {
		mockPool.ExpectExec(query).
			WithArgs(int64(3), "journal-abc", archivedAt).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.SetArchived(context.Background(), 3, "journal-abc", archivedAt)
		require.NoError(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("NoSuchMessage", func(t *testing.T) {
		mockPool.ExpectExec(query).
			WithArgs(int64(99), "journal-abc", archivedAt).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.SetArchived(context.Background(), 99, "journal-abc", archivedAt)
		assert.ErrorIs(t, err, domain.ErrMessageNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPgMessageRepository_FindUnansweredOutbound(t *testing.T) {
	repo, mockPool := setupMessageRepoTest(t)
	defer mockPool.Close()

	cutoff := time.Now().UTC().Add(-21 * 24 * time.Hour)
	msg := outboundMessageFixture()
	rows := mockPool.NewRows(messageColumnNames).AddRow(messageRowValues(msg)...)

	// The selection must exclude conversations holding any inbound message.
	mockPool.ExpectQuery(`AND NOT EXISTS \( SELECT 1 FROM message i WHERE i\.conversation_ref = m\.conversation_ref AND i\.direction = \$3 \)`).
		WithArgs(domain.DirectionOutbound, cutoff, domain.DirectionInbound).
		WillReturnRows(rows)

	found, err := repo.FindUnansweredOutbound(context.Background(), cutoff)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, msg.UUID, found[0].UUID)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPgMessageRepository_SetNoAnswerPublished(t *testing.T) {
	repo, mockPool := setupMessageRepoTest(t)
	defer mockPool.Close()

	publishedAt := time.Now().UTC()
	mockPool.ExpectExec(`UPDATE message SET no_answer_published_at = \$2 WHERE id = \$1`).
		WithArgs(int64(3), publishedAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.SetNoAnswerPublished(context.Background(), 3, publishedAt)
	require.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPgMessageRepository_FindRejectedUnpublished(t *testing.T) {
	repo, mockPool := setupMessageRepoTest(t)
	defer mockPool.Close()

	msg := outboundMessageFixture()
	values := append(messageRowValues(msg), "receiver unknown")
	rows := mockPool.NewRows(append(append([]string{}, messageColumnNames...), "text")).
		AddRow(values...)

	mockPool.ExpectQuery(`COALESCE\(s\.text, ''\) FROM message m JOIN message_status s ON s\.message_uuid = m\.uuid WHERE s\.status = \$1 AND m\.rejected_published_at IS NULL`).
		WithArgs(domain.StatusRejected).
		WillReturnRows(rows)

	found, err := repo.FindRejectedUnpublished(context.Background())
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, msg.UUID, found[0].UUID)
	assert.Equal(t, "receiver unknown", found[0].StatusText)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPgMessageRepository_SetRejectedPublished(t *testing.T) {
	repo, mockPool := setupMessageRepoTest(t)
	defer mockPool.Close()

	publishedAt := time.Now().UTC()
	mockPool.ExpectExec(`UPDATE message SET rejected_published_at = \$2 WHERE id = \$1`).
		WithArgs(int64(3), publishedAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.SetRejectedPublished(context.Background(), 3, publishedAt)
	require.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPgMessageRepository_UpdateSubjectID(t *testing.T) {
	repo, mockPool := setupMessageRepoTest(t)
	defer mockPool.Close()

	mockPool.ExpectExec(`UPDATE message SET subject_id = \$2 WHERE subject_id = \$1`).
		WithArgs("11111111111", "22222222222").
		WillReturnResult(pgxmock.NewResult("UPDATE", 4))

	rewritten, err := repo.UpdateSubjectID(context.Background(), "11111111111", "22222222222")
	require.NoError(t, err)
	assert.Equal(t, int64(4), rewritten)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
