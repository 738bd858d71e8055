package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Direction tells whether a message was received from the provider or sent to them.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// MessageKind is the business kind of a dialog message. Inbound replies inherit
// the kind of the outbound message they answer; unsolicited inbound messages
// are inquiries.
type MessageKind string

const (
	KindAdditionalInfoRequest MessageKind = "additional_info_request"
	KindReminder              MessageKind = "reminder"
	KindAgencyNotice          MessageKind = "agency_notice"
	KindProviderInquiry       MessageKind = "provider_inquiry"
)

// Value implements the driver.Valuer interface for MessageKind.
func (k MessageKind) Value() (driver.Value, error) {
	return string(k), nil
}

// Scan implements the sql.Scanner interface for MessageKind.
func (k *MessageKind) Scan(value interface{}) error {
	strVal, ok := value.(string)
	if !ok {
		bytesVal, ok := value.([]byte)
		if !ok {
			return fmt.Errorf("failed to scan MessageKind: value is not string or []byte, it is %T", value)
		}
		strVal = string(bytesVal)
	}
	*k = MessageKind(strVal)
	switch *k {
	case KindAdditionalInfoRequest, KindReminder, KindAgencyNotice, KindProviderInquiry:
		return nil
	default:
		return fmt.Errorf("unknown MessageKind value: %s", strVal)
	}
}

// Message is one entry in a conversation between a case worker and an external
// healthcare provider. Messages sharing a conversation ref form one thread.
// Rows are never deleted; lifecycle fields are set by the background jobs and
// the identity-merge operation only.
type Message struct {
	ID                  int64           `json:"id"`
	UUID                uuid.UUID       `json:"uuid"`
	CreatedAt           time.Time       `json:"created_at"`
	Direction           Direction       `json:"direction"`
	Kind                MessageKind     `json:"kind"`
	ConversationRef     uuid.UUID       `json:"conversation_ref"`
	ParentRef           *uuid.UUID      `json:"parent_ref,omitempty"`
	ExternalMessageID   *string         `json:"external_message_id,omitempty"` // provider-assigned, dedup key for inbound
	SubjectID           string          `json:"subject_id"`                    // person the conversation concerns
	PractitionerID      *string         `json:"practitioner_id,omitempty"`
	PractitionerName    *string         `json:"practitioner_name,omitempty"`
	Text                string          `json:"text"`
	Document            json.RawMessage `json:"document,omitempty"` // structured content, input to PDF rendering
	AttachmentCount     int             `json:"attachment_count"`
	Timestamp           time.Time       `json:"timestamp"` // business time, distinct from CreatedAt
	RawPayload          []byte          `json:"-"`         // verbatim stream record, kept for audit
	ArchivedAt          *time.Time      `json:"archived_at,omitempty"`
	ArchiveReferenceID  *string         `json:"archive_reference_id,omitempty"`
	NoAnswerPublishedAt *time.Time      `json:"no_answer_published_at,omitempty"`
	RejectedPublishedAt *time.Time      `json:"rejected_published_at,omitempty"`
}

// Attachment is a binary document received together with an inbound message.
// Persisted in the same transaction as its message.
type Attachment struct {
	ID          int64  `json:"id"`
	MessageID   int64  `json:"message_id"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}

// RejectedMessage pairs an outbound message with the rejection detail from its
// delivery status row, for the rejected-message publisher.
type RejectedMessage struct {
	Message
	StatusText string `json:"status_text"`
}
