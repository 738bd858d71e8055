package events

import (
	"time"

	"github.com/google/uuid"
)

// RejectedMessageEvent notifies downstream systems that an outbound message
// was rejected by the provider's delivery channel.
type RejectedMessageEvent struct {
	MessageUUID     uuid.UUID `json:"messageUuid"`
	SubjectID       string    `json:"subjectId"`
	ConversationRef uuid.UUID `json:"conversationRef"`
	Kind            string    `json:"kind"`
	StatusText      string    `json:"statusText,omitempty"`
	PublishedAt     time.Time `json:"publishedAt"`
}

// NoAnswerEvent notifies downstream systems that an outbound message passed
// its reply deadline with no inbound reply in its conversation.
type NoAnswerEvent struct {
	MessageUUID     uuid.UUID `json:"messageUuid"`
	SubjectID       string    `json:"subjectId"`
	ConversationRef uuid.UUID `json:"conversationRef"`
	Kind            string    `json:"kind"`
	SentAt          time.Time `json:"sentAt"`
	PublishedAt     time.Time `json:"publishedAt"`
}

// StatusChangeEvent is the simplified status fan-out, mirroring every applied
// delivery-status change.
type StatusChangeEvent struct {
	MessageUUID     uuid.UUID `json:"messageUuid"`
	SubjectID       string    `json:"subjectId"`
	ConversationRef uuid.UUID `json:"conversationRef"`
	Status          string    `json:"status"`
	Text            string    `json:"text,omitempty"`
	UpdatedAt       time.Time `json:"updatedAt"`
}
