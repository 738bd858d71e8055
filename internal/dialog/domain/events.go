package domain

import (
	"encoding/json"
	"time"
)

// Categories carried on inbound provider messages. Only provider-dialog
// messages belong to this system; other categories are routed to sibling
// systems and skipped here.
const CategoryProviderDialog = "provider_dialog"

// RecipientCaseWorker is the recipient-service code a provider sets when a
// message is addressed to the subject's case worker rather than another part
// of the agency.
const RecipientCaseWorker = "case_worker"

// InboundMessageEvent is the payload of one record on the inbound provider
// message stream. Correlation refs are provider-supplied strings and untrusted;
// UUID parsing happens in the correlator.
type InboundMessageEvent struct {
	ExternalMessageID string          `json:"externalMessageId"`
	Category          string          `json:"category"`
	ConversationRef   string          `json:"conversationRef,omitempty"`
	ParentRef         string          `json:"parentRef,omitempty"`
	SubjectID         string          `json:"subjectId"`
	PractitionerID    string          `json:"practitionerId,omitempty"`
	PractitionerName  string          `json:"practitionerName,omitempty"`
	RecipientService  string          `json:"recipientService,omitempty"`
	Text              string          `json:"text,omitempty"`
	Document          json.RawMessage `json:"document,omitempty"`
	AttachmentCount   int             `json:"attachmentCount"`
	Timestamp         time.Time       `json:"timestamp"`
}

// AddressedToCaseWorker is the content-based predicate deciding whether an
// uncorrelated inbound message may still start a new conversation.
func (e InboundMessageEvent) AddressedToCaseWorker() bool {
	return e.RecipientService == RecipientCaseWorker
}

// StatusEvent is the payload of one record on the delivery-status stream.
type StatusEvent struct {
	MessageUUID string `json:"messageUuid"`
	Status      string `json:"status"`
	Text        string `json:"text,omitempty"`
}

// IdentityChangeEvent is the payload of one record on the identity-change
// stream.
type IdentityChangeEvent struct {
	Identifiers []PersonIdentifier `json:"identifiers"`
}
