package domain

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DeliveryStatus is the reported delivery state of an outbound message.
// Updates are applied last-writer-wins by arrival order; a late event may
// legitimately regress the stored value.
type DeliveryStatus string

const (
	StatusOrdered      DeliveryStatus = "ordered"
	StatusSent         DeliveryStatus = "sent"
	StatusAcknowledged DeliveryStatus = "acknowledged"
	StatusRejected     DeliveryStatus = "rejected"
)

// ParseDeliveryStatus maps a stream-reported status string onto the enum.
func ParseDeliveryStatus(s string) (DeliveryStatus, error) {
	status := DeliveryStatus(s)
	switch status {
	case StatusOrdered, StatusSent, StatusAcknowledged, StatusRejected:
		return status, nil
	default:
		return "", fmt.Errorf("unknown delivery status: %q", s)
	}
}

// Value implements the driver.Valuer interface for DeliveryStatus.
func (s DeliveryStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// Scan implements the sql.Scanner interface for DeliveryStatus.
func (s *DeliveryStatus) Scan(value interface{}) error {
	strVal, ok := value.(string)
	if !ok {
		bytesVal, ok := value.([]byte)
		if !ok {
			return fmt.Errorf("failed to scan DeliveryStatus: value is not string or []byte, it is %T", value)
		}
		strVal = string(bytesVal)
	}
	parsed, err := ParseDeliveryStatus(strVal)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MessageStatus is the single delivery-state row of an outbound message.
// At most one row exists per message; every status event overwrites it whole.
type MessageStatus struct {
	ID          int64          `json:"id"`
	MessageUUID uuid.UUID      `json:"message_uuid"`
	Status      DeliveryStatus `json:"status"`
	Text        string         `json:"text,omitempty"` // human-readable detail, e.g. rejection reason
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
