package domain

import "errors"

var (
	// ErrMessageNotFound indicates that no message matched the lookup key.
	ErrMessageNotFound = errors.New("message not found")
	// ErrStatusNotFound indicates that a message has no delivery status row.
	ErrStatusNotFound = errors.New("message status not found")
)
