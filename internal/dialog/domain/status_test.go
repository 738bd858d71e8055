package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDeliveryStatus(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected DeliveryStatus
		wantErr  bool
	}{
		{name: "ordered", input: "ordered", expected: StatusOrdered},
		{name: "sent", input: "sent", expected: StatusSent},
		{name: "acknowledged", input: "acknowledged", expected: StatusAcknowledged},
		{name: "rejected", input: "rejected", expected: StatusRejected},
		{name: "unknown value", input: "delivered", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "wrong case", input: "Sent", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			status, err := ParseDeliveryStatus(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, status)
		})
	}
}

func TestDeliveryStatus_Scan(t *testing.T) {
	var s DeliveryStatus
	require.NoError(t, s.Scan("rejected"))
	assert.Equal(t, StatusRejected, s)

	require.NoError(t, s.Scan([]byte("sent")))
	assert.Equal(t, StatusSent, s)

	assert.Error(t, s.Scan("bogus"))
	assert.Error(t, s.Scan(42))
}
