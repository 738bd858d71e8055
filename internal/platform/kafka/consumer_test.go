package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsumerGroupID_IsDistinctPerTopic(t *testing.T) {
	a := ConsumerGroupID("behandlerdialog", "provider-dialog.messages.inbound")
	b := ConsumerGroupID("behandlerdialog", "provider-dialog.messages.status")

	assert.Equal(t, "behandlerdialog.provider-dialog.messages.inbound", a)
	assert.NotEqual(t, a, b)
}
