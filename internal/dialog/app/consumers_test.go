package app

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInboundProcessor_TombstoneIsIgnored(t *testing.T) {
	c := setupCorrelatorTest(t)
	p := NewInboundMessageProcessor(c.correlator, discardLogger())

	require.NoError(t, p.Process(context.Background(), nil))
	c.mockRepo.AssertNotCalled(t, "GetByExternalMessageID", mock.Anything, mock.Anything)
}

func TestInboundProcessor_MalformedRecordIsDropped(t *testing.T) {
	c := setupCorrelatorTest(t)
	p := NewInboundMessageProcessor(c.correlator, discardLogger())

	require.NoError(t, p.Process(context.Background(), []byte("{not json")))
	c.mockRepo.AssertNotCalled(t, "GetByExternalMessageID", mock.Anything, mock.Anything)
}

func TestStatusProcessor_TombstoneIsIgnored(t *testing.T) {
	c := setupStatusTrackerTest(t)
	p := NewStatusEventProcessor(c.tracker, discardLogger())

	require.NoError(t, p.Process(context.Background(), nil))
	c.mockMessages.AssertNotCalled(t, "GetByUUID", mock.Anything, mock.Anything)
}

func TestIdentityProcessor_TombstoneIsIgnored(t *testing.T) {
	merger, mockRepo := setupIdentityMergerTest(t)
	p := NewIdentityChangeProcessor(merger, discardLogger())

	require.NoError(t, p.Process(context.Background(), nil))
	mockRepo.AssertNotCalled(t, "UpdateSubjectID", mock.Anything, mock.Anything, mock.Anything)
}
