package app

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/velferd/behandlerdialog/internal/dialog/domain"
)

// Stream record processors. Each implements kafka.RecordProcessor: a nil value
// is a tombstone, counted and committed without processing; a malformed
// payload is dropped with a metric rather than wedging the partition; any
// returned error aborts the batch so it is redelivered.

// InboundMessageProcessor feeds the inbound provider message stream into the
// correlator.
type InboundMessageProcessor struct {
	correlator *Correlator
	logger     *slog.Logger
}

// NewInboundMessageProcessor creates the processor for the inbound message
// topic.
func NewInboundMessageProcessor(correlator *Correlator, logger *slog.Logger) *InboundMessageProcessor {
	return &InboundMessageProcessor{
		correlator: correlator,
		logger:     logger.With("component", "inbound_message_processor"),
	}
}

// Process handles one inbound message record.
func (p *InboundMessageProcessor) Process(ctx context.Context, value []byte) error {
	timer := prometheus.NewTimer(recordProcessingDurationHist.WithLabelValues("inbound_messages"))
	defer timer.ObserveDuration()

	inboundMessagesReadCounter.Inc()

	if value == nil {
		inboundMessagesIgnoredCounter.WithLabelValues("tombstone").Inc()
		p.logger.WarnContext(ctx, "Tombstone record on inbound message stream, ignoring")
		return nil
	}

	var ev domain.InboundMessageEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		inboundMessagesIgnoredCounter.WithLabelValues("malformed").Inc()
		p.logger.ErrorContext(ctx, "Malformed inbound message record, dropping", "error", err)
		return nil
	}

	_, err := p.correlator.Ingest(ctx, ev, value)
	return err
}

// StatusEventProcessor feeds the delivery-status stream into the status
// tracker.
type StatusEventProcessor struct {
	tracker *StatusTracker
	logger  *slog.Logger
}

// NewStatusEventProcessor creates the processor for the status topic.
func NewStatusEventProcessor(tracker *StatusTracker, logger *slog.Logger) *StatusEventProcessor {
	return &StatusEventProcessor{
		tracker: tracker,
		logger:  logger.With("component", "status_event_processor"),
	}
}

// Process handles one status record.
func (p *StatusEventProcessor) Process(ctx context.Context, value []byte) error {
	timer := prometheus.NewTimer(recordProcessingDurationHist.WithLabelValues("status_events"))
	defer timer.ObserveDuration()

	statusEventsReadCounter.Inc()

	if value == nil {
		statusEventsSkippedCounter.WithLabelValues("tombstone").Inc()
		p.logger.WarnContext(ctx, "Tombstone record on status stream, ignoring")
		return nil
	}

	var ev domain.StatusEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		statusEventsSkippedCounter.WithLabelValues("malformed").Inc()
		p.logger.ErrorContext(ctx, "Malformed status record, dropping", "error", err)
		return nil
	}

	return p.tracker.Apply(ctx, ev)
}

// IdentityChangeProcessor feeds the identity-change stream into the merger.
type IdentityChangeProcessor struct {
	merger *IdentityMerger
	logger *slog.Logger
}

// NewIdentityChangeProcessor creates the processor for the identity-change
// topic.
func NewIdentityChangeProcessor(merger *IdentityMerger, logger *slog.Logger) *IdentityChangeProcessor {
	return &IdentityChangeProcessor{
		merger: merger,
		logger: logger.With("component", "identity_change_processor"),
	}
}

// Process handles one identity-change record.
func (p *IdentityChangeProcessor) Process(ctx context.Context, value []byte) error {
	timer := prometheus.NewTimer(recordProcessingDurationHist.WithLabelValues("identity_changes"))
	defer timer.ObserveDuration()

	if value == nil {
		identityChangesSkippedCounter.WithLabelValues("tombstone").Inc()
		p.logger.WarnContext(ctx, "Tombstone record on identity-change stream, ignoring")
		return nil
	}

	var ev domain.IdentityChangeEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		identityChangesSkippedCounter.WithLabelValues("malformed").Inc()
		p.logger.ErrorContext(ctx, "Malformed identity-change record, dropping", "error", err)
		return nil
	}

	return p.merger.Apply(ctx, domain.IdentityChange{Identifiers: ev.Identifiers})
}
