package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	inboundMessagesReadCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "behandlerdialog",
			Name:      "inbound_messages_read_total",
			Help:      "Total inbound provider message records read from the stream.",
		},
	)

	inboundMessagesCreatedCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "behandlerdialog",
			Name:      "inbound_messages_created_total",
			Help:      "Total inbound messages persisted as new conversation entries.",
		},
	)

	inboundMessagesDuplicateCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "behandlerdialog",
			Name:      "inbound_messages_duplicate_total",
			Help:      "Total inbound messages dropped as duplicates by external message id.",
		},
	)

	inboundMessagesRejectedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "behandlerdialog",
			Name:      "inbound_messages_rejected_total",
			Help:      "Total inbound messages rejected without a row written.",
		},
		[]string{"reason"}, // "not_addressed", "no_case_window"
	)

	inboundMessagesIgnoredCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "behandlerdialog",
			Name:      "inbound_messages_ignored_total",
			Help:      "Total inbound records ignored without processing.",
		},
		[]string{"reason"}, // "tombstone", "foreign_category", "malformed"
	)

	statusEventsReadCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "behandlerdialog",
			Name:      "status_events_read_total",
			Help:      "Total delivery-status records read from the stream.",
		},
	)

	statusEventsAppliedCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "behandlerdialog",
			Name:      "status_events_applied_total",
			Help:      "Total delivery-status events applied to a message.",
		},
	)

	statusEventsSkippedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "behandlerdialog",
			Name:      "status_events_skipped_total",
			Help:      "Total delivery-status records dropped without applying.",
		},
		[]string{"reason"}, // "tombstone", "unknown_message", "malformed"
	)

	identityChangesAppliedCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "behandlerdialog",
			Name:      "identity_changes_applied_total",
			Help:      "Total identity-change events that rewrote message ownership.",
		},
	)

	identityChangesSkippedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "behandlerdialog",
			Name:      "identity_changes_skipped_total",
			Help:      "Total identity-change records dropped without processing.",
		},
		[]string{"reason"}, // "tombstone", "no_current_ident", "single_ident", "malformed"
	)

	messagesMergedCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "behandlerdialog",
			Name:      "messages_merged_total",
			Help:      "Total message rows rewritten to a new subject identity.",
		},
	)

	recordProcessingDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "behandlerdialog",
			Name:      "record_processing_duration_seconds",
			Help:      "Duration of stream record processing.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stream"}, // "inbound_messages", "status_events", "identity_changes"
	)
)
