package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/velferd/behandlerdialog/internal/dialog/domain"
	"github.com/velferd/behandlerdialog/internal/dialog/repository"
)

// IdentityMerger rewrites message ownership when a person's identifiers
// change. The instruction itself is never persisted.
type IdentityMerger struct {
	repo   repository.MessageRepository
	logger *slog.Logger
}

// NewIdentityMerger creates an IdentityMerger.
func NewIdentityMerger(repo repository.MessageRepository, logger *slog.Logger) *IdentityMerger {
	return &IdentityMerger{
		repo:   repo,
		logger: logger.With("component", "identity_merger"),
	}
}

// Apply rewrites the subject identity of all messages owned by a former
// identifier to the current one. Batches without more than one identifier, or
// without a resolvable current identifier, are logged and skipped.
func (m *IdentityMerger) Apply(ctx context.Context, change domain.IdentityChange) error {
	if len(change.Identifiers) < 2 {
		identityChangesSkippedCounter.WithLabelValues("single_ident").Inc()
		m.logger.DebugContext(ctx, "Identity change with fewer than two identifiers, skipping")
		return nil
	}

	current, ok := change.CurrentIdent()
	if !ok {
		identityChangesSkippedCounter.WithLabelValues("no_current_ident").Inc()
		m.logger.WarnContext(ctx, "Identity change without resolvable current identifier, skipping")
		return nil
	}

	var rewritten int64
	for _, former := range change.FormerIdents() {
		count, err := m.repo.UpdateSubjectID(ctx, former, current)
		if err != nil {
			return fmt.Errorf("rewrite subject identity: %w", err)
		}
		rewritten += count
	}

	identityChangesAppliedCounter.Inc()
	messagesMergedCounter.Add(float64(rewritten))
	m.logger.InfoContext(ctx, "Applied identity change", "rewritten_messages", rewritten)
	return nil
}
