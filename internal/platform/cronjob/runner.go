package cronjob

import (
	"context"
	"log/slog"
	"time"
)

// Result summarizes one job run.
type Result struct {
	Updated int
	Failed  int
}

// Job is a periodic background task. Implementations hold their own
// dependencies; the runner holds no job-specific state.
type Job interface {
	Name() string
	InitialDelay() time.Duration
	IntervalDelay() time.Duration
	Run(ctx context.Context) (Result, error)
}

// LeaderChecker gates job execution to a single process instance.
type LeaderChecker interface {
	IsLeader(ctx context.Context) (bool, error)
}

// Runner ticks a job on its configured interval, skipping ticks entirely when
// this instance is not the leader. Leadership is checked once per tick; it is
// the sole concurrency-safety mechanism for the background jobs.
type Runner struct {
	leader LeaderChecker
	logger *slog.Logger
}

// NewRunner creates a runner gated by the given leader checker.
func NewRunner(leader LeaderChecker, logger *slog.Logger) *Runner {
	return &Runner{
		leader: leader,
		logger: logger.With("component", "cronjob_runner"),
	}
}

// Start runs the job until the context is cancelled. Blocking; run one
// goroutine per job.
func (r *Runner) Start(ctx context.Context, job Job) error {
	log := r.logger.With("job", job.Name())
	log.Info("Starting cronjob", "initial_delay", job.InitialDelay(), "interval", job.IntervalDelay())

	select {
	case <-time.After(job.InitialDelay()):
	case <-ctx.Done():
		return ctx.Err()
	}

	ticker := time.NewTicker(job.IntervalDelay())
	defer ticker.Stop()

	for {
		r.tick(ctx, job, log)

		select {
		case <-ticker.C:
		case <-ctx.Done():
			log.Info("Stopping cronjob", "reason", ctx.Err())
			return ctx.Err()
		}
	}
}

func (r *Runner) tick(ctx context.Context, job Job, log *slog.Logger) {
	isLeader, err := r.leader.IsLeader(ctx)
	if err != nil {
		log.Error("Leader check failed, skipping tick", "error", err)
		return
	}
	if !isLeader {
		log.Debug("Not leader, skipping tick")
		return
	}

	result, err := job.Run(ctx)
	if err != nil {
		log.Error("Cronjob run failed", "error", err)
		return
	}
	log.Info("Cronjob run finished", "updated", result.Updated, "failed", result.Failed)
}
