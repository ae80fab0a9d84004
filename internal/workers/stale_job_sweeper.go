package workers

import (
	"context"
	"fmt"
	"time"

	"rag-console/internal/models"
	"rag-console/internal/repositories"
	"rag-console/internal/services"
)

// StaleJobSweeper fails jobs stuck in PROCESSING past MaxJobAge and
// optionally deletes terminal jobs older than Retention
type StaleJobSweeper struct {
	*BaseWorker
	jobs       repositories.JobRepository
	controller *services.PipelineController
	maxJobAge  time.Duration
	retention  time.Duration
	logger     Logger
	now        func() time.Time
}

// StaleJobSweeperConfig holds configuration for the sweeper
type StaleJobSweeperConfig struct {
	WorkerConfig WorkerConfig
	Jobs         repositories.JobRepository
	Controller   *services.PipelineController
	MaxJobAge    time.Duration
	// Retention of zero keeps terminal jobs forever
	Retention time.Duration
	Logger    Logger
}

// SweepResult summarizes one sweep
type SweepResult struct {
	TimedOut int
	Removed  int
}

// NewStaleJobSweeper creates a new sweeper
func NewStaleJobSweeper(cfg StaleJobSweeperConfig) *StaleJobSweeper {
	cfg.WorkerConfig.Concurrency = 1
	maxAge := cfg.MaxJobAge
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &StaleJobSweeper{
		BaseWorker: NewBaseWorker(cfg.WorkerConfig),
		jobs:       cfg.Jobs,
		controller: cfg.Controller,
		maxJobAge:  maxAge,
		retention:  cfg.Retention,
		logger:     cfg.Logger,
		now:        time.Now,
	}
}

// Start begins the sweep loop
func (w *StaleJobSweeper) Start(ctx context.Context) error {
	loopCtx, err := w.begin(ctx)
	if err != nil {
		return err
	}
	w.logger.Info("Starting stale job sweeper: %s (max age %s, every %s)", w.Name(), w.maxJobAge, w.config.PollInterval)
	w.spawn(loopCtx, w.run)
	return nil
}

// Stop gracefully stops the sweeper
func (w *StaleJobSweeper) Stop(ctx context.Context) error {
	w.logger.Info("Stopping stale job sweeper: %s", w.Name())
	return w.halt(ctx)
}

func (w *StaleJobSweeper) run(ctx context.Context) {
	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Sweep(ctx); err != nil && ctx.Err() == nil {
				w.logger.Error("Stale job sweep failed: %v", err)
			}
		}
	}
}

// Sweep runs one pass
func (w *StaleJobSweeper) Sweep(ctx context.Context) (*SweepResult, error) {
	result := &SweepResult{}

	processing, err := w.jobs.JobsByStatus(ctx, models.JobStatusProcessing)
	if err != nil {
		return nil, err
	}

	cutoff := w.now().Add(-w.maxJobAge)
	for _, job := range processing {
		if job.StartedAt == nil || job.StartedAt.After(cutoff) {
			continue
		}
		start := time.Now()
		msg := fmt.Sprintf("timed out: no completion within %s", w.maxJobAge)
		_, applied, err := w.controller.FailJob(ctx, job.ID, msg)
		if err != nil {
			w.recordJobFailure(start)
			w.logger.Error("Failed to time out job %s: %v", job.ID, err)
			continue
		}
		w.recordJobSuccess(start)
		if applied {
			result.TimedOut++
			w.logger.Warn("Job %s (%s for document %s) timed out after %s", job.ID, job.Stage, job.DocumentID, w.maxJobAge)
		}
	}

	if w.retention > 0 {
		removed, err := w.jobs.CleanupTerminalJobs(ctx, w.retention)
		if err != nil {
			return result, err
		}
		result.Removed = removed
		if removed > 0 {
			w.logger.Info("Removed %d terminal jobs older than %s", removed, w.retention)
		}
	}
	return result, nil
}
