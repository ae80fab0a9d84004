package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rag-console/internal/models"
	"rag-console/internal/repositories"
	"rag-console/internal/services"
)

// DispatchWorker polls the queue for ready jobs, claims them and hands them
// to the stage workers. Results come back through the webhook.
type DispatchWorker struct {
	*BaseWorker
	jobs       repositories.JobRepository
	documents  repositories.DocumentRepository
	controller *services.PipelineController
	client     services.StageWorkerClient
	logger     Logger
	now        func() time.Time
}

// DispatchWorkerConfig holds configuration for the dispatch worker
type DispatchWorkerConfig struct {
	WorkerConfig WorkerConfig
	Jobs         repositories.JobRepository
	Documents    repositories.DocumentRepository
	Controller   *services.PipelineController
	Client       services.StageWorkerClient
	Logger       Logger
}

// NewDispatchWorker creates a new dispatch worker
func NewDispatchWorker(cfg DispatchWorkerConfig) *DispatchWorker {
	return &DispatchWorker{
		BaseWorker: NewBaseWorker(cfg.WorkerConfig),
		jobs:       cfg.Jobs,
		documents:  cfg.Documents,
		controller: cfg.Controller,
		client:     cfg.Client,
		logger:     cfg.Logger,
		now:        time.Now,
	}
}

// Start begins the polling goroutines
func (w *DispatchWorker) Start(ctx context.Context) error {
	loopCtx, err := w.begin(ctx)
	if err != nil {
		return err
	}
	w.logger.Info("Starting dispatch worker: %s (concurrency %d)", w.Name(), w.config.Concurrency)

	for i := 0; i < w.config.Concurrency; i++ {
		id := i
		w.spawn(loopCtx, func(ctx context.Context) { w.poll(ctx, id) })
	}
	return nil
}

// Stop gracefully stops the worker
func (w *DispatchWorker) Stop(ctx context.Context) error {
	w.logger.Info("Stopping dispatch worker: %s", w.Name())
	return w.halt(ctx)
}

func (w *DispatchWorker) poll(ctx context.Context, id int) {
	name := fmt.Sprintf("%s-goroutine-%d", w.Name(), id)
	w.logger.Debug("Dispatch goroutine started: %s", name)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("Dispatch goroutine stopping: %s", name)
			return
		case <-ticker.C:
			if _, err := w.DispatchReady(ctx); err != nil && ctx.Err() == nil {
				w.logger.Error("Dispatch poll failed: %v", err)
			}
		}
	}
}

// DispatchReady dispatches up to BatchSize jobs whose schedule time has
// passed, highest priority first. It returns how many were handed off.
func (w *DispatchWorker) DispatchReady(ctx context.Context) (int, error) {
	now := w.now()
	candidates, err := w.jobs.DequeueCandidates(ctx, &repositories.CandidateFilter{
		ReadyBefore: &now,
		Limit:       w.config.BatchSize,
	})
	if err != nil {
		return 0, err
	}

	dispatched := 0
	for _, job := range candidates {
		if ctx.Err() != nil {
			return dispatched, ctx.Err()
		}
		start := time.Now()
		ok, err := w.dispatchJob(ctx, job)
		switch {
		case err != nil:
			w.recordJobFailure(start)
			w.logger.Error("Dispatch of job %s (%s) failed: %v", job.ID, job.Stage, err)
		case ok:
			w.recordJobSuccess(start)
			dispatched++
		}
	}
	return dispatched, nil
}

// dispatchJob claims one job and sends it out. ok is false when another
// dispatcher claimed it first.
func (w *DispatchWorker) dispatchJob(ctx context.Context, job *models.Job) (ok bool, err error) {
	err = w.guard(func() error {
		claimed, claimErr := w.controller.ClaimJob(ctx, job.ID)
		var transition *models.InvalidTransitionError
		if errors.As(claimErr, &transition) {
			return nil
		}
		if claimErr != nil {
			return claimErr
		}

		req := &services.DispatchRequest{
			TaskID:     claimed.TaskID,
			JobID:      claimed.ID,
			DocumentID: claimed.DocumentID,
			Stage:      claimed.Stage,
			Priority:   claimed.Priority,
			Metadata:   claimed.Metadata,
		}
		if doc, docErr := w.documents.Get(ctx, claimed.DocumentID); docErr == nil {
			req.InputRef = doc.StageInputRef(claimed.Stage)
		}

		resp, dispatchErr := w.client.Dispatch(ctx, req)
		if dispatchErr != nil {
			if _, _, failErr := w.controller.FailJob(ctx, claimed.ID, "dispatch failed: "+dispatchErr.Error()); failErr != nil {
				w.logger.Error("Failed to record dispatch failure for job %s: %v", claimed.ID, failErr)
			}
			return dispatchErr
		}

		if resp.TaskID != "" && resp.TaskID != claimed.TaskID {
			if _, attachErr := w.jobs.AttachTask(ctx, claimed.ID, resp.TaskID); attachErr != nil {
				w.logger.Warn("Could not attach worker task %s to job %s: %v", resp.TaskID, claimed.ID, attachErr)
			}
		}
		w.logger.Info("Dispatched job %s (%s for document %s) as task %s", claimed.ID, claimed.Stage, claimed.DocumentID, resp.TaskID)
		ok = true
		return nil
	})

	var panicErr *WorkerPanicError
	if errors.As(err, &panicErr) {
		if _, _, failErr := w.controller.FailJob(ctx, job.ID, panicErr.Error()); failErr != nil {
			w.logger.Error("Failed to record panic for job %s: %v", job.ID, failErr)
		}
	}
	return ok, err
}
