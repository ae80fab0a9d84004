package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rag-console/internal/models"
	"rag-console/internal/services"
)

type continuation struct {
	documentID string
	completed  models.Stage
}

// ChainWorker runs chain continuations off the webhook request path
type ChainWorker struct {
	*BaseWorker
	controller *services.PipelineController
	queue      chan continuation
	logger     Logger
}

// ChainWorkerConfig holds configuration for the chain worker
type ChainWorkerConfig struct {
	WorkerConfig WorkerConfig
	Controller   *services.PipelineController
	// QueueSize bounds pending continuations; Schedule refuses when full
	QueueSize int
	Logger    Logger
}

// NewChainWorker creates a new chain worker
func NewChainWorker(cfg ChainWorkerConfig) *ChainWorker {
	size := cfg.QueueSize
	if size <= 0 {
		size = 256
	}
	return &ChainWorker{
		BaseWorker: NewBaseWorker(cfg.WorkerConfig),
		controller: cfg.Controller,
		queue:      make(chan continuation, size),
		logger:     cfg.Logger,
	}
}

// Schedule queues a continuation. It never blocks; false means the worker is
// stopped or saturated and the startup recovery pass will pick the chain up.
func (w *ChainWorker) Schedule(documentID string, completed models.Stage) bool {
	if !w.IsRunning() {
		return false
	}
	select {
	case w.queue <- continuation{documentID: documentID, completed: completed}:
		return true
	default:
		w.logger.Warn("Chain queue full, dropping continuation for %s after %s", documentID, completed)
		return false
	}
}

// Pending returns how many continuations are waiting
func (w *ChainWorker) Pending() int {
	return len(w.queue)
}

// Start begins the continuation goroutines
func (w *ChainWorker) Start(ctx context.Context) error {
	loopCtx, err := w.begin(ctx)
	if err != nil {
		return err
	}
	w.logger.Info("Starting chain worker: %s (concurrency %d)", w.Name(), w.config.Concurrency)

	for i := 0; i < w.config.Concurrency; i++ {
		id := i
		w.spawn(loopCtx, func(ctx context.Context) { w.run(ctx, id) })
	}
	return nil
}

// Stop gracefully stops the worker. Queued continuations are left for recovery.
func (w *ChainWorker) Stop(ctx context.Context) error {
	w.logger.Info("Stopping chain worker: %s (%d pending)", w.Name(), w.Pending())
	return w.halt(ctx)
}

func (w *ChainWorker) run(ctx context.Context, id int) {
	name := fmt.Sprintf("%s-goroutine-%d", w.Name(), id)
	w.logger.Debug("Chain goroutine started: %s", name)

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("Chain goroutine stopping: %s", name)
			return
		case next := <-w.queue:
			w.continueChain(ctx, next)
		}
	}
}

func (w *ChainWorker) continueChain(ctx context.Context, next continuation) {
	start := time.Now()
	var result *services.ExecutionResult
	err := w.guard(func() error {
		var err error
		result, err = w.controller.ContinueChain(ctx, next.documentID, next.completed)
		return err
	})

	var precondition *models.PreconditionError
	switch {
	case errors.As(err, &precondition):
		// the controller already stopped the chain
		w.logger.Warn("Chain for document %s stopped after %s: %s", next.documentID, next.completed, precondition.Reason)
		w.recordJobSuccess(start)
	case err != nil:
		w.logger.Error("Chain continuation for document %s after %s failed: %v", next.documentID, next.completed, err)
		w.recordJobFailure(start)
	default:
		if result.Job != nil {
			w.logger.Info("Chain for document %s queued %s (job %s)", next.documentID, result.Job.Stage, result.Job.ID)
		}
		w.recordJobSuccess(start)
	}
}
