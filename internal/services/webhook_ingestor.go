package services

import (
	"context"
	"errors"
	"log"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"rag-console/internal/models"
)

// ChainScheduler queues chain continuation outside the webhook request
type ChainScheduler interface {
	// Schedule returns false when the continuation could not be queued
	Schedule(documentID string, completed models.Stage) bool
}

// IngestorConfig configures webhook validation
type IngestorConfig struct {
	// Strict rejects unknown status tokens; otherwise they count as progress
	Strict bool
}

// IngestResult describes what a webhook delivery changed
type IngestResult struct {
	TaskID                string           `json:"task_id"`
	JobID                 string           `json:"job_id,omitempty"`
	DocumentID            string           `json:"document_id,omitempty"`
	Stage                 models.Stage     `json:"stage,omitempty"`
	JobStatus             models.JobStatus `json:"job_status,omitempty"`
	Ignored               bool             `json:"ignored"`
	Duplicate             bool             `json:"duplicate"`
	Reason                string           `json:"reason,omitempty"`
	ContinuationScheduled bool             `json:"continuation_scheduled"`
}

// WebhookIngestor applies worker notifications to jobs and documents
type WebhookIngestor struct {
	controller *PipelineController
	scheduler  ChainScheduler
	schema     *jsonschema.Schema
	logger     *log.Logger
	tracer     trace.Tracer
}

// NewWebhookIngestor compiles the webhook schema and creates the ingestor
func NewWebhookIngestor(controller *PipelineController, scheduler ChainScheduler, logger *log.Logger, cfg IngestorConfig) (*WebhookIngestor, error) {
	schema, err := compileWebhookSchema(cfg.Strict)
	if err != nil {
		return nil, err
	}
	return &WebhookIngestor{
		controller: controller,
		scheduler:  scheduler,
		schema:     schema,
		logger:     logger,
		tracer:     otel.Tracer(tracerName),
	}, nil
}

// Ingest validates and applies one webhook delivery. Unknown tasks and
// duplicates succeed without side effects; storage failures surface as
// TransientStorageError so the worker retries.
func (w *WebhookIngestor) Ingest(ctx context.Context, raw []byte) (result *IngestResult, err error) {
	ctx, span := w.tracer.Start(ctx, "WebhookIngestor.Ingest")
	defer func() { endSpan(span, err) }()

	payload, err := validateWebhook(w.schema, raw)
	if err != nil {
		return nil, err
	}
	event, err := payload.Event()
	if err != nil {
		return nil, err
	}
	env := event.Envelope()
	span.SetAttributes(attribute.String("webhook.task_id", env.TaskID), attribute.String("webhook.status", string(env.RawStatus)))

	result = &IngestResult{TaskID: env.TaskID}

	job, err := w.controller.jobs.FindByTaskID(ctx, env.TaskID)
	var notFound *models.NotFoundError
	if errors.As(err, &notFound) {
		w.logger.Printf("Ignoring webhook for unknown task %s (status %s)", env.TaskID, env.RawStatus)
		result.Ignored = true
		result.Reason = "unknown task"
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	unlock := w.controller.locks.Lock(job.DocumentID)
	defer unlock()

	// reload under the lock
	if job, err = w.controller.jobs.GetJob(ctx, job.ID); err != nil {
		return nil, err
	}
	result.JobID = job.ID
	result.DocumentID = job.DocumentID
	result.Stage = job.Stage
	span.SetAttributes(attribute.String("job.id", job.ID), attribute.String("document.id", job.DocumentID))

	if job.IsCancelled() {
		w.logger.Printf("Ignoring %s webhook for cancelled job %s", env.RawStatus, job.ID)
		result.Ignored = true
		result.Reason = "job cancelled"
		result.JobStatus = job.Status
		return result, nil
	}

	var outcome *stageOutcome
	switch ev := event.(type) {
	case models.StartedEvent:
		outcome, err = w.controller.recordStarted(ctx, job, ev.Percentage, ev.CurrentStep)
	case models.ProgressEvent:
		outcome, err = w.controller.recordStarted(ctx, job, ev.Percentage, ev.CurrentStep)
	case models.CompletedEvent:
		outcome, err = w.controller.recordCompleted(ctx, job, ev.Result)
	case models.FailedEvent:
		outcome, err = w.controller.recordFailed(ctx, job, ev.Message)
	}
	if err != nil {
		return nil, err
	}

	result.JobStatus = outcome.Job.Status
	if !outcome.Applied {
		result.Duplicate = true
		result.Reason = outcome.Reason
		w.logger.Printf("Webhook %s for job %s had no effect: %s", env.RawStatus, job.ID, outcome.Reason)
		return result, nil
	}

	if _, ok := event.(models.CompletedEvent); ok && outcome.Document.ContinuesAutomatically() && job.Stage != models.LastStage() {
		if w.scheduler != nil && w.scheduler.Schedule(job.DocumentID, job.Stage) {
			result.ContinuationScheduled = true
		} else {
			// the startup recovery pass picks this document up again
			w.logger.Printf("Could not schedule continuation for document %s after %s", job.DocumentID, job.Stage)
		}
	}

	return result, nil
}
