package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"rag-console/internal/models"
	"rag-console/internal/repositories"
)

const tracerName = "rag-console/internal/services"

// ControllerConfig tunes the pipeline controller
type ControllerConfig struct {
	DefaultPriority int
}

// ExecuteOptions describes who asked for a stage run
type ExecuteOptions struct {
	// Priority overrides the configured default when set
	Priority    *int
	RequestedBy string
	Trigger     string
	ScheduledAt time.Time
	// Metadata is copied onto the job; trigger and requester keys win
	Metadata map[string]interface{}
}

// ExecutionResult is returned by operations that may enqueue a job
type ExecutionResult struct {
	// Job is nil when nothing was enqueued
	Job    *models.Job     `json:"-"`
	Status *PipelineStatus `json:"pipeline"`
}

// StageView is the per-stage part of PipelineStatus
type StageView struct {
	Stage           models.Stage       `json:"stage"`
	Name            string             `json:"name"`
	Optional        bool               `json:"optional"`
	RawStatus       models.StageStatus `json:"raw_status"`
	EffectiveStatus models.StageStatus `json:"effective_status"`
	Executable      bool               `json:"executable"`
	Reason          string             `json:"reason,omitempty"`
	JobID           string             `json:"job_id,omitempty"`
	StartedAt       *time.Time         `json:"started_at,omitempty"`
	CompletedAt     *time.Time         `json:"completed_at,omitempty"`
	Error           string             `json:"error,omitempty"`
}

// PipelineStatus is the full pipeline view of one document
type PipelineStatus struct {
	DocumentID           string                 `json:"document_id"`
	Filename             string                 `json:"filename"`
	Status               models.DocumentStatus  `json:"status"`
	ProcessingMode       models.ProcessingMode  `json:"processing_mode"`
	Paused               bool                   `json:"paused"`
	ChainActive          bool                   `json:"chain_active"`
	CurrentStage         models.Stage           `json:"current_stage"`
	CurrentStageStatus   models.StageStatus     `json:"current_stage_status"`
	NextStage            models.Stage           `json:"next_stage,omitempty"`
	NextStageScheduledAt *time.Time             `json:"next_stage_scheduled_at,omitempty"`
	LastStageError       string                 `json:"last_stage_error,omitempty"`
	Stages               []StageView            `json:"stages"`
	ActiveJobs           []models.JobDTO        `json:"active_jobs"`
	Outputs              models.DocumentOutputs `json:"outputs"`
}

// PipelineController decides which stage a document may run and enqueues it.
// Every mutation of a document runs under its DocumentLocker lock.
type PipelineController struct {
	jobs       repositories.JobRepository
	documents  repositories.DocumentRepository
	executions repositories.StageExecutionRepository
	locks      *DocumentLocker
	events     EventBus
	logger     *log.Logger
	tracer     trace.Tracer
	config     ControllerConfig
	now        func() time.Time
}

// NewPipelineController creates a new pipeline controller
func NewPipelineController(
	jobs repositories.JobRepository,
	documents repositories.DocumentRepository,
	executions repositories.StageExecutionRepository,
	locks *DocumentLocker,
	events EventBus,
	logger *log.Logger,
	config ControllerConfig,
) *PipelineController {
	if locks == nil {
		locks = NewDocumentLocker()
	}
	return &PipelineController{
		jobs:       jobs,
		documents:  documents,
		executions: executions,
		locks:      locks,
		events:     events,
		logger:     logger,
		tracer:     otel.Tracer(tracerName),
		config:     config,
		now:        time.Now,
	}
}

// Evaluate explains why a stage cannot run; an empty reason means it can
func (c *PipelineController) Evaluate(ctx context.Context, documentID string, stage models.Stage) (string, error) {
	if !stage.IsValid() {
		return "", &models.ValidationError{Field: "stage", Message: "unknown stage: " + string(stage)}
	}
	doc, err := c.documents.Get(ctx, documentID)
	if err != nil {
		return "", err
	}
	return models.ExecutabilityReason(doc.EffectiveStatuses(), stage), nil
}

// CanExecute reports whether a stage may be enqueued for the document now
func (c *PipelineController) CanExecute(ctx context.Context, documentID string, stage models.Stage) (bool, error) {
	reason, err := c.Evaluate(ctx, documentID, stage)
	if err != nil {
		return false, err
	}
	return reason == "", nil
}

// ExecuteStage enqueues a single stage run
func (c *PipelineController) ExecuteStage(ctx context.Context, documentID string, stage models.Stage, opts ExecuteOptions) (result *ExecutionResult, err error) {
	ctx, span := c.startSpan(ctx, "PipelineController.ExecuteStage", documentID, stage)
	defer func() { endSpan(span, err) }()

	if !stage.IsValid() {
		return nil, &models.ValidationError{Field: "stage", Message: "unknown stage: " + string(stage)}
	}
	if opts.Trigger == "" {
		opts.Trigger = models.TriggerManual
	}

	unlock := c.locks.Lock(documentID)
	defer unlock()

	doc, err := c.documents.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	job, err := c.enqueueLocked(ctx, doc, stage, opts, nil)
	if err != nil {
		return nil, err
	}
	c.logger.Printf("Enqueued %s for document %s (job %s, trigger %s)", stage, documentID, job.ID, opts.Trigger)
	return c.result(ctx, doc, job)
}

// ExecuteChain enqueues fromStage and keeps advancing after each completion
func (c *PipelineController) ExecuteChain(ctx context.Context, documentID string, fromStage models.Stage, opts ExecuteOptions) (result *ExecutionResult, err error) {
	ctx, span := c.startSpan(ctx, "PipelineController.ExecuteChain", documentID, fromStage)
	defer func() { endSpan(span, err) }()

	if !fromStage.IsValid() {
		return nil, &models.ValidationError{Field: "stage", Message: "unknown stage: " + string(fromStage)}
	}
	if opts.Trigger == "" {
		opts.Trigger = models.TriggerChain
	}

	unlock := c.locks.Lock(documentID)
	defer unlock()

	doc, err := c.documents.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	job, err := c.enqueueLocked(ctx, doc, fromStage, opts, startChain(fromStage))
	if err != nil {
		return nil, err
	}
	c.logger.Printf("Started chain from %s for document %s (job %s)", fromStage, documentID, job.ID)
	return c.result(ctx, doc, job)
}

// ContinueChain enqueues the stage after completedStage when the document
// continues automatically. A nil Job in the result means the chain stopped or finished.
func (c *PipelineController) ContinueChain(ctx context.Context, documentID string, completedStage models.Stage) (result *ExecutionResult, err error) {
	ctx, span := c.startSpan(ctx, "PipelineController.ContinueChain", documentID, completedStage)
	defer func() { endSpan(span, err) }()

	unlock := c.locks.Lock(documentID)
	defer unlock()

	doc, err := c.documents.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	job, err := c.continueLocked(ctx, doc, completedStage)
	if err != nil {
		return nil, err
	}
	return c.result(ctx, doc, job)
}

// ResetToStage makes stage and every later stage PENDING again, cancelling their jobs
func (c *PipelineController) ResetToStage(ctx context.Context, documentID string, stage models.Stage) (status *PipelineStatus, err error) {
	ctx, span := c.startSpan(ctx, "PipelineController.ResetToStage", documentID, stage)
	defer func() { endSpan(span, err) }()

	if !stage.IsValid() {
		return nil, &models.ValidationError{Field: "stage", Message: "unknown stage: " + string(stage)}
	}

	unlock := c.locks.Lock(documentID)
	defer unlock()

	doc, err := c.documents.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}

	active, err := c.jobs.ActiveJobs(ctx, documentID)
	if err != nil {
		return nil, err
	}
	for _, job := range active {
		if job.Stage.Index() < stage.Index() {
			continue
		}
		cancelled, changed, err := c.jobs.Cancel(ctx, job.ID, "reset to "+string(stage))
		if err != nil {
			return nil, err
		}
		if changed {
			c.closeExecution(ctx, cancelled, models.StageStatusFailed)
			c.logger.Printf("Cancelled job %s (%s) for document %s", job.ID, job.Stage, documentID)
		}
	}

	for _, s := range models.StagesFrom(stage) {
		doc.Stages[s] = &models.StageState{Status: models.StageStatusPending}
		doc.ClearStageOutput(s)
	}
	doc.LastStageError = ""
	doc.ChainActive = false
	doc.ChainFrom = ""
	doc.NextStageScheduledAt = nil
	doc.RefreshAggregateStatus()
	doc.RefreshCurrentStage()

	if err := c.documents.Save(ctx, doc); err != nil {
		return nil, err
	}
	c.publish(ctx, PipelineEvent{Type: EventStageReset, DocumentID: documentID, Stage: stage, Status: models.StageStatusPending})
	c.logger.Printf("Reset document %s to stage %s", documentID, stage)

	return c.statusOf(ctx, doc)
}

// ToggleProcessingMode switches MANUAL/AUTOMATIC. Switching to AUTOMATIC starts
// a chain from the next executable stage; MANUAL only stops continuation.
func (c *PipelineController) ToggleProcessingMode(ctx context.Context, documentID string, mode models.ProcessingMode) (result *ExecutionResult, err error) {
	ctx, span := c.startSpan(ctx, "PipelineController.ToggleProcessingMode", documentID, "")
	defer func() { endSpan(span, err) }()

	if !mode.IsValid() {
		return nil, &models.ValidationError{Field: "processing_mode", Message: "invalid processing mode: " + string(mode)}
	}

	unlock := c.locks.Lock(documentID)
	defer unlock()

	doc, err := c.documents.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}

	doc.ProcessingMode = mode
	if mode == models.ProcessingModeManual {
		doc.ChainActive = false
		doc.ChainFrom = ""
	}

	var job *models.Job
	if mode == models.ProcessingModeAutomatic {
		if job, err = c.kickLocked(ctx, doc); err != nil {
			return nil, err
		}
	}
	if job == nil {
		if err := c.documents.Save(ctx, doc); err != nil {
			return nil, err
		}
	}

	c.publish(ctx, PipelineEvent{Type: EventModeChanged, DocumentID: documentID, Message: string(mode)})
	c.logger.Printf("Document %s processing mode set to %s", documentID, mode)
	return c.result(ctx, doc, job)
}

// SetPaused suspends or resumes automatic continuation. Resuming a document
// that continues automatically enqueues its next executable stage.
func (c *PipelineController) SetPaused(ctx context.Context, documentID string, paused bool) (result *ExecutionResult, err error) {
	ctx, span := c.startSpan(ctx, "PipelineController.SetPaused", documentID, "")
	defer func() { endSpan(span, err) }()

	unlock := c.locks.Lock(documentID)
	defer unlock()

	doc, err := c.documents.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}

	doc.Paused = paused
	var job *models.Job
	if !paused && doc.ContinuesAutomatically() {
		if job, err = c.kickLocked(ctx, doc); err != nil {
			return nil, err
		}
	}
	if job == nil {
		if err := c.documents.Save(ctx, doc); err != nil {
			return nil, err
		}
	}

	c.publish(ctx, PipelineEvent{Type: EventPauseChanged, DocumentID: documentID, Message: fmt.Sprintf("paused=%t", paused)})
	return c.result(ctx, doc, job)
}

// PipelineStatus returns raw and effective statuses, executability and active jobs
func (c *PipelineController) PipelineStatus(ctx context.Context, documentID string) (*PipelineStatus, error) {
	doc, err := c.documents.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return c.statusOf(ctx, doc)
}

// Executions returns the stage run history of a document
func (c *PipelineController) Executions(ctx context.Context, documentID string) ([]*models.StageExecution, error) {
	if _, err := c.documents.Get(ctx, documentID); err != nil {
		return nil, err
	}
	return c.executions.ListByDocument(ctx, documentID)
}

// RegisterDocument creates the pipeline record for an uploaded document
func (c *PipelineController) RegisterDocument(ctx context.Context, doc *models.Document) (*PipelineStatus, error) {
	if err := c.documents.Register(ctx, doc); err != nil {
		return nil, err
	}
	c.logger.Printf("Registered document %s (%s)", doc.ID, doc.Filename)
	return c.statusOf(ctx, doc)
}

// ClaimJob moves a PENDING job to PROCESSING and marks its stage RUNNING
func (c *PipelineController) ClaimJob(ctx context.Context, jobID string) (*models.Job, error) {
	job, err := c.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	unlock := c.locks.Lock(job.DocumentID)
	defer unlock()

	// the job may have been claimed while we waited for the lock
	claimed, err := c.jobs.MarkProcessing(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	outcome, err := c.recordStarted(ctx, claimed, 0, "")
	if err != nil {
		return nil, err
	}
	return outcome.Job, nil
}

// FailJob records a failure that did not come from a worker webhook
func (c *PipelineController) FailJob(ctx context.Context, jobID, message string) (*models.Job, bool, error) {
	job, err := c.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, false, err
	}

	unlock := c.locks.Lock(job.DocumentID)
	defer unlock()

	outcome, err := c.recordFailed(ctx, job, message)
	if err != nil {
		return nil, false, err
	}
	return outcome.Job, outcome.Applied, nil
}

// RecoverChains resumes documents that should continue automatically but
// have nothing queued, e.g. after a restart lost an in-flight continuation.
// It returns how many documents got a new job.
func (c *PipelineController) RecoverChains(ctx context.Context) (int, error) {
	docs, err := c.documents.List(ctx, &repositories.DocumentFilter{ContinuationOnly: true})
	if err != nil {
		return 0, err
	}

	resumed := 0
	for _, candidate := range docs {
		if candidate.Paused || candidate.Status == models.DocumentStatusFailed || candidate.Status == models.DocumentStatusCompleted {
			continue
		}
		job, err := c.recoverDocument(ctx, candidate.ID)
		if err != nil {
			c.logger.Printf("Chain recovery for document %s failed: %v", candidate.ID, err)
			continue
		}
		if job != nil {
			resumed++
		}
	}
	return resumed, nil
}

func (c *PipelineController) recoverDocument(ctx context.Context, documentID string) (*models.Job, error) {
	unlock := c.locks.Lock(documentID)
	defer unlock()

	doc, err := c.documents.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !doc.ContinuesAutomatically() {
		return nil, nil
	}
	active, err := c.jobs.ActiveJobs(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if len(active) > 0 {
		return nil, nil
	}

	raw := doc.RawStatuses()
	var lastDone models.Stage
	for _, stage := range models.StageOrder() {
		switch raw[stage] {
		case models.StageStatusFailed:
			return nil, nil
		case models.StageStatusCompleted, models.StageStatusSkipped:
			lastDone = stage
		}
	}

	if lastDone == "" {
		return c.kickLocked(ctx, doc)
	}
	job, err := c.continueLocked(ctx, doc, lastDone)
	var precondition *models.PreconditionError
	if errors.As(err, &precondition) {
		return nil, nil
	}
	if job != nil {
		c.logger.Printf("Recovered chain for document %s after %s (job %s)", documentID, lastDone, job.ID)
	}
	return job, err
}

// enqueueLocked checks preconditions, enqueues the job and records it on the
// document. mutate, when set, runs before the document is saved.
func (c *PipelineController) enqueueLocked(ctx context.Context, doc *models.Document, stage models.Stage, opts ExecuteOptions, mutate func(*models.Document)) (*models.Job, error) {
	if reason := models.ExecutabilityReason(doc.EffectiveStatuses(), stage); reason != "" {
		return nil, &models.PreconditionError{DocumentID: doc.ID, Stage: stage, Reason: reason}
	}

	priority := c.config.DefaultPriority
	if opts.Priority != nil {
		priority = *opts.Priority
	}
	metadata := make(map[string]interface{}, len(opts.Metadata)+2)
	for k, v := range opts.Metadata {
		metadata[k] = v
	}
	metadata[models.MetadataTrigger] = opts.Trigger
	if opts.RequestedBy != "" {
		metadata[models.MetadataRequestedBy] = opts.RequestedBy
	}

	job, err := c.jobs.Enqueue(ctx, &models.EnqueueRequest{
		DocumentID:  doc.ID,
		Stage:       stage,
		Priority:    priority,
		ScheduledAt: opts.ScheduledAt,
		Metadata:    metadata,
	})
	if err != nil {
		return nil, err
	}

	st := doc.Stage(stage)
	st.JobID = job.ID
	st.Error = ""
	if mutate != nil {
		mutate(doc)
	}
	if doc.Status == models.DocumentStatusPending || doc.Status == models.DocumentStatusFailed {
		doc.Status = models.DocumentStatusProcessing
	}
	doc.RefreshCurrentStage()
	scheduled := job.ScheduledAt
	doc.NextStage = stage
	doc.NextStageScheduledAt = &scheduled

	if err := c.documents.Save(ctx, doc); err != nil {
		// keep the slot free for a retry
		if _, _, cancelErr := c.jobs.Cancel(ctx, job.ID, "document update failed"); cancelErr != nil {
			c.logger.Printf("Failed to cancel orphaned job %s: %v", job.ID, cancelErr)
		}
		return nil, err
	}

	c.publish(ctx, PipelineEvent{Type: EventJobEnqueued, DocumentID: doc.ID, Stage: stage, JobID: job.ID, Status: models.StageStatusPending})
	return job, nil
}

// continueLocked picks the stage after completed, recording disabled optional
// stages as SKIPPED, and enqueues it
func (c *PipelineController) continueLocked(ctx context.Context, doc *models.Document, completed models.Stage) (*models.Job, error) {
	if !doc.ContinuesAutomatically() {
		c.logger.Printf("Not continuing document %s after %s (mode %s, paused %t, chain %t)",
			doc.ID, completed, doc.ProcessingMode, doc.Paused, doc.ChainActive)
		return nil, nil
	}

	trigger := models.TriggerAutomatic
	if doc.ChainActive {
		trigger = models.TriggerChain
	}

	next, ok := models.NextStage(completed)
	var skipped []models.Stage
	// disabled optional stages are recorded SKIPPED and the chain moves past them
	for ok && models.IsOptional(next) && !doc.OptionalStageEnabled(next) {
		if st := doc.Stage(next); st.Status == models.StageStatusPending {
			now := c.now()
			st.Status = models.StageStatusSkipped
			st.CompletedAt = &now
			skipped = append(skipped, next)
		}
		next, ok = models.NextStage(next)
	}

	if !ok {
		doc.ChainActive = false
		doc.ChainFrom = ""
		doc.NextStageScheduledAt = nil
		doc.RefreshAggregateStatus()
		doc.RefreshCurrentStage()
		if err := c.documents.Save(ctx, doc); err != nil {
			return nil, err
		}
		c.publishSkipped(ctx, doc.ID, skipped)
		c.publish(ctx, PipelineEvent{Type: EventChainFinished, DocumentID: doc.ID, Stage: completed})
		c.logger.Printf("Pipeline finished for document %s", doc.ID)
		return nil, nil
	}

	job, err := c.enqueueLocked(ctx, doc, next, ExecuteOptions{Trigger: trigger, RequestedBy: "pipeline"}, nil)
	var conflict *models.ConflictError
	var precondition *models.PreconditionError
	switch {
	case errors.As(err, &conflict):
		c.logger.Printf("Next stage %s for document %s already queued (job %s)", next, doc.ID, conflict.ExistingJobID)
		if len(skipped) > 0 {
			if err := c.documents.Save(ctx, doc); err != nil {
				return nil, err
			}
		}
		c.publishSkipped(ctx, doc.ID, skipped)
		return nil, nil
	case errors.As(err, &precondition):
		doc.ChainActive = false
		doc.ChainFrom = ""
		if saveErr := c.documents.Save(ctx, doc); saveErr != nil {
			return nil, saveErr
		}
		c.publish(ctx, PipelineEvent{Type: EventChainStopped, DocumentID: doc.ID, Stage: next, Message: precondition.Reason})
		return nil, err
	case err != nil:
		return nil, err
	}

	c.publishSkipped(ctx, doc.ID, skipped)
	c.logger.Printf("Continued document %s with %s (job %s, trigger %s)", doc.ID, next, job.ID, trigger)
	return job, nil
}

// kickLocked starts a chain from the document's next executable stage when nothing is in flight
func (c *PipelineController) kickLocked(ctx context.Context, doc *models.Document) (*models.Job, error) {
	if doc.Paused {
		return nil, nil
	}
	active, err := c.jobs.ActiveJobs(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	if len(active) > 0 {
		return nil, nil
	}

	doc.RefreshCurrentStage()
	next := doc.NextStage
	if next == "" {
		return nil, nil
	}

	job, err := c.enqueueLocked(ctx, doc, next, ExecuteOptions{Trigger: models.TriggerAutomatic, RequestedBy: "pipeline"}, startChain(next))
	var conflict *models.ConflictError
	var precondition *models.PreconditionError
	if errors.As(err, &conflict) || errors.As(err, &precondition) {
		return nil, nil
	}
	return job, err
}

func startChain(from models.Stage) func(*models.Document) {
	return func(doc *models.Document) {
		doc.ChainActive = true
		doc.ChainFrom = from
	}
}

func (c *PipelineController) result(ctx context.Context, doc *models.Document, job *models.Job) (*ExecutionResult, error) {
	status, err := c.statusOf(ctx, doc)
	if err != nil {
		return nil, err
	}
	return &ExecutionResult{Job: job, Status: status}, nil
}

func (c *PipelineController) statusOf(ctx context.Context, doc *models.Document) (*PipelineStatus, error) {
	active, err := c.jobs.ActiveJobs(ctx, doc.ID)
	if err != nil {
		return nil, err
	}

	raw := doc.RawStatuses()
	effective := models.ResolveEffectiveStatuses(raw)
	status := &PipelineStatus{
		DocumentID:           doc.ID,
		Filename:             doc.Filename,
		Status:               doc.Status,
		ProcessingMode:       doc.ProcessingMode,
		Paused:               doc.Paused,
		ChainActive:          doc.ChainActive,
		CurrentStage:         doc.CurrentStage,
		CurrentStageStatus:   doc.CurrentStageStatus,
		NextStage:            doc.NextStage,
		NextStageScheduledAt: doc.NextStageScheduledAt,
		LastStageError:       doc.LastStageError,
		Stages:               make([]StageView, 0, len(raw)),
		ActiveJobs:           make([]models.JobDTO, 0, len(active)),
		Outputs:              doc.Outputs,
	}

	for _, desc := range models.Stages() {
		st := doc.Stage(desc.Stage)
		reason := models.ExecutabilityReason(effective, desc.Stage)
		status.Stages = append(status.Stages, StageView{
			Stage:           desc.Stage,
			Name:            desc.Name,
			Optional:        desc.Optional,
			RawStatus:       raw[desc.Stage],
			EffectiveStatus: effective[desc.Stage],
			Executable:      reason == "",
			Reason:          reason,
			JobID:           st.JobID,
			StartedAt:       st.StartedAt,
			CompletedAt:     st.CompletedAt,
			Error:           st.Error,
		})
	}
	for _, job := range active {
		status.ActiveJobs = append(status.ActiveJobs, job.ToDTO())
	}
	return status, nil
}

func (c *PipelineController) publish(ctx context.Context, event PipelineEvent) {
	if c.events == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = c.now().UTC()
	}
	if err := c.events.Publish(ctx, event); err != nil {
		c.logger.Printf("Failed to publish %s for document %s: %v", event.Type, event.DocumentID, err)
	}
}

func (c *PipelineController) publishSkipped(ctx context.Context, documentID string, stages []models.Stage) {
	for _, stage := range stages {
		c.publish(ctx, PipelineEvent{Type: EventStageSkipped, DocumentID: documentID, Stage: stage, Status: models.StageStatusSkipped})
	}
}

func (c *PipelineController) startSpan(ctx context.Context, name, documentID string, stage models.Stage) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("document.id", documentID)}
	if stage != "" {
		attrs = append(attrs, attribute.String("pipeline.stage", string(stage)))
	}
	return c.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
