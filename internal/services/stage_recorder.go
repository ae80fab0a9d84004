package services

import (
	"context"
	"errors"

	"rag-console/internal/models"
)

// stageOutcome reports what a job lifecycle update did to the document
type stageOutcome struct {
	Job      *models.Job
	Document *models.Document
	// Applied is false for duplicates and updates that no longer apply
	Applied bool
	Reason  string
}

// The record* methods apply job lifecycle changes to the job, the document
// and the execution history. Callers hold the document lock.

func (c *PipelineController) recordStarted(ctx context.Context, job *models.Job, percentage int, step string) (*stageOutcome, error) {
	if job.Status.IsTerminal() {
		return &stageOutcome{Job: job, Reason: "job already " + string(job.Status)}, nil
	}

	if job.Status == models.JobStatusPending {
		claimed, err := c.jobs.MarkProcessing(ctx, job.ID)
		var transition *models.InvalidTransitionError
		switch {
		case errors.As(err, &transition):
			// a webhook racing the dispatcher; ClaimJob surfaces this instead
			if claimed, err = c.jobs.GetJob(ctx, job.ID); err != nil {
				return nil, err
			}
			if claimed.Status.IsTerminal() {
				return &stageOutcome{Job: claimed, Reason: "job already " + string(claimed.Status)}, nil
			}
		case err != nil:
			return nil, err
		}
		job = claimed
	}

	if percentage > 0 || step != "" {
		updated, err := c.jobs.UpdateProgress(ctx, job.ID, percentage, step)
		if err != nil {
			return nil, err
		}
		job = updated
	}

	doc, err := c.documents.Get(ctx, job.DocumentID)
	if err != nil {
		return nil, err
	}

	st := doc.Stage(job.Stage)
	started := st.Status != models.StageStatusRunning || st.JobID != job.ID
	if started {
		st.Status = models.StageStatusRunning
		st.JobID = job.ID
		st.StartedAt = job.StartedAt
		st.CompletedAt = nil
		st.Error = ""
		doc.LastStageError = ""
		doc.NextStageScheduledAt = nil
		doc.RefreshAggregateStatus()
		doc.RefreshCurrentStage()
		if err := c.documents.Save(ctx, doc); err != nil {
			return nil, err
		}

		exec := &models.StageExecution{
			DocumentID: doc.ID,
			JobID:      job.ID,
			Stage:      job.Stage,
			Status:     models.StageStatusRunning,
			InputRef:   doc.StageInputRef(job.Stage),
		}
		if job.StartedAt != nil {
			exec.StartedAt = *job.StartedAt
		}
		if err := c.executions.Open(ctx, exec); err != nil {
			return nil, err
		}
		c.publish(ctx, PipelineEvent{Type: EventStageStarted, DocumentID: doc.ID, Stage: job.Stage, JobID: job.ID, Status: models.StageStatusRunning, Progress: job.Progress})
	} else {
		c.publish(ctx, PipelineEvent{Type: EventStageProgress, DocumentID: doc.ID, Stage: job.Stage, JobID: job.ID, Status: models.StageStatusRunning, Progress: job.Progress, Message: job.CurrentStep})
	}

	return &stageOutcome{Job: job, Document: doc, Applied: true}, nil
}

func (c *PipelineController) recordCompleted(ctx context.Context, job *models.Job, result *models.WebhookResult) (*stageOutcome, error) {
	finished, changed, err := c.jobs.MarkFinished(ctx, job.ID)
	var transition *models.InvalidTransitionError
	if errors.As(err, &transition) {
		return &stageOutcome{Job: job, Reason: "job already " + string(transition.From)}, nil
	}
	if err != nil {
		return nil, err
	}

	doc, err := c.documents.Get(ctx, finished.DocumentID)
	if err != nil {
		return nil, err
	}

	st := doc.Stage(finished.Stage)
	if !changed {
		if st.JobID != finished.ID || st.Status == models.StageStatusCompleted {
			c.closeExecution(ctx, finished, models.StageStatusCompleted)
			return &stageOutcome{Job: finished, Document: doc, Reason: "duplicate completion"}, nil
		}
		// an earlier delivery finished the job but the document write failed
		c.logger.Printf("Repairing document %s for finished job %s", doc.ID, finished.ID)
	}

	doc.ApplyStageOutput(finished.Stage, result)
	st.Status = models.StageStatusCompleted
	st.JobID = finished.ID
	st.Error = ""
	if st.StartedAt == nil {
		st.StartedAt = finished.StartedAt
	}
	st.CompletedAt = finished.CompletedAt
	if finished.Stage == models.LastStage() {
		doc.ChainActive = false
		doc.ChainFrom = ""
	}
	doc.NextStageScheduledAt = nil
	doc.RefreshAggregateStatus()
	doc.RefreshCurrentStage()

	if err := c.documents.Save(ctx, doc); err != nil {
		return nil, err
	}
	if err := c.finishExecution(ctx, finished, models.StageStatusCompleted); err != nil {
		return nil, err
	}

	c.publish(ctx, PipelineEvent{Type: EventStageCompleted, DocumentID: doc.ID, Stage: finished.Stage, JobID: finished.ID, Status: models.StageStatusCompleted, Progress: 100})
	c.logger.Printf("Stage %s completed for document %s (job %s)", finished.Stage, doc.ID, finished.ID)
	return &stageOutcome{Job: finished, Document: doc, Applied: true}, nil
}

func (c *PipelineController) recordFailed(ctx context.Context, job *models.Job, message string) (*stageOutcome, error) {
	failed, changed, err := c.jobs.MarkFailed(ctx, job.ID, message)
	var transition *models.InvalidTransitionError
	if errors.As(err, &transition) {
		return &stageOutcome{Job: job, Reason: "job already " + string(transition.From)}, nil
	}
	if err != nil {
		return nil, err
	}

	doc, err := c.documents.Get(ctx, failed.DocumentID)
	if err != nil {
		return nil, err
	}

	st := doc.Stage(failed.Stage)
	if !changed {
		if st.JobID != failed.ID || st.Status == models.StageStatusFailed {
			c.closeExecution(ctx, failed, models.StageStatusFailed)
			return &stageOutcome{Job: failed, Document: doc, Reason: "duplicate failure"}, nil
		}
		c.logger.Printf("Repairing document %s for failed job %s", doc.ID, failed.ID)
	}

	st.Status = models.StageStatusFailed
	st.JobID = failed.ID
	st.Error = failed.Error
	if st.StartedAt == nil {
		st.StartedAt = failed.StartedAt
	}
	st.CompletedAt = failed.CompletedAt
	doc.LastStageError = failed.Error
	doc.ChainActive = false
	doc.ChainFrom = ""
	doc.NextStageScheduledAt = nil
	doc.RefreshAggregateStatus()
	doc.RefreshCurrentStage()

	if err := c.documents.Save(ctx, doc); err != nil {
		return nil, err
	}
	if err := c.finishExecution(ctx, failed, models.StageStatusFailed); err != nil {
		return nil, err
	}

	c.publish(ctx, PipelineEvent{Type: EventStageFailed, DocumentID: doc.ID, Stage: failed.Stage, JobID: failed.ID, Status: models.StageStatusFailed, Message: failed.Error})
	c.logger.Printf("Stage %s failed for document %s (job %s): %s", failed.Stage, doc.ID, failed.ID, failed.Error)
	return &stageOutcome{Job: failed, Document: doc, Applied: true}, nil
}

func (c *PipelineController) finishExecution(ctx context.Context, job *models.Job, status models.StageStatus) error {
	exec := &models.StageExecution{
		DocumentID: job.DocumentID,
		JobID:      job.ID,
		Stage:      job.Stage,
		Status:     status,
		EndedAt:    job.CompletedAt,
		Error:      job.Error,
	}
	if job.StartedAt != nil {
		exec.StartedAt = *job.StartedAt
	}
	if status == models.StageStatusCompleted {
		exec.OutputRef = models.StageOutputRef(job.Stage)
	}
	_, err := c.executions.Finish(ctx, exec)
	return err
}

// closeExecution closes history on a best-effort basis
func (c *PipelineController) closeExecution(ctx context.Context, job *models.Job, status models.StageStatus) {
	if err := c.finishExecution(ctx, job, status); err != nil {
		c.logger.Printf("Failed to close execution for job %s: %v", job.ID, err)
	}
}
