package repositories

import (
	"context"
	"sort"
	"time"

	"rag-console/internal/models"
)

// JobRepository is the persisted job queue behind the pipeline.
// At most one non-terminal job exists per (document, stage).
type JobRepository interface {
	// Queue
	Enqueue(ctx context.Context, req *models.EnqueueRequest) (*models.Job, error)
	DequeueCandidates(ctx context.Context, filter *CandidateFilter) ([]*models.Job, error)

	// Transitions
	MarkProcessing(ctx context.Context, jobID string) (*models.Job, error)
	MarkFinished(ctx context.Context, jobID string) (*models.Job, bool, error)
	MarkFailed(ctx context.Context, jobID string, errText string) (*models.Job, bool, error)
	Cancel(ctx context.Context, jobID string, reason string) (*models.Job, bool, error)
	UpdateProgress(ctx context.Context, jobID string, percentage int, step string) (*models.Job, error)
	AttachTask(ctx context.Context, jobID string, taskID string) (*models.Job, error)

	// Queries
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	FindByTaskID(ctx context.Context, taskID string) (*models.Job, error)
	JobsByStatus(ctx context.Context, status models.JobStatus) ([]*models.Job, error)
	ActiveJobs(ctx context.Context, documentID string) ([]*models.Job, error)
	ListJobs(ctx context.Context, filter *JobFilter) ([]*models.Job, error)
	Stats(ctx context.Context) (*models.JobStats, error)

	// Cleanup
	CleanupTerminalJobs(ctx context.Context, olderThan time.Duration) (int, error)

	// Health
	Ping(ctx context.Context) error
	Close() error
}

// CandidateFilter narrows DequeueCandidates
type CandidateFilter struct {
	DocumentID string
	Stage      models.Stage
	// ReadyBefore keeps only jobs scheduled at or before this instant
	ReadyBefore *time.Time
	Limit       int
}

// JobFilter represents filter criteria for job queries
type JobFilter struct {
	Statuses      []models.JobStatus
	DocumentID    string
	Stage         models.Stage
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	Limit         int
	Offset        int
}

// SortByQueueOrder orders jobs by priority descending, then scheduled time,
// creation time and ID ascending
func SortByQueueOrder(jobs []*models.Job) {
	sort.SliceStable(jobs, func(i, j int) bool {
		a, b := jobs[i], jobs[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.ScheduledAt.Equal(b.ScheduledAt) {
			return a.ScheduledAt.Before(b.ScheduledAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// storageError wraps a Redis/SQLite failure so callers can retry
func storageError(operation, id string, err error) error {
	if err == nil {
		return nil
	}
	if id != "" {
		operation += " (" + id + ")"
	}
	return models.NewTransientStorageError(operation, err)
}
