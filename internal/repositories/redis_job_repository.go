package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"rag-console/internal/models"
)

const (
	// Redis key prefixes for jobs
	jobKeyPrefix      = "job:"
	jobIndexKey       = "jobs:index"
	jobStatusPrefix   = "job:status:"
	jobDocumentPrefix = "job:document:"
	jobTaskPrefix     = "job:task:"
	jobActivePrefix   = "job:active:"

	// optimistic transactions give up after this many WATCH conflicts
	maxTxRetries = 10
)

// RedisJobRepository implements JobRepository using Redis
type RedisJobRepository struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisJobRepository creates a new Redis-based job repository
func NewRedisJobRepository(client *redis.Client) *RedisJobRepository {
	return &RedisJobRepository{
		client: client,
		now:    time.Now,
	}
}

// activeSlotKey holds the ID of the single non-terminal job for (document, stage)
func activeSlotKey(documentID string, stage models.Stage) string {
	return jobActivePrefix + documentID + ":" + string(stage)
}

// Enqueue creates a PENDING job unless a non-terminal job already holds the
// (document, stage) slot
func (r *RedisJobRepository) Enqueue(ctx context.Context, req *models.EnqueueRequest) (*models.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := r.now()
	job := &models.Job{
		ID:          uuid.New().String(),
		DocumentID:  req.DocumentID,
		Stage:       req.Stage,
		Status:      models.JobStatusPending,
		Priority:    req.Priority,
		Metadata:    req.Metadata,
		ScheduledAt: req.ScheduledAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	job.TaskID = job.ID
	if job.ScheduledAt.IsZero() {
		job.ScheduledAt = now
	}

	jobJSON, err := json.Marshal(job)
	if err != nil {
		return nil, storageError("enqueue", job.ID, err)
	}

	slotKey := activeSlotKey(job.DocumentID, job.Stage)
	txf := func(tx *redis.Tx) error {
		ownerID, err := tx.Get(ctx, slotKey).Result()
		if err != nil && err != redis.Nil {
			return storageError("enqueue", job.ID, err)
		}
		if ownerID != "" {
			owner, err := r.loadJob(ctx, tx, ownerID)
			var notFound *models.NotFoundError
			switch {
			case errors.As(err, &notFound):
				// slot left behind by a cleaned-up job
			case err != nil:
				return err
			case !owner.Status.IsTerminal():
				return &models.ConflictError{DocumentID: job.DocumentID, Stage: job.Stage, ExistingJobID: owner.ID}
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, jobKeyPrefix+job.ID, jobJSON, 0)
			pipe.SAdd(ctx, jobIndexKey, job.ID)
			pipe.SAdd(ctx, jobStatusPrefix+string(job.Status), job.ID)
			pipe.SAdd(ctx, jobDocumentPrefix+job.DocumentID, job.ID)
			pipe.Set(ctx, jobTaskPrefix+job.TaskID, job.ID, 0)
			pipe.Set(ctx, slotKey, job.ID, 0)
			return nil
		})
		return err
	}

	if err := r.watch(ctx, "enqueue", txf, slotKey); err != nil {
		return nil, err
	}
	return job, nil
}

// GetJob retrieves a job by ID
func (r *RedisJobRepository) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	return r.loadJob(ctx, r.client, jobID)
}

// FindByTaskID resolves a worker task identifier, falling back to the job ID
func (r *RedisJobRepository) FindByTaskID(ctx context.Context, taskID string) (*models.Job, error) {
	jobID, err := r.client.Get(ctx, jobTaskPrefix+taskID).Result()
	if err == redis.Nil {
		return r.GetJob(ctx, taskID)
	}
	if err != nil {
		return nil, storageError("find_by_task", taskID, err)
	}
	return r.GetJob(ctx, jobID)
}

// AttachTask records the external worker's task identifier for a job
func (r *RedisJobRepository) AttachTask(ctx context.Context, jobID string, taskID string) (*models.Job, error) {
	if taskID == "" {
		return nil, &models.ValidationError{Field: "task_id", Message: "task ID is required"}
	}
	job, _, err := r.mutate(ctx, "attach_task", jobID, func(job *models.Job, _ time.Time) (bool, error) {
		if job.TaskID == taskID {
			return false, nil
		}
		job.TaskID = taskID
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if err := r.client.Set(ctx, jobTaskPrefix+taskID, job.ID, 0).Err(); err != nil {
		return nil, storageError("attach_task", jobID, err)
	}
	return job, nil
}

// DequeueCandidates returns PENDING jobs in queue order without claiming them
func (r *RedisJobRepository) DequeueCandidates(ctx context.Context, filter *CandidateFilter) ([]*models.Job, error) {
	jobs, err := r.JobsByStatus(ctx, models.JobStatusPending)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		return jobs, nil
	}

	candidates := make([]*models.Job, 0, len(jobs))
	for _, job := range jobs {
		if filter.DocumentID != "" && job.DocumentID != filter.DocumentID {
			continue
		}
		if filter.Stage != "" && job.Stage != filter.Stage {
			continue
		}
		if filter.ReadyBefore != nil && job.ScheduledAt.After(*filter.ReadyBefore) {
			continue
		}
		candidates = append(candidates, job)
		if filter.Limit > 0 && len(candidates) == filter.Limit {
			break
		}
	}
	return candidates, nil
}

// MarkProcessing moves a PENDING job to PROCESSING
func (r *RedisJobRepository) MarkProcessing(ctx context.Context, jobID string) (*models.Job, error) {
	job, _, err := r.mutate(ctx, "mark_processing", jobID, func(job *models.Job, now time.Time) (bool, error) {
		if job.Status != models.JobStatusPending {
			return false, &models.InvalidTransitionError{JobID: job.ID, From: job.Status, To: models.JobStatusProcessing}
		}
		job.Status = models.JobStatusProcessing
		job.StartedAt = &now
		return true, nil
	})
	return job, err
}

// MarkFinished moves a job to FINISHED. Repeating it is a no-op.
func (r *RedisJobRepository) MarkFinished(ctx context.Context, jobID string) (*models.Job, bool, error) {
	return r.finish(ctx, "mark_finished", jobID, models.JobStatusFinished, func(job *models.Job) {
		job.Progress = 100
		job.Error = ""
	})
}

// MarkFailed moves a job to FAILED with an error message. Repeating it is a no-op.
func (r *RedisJobRepository) MarkFailed(ctx context.Context, jobID string, errText string) (*models.Job, bool, error) {
	return r.finish(ctx, "mark_failed", jobID, models.JobStatusFailed, func(job *models.Job) {
		job.Error = errText
	})
}

// Cancel fails a non-terminal job and flags it as cancelled. Terminal jobs are left alone.
func (r *RedisJobRepository) Cancel(ctx context.Context, jobID string, reason string) (*models.Job, bool, error) {
	return r.mutate(ctx, "cancel", jobID, func(job *models.Job, now time.Time) (bool, error) {
		if job.Status.IsTerminal() {
			return false, nil
		}
		if job.Metadata == nil {
			job.Metadata = make(map[string]interface{})
		}
		job.Metadata[models.MetadataCancelled] = true
		job.Error = "cancelled: " + reason
		job.Status = models.JobStatusFailed
		job.CompletedAt = &now
		return true, nil
	})
}

// UpdateProgress records worker progress; late updates on terminal jobs are dropped
func (r *RedisJobRepository) UpdateProgress(ctx context.Context, jobID string, percentage int, step string) (*models.Job, error) {
	if percentage < 0 || percentage > 100 {
		return nil, &models.ValidationError{Field: "progress", Message: "progress must be between 0 and 100"}
	}
	job, _, err := r.mutate(ctx, "update_progress", jobID, func(job *models.Job, _ time.Time) (bool, error) {
		if job.Status.IsTerminal() {
			return false, nil
		}
		if job.Progress == percentage && (step == "" || job.CurrentStep == step) {
			return false, nil
		}
		job.Progress = percentage
		if step != "" {
			job.CurrentStep = step
		}
		return true, nil
	})
	return job, err
}

// JobsByStatus returns every job in a status, in queue order
func (r *RedisJobRepository) JobsByStatus(ctx context.Context, status models.JobStatus) ([]*models.Job, error) {
	if !status.IsValid() {
		return nil, &models.ValidationError{Field: "status", Message: "invalid job status: " + string(status)}
	}
	jobIDs, err := r.client.SMembers(ctx, jobStatusPrefix+string(status)).Result()
	if err != nil {
		return nil, storageError("jobs_by_status", "", err)
	}

	jobs, err := r.getBatch(ctx, jobIDs)
	if err != nil {
		return nil, err
	}
	// a record rewritten between SMEMBERS and GET may have moved on
	filtered := jobs[:0]
	for _, job := range jobs {
		if job.Status == status {
			filtered = append(filtered, job)
		}
	}
	SortByQueueOrder(filtered)
	return filtered, nil
}

// ActiveJobs returns the non-terminal jobs of a document
func (r *RedisJobRepository) ActiveJobs(ctx context.Context, documentID string) ([]*models.Job, error) {
	jobIDs, err := r.client.SMembers(ctx, jobDocumentPrefix+documentID).Result()
	if err != nil {
		return nil, storageError("active_jobs", documentID, err)
	}
	jobs, err := r.getBatch(ctx, jobIDs)
	if err != nil {
		return nil, err
	}

	active := make([]*models.Job, 0, len(jobs))
	for _, job := range jobs {
		if !job.Status.IsTerminal() {
			active = append(active, job)
		}
	}
	SortByQueueOrder(active)
	return active, nil
}

// ListJobs retrieves jobs based on filter criteria
func (r *RedisJobRepository) ListJobs(ctx context.Context, filter *JobFilter) ([]*models.Job, error) {
	var jobIDs []string
	var err error

	switch {
	case filter != nil && len(filter.Statuses) > 0:
		for _, status := range filter.Statuses {
			ids, err := r.client.SMembers(ctx, jobStatusPrefix+string(status)).Result()
			if err != nil {
				return nil, storageError("list_jobs", "", err)
			}
			jobIDs = append(jobIDs, ids...)
		}
	case filter != nil && filter.DocumentID != "":
		jobIDs, err = r.client.SMembers(ctx, jobDocumentPrefix+filter.DocumentID).Result()
	default:
		jobIDs, err = r.client.SMembers(ctx, jobIndexKey).Result()
	}
	if err != nil {
		return nil, storageError("list_jobs", "", err)
	}

	jobs, err := r.getBatch(ctx, dedupe(jobIDs))
	if err != nil {
		return nil, err
	}

	if filter != nil {
		jobs = r.applyFilters(jobs, filter)
	}
	SortByQueueOrder(jobs)

	if filter != nil && filter.Limit > 0 {
		offset := filter.Offset
		if offset < 0 {
			offset = 0
		}
		if offset >= len(jobs) {
			return []*models.Job{}, nil
		}
		end := offset + filter.Limit
		if end > len(jobs) {
			end = len(jobs)
		}
		jobs = jobs[offset:end]
	}

	return jobs, nil
}

// Stats returns statistics about jobs
func (r *RedisJobRepository) Stats(ctx context.Context) (*models.JobStats, error) {
	allJobs, err := r.ListJobs(ctx, nil)
	if err != nil {
		return nil, err
	}

	stats := &models.JobStats{
		TotalJobs:    len(allJobs),
		JobsByStatus: make(map[models.JobStatus]int),
		JobsByStage:  make(map[models.Stage]int),
	}

	var totalDuration time.Duration
	successCount := 0
	terminalCount := 0

	for _, job := range allJobs {
		stats.JobsByStatus[job.Status]++
		stats.JobsByStage[job.Stage]++

		if job.Status.IsTerminal() {
			terminalCount++
		}
		if job.Status == models.JobStatusFinished {
			successCount++
			totalDuration += job.Duration()
		}
	}

	if successCount > 0 {
		stats.AverageTime = totalDuration / time.Duration(successCount)
	}
	if terminalCount > 0 {
		stats.SuccessRate = float64(successCount) / float64(terminalCount)
	}

	return stats, nil
}

// CleanupTerminalJobs removes FINISHED and FAILED jobs completed before now-olderThan
func (r *RedisJobRepository) CleanupTerminalJobs(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := r.now().Add(-olderThan)
	count := 0

	for _, status := range []models.JobStatus{models.JobStatusFinished, models.JobStatusFailed} {
		jobs, err := r.JobsByStatus(ctx, status)
		if err != nil {
			return count, err
		}
		for _, job := range jobs {
			if job.CompletedAt == nil || !job.CompletedAt.Before(cutoff) {
				continue
			}
			if err := r.deleteJob(ctx, job); err != nil {
				return count, err
			}
			count++
		}
	}

	return count, nil
}

// Ping checks if Redis connection is alive
func (r *RedisJobRepository) Ping(ctx context.Context) error {
	return storageError("ping", "", r.client.Ping(ctx).Err())
}

// Close closes the Redis connection
func (r *RedisJobRepository) Close() error {
	return r.client.Close()
}

// Helper methods

// finish applies a terminal transition. PENDING and PROCESSING jobs move to
// target, jobs already in target are left unchanged, the other terminal
// status is rejected.
func (r *RedisJobRepository) finish(ctx context.Context, op, jobID string, target models.JobStatus, update func(*models.Job)) (*models.Job, bool, error) {
	return r.mutate(ctx, op, jobID, func(job *models.Job, now time.Time) (bool, error) {
		switch job.Status {
		case target:
			return false, nil
		case models.JobStatusPending, models.JobStatusProcessing:
			job.Status = target
			if job.StartedAt == nil {
				job.StartedAt = &now
			}
			job.CompletedAt = &now
			update(job)
			return true, nil
		default:
			return false, &models.InvalidTransitionError{JobID: job.ID, From: job.Status, To: target}
		}
	})
}

// mutate loads a job under WATCH, applies fn and writes it back together with
// the status index and the active slot when fn reports a change
func (r *RedisJobRepository) mutate(ctx context.Context, op, jobID string, fn func(job *models.Job, now time.Time) (bool, error)) (*models.Job, bool, error) {
	jobKey := jobKeyPrefix + jobID
	var result *models.Job
	var changed bool

	txf := func(tx *redis.Tx) error {
		result, changed = nil, false

		job, err := r.loadJob(ctx, tx, jobID)
		if err != nil {
			return err
		}
		oldStatus := job.Status
		now := r.now()

		changed, err = fn(job, now)
		if err != nil {
			return err
		}
		result = job
		if !changed {
			return nil
		}
		job.UpdatedAt = now

		if err := job.Validate(); err != nil {
			return err
		}
		jobJSON, err := json.Marshal(job)
		if err != nil {
			return storageError(op, jobID, err)
		}

		slotKey := activeSlotKey(job.DocumentID, job.Stage)
		releaseSlot := false
		if job.Status.IsTerminal() {
			ownerID, err := tx.Get(ctx, slotKey).Result()
			if err != nil && err != redis.Nil {
				return storageError(op, jobID, err)
			}
			releaseSlot = ownerID == job.ID
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, jobKey, jobJSON, 0)
			if oldStatus != job.Status {
				pipe.SRem(ctx, jobStatusPrefix+string(oldStatus), jobID)
				pipe.SAdd(ctx, jobStatusPrefix+string(job.Status), jobID)
			}
			if releaseSlot {
				pipe.Del(ctx, slotKey)
			}
			return nil
		})
		return err
	}

	if err := r.watch(ctx, op, txf, jobKey); err != nil {
		return nil, false, err
	}
	return result, changed, nil
}

// watch runs txf in an optimistic transaction, retrying when a watched key changed
func (r *RedisJobRepository) watch(ctx context.Context, op string, txf func(*redis.Tx) error, keys ...string) error {
	var err error
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err = r.client.Watch(ctx, txf, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err == nil {
		return nil
	}
	if isDomainError(err) {
		return err
	}
	var transient *models.TransientStorageError
	if errors.As(err, &transient) {
		return err
	}
	return storageError(op, "", err)
}

// getter is satisfied by both *redis.Client and *redis.Tx
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// loadJob reads a job through the client or inside a transaction
func (r *RedisJobRepository) loadJob(ctx context.Context, cmd getter, jobID string) (*models.Job, error) {
	jobJSON, err := cmd.Get(ctx, jobKeyPrefix+jobID).Result()
	if err == redis.Nil {
		return nil, models.JobNotFound(jobID)
	}
	if err != nil {
		return nil, storageError("get_job", jobID, err)
	}

	var job models.Job
	if err := json.Unmarshal([]byte(jobJSON), &job); err != nil {
		return nil, storageError("get_job", jobID, err)
	}
	return &job, nil
}

// deleteJob removes a job and every index entry pointing at it
func (r *RedisJobRepository) deleteJob(ctx context.Context, job *models.Job) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, jobKeyPrefix+job.ID)
	pipe.SRem(ctx, jobIndexKey, job.ID)
	pipe.SRem(ctx, jobStatusPrefix+string(job.Status), job.ID)
	pipe.SRem(ctx, jobDocumentPrefix+job.DocumentID, job.ID)
	pipe.Del(ctx, jobTaskPrefix+job.TaskID)
	if job.TaskID != job.ID {
		pipe.Del(ctx, jobTaskPrefix+job.ID)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return storageError("delete_job", job.ID, err)
	}
	return nil
}

// getBatch retrieves multiple jobs by IDs
func (r *RedisJobRepository) getBatch(ctx context.Context, jobIDs []string) ([]*models.Job, error) {
	if len(jobIDs) == 0 {
		return []*models.Job{}, nil
	}

	// Use pipeline for batch get
	pipe := r.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(jobIDs))
	for i, id := range jobIDs {
		cmds[i] = pipe.Get(ctx, jobKeyPrefix+id)
	}

	_, err := pipe.Exec(ctx)
	if err != nil && err != redis.Nil {
		return nil, storageError("get_batch", "", err)
	}

	jobs := make([]*models.Job, 0, len(jobIDs))
	for i, cmd := range cmds {
		jobJSON, err := cmd.Result()
		if err == redis.Nil {
			// Skip missing jobs
			continue
		}
		if err != nil {
			return nil, storageError("get_batch", jobIDs[i], err)
		}

		var job models.Job
		if err := json.Unmarshal([]byte(jobJSON), &job); err != nil {
			return nil, storageError("get_batch", jobIDs[i], err)
		}
		jobs = append(jobs, &job)
	}

	return jobs, nil
}

// applyFilters applies additional filters to jobs
func (r *RedisJobRepository) applyFilters(jobs []*models.Job, filter *JobFilter) []*models.Job {
	filtered := make([]*models.Job, 0, len(jobs))

	for _, job := range jobs {
		if len(filter.Statuses) > 0 {
			matched := false
			for _, s := range filter.Statuses {
				if job.Status == s {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}

		if filter.DocumentID != "" && job.DocumentID != filter.DocumentID {
			continue
		}
		if filter.Stage != "" && job.Stage != filter.Stage {
			continue
		}
		if filter.CreatedAfter != nil && job.CreatedAt.Before(*filter.CreatedAfter) {
			continue
		}
		if filter.CreatedBefore != nil && job.CreatedAt.After(*filter.CreatedBefore) {
			continue
		}

		filtered = append(filtered, job)
	}

	return filtered
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// isDomainError reports whether err is a caller-facing error rather than a storage failure
func isDomainError(err error) bool {
	var (
		validation *models.ValidationError
		conflict   *models.ConflictError
		notFound   *models.NotFoundError
		transition *models.InvalidTransitionError
	)
	return errors.As(err, &validation) ||
		errors.As(err, &conflict) ||
		errors.As(err, &notFound) ||
		errors.As(err, &transition)
}
