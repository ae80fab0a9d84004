package models

import (
	"strings"
	"time"
)

// Job is a persisted request to run one stage for one document
type Job struct {
	ID          string                 `json:"id"`
	DocumentID  string                 `json:"document_id"`
	Stage       Stage                  `json:"stage"`
	Status      JobStatus              `json:"status"`
	Priority    int                    `json:"priority"` // Higher = runs first
	Progress    int                    `json:"progress"` // 0-100
	CurrentStep string                 `json:"current_step,omitempty"`
	TaskID      string                 `json:"task_id"` // external worker task identifier
	BatchJobID  string                 `json:"batch_job_id,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	ScheduledAt time.Time              `json:"scheduled_at"`
	CreatedAt   time.Time              `json:"created_at"`
	StartedAt   *time.Time             `json:"started_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// JobStatus represents the lifecycle state of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusFinished   JobStatus = "FINISHED"
	JobStatusFailed     JobStatus = "FAILED"
)

// Trigger values recorded in job metadata
const (
	TriggerManual    = "manual"
	TriggerChain     = "chain"
	TriggerAutomatic = "automatic"
	TriggerAPI       = "api"

	MetadataTrigger     = "trigger"
	MetadataRequestedBy = "requested_by"
	MetadataCancelled   = "cancelled"
)

// IsValid checks if job status is valid
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusFinished, JobStatusFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of job status
func (s JobStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the status is a terminal state
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusFinished || s == JobStatusFailed
}

// ParseJobStatus converts a query value to a JobStatus
func ParseJobStatus(raw string) (JobStatus, error) {
	s := JobStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", &ValidationError{Field: "status", Message: "invalid job status: " + raw}
	}
	return s, nil
}

// Validate checks if job is valid
func (j *Job) Validate() error {
	if j.ID == "" {
		return &ValidationError{Field: "id", Message: "job ID is required"}
	}
	if j.DocumentID == "" {
		return &ValidationError{Field: "document_id", Message: "document ID is required"}
	}
	if !j.Stage.IsValid() {
		return &ValidationError{Field: "stage", Message: "invalid stage: " + string(j.Stage)}
	}
	if !j.Status.IsValid() {
		return &ValidationError{Field: "status", Message: "invalid job status: " + string(j.Status)}
	}
	if j.Progress < 0 || j.Progress > 100 {
		return &ValidationError{Field: "progress", Message: "progress must be between 0 and 100"}
	}
	return nil
}

// IsComplete returns true if the job is in a terminal state
func (j *Job) IsComplete() bool {
	return j.Status.IsTerminal()
}

// IsCancelled reports whether the job was failed by a reset rather than a worker
func (j *Job) IsCancelled() bool {
	if j.Metadata == nil {
		return false
	}
	v, _ := j.Metadata[MetadataCancelled].(bool)
	return v
}

// Trigger returns the trigger source recorded in metadata
func (j *Job) Trigger() string {
	if j.Metadata == nil {
		return ""
	}
	v, _ := j.Metadata[MetadataTrigger].(string)
	return v
}

// Duration returns the time taken to complete the job
func (j *Job) Duration() time.Duration {
	if j.StartedAt == nil {
		return 0
	}
	if j.CompletedAt == nil {
		return time.Since(*j.StartedAt)
	}
	return j.CompletedAt.Sub(*j.StartedAt)
}

// JobDTO represents the API view of a job
type JobDTO struct {
	JobID       string                 `json:"job_id"`
	DocumentID  string                 `json:"document_id"`
	Stage       string                 `json:"stage"`
	Status      string                 `json:"status"`
	Priority    int                    `json:"priority"`
	Progress    int                    `json:"progress"`
	CurrentStep string                 `json:"current_step,omitempty"`
	TaskID      string                 `json:"task_id,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	ScheduledAt string                 `json:"scheduled_at"`
	CreatedAt   string                 `json:"created_at"`
	StartedAt   string                 `json:"started_at,omitempty"`
	CompletedAt string                 `json:"completed_at,omitempty"`
	Duration    string                 `json:"duration,omitempty"`
}

// ToDTO converts Job domain model to DTO
func (j *Job) ToDTO() JobDTO {
	dto := JobDTO{
		JobID:       j.ID,
		DocumentID:  j.DocumentID,
		Stage:       string(j.Stage),
		Status:      string(j.Status),
		Priority:    j.Priority,
		Progress:    j.Progress,
		CurrentStep: j.CurrentStep,
		TaskID:      j.TaskID,
		Error:       j.Error,
		Metadata:    j.Metadata,
		ScheduledAt: j.ScheduledAt.Format(time.RFC3339),
		CreatedAt:   j.CreatedAt.Format(time.RFC3339),
	}

	if j.StartedAt != nil {
		dto.StartedAt = j.StartedAt.Format(time.RFC3339)
	}
	if j.CompletedAt != nil {
		dto.CompletedAt = j.CompletedAt.Format(time.RFC3339)
	}

	if duration := j.Duration(); duration > 0 {
		dto.Duration = duration.String()
	}

	return dto
}

// EnqueueRequest describes a job to be created
type EnqueueRequest struct {
	DocumentID  string
	Stage       Stage
	Priority    int
	ScheduledAt time.Time
	Metadata    map[string]interface{}
}

// Validate checks the request fields
func (r *EnqueueRequest) Validate() error {
	if r.DocumentID == "" {
		return &ValidationError{Field: "document_id", Message: "document ID is required"}
	}
	if r.Stage == "" {
		return &ValidationError{Field: "stage", Message: "stage is required"}
	}
	if !r.Stage.IsValid() {
		return &ValidationError{Field: "stage", Message: "unknown stage: " + string(r.Stage)}
	}
	return nil
}

// JobStats represents statistics about jobs
type JobStats struct {
	TotalJobs    int               `json:"total_jobs"`
	JobsByStatus map[JobStatus]int `json:"jobs_by_status"`
	JobsByStage  map[Stage]int     `json:"jobs_by_stage"`
	AverageTime  time.Duration     `json:"average_time"`
	SuccessRate  float64           `json:"success_rate"`
}

// JobStatsDTO represents the API view of job statistics
type JobStatsDTO struct {
	TotalJobs    int            `json:"total_jobs"`
	JobsByStatus map[string]int `json:"jobs_by_status"`
	JobsByStage  map[string]int `json:"jobs_by_stage"`
	AverageTime  string         `json:"average_time"`
	SuccessRate  float64        `json:"success_rate"`
}

// ToDTO converts JobStats to DTO
func (js *JobStats) ToDTO() JobStatsDTO {
	statusMap := make(map[string]int)
	for status, count := range js.JobsByStatus {
		statusMap[string(status)] = count
	}

	stageMap := make(map[string]int)
	for stage, count := range js.JobsByStage {
		stageMap[string(stage)] = count
	}

	return JobStatsDTO{
		TotalJobs:    js.TotalJobs,
		JobsByStatus: statusMap,
		JobsByStage:  stageMap,
		AverageTime:  js.AverageTime.String(),
		SuccessRate:  js.SuccessRate,
	}
}
