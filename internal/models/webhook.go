package models

import (
	"encoding/json"
	"math"
	"strings"
)

// WebhookStatus is the status token reported by external workers
type WebhookStatus string

const (
	WebhookStatusStarted    WebhookStatus = "started"
	WebhookStatusInProgress WebhookStatus = "in_progress"
	WebhookStatusCompleted  WebhookStatus = "completed"
	WebhookStatusFailed     WebhookStatus = "failed"
)

// IsKnown reports whether the token is one of the four documented values
func (s WebhookStatus) IsKnown() bool {
	switch s {
	case WebhookStatusStarted, WebhookStatusInProgress, WebhookStatusCompleted, WebhookStatusFailed:
		return true
	default:
		return false
	}
}

// JobStatus maps the external token onto the internal job status.
// Unknown tokens default to PROCESSING.
func (s WebhookStatus) JobStatus() JobStatus {
	switch s {
	case WebhookStatusCompleted:
		return JobStatusFinished
	case WebhookStatusFailed:
		return JobStatusFailed
	default:
		return JobStatusProcessing
	}
}

// WebhookPayload is the wire format of a worker notification
type WebhookPayload struct {
	TaskID     string           `json:"task_id"`
	Progress   *WebhookProgress `json:"progress,omitempty"`
	Status     WebhookStatus    `json:"status"`
	Result     *WebhookResult   `json:"result,omitempty"`
	Error      string           `json:"error,omitempty"`
	DocumentID string           `json:"document_id,omitempty"`
	BatchJobID string           `json:"batch_job_id,omitempty"`
}

// WebhookProgress reports how far a task has come
type WebhookProgress struct {
	Percentage  float64 `json:"percentage"`
	CurrentStep string  `json:"current_step,omitempty"`
}

// WebhookResult carries stage output on completion
type WebhookResult struct {
	Markdown       string          `json:"markdown,omitempty"`
	Content        string          `json:"content,omitempty"`
	Chunks         json.RawMessage `json:"chunks,omitempty"`
	Facts          json.RawMessage `json:"facts,omitempty"`
	IngestedChunks *int            `json:"ingested_chunks,omitempty"`
}

// Text returns markdown when present, otherwise content
func (r *WebhookResult) Text() string {
	if r == nil {
		return ""
	}
	if strings.TrimSpace(r.Markdown) != "" {
		return r.Markdown
	}
	return r.Content
}

// ChunkCount returns the reported chunk total. Workers send either a number or the chunk list.
func (r *WebhookResult) ChunkCount() (int, bool) {
	if r == nil {
		return 0, false
	}
	return countOf(r.Chunks)
}

// FactCount returns the reported fact total, as a number or a list
func (r *WebhookResult) FactCount() (int, bool) {
	if r == nil {
		return 0, false
	}
	return countOf(r.Facts)
}

func countOf(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		if n < 0 || n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err == nil {
		return len(items), true
	}
	return 0, false
}

// WebhookEvent is one of StartedEvent, ProgressEvent, CompletedEvent or FailedEvent
type WebhookEvent interface {
	Envelope() WebhookEnvelope
	JobStatus() JobStatus
	isWebhookEvent()
}

// WebhookEnvelope holds the fields every event carries
type WebhookEnvelope struct {
	TaskID      string
	Percentage  int
	CurrentStep string
	DocumentID  string
	BatchJobID  string
	RawStatus   WebhookStatus
}

// StartedEvent reports that a worker picked up the task
type StartedEvent struct{ WebhookEnvelope }

// ProgressEvent reports intermediate progress
type ProgressEvent struct{ WebhookEnvelope }

// CompletedEvent reports success with the stage result
type CompletedEvent struct {
	WebhookEnvelope
	Result *WebhookResult
}

// FailedEvent reports a stage failure
type FailedEvent struct {
	WebhookEnvelope
	Message string
}

func (e StartedEvent) Envelope() WebhookEnvelope   { return e.WebhookEnvelope }
func (e ProgressEvent) Envelope() WebhookEnvelope  { return e.WebhookEnvelope }
func (e CompletedEvent) Envelope() WebhookEnvelope { return e.WebhookEnvelope }
func (e FailedEvent) Envelope() WebhookEnvelope    { return e.WebhookEnvelope }

func (StartedEvent) JobStatus() JobStatus   { return JobStatusProcessing }
func (ProgressEvent) JobStatus() JobStatus  { return JobStatusProcessing }
func (CompletedEvent) JobStatus() JobStatus { return JobStatusFinished }
func (FailedEvent) JobStatus() JobStatus    { return JobStatusFailed }

func (StartedEvent) isWebhookEvent()   {}
func (ProgressEvent) isWebhookEvent()  {}
func (CompletedEvent) isWebhookEvent() {}
func (FailedEvent) isWebhookEvent()    {}

// Event converts a validated payload into its typed variant
func (p *WebhookPayload) Event() (WebhookEvent, error) {
	if strings.TrimSpace(p.TaskID) == "" {
		return nil, &ValidationError{Field: "task_id", Message: "task_id is required"}
	}

	env := WebhookEnvelope{
		TaskID:     p.TaskID,
		DocumentID: p.DocumentID,
		BatchJobID: p.BatchJobID,
		RawStatus:  p.Status,
	}
	if p.Progress != nil {
		env.Percentage = clampPercentage(p.Progress.Percentage)
		env.CurrentStep = p.Progress.CurrentStep
	}

	switch p.Status {
	case WebhookStatusStarted:
		return StartedEvent{env}, nil
	case WebhookStatusCompleted:
		env.Percentage = 100
		return CompletedEvent{WebhookEnvelope: env, Result: p.Result}, nil
	case WebhookStatusFailed:
		msg := strings.TrimSpace(p.Error)
		if msg == "" {
			msg = "stage failed without an error message"
		}
		return FailedEvent{WebhookEnvelope: env, Message: msg}, nil
	default:
		return ProgressEvent{env}, nil
	}
}

func clampPercentage(p float64) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return int(p)
	}
}
