package models

import "time"

// StageExecution is an append-only history record of one stage run
type StageExecution struct {
	ID         string      `json:"id"`
	DocumentID string      `json:"document_id"`
	JobID      string      `json:"job_id"`
	Stage      Stage       `json:"stage"`
	Status     StageStatus `json:"status"`
	StartedAt  time.Time   `json:"started_at"`
	EndedAt    *time.Time  `json:"ended_at,omitempty"`
	Error      string      `json:"error,omitempty"`
	InputRef   string      `json:"input_ref,omitempty"`
	OutputRef  string      `json:"output_ref,omitempty"`
}

// IsClosed reports whether the execution has ended
func (e *StageExecution) IsClosed() bool {
	return e.EndedAt != nil
}
