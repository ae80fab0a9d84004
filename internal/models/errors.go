package models

import "fmt"

// ValidationError represents a missing or malformed request field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Message
	}
	return "validation error on field '" + e.Field + "': " + e.Message
}

// PreconditionError is returned when a stage cannot run given the current pipeline state
type PreconditionError struct {
	DocumentID string
	Stage      Stage
	Reason     string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("stage %s not executable for document %s: %s", e.Stage, e.DocumentID, e.Reason)
}

// ConflictError is returned when a non-terminal job already exists for (document, stage)
type ConflictError struct {
	DocumentID    string
	Stage         Stage
	ExistingJobID string
}

func (e *ConflictError) Error() string {
	if e.ExistingJobID != "" {
		return fmt.Sprintf("stage %s for document %s already in progress (job %s)", e.Stage, e.DocumentID, e.ExistingJobID)
	}
	return fmt.Sprintf("stage %s for document %s already in progress", e.Stage, e.DocumentID)
}

// NotFoundError is returned for unknown documents and jobs
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return e.Kind + " not found: " + e.ID
}

// InvalidTransitionError is returned when a job status change is not allowed
type InvalidTransitionError struct {
	JobID string
	From  JobStatus
	To    JobStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition for job %s: %s -> %s", e.JobID, e.From, e.To)
}

// ExecutionFailure describes a stage failure reported by an external worker.
// It is recorded as state and not propagated as a request error.
type ExecutionFailure struct {
	JobID   string
	Stage   Stage
	Message string
}

func (e *ExecutionFailure) Error() string {
	return fmt.Sprintf("stage %s failed (job %s): %s", e.Stage, e.JobID, e.Message)
}

// TransientStorageError wraps persistence failures that are safe to retry
type TransientStorageError struct {
	Operation string
	Err       error
}

func (e *TransientStorageError) Error() string {
	if e.Err == nil {
		return e.Operation + ": storage unavailable"
	}
	return e.Operation + ": " + e.Err.Error()
}

func (e *TransientStorageError) Unwrap() error {
	return e.Err
}

// NewTransientStorageError wraps err, or returns nil when err is nil
func NewTransientStorageError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientStorageError{Operation: operation, Err: err}
}

// DocumentNotFound builds a NotFoundError for a document
func DocumentNotFound(documentID string) error {
	return &NotFoundError{Kind: "document", ID: documentID}
}

// JobNotFound builds a NotFoundError for a job
func JobNotFound(jobID string) error {
	return &NotFoundError{Kind: "job", ID: jobID}
}

// AlreadyExistsError is returned when registering a record whose ID is taken
type AlreadyExistsError struct {
	Kind string
	ID   string
}

func (e *AlreadyExistsError) Error() string {
	return e.Kind + " already exists: " + e.ID
}
