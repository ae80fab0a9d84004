package models

import (
	"time"
)

// Document is the pipeline view of a registered document. Record storage is
// owned by the document service; the orchestration core only mutates the
// pipeline fields below.
type Document struct {
	ID       string `json:"document_id"`
	Filename string `json:"filename"`

	CurrentStage         Stage          `json:"current_stage"`
	CurrentStageStatus   StageStatus    `json:"current_stage_status"`
	ProcessingMode       ProcessingMode `json:"processing_mode"`
	Paused               bool           `json:"paused"`
	NextStage            Stage          `json:"next_stage,omitempty"`
	NextStageScheduledAt *time.Time     `json:"next_stage_scheduled_at,omitempty"`
	LastStageError       string         `json:"last_stage_error,omitempty"`
	Status               DocumentStatus `json:"status"`

	// Raw per-stage state as last written. Display always goes through the resolver.
	Stages map[Stage]*StageState `json:"stages"`

	Outputs DocumentOutputs `json:"outputs"`

	// Chain continuation state; persisted so a restart resumes the chain.
	ChainActive bool  `json:"chain_active"`
	ChainFrom   Stage `json:"chain_from,omitempty"`

	// Optional stages that chains should run instead of passing over.
	EnabledOptionalStages []Stage `json:"enabled_optional_stages,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StageState is the raw stored state of one stage
type StageState struct {
	Status      StageStatus `json:"status"`
	JobID       string      `json:"job_id,omitempty"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// DocumentOutputs accumulates results written by completed stages
type DocumentOutputs struct {
	ConvertedText  string `json:"converted_text,omitempty"`
	OptimizedText  string `json:"optimized_text,omitempty"`
	ChunkCount     int    `json:"chunk_count"`
	FactCount      int    `json:"fact_count"`
	IngestedChunks int    `json:"ingested_chunks"`
	Ingested       bool   `json:"ingested"`
}

// ProcessingMode controls whether completed stages advance automatically
type ProcessingMode string

const (
	ProcessingModeManual    ProcessingMode = "MANUAL"
	ProcessingModeAutomatic ProcessingMode = "AUTOMATIC"
)

// IsValid checks if the processing mode is valid
func (m ProcessingMode) IsValid() bool {
	return m == ProcessingModeManual || m == ProcessingModeAutomatic
}

// DocumentStatus is the aggregate lifecycle state of a document
type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusCompleted  DocumentStatus = "completed"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// IsValid checks if document status is valid
func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocumentStatusPending, DocumentStatusProcessing, DocumentStatusCompleted, DocumentStatusFailed:
		return true
	default:
		return false
	}
}

// NewDocument returns a document with every stage PENDING
func NewDocument(id, filename string) *Document {
	doc := &Document{
		ID:             id,
		Filename:       filename,
		ProcessingMode: ProcessingModeManual,
		Status:         DocumentStatusPending,
	}
	doc.EnsureStages()
	doc.CurrentStage = FirstStage()
	doc.CurrentStageStatus = StageStatusPending
	return doc
}

// Validate checks if the document is valid
func (d *Document) Validate() error {
	if d.ID == "" {
		return &ValidationError{Field: "document_id", Message: "document ID is required"}
	}
	if d.ProcessingMode != "" && !d.ProcessingMode.IsValid() {
		return &ValidationError{Field: "processing_mode", Message: "invalid processing mode: " + string(d.ProcessingMode)}
	}
	if d.Status != "" && !d.Status.IsValid() {
		return &ValidationError{Field: "status", Message: "invalid document status: " + string(d.Status)}
	}
	for stage := range d.Stages {
		if !stage.IsValid() {
			return &ValidationError{Field: "stages", Message: "unknown stage: " + string(stage)}
		}
	}
	return nil
}

// EnsureStages fills in a PENDING entry for every stage missing from the map
func (d *Document) EnsureStages() {
	if d.Stages == nil {
		d.Stages = make(map[Stage]*StageState, len(stageCatalog))
	}
	for _, stage := range StageOrder() {
		if d.Stages[stage] == nil {
			d.Stages[stage] = &StageState{Status: StageStatusPending}
		}
	}
}

// RawStatuses returns the stored per-stage status
func (d *Document) RawStatuses() map[Stage]StageStatus {
	raw := make(map[Stage]StageStatus, len(stageCatalog))
	for _, stage := range StageOrder() {
		if st, ok := d.Stages[stage]; ok && st != nil && st.Status != "" {
			raw[stage] = st.Status
		} else {
			raw[stage] = StageStatusPending
		}
	}
	return raw
}

// EffectiveStatuses resolves the visible per-stage status
func (d *Document) EffectiveStatuses() map[Stage]StageStatus {
	return ResolveEffectiveStatuses(d.RawStatuses())
}

// Stage returns the stored state for a stage, creating it if needed
func (d *Document) Stage(stage Stage) *StageState {
	d.EnsureStages()
	return d.Stages[stage]
}

// OptionalStageEnabled reports whether chains should run the optional stage
func (d *Document) OptionalStageEnabled(stage Stage) bool {
	for _, s := range d.EnabledOptionalStages {
		if s == stage {
			return true
		}
	}
	return false
}

// ContinuesAutomatically reports whether a completed stage should trigger the next one
func (d *Document) ContinuesAutomatically() bool {
	if d.Paused {
		return false
	}
	return d.ProcessingMode == ProcessingModeAutomatic || d.ChainActive
}

// RefreshCurrentStage recomputes CurrentStage/CurrentStageStatus and NextStage
// from the effective statuses: the current stage is the last one that has
// started, or the first stage when nothing has.
func (d *Document) RefreshCurrentStage() {
	effective := d.EffectiveStatuses()
	order := StageOrder()

	current := order[0]
	for _, stage := range order {
		switch effective[stage] {
		case StageStatusRunning, StageStatusCompleted, StageStatusFailed:
			current = stage
		}
	}
	d.CurrentStage = current
	d.CurrentStageStatus = effective[current]

	d.NextStage = ""
	for _, stage := range order {
		if ExecutabilityReason(effective, stage) == "" && !IsOptional(stage) {
			d.NextStage = stage
			break
		}
	}
}

// DocumentDTO represents the API view of a document's pipeline state
type DocumentDTO struct {
	ID                    string            `json:"document_id"`
	Filename              string            `json:"filename"`
	CurrentStage          string            `json:"current_stage"`
	CurrentStageStatus    string            `json:"current_stage_status"`
	ProcessingMode        string            `json:"processing_mode"`
	Paused                bool              `json:"paused"`
	NextStage             string            `json:"next_stage,omitempty"`
	NextStageScheduledAt  string            `json:"next_stage_scheduled_at,omitempty"`
	LastStageError        string            `json:"last_stage_error,omitempty"`
	Status                string            `json:"status"`
	Outputs               DocumentOutputs   `json:"outputs"`
	ChainActive           bool              `json:"chain_active"`
	EnabledOptionalStages []string          `json:"enabled_optional_stages,omitempty"`
	RawStatuses           map[string]string `json:"raw_statuses"`
	CreatedAt             string            `json:"created_at"`
	UpdatedAt             string            `json:"updated_at"`
}

// ToDTO converts Document domain model to DTO
func (d *Document) ToDTO() DocumentDTO {
	dto := DocumentDTO{
		ID:                 d.ID,
		Filename:           d.Filename,
		CurrentStage:       string(d.CurrentStage),
		CurrentStageStatus: string(d.CurrentStageStatus),
		ProcessingMode:     string(d.ProcessingMode),
		Paused:             d.Paused,
		NextStage:          string(d.NextStage),
		LastStageError:     d.LastStageError,
		Status:             string(d.Status),
		Outputs:            d.Outputs,
		ChainActive:        d.ChainActive,
		RawStatuses:        make(map[string]string),
		CreatedAt:          d.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          d.UpdatedAt.Format(time.RFC3339),
	}
	if d.NextStageScheduledAt != nil {
		dto.NextStageScheduledAt = d.NextStageScheduledAt.Format(time.RFC3339)
	}
	for _, s := range d.EnabledOptionalStages {
		dto.EnabledOptionalStages = append(dto.EnabledOptionalStages, string(s))
	}
	for stage, status := range d.RawStatuses() {
		dto.RawStatuses[string(stage)] = string(status)
	}
	return dto
}
