package models

import (
	"strings"
	"time"
)

// Stage identifies one step of the document processing pipeline
type Stage string

const (
	StageConvert      Stage = "convert"
	StageOptimize     Stage = "optimize"
	StageChunk        Stage = "chunk"
	StageExtractFacts Stage = "extract_facts"
	StageIngest       Stage = "ingest"
)

// StageStatus is the raw or effective status of a single stage
type StageStatus string

const (
	StageStatusPending   StageStatus = "PENDING"
	StageStatusRunning   StageStatus = "RUNNING"
	StageStatusCompleted StageStatus = "COMPLETED"
	StageStatusFailed    StageStatus = "FAILED"
	StageStatusSkipped   StageStatus = "SKIPPED"
)

// StageDescriptor describes a pipeline stage
type StageDescriptor struct {
	Stage             Stage         `json:"stage"`
	Name              string        `json:"name"`
	Optional          bool          `json:"optional"`
	EstimatedDuration time.Duration `json:"estimated_duration"`
}

// stageCatalog is the fixed, ordered pipeline. Order matters.
var stageCatalog = []StageDescriptor{
	{Stage: StageConvert, Name: "Convert", EstimatedDuration: 2 * time.Minute},
	{Stage: StageOptimize, Name: "Optimize", Optional: true, EstimatedDuration: 3 * time.Minute},
	{Stage: StageChunk, Name: "Chunk", EstimatedDuration: 1 * time.Minute},
	{Stage: StageExtractFacts, Name: "Extract Facts", EstimatedDuration: 5 * time.Minute},
	{Stage: StageIngest, Name: "Ingest", EstimatedDuration: 2 * time.Minute},
}

// Stages returns the ordered stage catalog
func Stages() []StageDescriptor {
	out := make([]StageDescriptor, len(stageCatalog))
	copy(out, stageCatalog)
	return out
}

// StageOrder returns the stage identifiers in pipeline order
func StageOrder() []Stage {
	out := make([]Stage, len(stageCatalog))
	for i, d := range stageCatalog {
		out[i] = d.Stage
	}
	return out
}

// Index returns the position of the stage in the pipeline, or -1 if unknown
func (s Stage) Index() int {
	for i, d := range stageCatalog {
		if d.Stage == s {
			return i
		}
	}
	return -1
}

// IsValid reports whether s is one of the known stages
func (s Stage) IsValid() bool {
	return s.Index() >= 0
}

// String returns the string representation of the stage
func (s Stage) String() string {
	return string(s)
}

// Descriptor returns the catalog entry for the stage
func (s Stage) Descriptor() (StageDescriptor, bool) {
	i := s.Index()
	if i < 0 {
		return StageDescriptor{}, false
	}
	return stageCatalog[i], true
}

// IsOptional reports whether the stage may be bypassed
func IsOptional(s Stage) bool {
	d, ok := s.Descriptor()
	return ok && d.Optional
}

// Predecessors returns every stage strictly before s, in order
func Predecessors(s Stage) []Stage {
	i := s.Index()
	if i <= 0 {
		return []Stage{}
	}
	return StageOrder()[:i]
}

// StagesFrom returns s and every stage after it, in order
func StagesFrom(s Stage) []Stage {
	i := s.Index()
	if i < 0 {
		return []Stage{}
	}
	return StageOrder()[i:]
}

// NextStage returns the stage following s; ok is false for the last stage
func NextStage(s Stage) (Stage, bool) {
	i := s.Index()
	if i < 0 || i+1 >= len(stageCatalog) {
		return "", false
	}
	return stageCatalog[i+1].Stage, true
}

// FirstStage returns the first stage of the pipeline
func FirstStage() Stage {
	return stageCatalog[0].Stage
}

// LastStage returns the final stage of the pipeline
func LastStage() Stage {
	return stageCatalog[len(stageCatalog)-1].Stage
}

// ParseStage converts user input into a Stage. Hyphens and case are tolerated.
func ParseStage(raw string) (Stage, error) {
	s := Stage(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "-", "_"))
	if s == "" {
		return "", &ValidationError{Field: "stage", Message: "stage is required"}
	}
	if !s.IsValid() {
		return "", &ValidationError{Field: "stage", Message: "unknown stage: " + raw}
	}
	return s, nil
}

// IsValid checks if the stage status is valid
func (s StageStatus) IsValid() bool {
	switch s {
	case StageStatusPending, StageStatusRunning, StageStatusCompleted, StageStatusFailed, StageStatusSkipped:
		return true
	default:
		return false
	}
}

// String returns the string representation of the stage status
func (s StageStatus) String() string {
	return string(s)
}
