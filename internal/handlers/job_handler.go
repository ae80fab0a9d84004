package handlers

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"rag-console/internal/models"
	"rag-console/internal/repositories"
	"rag-console/internal/services"
)

// JobHandler exposes the job queue
type JobHandler struct {
	responder
	jobs       repositories.JobRepository
	controller *services.PipelineController
}

// NewJobHandler creates a new job handler
func NewJobHandler(jobs repositories.JobRepository, controller *services.PipelineController, logger *log.Logger) *JobHandler {
	return &JobHandler{
		responder:  responder{logger: logger},
		jobs:       jobs,
		controller: controller,
	}
}

// CreateJobRequest enqueues one stage run
type CreateJobRequest struct {
	DocumentID  string                 `json:"document_id"`
	Stage       string                 `json:"stage"`
	Priority    *int                   `json:"priority,omitempty"`
	ScheduledAt *time.Time             `json:"scheduled_at,omitempty"`
	RequestedBy string                 `json:"requested_by,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// JobListResponse represents a list of jobs
type JobListResponse struct {
	Jobs  []models.JobDTO `json:"jobs"`
	Count int             `json:"count"`
}

// CreateJob handles job enqueue requests
// @Summary Enqueue a stage job
// @Description Create a PENDING job for one stage of a document. The stage must be executable and have no active job.
// @Tags jobs
// @Accept json
// @Produce json
// @Param request body CreateJobRequest true "Job request"
// @Success 201 {object} models.JobDTO
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 412 {object} ErrorResponse
// @Router /api/v1/jobs [post]
func (h *JobHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := decodeBody(r, &req); err != nil {
		h.sendDomainError(w, err)
		return
	}
	if req.DocumentID == "" {
		h.sendDomainError(w, &models.ValidationError{Field: "document_id", Message: "document ID is required"})
		return
	}
	stage, err := models.ParseStage(req.Stage)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	opts := services.ExecuteOptions{
		Priority:    req.Priority,
		RequestedBy: req.RequestedBy,
		Trigger:     models.TriggerAPI,
		Metadata:    req.Metadata,
	}
	if req.ScheduledAt != nil {
		opts.ScheduledAt = *req.ScheduledAt
	}

	result, err := h.controller.ExecuteStage(r.Context(), req.DocumentID, stage, opts)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendJSON(w, http.StatusCreated, result.Job.ToDTO())
}

// ListJobs handles job list requests
// @Summary List jobs
// @Description List jobs, optionally filtered by status, document and stage. Results are in queue order.
// @Tags jobs
// @Produce json
// @Param status query string false "Comma separated job statuses"
// @Param document_id query string false "Document ID"
// @Param stage query string false "Stage"
// @Param limit query int false "Max results" default(100)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} JobListResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/jobs [get]
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := getPageParams(r, 100)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	query := r.URL.Query()
	filter := &repositories.JobFilter{
		DocumentID: query.Get("document_id"),
		Limit:      limit,
		Offset:     offset,
	}

	if raw := query.Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status, err := models.ParseJobStatus(part)
			if err != nil {
				h.sendDomainError(w, err)
				return
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	if raw := query.Get("stage"); raw != "" {
		stage, err := models.ParseStage(raw)
		if err != nil {
			h.sendDomainError(w, err)
			return
		}
		filter.Stage = stage
	}

	jobs, err := h.jobs.ListJobs(r.Context(), filter)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, toJobList(jobs))
}

// Candidates handles dequeue requests from polling workers
// @Summary Dequeue candidates
// @Description PENDING jobs whose scheduled time has passed, highest priority first. Candidates are not claimed.
// @Tags jobs
// @Produce json
// @Param document_id query string false "Document ID"
// @Param stage query string false "Stage"
// @Param limit query int false "Max results" default(10)
// @Success 200 {object} JobListResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/jobs/candidates [get]
func (h *JobHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	filter := &repositories.CandidateFilter{
		DocumentID:  r.URL.Query().Get("document_id"),
		ReadyBefore: &now,
		Limit:       getIntQueryParam(r, "limit", 10),
	}
	if raw := r.URL.Query().Get("stage"); raw != "" {
		stage, err := models.ParseStage(raw)
		if err != nil {
			h.sendDomainError(w, err)
			return
		}
		filter.Stage = stage
	}

	jobs, err := h.jobs.DequeueCandidates(r.Context(), filter)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, toJobList(jobs))
}

// GetJob handles single job requests
// @Summary Get a job
// @Tags jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} models.JobDTO
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/jobs/{id} [get]
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.GetJob(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, job.ToDTO())
}

// ClaimJob handles claim requests from polling workers
// @Summary Claim a job
// @Description Move a PENDING job to PROCESSING and mark its stage RUNNING
// @Tags jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} models.JobDTO
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/jobs/{id}/claim [post]
func (h *JobHandler) ClaimJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.controller.ClaimJob(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, job.ToDTO())
}

// Stats handles job statistics requests
// @Summary Job statistics
// @Tags jobs
// @Produce json
// @Success 200 {object} models.JobStatsDTO
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/jobs/stats [get]
func (h *JobHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.jobs.Stats(r.Context())
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, stats.ToDTO())
}

func toJobList(jobs []*models.Job) JobListResponse {
	dtos := make([]models.JobDTO, 0, len(jobs))
	for _, job := range jobs {
		dtos = append(dtos, job.ToDTO())
	}
	return JobListResponse{Jobs: dtos, Count: len(dtos)}
}
