package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"rag-console/internal/models"
	"rag-console/internal/repositories"
	"rag-console/internal/services"
)

const defaultHeartbeatInterval = 15 * time.Second

// DocumentHandler handles HTTP requests for document pipeline operations
type DocumentHandler struct {
	responder
	documents  repositories.DocumentRepository
	controller *services.PipelineController
	events     services.EventBus

	heartbeat time.Duration
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(documents repositories.DocumentRepository, controller *services.PipelineController, events services.EventBus, logger *log.Logger) *DocumentHandler {
	return &DocumentHandler{
		responder:  responder{logger: logger},
		documents:  documents,
		controller: controller,
		events:     events,
		heartbeat:  defaultHeartbeatInterval,
	}
}

// RegisterDocumentRequest creates the pipeline record of an uploaded document
type RegisterDocumentRequest struct {
	DocumentID            string   `json:"document_id,omitempty"`
	Filename              string   `json:"filename"`
	ProcessingMode        string   `json:"processing_mode,omitempty"`
	EnabledOptionalStages []string `json:"enabled_optional_stages,omitempty"`
}

// ExecuteStageRequest carries the optional knobs of execute and chain requests
type ExecuteStageRequest struct {
	Priority    *int       `json:"priority,omitempty"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	RequestedBy string     `json:"requested_by,omitempty"`
}

// ExecuteResponse is the outcome of an operation that may enqueue a job
type ExecuteResponse struct {
	Job      *models.JobDTO           `json:"job,omitempty"`
	Pipeline *services.PipelineStatus `json:"pipeline"`
}

// ModeRequest switches the processing mode
type ModeRequest struct {
	ProcessingMode string `json:"processing_mode"`
}

// PauseRequest suspends or resumes automatic continuation
type PauseRequest struct {
	Paused bool `json:"paused"`
}

// ExecutabilityResponse answers whether a stage may run now
type ExecutabilityResponse struct {
	DocumentID string       `json:"document_id"`
	Stage      models.Stage `json:"stage"`
	Executable bool         `json:"executable"`
	Reason     string       `json:"reason,omitempty"`
}

// DocumentListResponse represents a list of documents response
type DocumentListResponse struct {
	Documents []models.DocumentDTO `json:"documents"`
	Count     int                  `json:"count"`
}

// ExecutionListResponse is the stage run history of a document
type ExecutionListResponse struct {
	Executions []*models.StageExecution `json:"executions"`
	Count      int                      `json:"count"`
}

// RegisterDocument handles document registration
// @Summary Register a document
// @Description Create the pipeline record for an uploaded document with every stage PENDING
// @Tags documents
// @Accept json
// @Produce json
// @Param request body RegisterDocumentRequest true "Document"
// @Success 201 {object} services.PipelineStatus
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/documents [post]
func (h *DocumentHandler) RegisterDocument(w http.ResponseWriter, r *http.Request) {
	var req RegisterDocumentRequest
	if err := decodeBody(r, &req); err != nil {
		h.sendDomainError(w, err)
		return
	}
	if req.Filename == "" {
		h.sendDomainError(w, &models.ValidationError{Field: "filename", Message: "filename is required"})
		return
	}
	if req.DocumentID == "" {
		req.DocumentID = uuid.New().String()
	}

	doc := models.NewDocument(req.DocumentID, req.Filename)
	if req.ProcessingMode != "" {
		doc.ProcessingMode = models.ProcessingMode(req.ProcessingMode)
	}
	for _, raw := range req.EnabledOptionalStages {
		stage, err := models.ParseStage(raw)
		if err != nil {
			h.sendDomainError(w, err)
			return
		}
		if !models.IsOptional(stage) {
			h.sendDomainError(w, &models.ValidationError{Field: "enabled_optional_stages", Message: "stage is not optional: " + raw})
			return
		}
		doc.EnabledOptionalStages = append(doc.EnabledOptionalStages, stage)
	}

	status, err := h.controller.RegisterDocument(r.Context(), doc)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendJSON(w, http.StatusCreated, status)
}

// ListDocuments handles requests to list documents
// @Summary List documents
// @Tags documents
// @Produce json
// @Param status query string false "Aggregate status"
// @Param processing_mode query string false "Processing mode"
// @Param limit query int false "Max results" default(100)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} DocumentListResponse
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/documents [get]
func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := getPageParams(r, 100)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	filter := &repositories.DocumentFilter{
		Status:         models.DocumentStatus(r.URL.Query().Get("status")),
		ProcessingMode: models.ProcessingMode(r.URL.Query().Get("processing_mode")),
		Limit:          limit,
		Offset:         offset,
	}

	docs, err := h.documents.List(r.Context(), filter)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	dtos := make([]models.DocumentDTO, 0, len(docs))
	for _, doc := range docs {
		dtos = append(dtos, doc.ToDTO())
	}
	h.sendJSON(w, http.StatusOK, DocumentListResponse{Documents: dtos, Count: len(dtos)})
}

// GetPipeline handles pipeline status requests
// @Summary Get pipeline status
// @Description Raw and effective status of every stage, executability and active jobs
// @Tags pipeline
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} services.PipelineStatus
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/documents/{id}/pipeline [get]
func (h *DocumentHandler) GetPipeline(w http.ResponseWriter, r *http.Request) {
	status, err := h.controller.PipelineStatus(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, status)
}

// CanExecute handles executability checks
// @Summary Check whether a stage can run
// @Tags pipeline
// @Produce json
// @Param id path string true "Document ID"
// @Param stage path string true "Stage"
// @Success 200 {object} ExecutabilityResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/documents/{id}/stages/{stage} [get]
func (h *DocumentHandler) CanExecute(w http.ResponseWriter, r *http.Request) {
	documentID, stage, ok := h.stageParams(w, r)
	if !ok {
		return
	}
	reason, err := h.controller.Evaluate(r.Context(), documentID, stage)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, ExecutabilityResponse{
		DocumentID: documentID,
		Stage:      stage,
		Executable: reason == "",
		Reason:     reason,
	})
}

// ExecuteStage handles single stage execution requests
// @Summary Execute a stage
// @Tags pipeline
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param stage path string true "Stage"
// @Param request body ExecuteStageRequest false "Options"
// @Success 202 {object} ExecuteResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 412 {object} ErrorResponse
// @Router /api/v1/documents/{id}/stages/{stage}/execute [post]
func (h *DocumentHandler) ExecuteStage(w http.ResponseWriter, r *http.Request) {
	h.execute(w, r, h.controller.ExecuteStage)
}

// ExecuteChain handles chain execution requests
// @Summary Execute a chain
// @Description Run the stage and keep advancing through the pipeline after each completion
// @Tags pipeline
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param stage path string true "First stage"
// @Param request body ExecuteStageRequest false "Options"
// @Success 202 {object} ExecuteResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 412 {object} ErrorResponse
// @Router /api/v1/documents/{id}/stages/{stage}/chain [post]
func (h *DocumentHandler) ExecuteChain(w http.ResponseWriter, r *http.Request) {
	h.execute(w, r, h.controller.ExecuteChain)
}

type executeFunc func(ctx context.Context, documentID string, stage models.Stage, opts services.ExecuteOptions) (*services.ExecutionResult, error)

func (h *DocumentHandler) execute(w http.ResponseWriter, r *http.Request, run executeFunc) {
	documentID, stage, ok := h.stageParams(w, r)
	if !ok {
		return
	}
	var req ExecuteStageRequest
	if err := decodeBody(r, &req); err != nil {
		h.sendDomainError(w, err)
		return
	}

	opts := services.ExecuteOptions{Priority: req.Priority, RequestedBy: req.RequestedBy}
	if req.ScheduledAt != nil {
		opts.ScheduledAt = *req.ScheduledAt
	}
	result, err := run(r.Context(), documentID, stage, opts)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendJSON(w, http.StatusAccepted, toExecuteResponse(result))
}

// ResetStage handles reset requests
// @Summary Reset to a stage
// @Description Make the stage and every later stage PENDING again, cancelling their active jobs
// @Tags pipeline
// @Produce json
// @Param id path string true "Document ID"
// @Param stage path string true "Stage"
// @Success 200 {object} services.PipelineStatus
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/documents/{id}/stages/{stage}/reset [post]
func (h *DocumentHandler) ResetStage(w http.ResponseWriter, r *http.Request) {
	documentID, stage, ok := h.stageParams(w, r)
	if !ok {
		return
	}
	status, err := h.controller.ResetToStage(r.Context(), documentID, stage)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, status)
}

// SetMode handles processing mode changes
// @Summary Set processing mode
// @Description AUTOMATIC starts a chain from the next executable stage; MANUAL stops continuation
// @Tags pipeline
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param request body ModeRequest true "Mode"
// @Success 200 {object} ExecuteResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/documents/{id}/mode [put]
func (h *DocumentHandler) SetMode(w http.ResponseWriter, r *http.Request) {
	var req ModeRequest
	if err := decodeBody(r, &req); err != nil {
		h.sendDomainError(w, err)
		return
	}
	result, err := h.controller.ToggleProcessingMode(r.Context(), mux.Vars(r)["id"], models.ProcessingMode(req.ProcessingMode))
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, toExecuteResponse(result))
}

// SetPaused handles pause and resume requests
// @Summary Pause or resume a document
// @Tags pipeline
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param request body PauseRequest true "Pause flag"
// @Success 200 {object} ExecuteResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/documents/{id}/pause [put]
func (h *DocumentHandler) SetPaused(w http.ResponseWriter, r *http.Request) {
	var req PauseRequest
	if err := decodeBody(r, &req); err != nil {
		h.sendDomainError(w, err)
		return
	}
	result, err := h.controller.SetPaused(r.Context(), mux.Vars(r)["id"], req.Paused)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, toExecuteResponse(result))
}

// Executions handles stage history requests
// @Summary Stage execution history
// @Tags pipeline
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} ExecutionListResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/documents/{id}/executions [get]
func (h *DocumentHandler) Executions(w http.ResponseWriter, r *http.Request) {
	executions, err := h.controller.Executions(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	if executions == nil {
		executions = []*models.StageExecution{}
	}
	h.sendJSON(w, http.StatusOK, ExecutionListResponse{Executions: executions, Count: len(executions)})
}

// StreamEvents pushes pipeline events as server-sent events
// @Summary Stream pipeline events
// @Description Server-sent events for one document. Each event carries a PipelineEvent as JSON.
// @Tags pipeline
// @Produce text/event-stream
// @Param id path string true "Document ID"
// @Success 200 {object} services.PipelineEvent
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/documents/{id}/events [get]
func (h *DocumentHandler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	documentID := mux.Vars(r)["id"]
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.sendError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}
	if _, err := h.documents.Get(r.Context(), documentID); err != nil {
		h.sendDomainError(w, err)
		return
	}

	events, cancel, err := h.events.Subscribe(r.Context(), documentID)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case event, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				h.logger.Printf("Failed to encode event for %s: %v", documentID, err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
			flusher.Flush()
		}
	}
}

func (h *DocumentHandler) stageParams(w http.ResponseWriter, r *http.Request) (string, models.Stage, bool) {
	vars := mux.Vars(r)
	stage, err := models.ParseStage(vars["stage"])
	if err != nil {
		h.sendDomainError(w, err)
		return "", "", false
	}
	return vars["id"], stage, true
}

func toExecuteResponse(result *services.ExecutionResult) ExecuteResponse {
	resp := ExecuteResponse{Pipeline: result.Status}
	if result.Job != nil {
		dto := result.Job.ToDTO()
		resp.Job = &dto
	}
	return resp
}
