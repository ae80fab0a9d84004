package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"rag-console/internal/models"
)

// responder carries the JSON helpers shared by every handler
type responder struct {
	logger *log.Logger
}

func (h responder) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Printf("Failed to encode JSON: %v", err)
	}
}

func (h responder) sendError(w http.ResponseWriter, status int, message string) {
	h.sendJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Status:  status,
	})
}

// sendDomainError maps pipeline errors to HTTP statuses
func (h responder) sendDomainError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Printf("Request failed: %v", err)
	}

	resp := ErrorResponse{
		Error:   http.StatusText(status),
		Message: err.Error(),
		Status:  status,
	}
	var conflict *models.ConflictError
	if errors.As(err, &conflict) {
		resp.ExistingJobID = conflict.ExistingJobID
	}
	var precondition *models.PreconditionError
	if errors.As(err, &precondition) {
		resp.Reason = precondition.Reason
	}
	h.sendJSON(w, status, resp)
}

func statusForError(err error) int {
	var (
		validation   *models.ValidationError
		precondition *models.PreconditionError
		conflict     *models.ConflictError
		exists       *models.AlreadyExistsError
		transition   *models.InvalidTransitionError
		notFound     *models.NotFoundError
		transient    *models.TransientStorageError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &precondition):
		return http.StatusPreconditionFailed
	case errors.As(err, &conflict), errors.As(err, &exists), errors.As(err, &transition):
		return http.StatusConflict
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &transient):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody reads a JSON request body. An empty body leaves dst untouched.
func decodeBody(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return &models.ValidationError{Message: "invalid JSON body: " + err.Error()}
	}
	return nil
}

func getIntQueryParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

// getPageParams reads limit and offset, rejecting negative values
func getPageParams(r *http.Request, defaultLimit int) (int, int, error) {
	limit := getIntQueryParam(r, "limit", defaultLimit)
	if limit < 0 {
		return 0, 0, &models.ValidationError{Field: "limit", Message: "must not be negative"}
	}
	offset := getIntQueryParam(r, "offset", 0)
	if offset < 0 {
		return 0, 0, &models.ValidationError{Field: "offset", Message: "must not be negative"}
	}
	return limit, offset, nil
}

// Response types

type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Status        int    `json:"status"`
	ExistingJobID string `json:"existing_job_id,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
