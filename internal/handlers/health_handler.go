package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"rag-console/internal/repositories"
	"rag-console/internal/services"
	"rag-console/internal/workers"
)

// WorkerStatsProvider reports background worker stats
type WorkerStatsProvider interface {
	GetAllStats() []workers.WorkerStats
}

// HealthHandler reports the health of the console and its dependencies
type HealthHandler struct {
	responder
	jobs    repositories.JobRepository
	client  services.StageWorkerClient
	workers WorkerStatsProvider
	timeout time.Duration
}

// NewHealthHandler creates a new health handler. client and pool may be nil.
func NewHealthHandler(jobs repositories.JobRepository, client services.StageWorkerClient, pool WorkerStatsProvider, logger *log.Logger) *HealthHandler {
	return &HealthHandler{
		responder: responder{logger: logger},
		jobs:      jobs,
		client:    client,
		workers:   pool,
		timeout:   3 * time.Second,
	}
}

// HealthResponse is the health report
type HealthResponse struct {
	Status       string                `json:"status"`
	Storage      string                `json:"storage"`
	StageWorkers string                `json:"stage_workers,omitempty"`
	Workers      []workers.WorkerStats `json:"workers,omitempty"`
	Timestamp    time.Time             `json:"timestamp"`
}

// Health handles health check requests
// @Summary Health check
// @Description Storage connectivity is required; stage worker reachability only degrades the status
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp := HealthResponse{Status: "healthy", Storage: "ok", Timestamp: time.Now().UTC()}
	status := http.StatusOK

	if err := h.jobs.Ping(ctx); err != nil {
		h.logger.Printf("Health check: storage unavailable: %v", err)
		resp.Status = "unhealthy"
		resp.Storage = "unavailable"
		status = http.StatusServiceUnavailable
	}

	if h.client != nil {
		healthy, err := h.client.HealthCheck(ctx)
		switch {
		case err != nil || !healthy:
			resp.StageWorkers = "unreachable"
			if status == http.StatusOK {
				resp.Status = "degraded"
			}
		default:
			resp.StageWorkers = "ok"
		}
	}

	if h.workers != nil {
		resp.Workers = h.workers.GetAllStats()
	}

	h.sendJSON(w, status, resp)
}
