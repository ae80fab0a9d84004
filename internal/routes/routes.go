package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"

	"rag-console/internal/handlers"
)

// Handlers groups every HTTP handler served by the console
type Handlers struct {
	Jobs      *handlers.JobHandler
	Documents *handlers.DocumentHandler
	Webhooks  *handlers.WebhookHandler
	Health    *handlers.HealthHandler
}

// RegisterRoutes sets up all application routes
func RegisterRoutes(router *mux.Router, h *Handlers) {
	// Health endpoints
	router.HandleFunc("/health", h.Health.Health).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()

	// Job queue; fixed paths before {id}
	api.HandleFunc("/jobs", h.Jobs.CreateJob).Methods(http.MethodPost)
	api.HandleFunc("/jobs", h.Jobs.ListJobs).Methods(http.MethodGet)
	api.HandleFunc("/jobs/stats", h.Jobs.Stats).Methods(http.MethodGet)
	api.HandleFunc("/jobs/candidates", h.Jobs.Candidates).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}", h.Jobs.GetJob).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}/claim", h.Jobs.ClaimJob).Methods(http.MethodPost)

	// Worker notifications
	api.HandleFunc("/webhooks/worker", h.Webhooks.ReceiveWorkerUpdate).Methods(http.MethodPost)

	// Documents and their pipelines
	api.HandleFunc("/documents", h.Documents.RegisterDocument).Methods(http.MethodPost)
	api.HandleFunc("/documents", h.Documents.ListDocuments).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id}/pipeline", h.Documents.GetPipeline).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id}/executions", h.Documents.Executions).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id}/events", h.Documents.StreamEvents).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id}/mode", h.Documents.SetMode).Methods(http.MethodPut)
	api.HandleFunc("/documents/{id}/pause", h.Documents.SetPaused).Methods(http.MethodPut)
	api.HandleFunc("/documents/{id}/stages/{stage}", h.Documents.CanExecute).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id}/stages/{stage}/execute", h.Documents.ExecuteStage).Methods(http.MethodPost)
	api.HandleFunc("/documents/{id}/stages/{stage}/chain", h.Documents.ExecuteChain).Methods(http.MethodPost)
	api.HandleFunc("/documents/{id}/stages/{stage}/reset", h.Documents.ResetStage).Methods(http.MethodPost)
}

// RegisterSwagger serves the generated API docs under /swagger/
func RegisterSwagger(router *mux.Router, docURL string) {
	router.PathPrefix("/swagger/").Handler(httpSwagger.Handler(
		httpSwagger.URL(docURL),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("none"),
		httpSwagger.DomID("swagger-ui"),
	))
}
