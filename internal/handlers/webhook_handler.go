package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"

	"rag-console/internal/services"
)

const maxWebhookBody = 1 << 20

// WebhookHandler receives status notifications from stage workers
type WebhookHandler struct {
	responder
	ingestor *services.WebhookIngestor
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(ingestor *services.WebhookIngestor, logger *log.Logger) *WebhookHandler {
	return &WebhookHandler{
		responder: responder{logger: logger},
		ingestor:  ingestor,
	}
}

// ReceiveWorkerUpdate handles worker webhook deliveries
// @Summary Worker status webhook
// @Description Apply a started, progress, completed or failed notification. Unknown tasks and duplicate deliveries are acknowledged.
// @Tags webhooks
// @Accept json
// @Produce json
// @Param payload body models.WebhookPayload true "Worker notification"
// @Success 200 {object} services.IngestResult
// @Failure 400 {object} ErrorResponse
// @Failure 413 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/webhooks/worker [post]
func (h *WebhookHandler) ReceiveWorkerUpdate(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.sendError(w, http.StatusRequestEntityTooLarge, "Webhook payload too large")
			return
		}
		h.sendError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	result, err := h.ingestor.Ingest(r.Context(), raw)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, result)
}
