package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rag-console/internal/db"
	"rag-console/internal/models"
	"rag-console/internal/repositories"
	"rag-console/internal/services"
)

type handlerEnv struct {
	ctx        context.Context
	mr         *miniredis.Miniredis
	jobs       *repositories.RedisJobRepository
	documents  *repositories.RedisDocumentRepository
	controller *services.PipelineController
	events     *services.RedisEventBus
	docs       *DocumentHandler
	router     *mux.Router
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	historyDB, err := db.OpenHistoryDB(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = historyDB.Close() })

	logger := log.New(io.Discard, "", 0)
	jobs := repositories.NewRedisJobRepository(client)
	documents := repositories.NewRedisDocumentRepository(client)
	events := services.NewRedisEventBus(client, logger)
	controller := services.NewPipelineController(
		jobs,
		documents,
		repositories.NewSQLiteStageExecutionRepository(historyDB),
		services.NewDocumentLocker(),
		events,
		logger,
		services.ControllerConfig{DefaultPriority: 5},
	)
	ingestor, err := services.NewWebhookIngestor(controller, nil, logger, services.IngestorConfig{Strict: true})
	require.NoError(t, err)

	env := &handlerEnv{
		ctx:        context.Background(),
		mr:         mr,
		jobs:       jobs,
		documents:  documents,
		controller: controller,
		events:     events,
		docs:       NewDocumentHandler(documents, controller, events, logger),
	}

	jobHandler := NewJobHandler(jobs, controller, logger)
	webhookHandler := NewWebhookHandler(ingestor, logger)

	router := mux.NewRouter()
	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/jobs", jobHandler.CreateJob).Methods(http.MethodPost)
	api.HandleFunc("/jobs", jobHandler.ListJobs).Methods(http.MethodGet)
	api.HandleFunc("/jobs/stats", jobHandler.Stats).Methods(http.MethodGet)
	api.HandleFunc("/jobs/candidates", jobHandler.Candidates).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}", jobHandler.GetJob).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}/claim", jobHandler.ClaimJob).Methods(http.MethodPost)
	api.HandleFunc("/webhooks/worker", webhookHandler.ReceiveWorkerUpdate).Methods(http.MethodPost)
	api.HandleFunc("/documents", env.docs.RegisterDocument).Methods(http.MethodPost)
	api.HandleFunc("/documents", env.docs.ListDocuments).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id}/pipeline", env.docs.GetPipeline).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id}/executions", env.docs.Executions).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id}/events", env.docs.StreamEvents).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id}/mode", env.docs.SetMode).Methods(http.MethodPut)
	api.HandleFunc("/documents/{id}/pause", env.docs.SetPaused).Methods(http.MethodPut)
	api.HandleFunc("/documents/{id}/stages/{stage}", env.docs.CanExecute).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id}/stages/{stage}/execute", env.docs.ExecuteStage).Methods(http.MethodPost)
	api.HandleFunc("/documents/{id}/stages/{stage}/chain", env.docs.ExecuteChain).Methods(http.MethodPost)
	api.HandleFunc("/documents/{id}/stages/{stage}/reset", env.docs.ResetStage).Methods(http.MethodPost)
	env.router = router

	return env
}

// do sends body as JSON; a string body is sent verbatim
func (e *handlerEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *handlerEnv) register(t *testing.T, id string, completed ...models.Stage) {
	t.Helper()
	doc := models.NewDocument(id, id+".pdf")
	for _, stage := range completed {
		doc.Stage(stage).Status = models.StageStatusCompleted
	}
	_, err := e.controller.RegisterDocument(e.ctx, doc)
	require.NoError(t, err)
}

func (e *handlerEnv) execute(t *testing.T, id string, stage models.Stage) *models.Job {
	t.Helper()
	result, err := e.controller.ExecuteStage(e.ctx, id, stage, services.ExecuteOptions{})
	require.NoError(t, err)
	return result.Job
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// MockStageWorkerClient stands in for the external stage workers
type MockStageWorkerClient struct {
	mock.Mock
}

func (m *MockStageWorkerClient) Dispatch(ctx context.Context, req *services.DispatchRequest) (*services.DispatchResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.DispatchResponse), args.Error(1)
}

func (m *MockStageWorkerClient) HealthCheck(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}
