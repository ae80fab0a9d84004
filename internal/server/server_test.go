package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "rag-console/docs"
	"rag-console/internal/config"
	"rag-console/internal/handlers"
	"rag-console/internal/models"
	"rag-console/internal/services"
)

// fakeStageWorker accepts dispatches and hands them to the test
type fakeStageWorker struct {
	server     *httptest.Server
	dispatches chan services.DispatchRequest
}

func newFakeStageWorker(t *testing.T) *fakeStageWorker {
	t.Helper()
	f := &fakeStageWorker{dispatches: make(chan services.DispatchRequest, 16)}

	mux := http.NewServeMux()
	mux.HandleFunc("/stages/", func(w http.ResponseWriter, r *http.Request) {
		var req services.DispatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.dispatches <- req
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(services.DispatchResponse{TaskID: req.TaskID, Status: "accepted"})
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeStageWorker) next(t *testing.T) services.DispatchRequest {
	t.Helper()
	select {
	case req := <-f.dispatches:
		return req
	case <-time.After(5 * time.Second):
		t.Fatal("no dispatch received")
		return services.DispatchRequest{}
	}
}

func testConfig(t *testing.T, mr *miniredis.Miniredis, workerURL string) *config.Config {
	t.Helper()
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Redis.Host = mr.Host()
	cfg.Redis.Port = port
	cfg.History.Path = filepath.Join(t.TempDir(), "history.db")
	cfg.Workers.BaseURL = workerURL
	cfg.Workers.Retries = 0
	cfg.Workers.DispatchInterval = 10 * time.Millisecond
	cfg.Pipeline.SweepInterval = time.Hour
	return &cfg
}

func call(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_ChainRunsThroughDispatchAndWebhooks(t *testing.T) {
	mr := miniredis.RunT(t)
	worker := newFakeStageWorker(t)

	s, err := New(context.Background(), testConfig(t, mr, worker.server.URL))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	defer func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Error("server did not stop")
		}
	}()

	h := s.Handler()

	rec := call(t, h, http.MethodPost, "/api/v1/documents", map[string]string{"document_id": "doc-1", "filename": "report.pdf"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = call(t, h, http.MethodPost, "/api/v1/documents/doc-1/stages/convert/chain", nil)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	results := []struct {
		stage  models.Stage
		result map[string]interface{}
	}{
		{models.StageConvert, map[string]interface{}{"markdown": "# Report"}},
		{models.StageChunk, map[string]interface{}{"chunks": []string{"a", "b", "c"}}},
		{models.StageExtractFacts, map[string]interface{}{"facts": 4}},
		{models.StageIngest, map[string]interface{}{"ingested_chunks": 3}},
	}
	for _, step := range results {
		req := worker.next(t)
		require.Equal(t, step.stage, req.Stage)
		assert.Equal(t, "doc-1", req.DocumentID)
		assert.NotEmpty(t, req.TaskID)
		assert.Contains(t, req.CallbackURL, "/api/v1/webhooks/worker")

		rec := call(t, h, http.MethodPost, "/api/v1/webhooks/worker", map[string]interface{}{
			"task_id": req.TaskID,
			"status":  "completed",
			"result":  step.result,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	var status services.PipelineStatus
	require.Eventually(t, func() bool {
		rec := call(t, h, http.MethodGet, "/api/v1/documents/doc-1/pipeline", nil)
		if rec.Code != http.StatusOK {
			return false
		}
		status = services.PipelineStatus{}
		return json.Unmarshal(rec.Body.Bytes(), &status) == nil && status.Status == models.DocumentStatusCompleted
	}, 5*time.Second, 20*time.Millisecond)

	assert.Equal(t, "# Report", status.Outputs.ConvertedText)
	assert.Equal(t, 3, status.Outputs.ChunkCount)
	assert.Equal(t, 4, status.Outputs.FactCount)
	assert.True(t, status.Outputs.Ingested)
	assert.Equal(t, 3, status.Outputs.IngestedChunks)
	assert.Empty(t, status.ActiveJobs)

	rec = call(t, h, http.MethodGet, "/api/v1/documents/doc-1/executions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var executions handlers.ExecutionListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &executions))
	assert.Equal(t, 4, executions.Count)

	rec = call(t, h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var health handlers.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Len(t, health.Workers, 3)
}

func TestServer_SwaggerAndCORS(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t, mr, "http://127.0.0.1:1")
	cfg.Workers.DispatchEnabled = false

	s, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer s.Close()

	rec := call(t, s.Handler(), http.MethodGet, "/swagger/doc.json", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "RAG Console API")

	rec = call(t, s.Handler(), http.MethodOptions, "/api/v1/jobs", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	// two workers without dispatch
	assert.Equal(t, 2, s.Pool().Count())
}

func TestNew_RedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t, mr, "http://127.0.0.1:1")
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := New(ctx, cfg)
	assert.Error(t, err)
}
