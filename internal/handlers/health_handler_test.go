package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rag-console/internal/workers"
)

type staticStats []workers.WorkerStats

func (s staticStats) GetAllStats() []workers.WorkerStats { return s }

func checkHealth(t *testing.T, h *HealthHandler) (*httptest.ResponseRecorder, HealthResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	return rec, decode[HealthResponse](t, rec)
}

func TestHealthHandler_Healthy(t *testing.T) {
	env := newHandlerEnv(t)
	client := new(MockStageWorkerClient)
	client.On("HealthCheck", mock.Anything).Return(true, nil)
	pool := staticStats{{WorkerName: "dispatch-worker", IsRunning: true}}

	rec, resp := checkHealth(t, NewHealthHandler(env.jobs, client, pool, log.New(io.Discard, "", 0)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "ok", resp.Storage)
	assert.Equal(t, "ok", resp.StageWorkers)
	require.Len(t, resp.Workers, 1)
	assert.Equal(t, "dispatch-worker", resp.Workers[0].WorkerName)
	client.AssertExpectations(t)
}

func TestHealthHandler_WithoutDispatch(t *testing.T) {
	env := newHandlerEnv(t)

	rec, resp := checkHealth(t, NewHealthHandler(env.jobs, nil, nil, log.New(io.Discard, "", 0)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", resp.Status)
	assert.Empty(t, resp.StageWorkers)
	assert.Empty(t, resp.Workers)
}

func TestHealthHandler_WorkersUnreachable(t *testing.T) {
	env := newHandlerEnv(t)
	client := new(MockStageWorkerClient)
	client.On("HealthCheck", mock.Anything).Return(false, errors.New("connection refused"))

	rec, resp := checkHealth(t, NewHealthHandler(env.jobs, client, nil, log.New(io.Discard, "", 0)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "unreachable", resp.StageWorkers)
}

func TestHealthHandler_StorageDown(t *testing.T) {
	env := newHandlerEnv(t)
	env.mr.Close()

	rec, resp := checkHealth(t, NewHealthHandler(env.jobs, nil, nil, log.New(io.Discard, "", 0)))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "unavailable", resp.Storage)
}
