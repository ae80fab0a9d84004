package workers

import (
	"context"
	"io"
	"log"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rag-console/internal/db"
	"rag-console/internal/models"
	"rag-console/internal/repositories"
	"rag-console/internal/services"
)

type pipelineEnv struct {
	ctx        context.Context
	mr         *miniredis.Miniredis
	jobs       *repositories.RedisJobRepository
	documents  *repositories.RedisDocumentRepository
	controller *services.PipelineController
	logger     Logger
}

func newPipelineEnv(t *testing.T) *pipelineEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	historyDB, err := db.OpenHistoryDB(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = historyDB.Close() })

	stdLogger := log.New(io.Discard, "", 0)
	jobs := repositories.NewRedisJobRepository(client)
	documents := repositories.NewRedisDocumentRepository(client)
	controller := services.NewPipelineController(
		jobs,
		documents,
		repositories.NewSQLiteStageExecutionRepository(historyDB),
		services.NewDocumentLocker(),
		services.NewRedisEventBus(client, stdLogger),
		stdLogger,
		services.ControllerConfig{DefaultPriority: 5},
	)

	return &pipelineEnv{
		ctx:        context.Background(),
		mr:         mr,
		jobs:       jobs,
		documents:  documents,
		controller: controller,
		logger:     &StdLogger{Logger: stdLogger},
	}
}

func (e *pipelineEnv) register(t *testing.T, id string, completed ...models.Stage) {
	t.Helper()
	doc := models.NewDocument(id, id+".pdf")
	for _, stage := range completed {
		doc.Stage(stage).Status = models.StageStatusCompleted
	}
	_, err := e.controller.RegisterDocument(e.ctx, doc)
	require.NoError(t, err)
}

func (e *pipelineEnv) execute(t *testing.T, id string, stage models.Stage, priority int) *models.Job {
	t.Helper()
	result, err := e.controller.ExecuteStage(e.ctx, id, stage, services.ExecuteOptions{Priority: &priority})
	require.NoError(t, err)
	return result.Job
}

func (e *pipelineEnv) job(t *testing.T, id string) *models.Job {
	t.Helper()
	job, err := e.jobs.GetJob(e.ctx, id)
	require.NoError(t, err)
	return job
}

func (e *pipelineEnv) document(t *testing.T, id string) *models.Document {
	t.Helper()
	doc, err := e.documents.Get(e.ctx, id)
	require.NoError(t, err)
	return doc
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
