package services

import (
	"context"
	"io"
	"log"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"rag-console/internal/db"
	"rag-console/internal/models"
	"rag-console/internal/repositories"
)

type testEnv struct {
	ctx        context.Context
	mr         *miniredis.Miniredis
	client     *redis.Client
	jobs       *repositories.RedisJobRepository
	documents  *repositories.RedisDocumentRepository
	executions *repositories.SQLiteStageExecutionRepository
	events     *RedisEventBus
	scheduler  *recordingScheduler
	controller *PipelineController
	ingestor   *WebhookIngestor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	historyDB, err := db.OpenHistoryDB(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = historyDB.Close() })

	logger := log.New(io.Discard, "", 0)
	env := &testEnv{
		ctx:        context.Background(),
		mr:         mr,
		client:     client,
		jobs:       repositories.NewRedisJobRepository(client),
		documents:  repositories.NewRedisDocumentRepository(client),
		executions: repositories.NewSQLiteStageExecutionRepository(historyDB),
		events:     NewRedisEventBus(client, logger),
		scheduler:  &recordingScheduler{},
	}
	env.controller = NewPipelineController(env.jobs, env.documents, env.executions, NewDocumentLocker(), env.events, logger, ControllerConfig{DefaultPriority: 5})

	env.ingestor, err = NewWebhookIngestor(env.controller, env.scheduler, logger, IngestorConfig{Strict: true})
	require.NoError(t, err)
	return env
}

// register stores a fresh document whose listed stages are already COMPLETED
func (e *testEnv) register(t *testing.T, id string, completed ...models.Stage) *models.Document {
	t.Helper()
	doc := models.NewDocument(id, id+".pdf")
	for _, stage := range completed {
		doc.Stage(stage).Status = models.StageStatusCompleted
	}
	_, err := e.controller.RegisterDocument(e.ctx, doc)
	require.NoError(t, err)
	return doc
}

func (e *testEnv) document(t *testing.T, id string) *models.Document {
	t.Helper()
	doc, err := e.documents.Get(e.ctx, id)
	require.NoError(t, err)
	return doc
}

func (e *testEnv) job(t *testing.T, id string) *models.Job {
	t.Helper()
	job, err := e.jobs.GetJob(e.ctx, id)
	require.NoError(t, err)
	return job
}

func (e *testEnv) webhook(t *testing.T, body string) *IngestResult {
	t.Helper()
	result, err := e.ingestor.Ingest(e.ctx, []byte(body))
	require.NoError(t, err)
	return result
}

type scheduledContinuation struct {
	DocumentID string
	Completed  models.Stage
}

// recordingScheduler remembers continuations instead of running them
type recordingScheduler struct {
	mu    sync.Mutex
	calls []scheduledContinuation
	full  bool
}

func (s *recordingScheduler) Schedule(documentID string, completed models.Stage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.full {
		return false
	}
	s.calls = append(s.calls, scheduledContinuation{DocumentID: documentID, Completed: completed})
	return true
}

func (s *recordingScheduler) Calls() []scheduledContinuation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]scheduledContinuation, len(s.calls))
	copy(out, s.calls)
	return out
}
