package workers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-console/internal/models"
	"rag-console/internal/services"
)

func newChainWorker(env *pipelineEnv, queueSize int) *ChainWorker {
	return NewChainWorker(ChainWorkerConfig{
		WorkerConfig: DefaultWorkerConfig("chain"),
		Controller:   env.controller,
		QueueSize:    queueSize,
		Logger:       env.logger,
	})
}

func TestChainWorker_ScheduleWhenStopped(t *testing.T) {
	env := newPipelineEnv(t)
	worker := newChainWorker(env, 4)

	assert.False(t, worker.Schedule("doc-1", models.StageConvert))
	assert.Zero(t, worker.Pending())
}

func TestChainWorker_ContinuesChain(t *testing.T) {
	env := newPipelineEnv(t)
	env.register(t, "doc-1", models.StageConvert)

	doc := env.document(t, "doc-1")
	doc.ProcessingMode = models.ProcessingModeAutomatic
	require.NoError(t, env.documents.Save(env.ctx, doc))

	worker := newChainWorker(env, 4)
	require.NoError(t, worker.Start(env.ctx))
	defer worker.Stop(env.ctx)

	require.True(t, worker.Schedule("doc-1", models.StageConvert))

	assert.Eventually(t, func() bool {
		active, err := env.jobs.ActiveJobs(env.ctx, "doc-1")
		return err == nil && len(active) == 1 && active[0].Stage == models.StageChunk
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, models.StageStatusSkipped, env.document(t, "doc-1").Stage(models.StageOptimize).Status)
	assert.Eventually(t, func() bool {
		return worker.Stats().JobsSucceeded == 1
	}, time.Second, 10*time.Millisecond)
}

func TestChainWorker_StopsOnPrecondition(t *testing.T) {
	env := newPipelineEnv(t)
	env.register(t, "doc-1")
	_, err := env.controller.ExecuteChain(env.ctx, "doc-1", models.StageConvert, services.ExecuteOptions{})
	require.NoError(t, err)

	worker := newChainWorker(env, 4)
	require.NoError(t, worker.Start(env.ctx))
	defer worker.Stop(env.ctx)

	// convert never completed, so chunk is not executable
	require.True(t, worker.Schedule("doc-1", models.StageOptimize))

	assert.Eventually(t, func() bool {
		doc, err := env.documents.Get(env.ctx, "doc-1")
		return err == nil && !doc.ChainActive
	}, 2*time.Second, 10*time.Millisecond)
}

func TestChainWorker_QueueFull(t *testing.T) {
	env := newPipelineEnv(t)
	worker := newChainWorker(env, 1)

	// running without loops so nothing drains the queue
	_, err := worker.begin(env.ctx)
	require.NoError(t, err)
	defer worker.halt(env.ctx)

	assert.True(t, worker.Schedule("doc-1", models.StageConvert))
	assert.False(t, worker.Schedule("doc-2", models.StageConvert))
	assert.Equal(t, 1, worker.Pending())
}
