package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-console/internal/models"
)

func nextEvent(t *testing.T, events <-chan PipelineEvent) PipelineEvent {
	t.Helper()
	select {
	case event, ok := <-events:
		require.True(t, ok, "event stream closed")
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for pipeline event")
		return PipelineEvent{}
	}
}

func TestRedisEventBus_PublishSubscribe(t *testing.T) {
	env := newTestEnv(t)

	events, cancel, err := env.events.Subscribe(env.ctx, "doc-1")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, env.events.Publish(env.ctx, PipelineEvent{Type: EventStageProgress, DocumentID: "doc-1", Progress: 30}))
	require.NoError(t, env.events.Publish(env.ctx, PipelineEvent{Type: EventStageProgress, DocumentID: "doc-2", Progress: 99}))
	require.NoError(t, env.events.Publish(env.ctx, PipelineEvent{Type: EventStageCompleted, DocumentID: "doc-1"}))

	first := nextEvent(t, events)
	assert.Equal(t, EventStageProgress, first.Type)
	assert.Equal(t, 30, first.Progress)
	assert.False(t, first.Timestamp.IsZero())

	second := nextEvent(t, events)
	assert.Equal(t, EventStageCompleted, second.Type)
	assert.Equal(t, "doc-1", second.DocumentID)
}

func TestRedisEventBus_CancelClosesStream(t *testing.T) {
	env := newTestEnv(t)

	events, cancel, err := env.events.Subscribe(env.ctx, "doc-1")
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("stream not closed after cancel")
	}
}

func TestRedisEventBus_ContextEndsStream(t *testing.T) {
	env := newTestEnv(t)

	ctx, cancel := context.WithCancel(env.ctx)
	events, stop, err := env.events.Subscribe(ctx, "doc-1")
	require.NoError(t, err)
	defer stop()
	cancel()

	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("stream not closed after context cancel")
	}
}

func TestPipelineController_PublishesLifecycleEvents(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "doc-1")

	events, cancel, err := env.events.Subscribe(env.ctx, "doc-1")
	require.NoError(t, err)
	defer cancel()

	queued, err := env.controller.ExecuteStage(env.ctx, "doc-1", models.StageConvert, ExecuteOptions{})
	require.NoError(t, err)
	enqueued := nextEvent(t, events)
	assert.Equal(t, EventJobEnqueued, enqueued.Type)
	assert.Equal(t, queued.Job.ID, enqueued.JobID)

	_, err = env.controller.ClaimJob(env.ctx, queued.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, EventStageStarted, nextEvent(t, events).Type)

	completeJob(t, env, queued.Job, `{"markdown":"x"}`)
	completed := nextEvent(t, events)
	assert.Equal(t, EventStageCompleted, completed.Type)
	assert.Equal(t, models.StageStatusCompleted, completed.Status)
	assert.Equal(t, 100, completed.Progress)

	_, err = env.controller.ResetToStage(env.ctx, "doc-1", models.StageConvert)
	require.NoError(t, err)
	reset := nextEvent(t, events)
	assert.Equal(t, EventStageReset, reset.Type)
	assert.Equal(t, models.StageConvert, reset.Stage)
}
