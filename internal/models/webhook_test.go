package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookPayload_Event(t *testing.T) {
	t.Run("completed carries result", func(t *testing.T) {
		var p WebhookPayload
		require.NoError(t, json.Unmarshal([]byte(`{"task_id":"t1","status":"completed","result":{"markdown":"# hi","chunks":12}}`), &p))

		ev, err := p.Event()
		require.NoError(t, err)

		completed, ok := ev.(CompletedEvent)
		require.True(t, ok)
		assert.Equal(t, JobStatusFinished, ev.JobStatus())
		assert.Equal(t, 100, completed.Envelope().Percentage)
		assert.Equal(t, "# hi", completed.Result.Text())
		n, ok := completed.Result.ChunkCount()
		assert.True(t, ok)
		assert.Equal(t, 12, n)
	})

	t.Run("chunks may be a list", func(t *testing.T) {
		r := &WebhookResult{Chunks: json.RawMessage(`[{"text":"a"},{"text":"b"}]`)}
		n, ok := r.ChunkCount()
		assert.True(t, ok)
		assert.Equal(t, 2, n)
	})

	t.Run("counts accept whole floats and reject negatives", func(t *testing.T) {
		tests := []struct {
			raw   string
			want  int
			valid bool
		}{
			{`12.0`, 12, true},
			{`7`, 7, true},
			{`-3`, 0, false},
			{`2.5`, 0, false},
			{`"many"`, 0, false},
		}
		for _, tt := range tests {
			r := &WebhookResult{Facts: json.RawMessage(tt.raw)}
			n, ok := r.FactCount()
			assert.Equal(t, tt.valid, ok, tt.raw)
			assert.Equal(t, tt.want, n, tt.raw)
		}
	})

	t.Run("content used when markdown empty", func(t *testing.T) {
		r := &WebhookResult{Content: "plain"}
		assert.Equal(t, "plain", r.Text())
	})

	t.Run("failed gets a default message", func(t *testing.T) {
		p := WebhookPayload{TaskID: "t1", Status: WebhookStatusFailed}
		ev, err := p.Event()
		require.NoError(t, err)
		assert.Equal(t, "stage failed without an error message", ev.(FailedEvent).Message)
	})

	t.Run("progress is clamped", func(t *testing.T) {
		p := WebhookPayload{TaskID: "t1", Status: WebhookStatusInProgress, Progress: &WebhookProgress{Percentage: 140, CurrentStep: "embedding"}}
		ev, err := p.Event()
		require.NoError(t, err)
		assert.IsType(t, ProgressEvent{}, ev)
		assert.Equal(t, 100, ev.Envelope().Percentage)
		assert.Equal(t, "embedding", ev.Envelope().CurrentStep)
	})

	t.Run("unknown status maps to processing", func(t *testing.T) {
		p := WebhookPayload{TaskID: "t1", Status: "queued_remote"}
		ev, err := p.Event()
		require.NoError(t, err)
		assert.Equal(t, JobStatusProcessing, ev.JobStatus())
		assert.Equal(t, JobStatusProcessing, WebhookStatus("queued_remote").JobStatus())
	})

	t.Run("missing task id is a validation error", func(t *testing.T) {
		p := WebhookPayload{Status: WebhookStatusStarted}
		_, err := p.Event()
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "task_id", vErr.Field)
	})
}
