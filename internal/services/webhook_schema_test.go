package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-console/internal/models"
)

func TestValidateWebhook(t *testing.T) {
	strict, err := compileWebhookSchema(true)
	require.NoError(t, err)
	lenient, err := compileWebhookSchema(false)
	require.NoError(t, err)

	payload, err := validateWebhook(strict, []byte(`{
		"task_id": "t-1",
		"status": "in_progress",
		"progress": {"percentage": 12.5, "current_step": "embedding"},
		"document_id": "doc-1",
		"extra": {"ignored": true}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "t-1", payload.TaskID)
	assert.Equal(t, models.WebhookStatusInProgress, payload.Status)
	require.NotNil(t, payload.Progress)
	assert.Equal(t, 12.5, payload.Progress.Percentage)
	assert.Equal(t, "doc-1", payload.DocumentID)

	_, err = validateWebhook(strict, []byte(`{"task_id":"t-1","status":"paused"}`))
	var validation *models.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Contains(t, validation.Message, "/status")

	payload, err = validateWebhook(lenient, []byte(`{"task_id":"t-1","status":"paused"}`))
	require.NoError(t, err)
	assert.False(t, payload.Status.IsKnown())

	_, err = validateWebhook(lenient, []byte(`{"task_id":"t-1","status":""}`))
	assert.ErrorAs(t, err, &validation)
}

func TestValidateWebhook_NullableFields(t *testing.T) {
	schema, err := compileWebhookSchema(true)
	require.NoError(t, err)

	payload, err := validateWebhook(schema, []byte(`{"task_id":"t-1","status":"completed","progress":null,"result":null,"error":null,"batch_job_id":null}`))
	require.NoError(t, err)
	assert.Nil(t, payload.Progress)
	assert.Nil(t, payload.Result)
	assert.Empty(t, payload.Error)
}
