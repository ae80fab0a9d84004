package services

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"rag-console/internal/models"
)

// webhookSchema describes a worker notification. Unknown fields are allowed.
func webhookSchema(strict bool) map[string]any {
	status := map[string]any{"type": "string", "minLength": 1}
	if strict {
		status["enum"] = []string{
			string(models.WebhookStatusStarted),
			string(models.WebhookStatusInProgress),
			string(models.WebhookStatusCompleted),
			string(models.WebhookStatusFailed),
		}
	}

	return map[string]any{
		"$schema":  "http://json-schema.org/draft-07/schema#",
		"type":     "object",
		"required": []string{"task_id", "status"},
		"properties": map[string]any{
			"task_id": map[string]any{"type": "string", "minLength": 1},
			"status":  status,
			"progress": map[string]any{
				"type": []string{"object", "null"},
				"properties": map[string]any{
					"percentage":   map[string]any{"type": "number", "minimum": 0, "maximum": 100},
					"current_step": map[string]any{"type": []string{"string", "null"}},
				},
			},
			"result":       map[string]any{"type": []string{"object", "null"}},
			"error":        map[string]any{"type": []string{"string", "null"}},
			"document_id":  map[string]any{"type": []string{"string", "null"}},
			"batch_job_id": map[string]any{"type": []string{"string", "null"}},
		},
	}
}

// compileWebhookSchema compiles the webhook schema once at startup
func compileWebhookSchema(strict bool) (*jsonschema.Schema, error) {
	b, err := json.Marshal(webhookSchema(strict))
	if err != nil {
		return nil, fmt.Errorf("marshal webhook schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("webhook.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add webhook schema: %w", err)
	}
	schema, err := compiler.Compile("webhook.json")
	if err != nil {
		return nil, fmt.Errorf("compile webhook schema: %w", err)
	}
	return schema, nil
}

// validateWebhook checks raw JSON against the schema and decodes it
func validateWebhook(schema *jsonschema.Schema, raw []byte) (*models.WebhookPayload, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, &models.ValidationError{Message: "malformed JSON: " + err.Error()}
	}
	if err := schema.Validate(v); err != nil {
		return nil, &models.ValidationError{Message: "webhook does not match schema: " + schemaMessage(err)}
	}

	var payload models.WebhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &models.ValidationError{Message: "invalid webhook payload: " + err.Error()}
	}
	return &payload, nil
}

// schemaMessage flattens the innermost validation causes into one line
func schemaMessage(err error) string {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	leaf := verr
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	if leaf.InstanceLocation == "" {
		return leaf.Message
	}
	return leaf.InstanceLocation + ": " + leaf.Message
}
