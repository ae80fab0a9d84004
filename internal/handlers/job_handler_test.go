package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-console/internal/models"
)

func TestJobHandler_CreateJob(t *testing.T) {
	env := newHandlerEnv(t)
	env.register(t, "doc-1")

	rec := env.do(t, http.MethodPost, "/api/v1/jobs", map[string]interface{}{
		"document_id":  "doc-1",
		"stage":        "convert",
		"priority":     7,
		"requested_by": "alice",
		"metadata":     map[string]interface{}{"source": "ui"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	job := decode[models.JobDTO](t, rec)
	assert.NotEmpty(t, job.JobID)
	assert.Equal(t, "doc-1", job.DocumentID)
	assert.Equal(t, "convert", job.Stage)
	assert.Equal(t, "PENDING", job.Status)
	assert.Equal(t, 7, job.Priority)
	assert.NotEmpty(t, job.ScheduledAt)
	assert.Equal(t, "ui", job.Metadata["source"])
	assert.Equal(t, models.TriggerAPI, job.Metadata[models.MetadataTrigger])
	assert.Equal(t, "alice", job.Metadata[models.MetadataRequestedBy])
}

func TestJobHandler_CreateJobDefaultPriority(t *testing.T) {
	env := newHandlerEnv(t)
	env.register(t, "doc-1")

	rec := env.do(t, http.MethodPost, "/api/v1/jobs", map[string]string{"document_id": "doc-1", "stage": "Convert"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 5, decode[models.JobDTO](t, rec).Priority)
}

func TestJobHandler_CreateJobErrors(t *testing.T) {
	env := newHandlerEnv(t)
	env.register(t, "doc-1")
	existing := env.execute(t, "doc-1", models.StageConvert)

	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
		check      func(t *testing.T, resp ErrorResponse)
	}{
		{
			name:       "missing document",
			body:       map[string]string{"stage": "convert"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing stage",
			body:       map[string]string{"document_id": "doc-1"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown stage",
			body:       map[string]string{"document_id": "doc-1", "stage": "translate"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed json",
			body:       `{"document_id":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown document",
			body:       map[string]string{"document_id": "nope", "stage": "convert"},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "active job",
			body:       map[string]string{"document_id": "doc-1", "stage": "convert"},
			wantStatus: http.StatusConflict,
			check: func(t *testing.T, resp ErrorResponse) {
				assert.Equal(t, existing.ID, resp.ExistingJobID)
			},
		},
		{
			name:       "predecessor incomplete",
			body:       map[string]string{"document_id": "doc-1", "stage": "extract_facts"},
			wantStatus: http.StatusPreconditionFailed,
			check: func(t *testing.T, resp ErrorResponse) {
				assert.NotEmpty(t, resp.Reason)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/jobs", tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			resp := decode[ErrorResponse](t, rec)
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, http.StatusText(tt.wantStatus), resp.Error)
			if tt.check != nil {
				tt.check(t, resp)
			}
		})
	}
}

func TestJobHandler_ListJobs(t *testing.T) {
	env := newHandlerEnv(t)
	env.register(t, "doc-1")
	env.register(t, "doc-2")
	first := env.execute(t, "doc-1", models.StageConvert)
	env.execute(t, "doc-2", models.StageConvert)
	_, err := env.controller.ClaimJob(env.ctx, first.ID)
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/api/v1/jobs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[JobListResponse](t, rec).Count)

	rec = env.do(t, http.MethodGet, "/api/v1/jobs?status=processing", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[JobListResponse](t, rec)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, first.ID, list.Jobs[0].JobID)

	rec = env.do(t, http.MethodGet, "/api/v1/jobs?document_id=doc-2&stage=convert", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list = decode[JobListResponse](t, rec)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "doc-2", list.Jobs[0].DocumentID)

	rec = env.do(t, http.MethodGet, "/api/v1/jobs?status=PENDING,PROCESSING", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[JobListResponse](t, rec).Count)

	rec = env.do(t, http.MethodGet, "/api/v1/jobs?status=queued", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/jobs?stage=translate", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJobHandler_ListJobsNegativePaging(t *testing.T) {
	env := newHandlerEnv(t)
	env.register(t, "doc-1")
	env.execute(t, "doc-1", models.StageConvert)

	for _, query := range []string{"offset=-1&limit=5", "limit=-1"} {
		rec := env.do(t, http.MethodGet, "/api/v1/jobs?"+query, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}

	rec := env.do(t, http.MethodGet, "/api/v1/jobs?offset=0&limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[JobListResponse](t, rec).Count)
}

func TestJobHandler_Candidates(t *testing.T) {
	env := newHandlerEnv(t)
	for _, id := range []string{"a", "b", "c"} {
		env.register(t, id)
	}
	for id, priority := range map[string]int{"a": 5, "b": 1, "c": 9} {
		rec := env.do(t, http.MethodPost, "/api/v1/jobs", map[string]interface{}{"document_id": id, "stage": "convert", "priority": priority})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/api/v1/jobs/candidates", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[JobListResponse](t, rec)
	require.Equal(t, 3, list.Count)
	assert.Equal(t, []int{9, 5, 1}, []int{list.Jobs[0].Priority, list.Jobs[1].Priority, list.Jobs[2].Priority})

	rec = env.do(t, http.MethodGet, "/api/v1/jobs/candidates?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list = decode[JobListResponse](t, rec)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "c", list.Jobs[0].DocumentID)
}

func TestJobHandler_GetJob(t *testing.T) {
	env := newHandlerEnv(t)
	env.register(t, "doc-1")
	job := env.execute(t, "doc-1", models.StageConvert)

	rec := env.do(t, http.MethodGet, "/api/v1/jobs/"+job.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, job.ID, decode[models.JobDTO](t, rec).JobID)

	rec = env.do(t, http.MethodGet, "/api/v1/jobs/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestJobHandler_ClaimJob(t *testing.T) {
	env := newHandlerEnv(t)
	env.register(t, "doc-1")
	job := env.execute(t, "doc-1", models.StageConvert)

	rec := env.do(t, http.MethodPost, "/api/v1/jobs/"+job.ID+"/claim", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	claimed := decode[models.JobDTO](t, rec)
	assert.Equal(t, "PROCESSING", claimed.Status)
	assert.NotEmpty(t, claimed.StartedAt)

	doc, err := env.documents.Get(env.ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, models.StageStatusRunning, doc.Stage(models.StageConvert).Status)

	// a second claim loses
	rec = env.do(t, http.MethodPost, "/api/v1/jobs/"+job.ID+"/claim", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestJobHandler_Stats(t *testing.T) {
	env := newHandlerEnv(t)
	env.register(t, "doc-1")
	env.register(t, "doc-2")
	env.execute(t, "doc-1", models.StageConvert)
	failed := env.execute(t, "doc-2", models.StageConvert)
	_, _, err := env.controller.FailJob(env.ctx, failed.ID, "boom")
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/api/v1/jobs/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	stats := decode[models.JobStatsDTO](t, rec)
	assert.Equal(t, 2, stats.TotalJobs)
	assert.Equal(t, 1, stats.JobsByStatus["PENDING"])
	assert.Equal(t, 1, stats.JobsByStatus["FAILED"])
	assert.Equal(t, 2, stats.JobsByStage["convert"])
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&models.ValidationError{Message: "bad"}, http.StatusBadRequest},
		{&models.PreconditionError{}, http.StatusPreconditionFailed},
		{&models.ConflictError{}, http.StatusConflict},
		{&models.AlreadyExistsError{}, http.StatusConflict},
		{&models.InvalidTransitionError{}, http.StatusConflict},
		{models.JobNotFound("x"), http.StatusNotFound},
		{models.NewTransientStorageError("get", assert.AnError), http.StatusServiceUnavailable},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusForError(tt.err), tt.err.Error())
	}
}
