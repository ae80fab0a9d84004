package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rag-console/internal/models"
)

// StageExecutionRepository stores the append-only history of stage runs
type StageExecutionRepository interface {
	// Open records the start of a stage run. Opening the same job twice is a no-op.
	Open(ctx context.Context, exec *models.StageExecution) error
	// Finish closes the run for a job once; later calls change nothing and return false
	Finish(ctx context.Context, exec *models.StageExecution) (bool, error)
	GetByJob(ctx context.Context, jobID string) (*models.StageExecution, error)
	ListByDocument(ctx context.Context, documentID string) ([]*models.StageExecution, error)
	Close() error
}

const executionColumns = `id, document_id, job_id, stage, status, started_at, ended_at, error, input_ref, output_ref`

// SQLiteStageExecutionRepository implements StageExecutionRepository on SQLite
type SQLiteStageExecutionRepository struct {
	db *sql.DB
}

// NewSQLiteStageExecutionRepository wraps an opened history database
func NewSQLiteStageExecutionRepository(db *sql.DB) *SQLiteStageExecutionRepository {
	return &SQLiteStageExecutionRepository{db: db}
}

func (r *SQLiteStageExecutionRepository) Open(ctx context.Context, exec *models.StageExecution) error {
	if exec.ID == "" {
		exec.ID = uuid.New().String()
	}
	if exec.StartedAt.IsZero() {
		exec.StartedAt = time.Now()
	}
	if exec.Status == "" {
		exec.Status = models.StageStatusRunning
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO stage_executions (`+executionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		exec.ID,
		exec.DocumentID,
		exec.JobID,
		string(exec.Stage),
		string(exec.Status),
		exec.StartedAt.UTC().Format(time.RFC3339Nano),
		nullableTime(exec.EndedAt),
		exec.Error,
		exec.InputRef,
		exec.OutputRef,
	)
	if err != nil {
		return storageError("open_execution", exec.JobID, fmt.Errorf("insert stage execution: %w", err))
	}
	return nil
}

func (r *SQLiteStageExecutionRepository) Finish(ctx context.Context, exec *models.StageExecution) (bool, error) {
	ended := time.Now()
	if exec.EndedAt != nil {
		ended = *exec.EndedAt
	}
	endedRaw := ended.UTC().Format(time.RFC3339Nano)

	res, err := r.db.ExecContext(ctx,
		`UPDATE stage_executions SET status = ?, ended_at = ?, error = ?, output_ref = ?
		 WHERE job_id = ? AND ended_at IS NULL`,
		string(exec.Status), endedRaw, exec.Error, exec.OutputRef, exec.JobID,
	)
	if err != nil {
		return false, storageError("finish_execution", exec.JobID, fmt.Errorf("close stage execution: %w", err))
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return true, nil
	}

	// no open row: the job went straight to a terminal state, record it closed
	if exec.StartedAt.IsZero() {
		exec.StartedAt = ended
	}
	exec.EndedAt = &ended
	if exec.ID == "" {
		exec.ID = uuid.New().String()
	}
	res, err = r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO stage_executions (`+executionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		exec.ID,
		exec.DocumentID,
		exec.JobID,
		string(exec.Stage),
		string(exec.Status),
		exec.StartedAt.UTC().Format(time.RFC3339Nano),
		endedRaw,
		exec.Error,
		exec.InputRef,
		exec.OutputRef,
	)
	if err != nil {
		return false, storageError("finish_execution", exec.JobID, fmt.Errorf("insert closed stage execution: %w", err))
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *SQLiteStageExecutionRepository) GetByJob(ctx context.Context, jobID string) (*models.StageExecution, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+executionColumns+` FROM stage_executions WHERE job_id = ?`, jobID)
	exec, err := scanExecution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.NotFoundError{Kind: "stage execution", ID: jobID}
	}
	if err != nil {
		return nil, storageError("get_execution", jobID, err)
	}
	return exec, nil
}

func (r *SQLiteStageExecutionRepository) ListByDocument(ctx context.Context, documentID string) ([]*models.StageExecution, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+executionColumns+` FROM stage_executions WHERE document_id = ? ORDER BY started_at, id`, documentID)
	if err != nil {
		return nil, storageError("list_executions", documentID, fmt.Errorf("query executions: %w", err))
	}
	defer rows.Close()

	executions := []*models.StageExecution{}
	for rows.Next() {
		exec, err := scanExecution(rows)
		if err != nil {
			return nil, storageError("list_executions", documentID, err)
		}
		executions = append(executions, exec)
	}
	return executions, storageError("list_executions", documentID, rows.Err())
}

// Close closes the underlying database
func (r *SQLiteStageExecutionRepository) Close() error {
	return r.db.Close()
}

func scanExecution(scanner interface{ Scan(dest ...any) error }) (*models.StageExecution, error) {
	var (
		exec       models.StageExecution
		stage      string
		status     string
		startedRaw string
		endedRaw   sql.NullString
	)
	if err := scanner.Scan(
		&exec.ID,
		&exec.DocumentID,
		&exec.JobID,
		&stage,
		&status,
		&startedRaw,
		&endedRaw,
		&exec.Error,
		&exec.InputRef,
		&exec.OutputRef,
	); err != nil {
		return nil, err
	}

	exec.Stage = models.Stage(stage)
	exec.Status = models.StageStatus(status)
	started, err := time.Parse(time.RFC3339Nano, startedRaw)
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	exec.StartedAt = started
	if endedRaw.Valid && endedRaw.String != "" {
		ended, err := time.Parse(time.RFC3339Nano, endedRaw.String)
		if err != nil {
			return nil, fmt.Errorf("parse ended_at: %w", err)
		}
		exec.EndedAt = &ended
	}
	return &exec, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
