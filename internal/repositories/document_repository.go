package repositories

import (
	"context"

	"rag-console/internal/models"
)

// DocumentRepository gives the pipeline access to document records.
// Records are created by the upload side; the pipeline only saves its own fields.
type DocumentRepository interface {
	Register(ctx context.Context, doc *models.Document) error
	Get(ctx context.Context, documentID string) (*models.Document, error)
	Save(ctx context.Context, doc *models.Document) error
	List(ctx context.Context, filter *DocumentFilter) ([]*models.Document, error)
	Exists(ctx context.Context, documentID string) (bool, error)

	// Health
	Ping(ctx context.Context) error
	Close() error
}

// DocumentFilter represents filter criteria for document queries
type DocumentFilter struct {
	Status         models.DocumentStatus
	ProcessingMode models.ProcessingMode
	// ContinuationOnly keeps documents that are AUTOMATIC or have an active chain
	ContinuationOnly bool
	Limit            int
	Offset           int
}

// Matches reports whether doc satisfies the filter
func (f *DocumentFilter) Matches(doc *models.Document) bool {
	if f == nil {
		return true
	}
	if f.Status != "" && doc.Status != f.Status {
		return false
	}
	if f.ProcessingMode != "" && doc.ProcessingMode != f.ProcessingMode {
		return false
	}
	if f.ContinuationOnly && !(doc.ProcessingMode == models.ProcessingModeAutomatic || doc.ChainActive) {
		return false
	}
	return true
}
