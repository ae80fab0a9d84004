package repositories

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"rag-console/internal/models"
)

const (
	// Redis key prefixes for documents
	documentKeyPrefix    = "document:"
	documentIndexKey     = "documents:index"
	documentStatusPrefix = "document:status:"
)

// RedisDocumentRepository implements DocumentRepository using Redis
type RedisDocumentRepository struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisDocumentRepository creates a new Redis-based document repository
func NewRedisDocumentRepository(client *redis.Client) *RedisDocumentRepository {
	return &RedisDocumentRepository{
		client: client,
		now:    time.Now,
	}
}

// Register stores a new document with every stage PENDING
func (r *RedisDocumentRepository) Register(ctx context.Context, doc *models.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}

	exists, err := r.Exists(ctx, doc.ID)
	if err != nil {
		return err
	}
	if exists {
		return &models.AlreadyExistsError{Kind: "document", ID: doc.ID}
	}

	now := r.now()
	doc.EnsureStages()
	if doc.ProcessingMode == "" {
		doc.ProcessingMode = models.ProcessingModeManual
	}
	if doc.Status == "" {
		doc.Status = models.DocumentStatusPending
	}
	doc.RefreshCurrentStage()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return storageError("register_document", doc.ID, err)
	}

	// SETNX closes the gap between Exists and the write
	pipe := r.client.TxPipeline()
	created := pipe.SetNX(ctx, documentKeyPrefix+doc.ID, docJSON, 0)
	pipe.SAdd(ctx, documentIndexKey, doc.ID)
	pipe.SAdd(ctx, documentStatusPrefix+string(doc.Status), doc.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return storageError("register_document", doc.ID, err)
	}
	if !created.Val() {
		return &models.AlreadyExistsError{Kind: "document", ID: doc.ID}
	}
	return nil
}

// Get retrieves a document by ID
func (r *RedisDocumentRepository) Get(ctx context.Context, documentID string) (*models.Document, error) {
	docJSON, err := r.client.Get(ctx, documentKeyPrefix+documentID).Result()
	if err == redis.Nil {
		return nil, models.DocumentNotFound(documentID)
	}
	if err != nil {
		return nil, storageError("get_document", documentID, err)
	}

	var doc models.Document
	if err := json.Unmarshal([]byte(docJSON), &doc); err != nil {
		return nil, storageError("get_document", documentID, err)
	}
	doc.EnsureStages()
	return &doc, nil
}

// Save overwrites an existing document and moves it between status indexes
func (r *RedisDocumentRepository) Save(ctx context.Context, doc *models.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}

	existing, err := r.Get(ctx, doc.ID)
	if err != nil {
		return err
	}

	doc.UpdatedAt = r.now()
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return storageError("save_document", doc.ID, err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, documentKeyPrefix+doc.ID, docJSON, 0)
	if existing.Status != doc.Status {
		pipe.SRem(ctx, documentStatusPrefix+string(existing.Status), doc.ID)
		pipe.SAdd(ctx, documentStatusPrefix+string(doc.Status), doc.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return storageError("save_document", doc.ID, err)
	}
	return nil
}

// List retrieves documents matching the filter, oldest first
func (r *RedisDocumentRepository) List(ctx context.Context, filter *DocumentFilter) ([]*models.Document, error) {
	key := documentIndexKey
	if filter != nil && filter.Status != "" {
		key = documentStatusPrefix + string(filter.Status)
	}

	docIDs, err := r.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, storageError("list_documents", "", err)
	}
	docs, err := r.getBatch(ctx, docIDs)
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.Document, 0, len(docs))
	for _, doc := range docs {
		if filter.Matches(doc) {
			filtered = append(filtered, doc)
		}
	}
	sort.Slice(filtered, func(i, j int) bool {
		if !filtered[i].CreatedAt.Equal(filtered[j].CreatedAt) {
			return filtered[i].CreatedAt.Before(filtered[j].CreatedAt)
		}
		return filtered[i].ID < filtered[j].ID
	})

	if filter != nil && filter.Limit > 0 {
		offset := filter.Offset
		if offset < 0 {
			offset = 0
		}
		if offset >= len(filtered) {
			return []*models.Document{}, nil
		}
		end := offset + filter.Limit
		if end > len(filtered) {
			end = len(filtered)
		}
		filtered = filtered[offset:end]
	}
	return filtered, nil
}

// Exists checks if a document is registered
func (r *RedisDocumentRepository) Exists(ctx context.Context, documentID string) (bool, error) {
	n, err := r.client.Exists(ctx, documentKeyPrefix+documentID).Result()
	if err != nil {
		return false, storageError("document_exists", documentID, err)
	}
	return n > 0, nil
}

// Ping checks if Redis connection is alive
func (r *RedisDocumentRepository) Ping(ctx context.Context) error {
	return storageError("ping", "", r.client.Ping(ctx).Err())
}

// Close closes the Redis connection
func (r *RedisDocumentRepository) Close() error {
	return r.client.Close()
}

// getBatch retrieves multiple documents by IDs
func (r *RedisDocumentRepository) getBatch(ctx context.Context, documentIDs []string) ([]*models.Document, error) {
	if len(documentIDs) == 0 {
		return []*models.Document{}, nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(documentIDs))
	for i, id := range documentIDs {
		cmds[i] = pipe.Get(ctx, documentKeyPrefix+id)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, storageError("get_documents", "", err)
	}

	docs := make([]*models.Document, 0, len(documentIDs))
	for i, cmd := range cmds {
		docJSON, err := cmd.Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, storageError("get_documents", documentIDs[i], err)
		}

		var doc models.Document
		if err := json.Unmarshal([]byte(docJSON), &doc); err != nil {
			return nil, storageError("get_documents", documentIDs[i], err)
		}
		doc.EnsureStages()
		docs = append(docs, &doc)
	}
	return docs, nil
}
