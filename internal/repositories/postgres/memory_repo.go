package postgres

import (
	"context"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/ayush-jadaun/midnfull/internal/models"
)

type MemoryRepo interface {
	Insert(ctx context.Context, rec *models.MemoryRecord) error
	// SearchSimilar returns the topK records closest to the query embedding,
	// most similar first. sessionID == "" searches across all sessions.
	// An empty store yields an empty slice, not an error.
	SearchSimilar(ctx context.Context, embedding pgvector.Vector, sessionID string, topK int) ([]models.MemoryMatch, error)
}

type memoryRepo struct {
	db *gorm.DB
}

func NewMemoryRepo(db *gorm.DB) MemoryRepo {
	return &memoryRepo{db: db}
}

func (r *memoryRepo) Insert(ctx context.Context, rec *models.MemoryRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *memoryRepo) SearchSimilar(ctx context.Context, embedding pgvector.Vector, sessionID string, topK int) ([]models.MemoryMatch, error) {
	if topK <= 0 {
		topK = 3
	}

	q := r.db.WithContext(ctx).
		Model(&models.MemoryRecord{}).
		Select("id, session_id, summary, (embedding <#> ?::vector) AS distance", embedding)
	if sessionID != "" {
		q = q.Where("session_id = ?", sessionID)
	}

	var rows []models.MemoryMatch
	err := q.Order("distance ASC").Limit(topK).Scan(&rows).Error
	return rows, err
}
