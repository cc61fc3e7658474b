package contract

import (
	"context"

	"ragone-be/internal/entity"
	"ragone-be/internal/repository/specification"

	"github.com/google/uuid"
)

type KnowledgeBaseRepository interface {
	Create(ctx context.Context, kb *entity.KnowledgeBase) error
	Update(ctx context.Context, kb *entity.KnowledgeBase) error
	// Delete is a soft delete.
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.KnowledgeBase, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.KnowledgeBase, error)
}

// ScoredChunk wraps DocumentChunk with the raw backend score.
// Score is cosine similarity (vector) or ts_rank (keyword).
type ScoredChunk struct {
	Chunk *entity.DocumentChunk
	Score float64
}

type DocumentChunkRepository interface {
	Create(ctx context.Context, chunk *entity.DocumentChunk) error
	CreateBulk(ctx context.Context, chunks []*entity.DocumentChunk) error
	DeleteByKnowledgeBaseId(ctx context.Context, kbId uuid.UUID) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DocumentChunk, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// SearchSimilar orders by ascending cosine distance within one knowledge base.
	SearchSimilar(ctx context.Context, kbId uuid.UUID, embedding []float32, limit int) ([]*ScoredChunk, error)
	// SearchKeyword orders by descending full-text rank within one knowledge base.
	SearchKeyword(ctx context.Context, kbId uuid.UUID, query string, limit int) ([]*ScoredChunk, error)
}
