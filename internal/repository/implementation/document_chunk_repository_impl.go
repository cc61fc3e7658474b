package implementation

import (
	"context"

	"ragone-be/internal/entity"
	"ragone-be/internal/mapper"
	"ragone-be/internal/model"
	"ragone-be/internal/repository/contract"
	"ragone-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type DocumentChunkRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DocumentChunkMapper
}

func NewDocumentChunkRepository(db *gorm.DB) contract.DocumentChunkRepository {
	return &DocumentChunkRepositoryImpl{
		db:     db,
		mapper: mapper.NewDocumentChunkMapper(),
	}
}

func (r *DocumentChunkRepositoryImpl) Create(ctx context.Context, chunk *entity.DocumentChunk) error {
	m := r.mapper.ToModel(chunk)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*chunk = *r.mapper.ToEntity(m)
	return nil
}

func (r *DocumentChunkRepositoryImpl) CreateBulk(ctx context.Context, chunks []*entity.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	models := make([]*model.DocumentChunk, len(chunks))
	for i, c := range chunks {
		models[i] = r.mapper.ToModel(c)
	}

	if err := r.db.WithContext(ctx).Create(models).Error; err != nil {
		return err
	}

	for i, m := range models {
		*chunks[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *DocumentChunkRepositoryImpl) DeleteByKnowledgeBaseId(ctx context.Context, kbId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("knowledge_base_id = ?", kbId).Delete(&model.DocumentChunk{}).Error
}

func (r *DocumentChunkRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DocumentChunk, error) {
	var models []*model.DocumentChunk
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.DocumentChunk, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *DocumentChunkRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.DocumentChunk{}).Count(&count).Error
	return count, err
}

type scoredChunkRow struct {
	model.DocumentChunk
	Score float64
}

func (r *DocumentChunkRepositoryImpl) SearchSimilar(ctx context.Context, kbId uuid.UUID, embedding []float32, limit int) ([]*contract.ScoredChunk, error) {
	if limit <= 0 {
		limit = 5
	}
	var rows []scoredChunkRow

	// <=> is cosine distance, so 1 - distance is the similarity we report.
	queryVector := pgvector.NewVector(embedding)
	err := r.db.WithContext(ctx).
		Table("document_chunks").
		Select("document_chunks.*, 1 - (embedding <=> ?) as score", queryVector).
		Where("knowledge_base_id = ?", kbId).
		Where("deleted_at IS NULL").
		Where("embedding IS NOT NULL").
		Order(gorm.Expr("embedding <=> ?", queryVector)).
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return r.toScored(rows), nil
}

func (r *DocumentChunkRepositoryImpl) SearchKeyword(ctx context.Context, kbId uuid.UUID, query string, limit int) ([]*contract.ScoredChunk, error) {
	if limit <= 0 {
		limit = 5
	}
	var rows []scoredChunkRow

	err := r.db.WithContext(ctx).
		Table("document_chunks").
		Select("document_chunks.*, ts_rank(to_tsvector('simple', content), plainto_tsquery('simple', ?)) as score", query).
		Where("knowledge_base_id = ?", kbId).
		Where("deleted_at IS NULL").
		Where("to_tsvector('simple', content) @@ plainto_tsquery('simple', ?)", query).
		Order("score DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return r.toScored(rows), nil
}

func (r *DocumentChunkRepositoryImpl) toScored(rows []scoredChunkRow) []*contract.ScoredChunk {
	out := make([]*contract.ScoredChunk, len(rows))
	for i := range rows {
		out[i] = &contract.ScoredChunk{
			Chunk: r.mapper.ToEntity(&rows[i].DocumentChunk),
			Score: rows[i].Score,
		}
	}
	return out
}
