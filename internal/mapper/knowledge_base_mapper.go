package mapper

import (
	"ragone-be/internal/entity"
	"ragone-be/internal/model"

	"github.com/pgvector/pgvector-go"
)

type KnowledgeBaseMapper struct{}

func NewKnowledgeBaseMapper() *KnowledgeBaseMapper {
	return &KnowledgeBaseMapper{}
}

func (m *KnowledgeBaseMapper) ToEntity(kb *model.KnowledgeBase) *entity.KnowledgeBase {
	if kb == nil {
		return nil
	}
	return &entity.KnowledgeBase{
		Id:          kb.Id,
		UserId:      kb.UserId,
		Name:        kb.Name,
		Description: kb.Description,
		CreatedAt:   kb.CreatedAt,
		UpdatedAt:   &kb.UpdatedAt,
	}
}

func (m *KnowledgeBaseMapper) ToModel(kb *entity.KnowledgeBase) *model.KnowledgeBase {
	if kb == nil {
		return nil
	}
	res := &model.KnowledgeBase{
		Id:          kb.Id,
		UserId:      kb.UserId,
		Name:        kb.Name,
		Description: kb.Description,
		CreatedAt:   kb.CreatedAt,
	}
	if kb.UpdatedAt != nil {
		res.UpdatedAt = *kb.UpdatedAt
	}
	return res
}

type DocumentChunkMapper struct{}

func NewDocumentChunkMapper() *DocumentChunkMapper {
	return &DocumentChunkMapper{}
}

func (m *DocumentChunkMapper) ToEntity(c *model.DocumentChunk) *entity.DocumentChunk {
	if c == nil {
		return nil
	}
	return &entity.DocumentChunk{
		Id:              c.Id,
		KnowledgeBaseId: c.KnowledgeBaseId,
		DocumentId:      c.DocumentId,
		Content:         c.Content,
		ChunkPosition:   c.ChunkPosition,
		Embedding:       c.Embedding.Slice(),
		CreatedAt:       c.CreatedAt,
	}
}

func (m *DocumentChunkMapper) ToModel(c *entity.DocumentChunk) *model.DocumentChunk {
	if c == nil {
		return nil
	}
	return &model.DocumentChunk{
		Id:              c.Id,
		KnowledgeBaseId: c.KnowledgeBaseId,
		DocumentId:      c.DocumentId,
		Content:         c.Content,
		ChunkPosition:   c.ChunkPosition,
		Embedding:       pgvector.NewVector(c.Embedding),
		CreatedAt:       c.CreatedAt,
	}
}
