package entity

import (
	"time"

	"github.com/google/uuid"
)

// KnowledgeBase is the per-tenant partition every retrieval is scoped to.
type KnowledgeBase struct {
	Id          uuid.UUID
	UserId      uuid.UUID
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

// DocumentChunk is a searchable fragment of an uploaded document. Chunking
// and embedding happen upstream; this service only reads chunks.
type DocumentChunk struct {
	Id              uuid.UUID
	KnowledgeBaseId uuid.UUID
	DocumentId      uuid.UUID
	Content         string
	ChunkPosition   int
	Embedding       []float32
	CreatedAt       time.Time
}
