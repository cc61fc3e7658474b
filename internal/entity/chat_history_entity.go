package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChatHistory is the permanent, unbounded audit copy of one Q&A exchange.
// It is independent of the cached conversation session.
type ChatHistory struct {
	Id                uuid.UUID
	SessionId         string
	UserId            uuid.UUID
	KnowledgeBaseId   uuid.UUID
	UserMessage       string
	AssistantResponse string
	ContextChunks     []ContextChunkRef
	ResponseTimeMs    int64
	CreatedAt         time.Time
}

// ContextChunkRef is the persisted reference to a grounding fragment.
type ContextChunkRef struct {
	Id            uuid.UUID `json:"id"`
	DocumentId    uuid.UUID `json:"documentId"`
	ChunkPosition int       `json:"chunkPosition"`
	Content       string    `json:"content"`
}
