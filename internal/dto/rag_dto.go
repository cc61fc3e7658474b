package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateChatSessionRequest struct {
	KnowledgeBaseId uuid.UUID `json:"knowledge_base_id" validate:"required"`
}

type ChatSessionResponse struct {
	SessionId         string     `json:"session_id"`
	KnowledgeBaseId   string     `json:"knowledge_base_id"`
	KnowledgeBaseName string     `json:"knowledge_base_name"`
	TurnCount         int        `json:"turn_count"`
	CreatedAt         time.Time  `json:"created_at"`
	LastActiveAt      *time.Time `json:"last_active_at,omitempty"`
}

type AskQuestionRequest struct {
	KnowledgeBaseId uuid.UUID `json:"knowledge_base_id" validate:"required"`
	SessionId       string    `json:"session_id" validate:"omitempty,max=64"`
	Question        string    `json:"question" validate:"required,max=4000"`
}

type SourceResponse struct {
	ChunkId       uuid.UUID `json:"chunk_id"`
	DocumentId    uuid.UUID `json:"document_id"`
	ChunkPosition int       `json:"chunk_position"`
	Snippet       string    `json:"snippet"`
	Score         float64   `json:"score"`
}

type AskQuestionResponse struct {
	SessionId      string           `json:"session_id"`
	Answer         string           `json:"answer"`
	Sources        []SourceResponse `json:"sources"`
	ResponseTimeMs int64            `json:"response_time_ms"`
}

type ChatHistoryResponse struct {
	Id                uuid.UUID        `json:"id"`
	SessionId         string           `json:"session_id"`
	UserMessage       string           `json:"user_message"`
	AssistantResponse string           `json:"assistant_response"`
	Sources           []SourceResponse `json:"sources"`
	ResponseTimeMs    int64            `json:"response_time_ms"`
	CreatedAt         time.Time        `json:"created_at"`
}

type PurgeHistoryResponse struct {
	SessionId string `json:"session_id"`
	Deleted   int64  `json:"deleted"`
}
