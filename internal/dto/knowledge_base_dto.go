package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateKnowledgeBaseRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"max=1000"`
}

type UpdateKnowledgeBaseRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"max=1000"`
}

type KnowledgeBaseResponse struct {
	Id             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	ChunkCount     int64      `json:"chunk_count"`
	CharacterCount int64      `json:"character_count"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at"`
}
