package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateRolePlaySessionRequest struct {
	CharacterId uuid.UUID `json:"character_id" validate:"required"`
	SessionName string    `json:"session_name" validate:"max=100"`
}

type RolePlaySessionConfigResponse struct {
	MaxHistoryLength int     `json:"max_history_length"`
	UseRAG           bool    `json:"use_rag"`
	Temperature      float64 `json:"temperature"`
	MaxTokens        int     `json:"max_tokens"`
}

type RolePlaySessionResponse struct {
	Id             uuid.UUID                     `json:"id"`
	SessionId      string                        `json:"session_id"`
	SessionName    string                        `json:"session_name"`
	CharacterId    uuid.UUID                     `json:"character_id"`
	CharacterName  string                        `json:"character_name,omitempty"`
	Status         string                        `json:"status"`
	Config         RolePlaySessionConfigResponse `json:"config"`
	MessageCount   int                           `json:"message_count"`
	TotalTokens    int64                         `json:"total_tokens"`
	LastActivityAt *time.Time                    `json:"last_activity_at"`
	CreatedAt      time.Time                     `json:"created_at"`
}

type SendRolePlayMessageRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
}

type TokenUsageResponse struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type RolePlayMessageResponse struct {
	HistoryId         uuid.UUID          `json:"history_id"`
	SessionId         string             `json:"session_id"`
	TurnNumber        int                `json:"turn_number"`
	CharacterName     string             `json:"character_name"`
	CharacterResponse string             `json:"character_response"`
	UsedRag           bool               `json:"used_rag"`
	RetrievedChunks   int                `json:"retrieved_chunks"`
	ResponseTimeMs    int64              `json:"response_time_ms"`
	TokenUsage        TokenUsageResponse `json:"token_usage"`
}

type RolePlayHistoryResponse struct {
	Id                uuid.UUID          `json:"id"`
	TurnNumber        int                `json:"turn_number"`
	UserMessage       string             `json:"user_message"`
	CharacterResponse string             `json:"character_response"`
	Sources           []SourceResponse   `json:"sources"`
	UsedRag           bool               `json:"used_rag"`
	ResponseTimeMs    int64              `json:"response_time_ms"`
	TokenUsage        TokenUsageResponse `json:"token_usage"`
	UserRating        *int               `json:"user_rating,omitempty"`
	UserFeedback      string             `json:"user_feedback,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
}

// Rating is range-checked by the service (1..5).
type RateConversationRequest struct {
	HistoryId uuid.UUID `json:"history_id" validate:"required"`
	Rating    int       `json:"rating"`
	Feedback  string    `json:"feedback" validate:"max=1000"`
}
