package entity

import (
	"time"

	"github.com/google/uuid"
)

type RolePlaySessionStatus string

const (
	RolePlaySessionActive   RolePlaySessionStatus = "ACTIVE"
	RolePlaySessionPaused   RolePlaySessionStatus = "PAUSED"
	RolePlaySessionEnded    RolePlaySessionStatus = "ENDED"
	RolePlaySessionArchived RolePlaySessionStatus = "ARCHIVED"
)

type RolePlaySessionConfig struct {
	MaxHistoryLength int     `json:"maxHistoryLength"`
	UseRAG           bool    `json:"useRAG"`
	Temperature      float64 `json:"temperature"`
	MaxTokens        int     `json:"maxTokens"`
}

type RolePlaySession struct {
	Id             uuid.UUID
	SessionId      string // shared with the conversation cache
	SessionName    string
	UserId         uuid.UUID
	CharacterId    uuid.UUID
	Status         RolePlaySessionStatus
	Config         RolePlaySessionConfig
	MessageCount   int
	TotalTokens    int64
	LastActivityAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}

type TokenUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

type RolePlayHistory struct {
	Id                   uuid.UUID
	RolePlaySessionId    uuid.UUID
	UserId               uuid.UUID
	CharacterId          uuid.UUID
	UserMessage          string
	CharacterResponse    string
	ContextChunks        []ContextChunkRef
	SystemPromptUsed     string
	ResponseTimeMs       int64
	TokenUsage           TokenUsage
	UserRating           *int
	UserFeedback         string
	TurnNumber           int
	UsedRag              bool
	RetrievedChunksCount int
	CreatedAt            time.Time
}
