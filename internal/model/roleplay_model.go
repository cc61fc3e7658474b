package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type RolePlaySession struct {
	Id             uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId      string         `gorm:"type:varchar(64);not null;uniqueIndex"`
	SessionName    string         `gorm:"type:text"`
	UserId         uuid.UUID      `gorm:"type:uuid;not null;index"`
	CharacterId    uuid.UUID      `gorm:"type:uuid;not null;index"`
	Status         string         `gorm:"type:varchar(20);not null;default:'ACTIVE'"`
	SessionConfig  datatypes.JSON `gorm:"type:jsonb"`
	MessageCount   int            `gorm:"not null;default:0"`
	TotalTokens    int64          `gorm:"not null;default:0"`
	LastActivityAt *time.Time
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (RolePlaySession) TableName() string {
	return "role_play_sessions"
}

type RolePlayHistory struct {
	Id                   uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RolePlaySessionId    uuid.UUID      `gorm:"type:uuid;not null;index"`
	UserId               uuid.UUID      `gorm:"type:uuid;not null;index"`
	CharacterId          uuid.UUID      `gorm:"type:uuid;not null;index"`
	UserMessage          string         `gorm:"type:text;not null"`
	CharacterResponse    string         `gorm:"type:text;not null"`
	ContextChunks        datatypes.JSON `gorm:"type:jsonb"`
	SystemPromptUsed     string         `gorm:"type:text"`
	ResponseTimeMs       int64
	TokenUsage           datatypes.JSON `gorm:"type:jsonb"`
	UserRating           *int
	UserFeedback         string `gorm:"type:text"`
	TurnNumber           int    `gorm:"not null"`
	UsedRag              bool   `gorm:"not null;default:false"`
	RetrievedChunksCount int    `gorm:"default:0"`
	CreatedAt            time.Time `gorm:"autoCreateTime"`
}

func (RolePlayHistory) TableName() string {
	return "role_play_histories"
}
