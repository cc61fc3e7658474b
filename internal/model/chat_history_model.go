package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ChatHistory struct {
	Id                uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId         string         `gorm:"type:varchar(64);not null;index"`
	UserId            uuid.UUID      `gorm:"type:uuid;not null;index"`
	KnowledgeBaseId   uuid.UUID      `gorm:"type:uuid;not null;index"`
	UserMessage       string         `gorm:"type:text;not null"`
	AssistantResponse string         `gorm:"type:text;not null"`
	ContextChunks     datatypes.JSON `gorm:"type:jsonb"`
	ResponseTimeMs    int64
	CreatedAt         time.Time `gorm:"autoCreateTime"`
}

func (ChatHistory) TableName() string {
	return "chat_histories"
}
