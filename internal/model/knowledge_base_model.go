package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type KnowledgeBase struct {
	Id          uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId      uuid.UUID      `gorm:"type:uuid;not null;index"` // User ownership for data isolation
	Name        string         `gorm:"type:text;not null"`
	Description string         `gorm:"type:text"`
	CreatedAt   time.Time      `gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime"`
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

func (KnowledgeBase) TableName() string {
	return "knowledge_bases"
}

type DocumentChunk struct {
	Id              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	KnowledgeBaseId uuid.UUID       `gorm:"type:uuid;not null;index"`
	DocumentId      uuid.UUID       `gorm:"type:uuid;not null;index"`
	Content         string          `gorm:"type:text;not null"`
	ChunkPosition   int             `gorm:"default:0"`
	Embedding       pgvector.Vector `gorm:"type:vector(768)"` // nomic-embed-text / jina v2 base
	CreatedAt       time.Time       `gorm:"autoCreateTime"`
	DeletedAt       gorm.DeletedAt  `gorm:"index"`
}

func (DocumentChunk) TableName() string {
	return "document_chunks"
}
