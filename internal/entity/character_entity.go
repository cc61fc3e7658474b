package entity

import (
	"time"

	"github.com/google/uuid"
)

type CharacterStatus string

const (
	CharacterStatusDraft      CharacterStatus = "DRAFT"
	CharacterStatusActive     CharacterStatus = "ACTIVE"
	CharacterStatusInactive   CharacterStatus = "INACTIVE"
	CharacterStatusGenerating CharacterStatus = "GENERATING"
)

type Character struct {
	Id                uuid.UUID
	UserId            uuid.UUID
	KnowledgeBaseId   uuid.UUID
	KnowledgeBaseName string // read-only, joined for display
	Name              string
	Description       string
	AvatarUrl         string
	Status            CharacterStatus
	IsPublic          bool
	CreatedAt         time.Time
	UpdatedAt         *time.Time
}
