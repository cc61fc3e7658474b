package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Character struct {
	Id              uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId          uuid.UUID      `gorm:"type:uuid;not null;index;uniqueIndex:idx_characters_user_name"`
	KnowledgeBaseId uuid.UUID      `gorm:"type:uuid;not null;index"`
	KnowledgeBase   *KnowledgeBase `gorm:"foreignKey:KnowledgeBaseId"`
	Name            string         `gorm:"type:text;not null;uniqueIndex:idx_characters_user_name"`
	Description     string         `gorm:"type:varchar(500)"`
	AvatarUrl       string         `gorm:"type:text"`
	Status          string         `gorm:"type:varchar(20);not null;default:'DRAFT'"`
	IsPublic        bool           `gorm:"not null;default:false"`
	CreatedAt       time.Time      `gorm:"autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime"`
	DeletedAt       gorm.DeletedAt `gorm:"index"`
}

func (Character) TableName() string {
	return "characters"
}

type CharacterProfile struct {
	Id                   uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CharacterId          uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex"`
	SystemPrompt         string         `gorm:"type:text;not null"`
	BackgroundStory      string         `gorm:"type:text"`
	PersonalityTraits    string         `gorm:"type:text"`
	SpeakingStyle        string         `gorm:"type:text"`
	Interests            string         `gorm:"type:text"`
	Expertise            string         `gorm:"type:text"`
	EmotionalPatterns    string         `gorm:"type:text"`
	ConversationExamples string         `gorm:"type:text"`
	Restrictions         string         `gorm:"type:text"`
	GoalsAndMotivations  string         `gorm:"type:text"`
	Status               string         `gorm:"type:varchar(20);not null;default:'DRAFT'"`
	GenerationMethod     string         `gorm:"type:varchar(20);not null;default:'AI_GENERATED'"`
	GenerationConfig     datatypes.JSON `gorm:"type:jsonb"`
	FieldOutcomes        datatypes.JSON `gorm:"type:jsonb"`
	Version              int            `gorm:"not null;default:1"`
	CreatedAt            time.Time      `gorm:"autoCreateTime"`
	UpdatedAt            time.Time      `gorm:"autoUpdateTime"`
}

func (CharacterProfile) TableName() string {
	return "character_profiles"
}
