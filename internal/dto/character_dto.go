package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateCharacterRequest struct {
	KnowledgeBaseId uuid.UUID `json:"knowledge_base_id" validate:"required"`
	Name            string    `json:"name" validate:"required,min=1,max=100"`
	Description     string    `json:"description" validate:"max=1000"`
	AvatarUrl       string    `json:"avatar_url" validate:"omitempty,url"`
	IsPublic        bool      `json:"is_public"`
}

// UpdateCharacterRequest only touches the fields that are present.
type UpdateCharacterRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	AvatarUrl   *string `json:"avatar_url" validate:"omitempty,url"`
	IsPublic    *bool   `json:"is_public"`
}

type ListCharactersRequest struct {
	PageRequest
	Status  string `query:"status" validate:"omitempty,oneof=DRAFT ACTIVE INACTIVE GENERATING"`
	Keyword string `query:"keyword" validate:"omitempty,max=100"`
}

type CharacterResponse struct {
	Id                uuid.UUID  `json:"id"`
	KnowledgeBaseId   uuid.UUID  `json:"knowledge_base_id"`
	KnowledgeBaseName string     `json:"knowledge_base_name"`
	Name              string     `json:"name"`
	Description       string     `json:"description"`
	AvatarUrl         string     `json:"avatar_url,omitempty"`
	Status            string     `json:"status"`
	IsPublic          bool       `json:"is_public"`
	ProfileStatus     string     `json:"profile_status,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         *time.Time `json:"updated_at"`
}

type NameAvailabilityResponse struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

type CharacterProfileResponse struct {
	Id                   uuid.UUID              `json:"id"`
	CharacterId          uuid.UUID              `json:"character_id"`
	SystemPrompt         string                 `json:"system_prompt"`
	BackgroundStory      string                 `json:"background_story"`
	PersonalityTraits    string                 `json:"personality_traits"`
	SpeakingStyle        string                 `json:"speaking_style"`
	Interests            string                 `json:"interests"`
	Expertise            string                 `json:"expertise"`
	EmotionalPatterns    string                 `json:"emotional_patterns"`
	ConversationExamples string                 `json:"conversation_examples"`
	Restrictions         string                 `json:"restrictions"`
	GoalsAndMotivations  string                 `json:"goals_and_motivations"`
	Status               string                 `json:"status"`
	GenerationMethod     string                 `json:"generation_method"`
	GenerationConfig     map[string]interface{} `json:"generation_config,omitempty"`
	FieldOutcomes        map[string]string      `json:"field_outcomes,omitempty"`
	Version              int                    `json:"version"`
	UpdatedAt            *time.Time             `json:"updated_at"`
}

type UpdateCharacterProfileRequest struct {
	SystemPrompt         *string `json:"system_prompt" validate:"omitempty,max=20000"`
	BackgroundStory      *string `json:"background_story" validate:"omitempty,max=10000"`
	PersonalityTraits    *string `json:"personality_traits" validate:"omitempty,max=10000"`
	SpeakingStyle        *string `json:"speaking_style" validate:"omitempty,max=10000"`
	Interests            *string `json:"interests" validate:"omitempty,max=10000"`
	Expertise            *string `json:"expertise" validate:"omitempty,max=10000"`
	EmotionalPatterns    *string `json:"emotional_patterns" validate:"omitempty,max=10000"`
	ConversationExamples *string `json:"conversation_examples" validate:"omitempty,max=10000"`
	Restrictions         *string `json:"restrictions" validate:"omitempty,max=10000"`
	GoalsAndMotivations  *string `json:"goals_and_motivations" validate:"omitempty,max=10000"`
}

type CharacterStatsResponse struct {
	CharacterId        uuid.UUID `json:"character_id"`
	TotalSessions      int64     `json:"total_sessions"`
	ActiveSessions     int64     `json:"active_sessions"`
	TotalConversations int64     `json:"total_conversations"`
}

// PublishGenerateProfileMessage is the background job payload for profile generation.
type PublishGenerateProfileMessage struct {
	CharacterId uuid.UUID `json:"character_id"`
	UserId      uuid.UUID `json:"user_id"`
	Reason      string    `json:"reason"`
}

// ProfileStatusMessage is pushed to websocket watchers of the owning user.
type ProfileStatusMessage struct {
	CharacterId uuid.UUID `json:"character_id"`
	Status      string    `json:"status"`
	Version     int       `json:"version"`
	Error       string    `json:"error,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}
