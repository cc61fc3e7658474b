package entity

import (
	"time"

	"github.com/google/uuid"
)

type ProfileStatus string

const (
	ProfileStatusDraft      ProfileStatus = "DRAFT"
	ProfileStatusGenerating ProfileStatus = "GENERATING"
	ProfileStatusCompleted  ProfileStatus = "COMPLETED"
	ProfileStatusFailed     ProfileStatus = "FAILED"
)

type GenerationMethod string

const (
	GenerationMethodAI       GenerationMethod = "AI_GENERATED"
	GenerationMethodManual   GenerationMethod = "MANUAL_CREATED"
	GenerationMethodTemplate GenerationMethod = "TEMPLATE_BASED"
)

// CharacterProfile is the generated persona of a character. SystemPrompt is
// never empty once Status leaves DRAFT.
type CharacterProfile struct {
	Id          uuid.UUID
	CharacterId uuid.UUID

	SystemPrompt         string
	BackgroundStory      string
	PersonalityTraits    string
	SpeakingStyle        string
	Interests            string
	Expertise            string
	EmotionalPatterns    string
	ConversationExamples string
	Restrictions         string
	GoalsAndMotivations  string

	Status           ProfileStatus
	GenerationMethod GenerationMethod
	GenerationConfig map[string]interface{}
	// FieldOutcomes records how each field got its value
	// (field name -> "value" | "fallback" | "manual").
	FieldOutcomes map[string]string
	Version       int

	CreatedAt time.Time
	UpdatedAt *time.Time
}
