package dto

import (
	"time"

	"github.com/google/uuid"
)

// TemplateConfigRequest starts from the named preset; set fields override it.
type TemplateConfigRequest struct {
	TemplateType string `json:"template_type" validate:"omitempty,oneof=standard minimal detailed"`
	Enabled      *bool  `json:"enabled"`

	IncludeBasicInfo         *bool `json:"include_basic_info"`
	IncludePersonalityTraits *bool `json:"include_personality_traits"`
	IncludeWorkflow          *bool `json:"include_workflow"`
	IncludeSpeakingStyle     *bool `json:"include_speaking_style"`
	IncludeBackgroundSetting *bool `json:"include_background_setting"`
	IncludeInteractionRules  *bool `json:"include_interaction_rules"`
	IncludeExamples          *bool `json:"include_examples"`

	ExampleCount *int    `json:"example_count"`
	CustomPrefix *string `json:"custom_prefix" validate:"omitempty,max=2000"`
	CustomSuffix *string `json:"custom_suffix" validate:"omitempty,max=2000"`
}

type TemplateConfigResponse struct {
	TemplateType string `json:"template_type"`
	Enabled      bool   `json:"enabled"`

	IncludeBasicInfo         bool `json:"include_basic_info"`
	IncludePersonalityTraits bool `json:"include_personality_traits"`
	IncludeWorkflow          bool `json:"include_workflow"`
	IncludeSpeakingStyle     bool `json:"include_speaking_style"`
	IncludeBackgroundSetting bool `json:"include_background_setting"`
	IncludeInteractionRules  bool `json:"include_interaction_rules"`
	IncludeExamples          bool `json:"include_examples"`

	ExampleCount int    `json:"example_count"`
	CustomPrefix string `json:"custom_prefix,omitempty"`
	CustomSuffix string `json:"custom_suffix,omitempty"`
}

type SystemPromptResponse struct {
	CharacterId uuid.UUID               `json:"character_id"`
	Prompt      string                  `json:"prompt"`
	Version     int                     `json:"version,omitempty"`
	Config      *TemplateConfigResponse `json:"config,omitempty"`
	UpdatedAt   *time.Time              `json:"updated_at,omitempty"`
}
