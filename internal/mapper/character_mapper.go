package mapper

import (
	"encoding/json"

	"ragone-be/internal/entity"
	"ragone-be/internal/model"

	"gorm.io/datatypes"
)

type CharacterMapper struct{}

func NewCharacterMapper() *CharacterMapper {
	return &CharacterMapper{}
}

func (m *CharacterMapper) ToEntity(c *model.Character) *entity.Character {
	if c == nil {
		return nil
	}
	res := &entity.Character{
		Id:              c.Id,
		UserId:          c.UserId,
		KnowledgeBaseId: c.KnowledgeBaseId,
		Name:            c.Name,
		Description:     c.Description,
		AvatarUrl:       c.AvatarUrl,
		Status:          entity.CharacterStatus(c.Status),
		IsPublic:        c.IsPublic,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       &c.UpdatedAt,
	}
	if c.KnowledgeBase != nil {
		res.KnowledgeBaseName = c.KnowledgeBase.Name
	}
	return res
}

func (m *CharacterMapper) ToModel(c *entity.Character) *model.Character {
	if c == nil {
		return nil
	}
	res := &model.Character{
		Id:              c.Id,
		UserId:          c.UserId,
		KnowledgeBaseId: c.KnowledgeBaseId,
		Name:            c.Name,
		Description:     c.Description,
		AvatarUrl:       c.AvatarUrl,
		Status:          string(c.Status),
		IsPublic:        c.IsPublic,
		CreatedAt:       c.CreatedAt,
	}
	if c.UpdatedAt != nil {
		res.UpdatedAt = *c.UpdatedAt
	}
	return res
}

type CharacterProfileMapper struct{}

func NewCharacterProfileMapper() *CharacterProfileMapper {
	return &CharacterProfileMapper{}
}

func (m *CharacterProfileMapper) ToEntity(p *model.CharacterProfile) *entity.CharacterProfile {
	if p == nil {
		return nil
	}
	res := &entity.CharacterProfile{
		Id:                   p.Id,
		CharacterId:          p.CharacterId,
		SystemPrompt:         p.SystemPrompt,
		BackgroundStory:      p.BackgroundStory,
		PersonalityTraits:    p.PersonalityTraits,
		SpeakingStyle:        p.SpeakingStyle,
		Interests:            p.Interests,
		Expertise:            p.Expertise,
		EmotionalPatterns:    p.EmotionalPatterns,
		ConversationExamples: p.ConversationExamples,
		Restrictions:         p.Restrictions,
		GoalsAndMotivations:  p.GoalsAndMotivations,
		Status:               entity.ProfileStatus(p.Status),
		GenerationMethod:     entity.GenerationMethod(p.GenerationMethod),
		Version:              p.Version,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            &p.UpdatedAt,
	}
	if len(p.GenerationConfig) > 0 {
		_ = json.Unmarshal(p.GenerationConfig, &res.GenerationConfig)
	}
	if len(p.FieldOutcomes) > 0 {
		_ = json.Unmarshal(p.FieldOutcomes, &res.FieldOutcomes)
	}
	return res
}

func (m *CharacterProfileMapper) ToModel(p *entity.CharacterProfile) *model.CharacterProfile {
	if p == nil {
		return nil
	}
	res := &model.CharacterProfile{
		Id:                   p.Id,
		CharacterId:          p.CharacterId,
		SystemPrompt:         p.SystemPrompt,
		BackgroundStory:      p.BackgroundStory,
		PersonalityTraits:    p.PersonalityTraits,
		SpeakingStyle:        p.SpeakingStyle,
		Interests:            p.Interests,
		Expertise:            p.Expertise,
		EmotionalPatterns:    p.EmotionalPatterns,
		ConversationExamples: p.ConversationExamples,
		Restrictions:         p.Restrictions,
		GoalsAndMotivations:  p.GoalsAndMotivations,
		Status:               string(p.Status),
		GenerationMethod:     string(p.GenerationMethod),
		Version:              p.Version,
		CreatedAt:            p.CreatedAt,
	}
	if p.UpdatedAt != nil {
		res.UpdatedAt = *p.UpdatedAt
	}
	if p.GenerationConfig != nil {
		if b, err := json.Marshal(p.GenerationConfig); err == nil {
			res.GenerationConfig = datatypes.JSON(b)
		}
	}
	if p.FieldOutcomes != nil {
		if b, err := json.Marshal(p.FieldOutcomes); err == nil {
			res.FieldOutcomes = datatypes.JSON(b)
		}
	}
	return res
}
