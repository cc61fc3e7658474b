package mapper

import (
	"encoding/json"

	"ragone-be/internal/entity"
	"ragone-be/internal/model"

	"gorm.io/datatypes"
)

type RolePlaySessionMapper struct{}

func NewRolePlaySessionMapper() *RolePlaySessionMapper {
	return &RolePlaySessionMapper{}
}

func (m *RolePlaySessionMapper) ToEntity(s *model.RolePlaySession) *entity.RolePlaySession {
	if s == nil {
		return nil
	}
	res := &entity.RolePlaySession{
		Id:             s.Id,
		SessionId:      s.SessionId,
		SessionName:    s.SessionName,
		UserId:         s.UserId,
		CharacterId:    s.CharacterId,
		Status:         entity.RolePlaySessionStatus(s.Status),
		MessageCount:   s.MessageCount,
		TotalTokens:    s.TotalTokens,
		LastActivityAt: s.LastActivityAt,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      &s.UpdatedAt,
	}
	if len(s.SessionConfig) > 0 {
		_ = json.Unmarshal(s.SessionConfig, &res.Config)
	}
	return res
}

func (m *RolePlaySessionMapper) ToModel(s *entity.RolePlaySession) *model.RolePlaySession {
	if s == nil {
		return nil
	}
	res := &model.RolePlaySession{
		Id:             s.Id,
		SessionId:      s.SessionId,
		SessionName:    s.SessionName,
		UserId:         s.UserId,
		CharacterId:    s.CharacterId,
		Status:         string(s.Status),
		MessageCount:   s.MessageCount,
		TotalTokens:    s.TotalTokens,
		LastActivityAt: s.LastActivityAt,
		CreatedAt:      s.CreatedAt,
	}
	if s.UpdatedAt != nil {
		res.UpdatedAt = *s.UpdatedAt
	}
	if b, err := json.Marshal(s.Config); err == nil {
		res.SessionConfig = datatypes.JSON(b)
	}
	return res
}

type RolePlayHistoryMapper struct{}

func NewRolePlayHistoryMapper() *RolePlayHistoryMapper {
	return &RolePlayHistoryMapper{}
}

func (m *RolePlayHistoryMapper) ToEntity(h *model.RolePlayHistory) *entity.RolePlayHistory {
	if h == nil {
		return nil
	}
	res := &entity.RolePlayHistory{
		Id:                   h.Id,
		RolePlaySessionId:    h.RolePlaySessionId,
		UserId:               h.UserId,
		CharacterId:          h.CharacterId,
		UserMessage:          h.UserMessage,
		CharacterResponse:    h.CharacterResponse,
		ContextChunks:        decodeChunkRefs(h.ContextChunks),
		SystemPromptUsed:     h.SystemPromptUsed,
		ResponseTimeMs:       h.ResponseTimeMs,
		UserRating:           h.UserRating,
		UserFeedback:         h.UserFeedback,
		TurnNumber:           h.TurnNumber,
		UsedRag:              h.UsedRag,
		RetrievedChunksCount: h.RetrievedChunksCount,
		CreatedAt:            h.CreatedAt,
	}
	if len(h.TokenUsage) > 0 {
		_ = json.Unmarshal(h.TokenUsage, &res.TokenUsage)
	}
	return res
}

func (m *RolePlayHistoryMapper) ToModel(h *entity.RolePlayHistory) *model.RolePlayHistory {
	if h == nil {
		return nil
	}
	res := &model.RolePlayHistory{
		Id:                   h.Id,
		RolePlaySessionId:    h.RolePlaySessionId,
		UserId:               h.UserId,
		CharacterId:          h.CharacterId,
		UserMessage:          h.UserMessage,
		CharacterResponse:    h.CharacterResponse,
		ContextChunks:        encodeChunkRefs(h.ContextChunks),
		SystemPromptUsed:     h.SystemPromptUsed,
		ResponseTimeMs:       h.ResponseTimeMs,
		UserRating:           h.UserRating,
		UserFeedback:         h.UserFeedback,
		TurnNumber:           h.TurnNumber,
		UsedRag:              h.UsedRag,
		RetrievedChunksCount: h.RetrievedChunksCount,
		CreatedAt:            h.CreatedAt,
	}
	if b, err := json.Marshal(h.TokenUsage); err == nil {
		res.TokenUsage = datatypes.JSON(b)
	}
	return res
}
