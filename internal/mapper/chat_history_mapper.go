package mapper

import (
	"encoding/json"

	"ragone-be/internal/entity"
	"ragone-be/internal/model"

	"gorm.io/datatypes"
)

type ChatHistoryMapper struct{}

func NewChatHistoryMapper() *ChatHistoryMapper {
	return &ChatHistoryMapper{}
}

func (m *ChatHistoryMapper) ToEntity(h *model.ChatHistory) *entity.ChatHistory {
	if h == nil {
		return nil
	}
	return &entity.ChatHistory{
		Id:                h.Id,
		SessionId:         h.SessionId,
		UserId:            h.UserId,
		KnowledgeBaseId:   h.KnowledgeBaseId,
		UserMessage:       h.UserMessage,
		AssistantResponse: h.AssistantResponse,
		ContextChunks:     decodeChunkRefs(h.ContextChunks),
		ResponseTimeMs:    h.ResponseTimeMs,
		CreatedAt:         h.CreatedAt,
	}
}

func (m *ChatHistoryMapper) ToModel(h *entity.ChatHistory) *model.ChatHistory {
	if h == nil {
		return nil
	}
	return &model.ChatHistory{
		Id:                h.Id,
		SessionId:         h.SessionId,
		UserId:            h.UserId,
		KnowledgeBaseId:   h.KnowledgeBaseId,
		UserMessage:       h.UserMessage,
		AssistantResponse: h.AssistantResponse,
		ContextChunks:     encodeChunkRefs(h.ContextChunks),
		ResponseTimeMs:    h.ResponseTimeMs,
		CreatedAt:         h.CreatedAt,
	}
}

func decodeChunkRefs(raw datatypes.JSON) []entity.ContextChunkRef {
	if len(raw) == 0 {
		return nil
	}
	var refs []entity.ContextChunkRef
	if err := json.Unmarshal(raw, &refs); err != nil {
		return nil
	}
	return refs
}

func encodeChunkRefs(refs []entity.ContextChunkRef) datatypes.JSON {
	if refs == nil {
		refs = []entity.ContextChunkRef{}
	}
	b, err := json.Marshal(refs)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(b)
}
