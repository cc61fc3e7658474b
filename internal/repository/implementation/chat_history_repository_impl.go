package implementation

import (
	"context"

	"ragone-be/internal/entity"
	"ragone-be/internal/mapper"
	"ragone-be/internal/model"
	"ragone-be/internal/repository/contract"
	"ragone-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatHistoryRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatHistoryMapper
}

func NewChatHistoryRepository(db *gorm.DB) contract.ChatHistoryRepository {
	return &ChatHistoryRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatHistoryMapper(),
	}
}

func (r *ChatHistoryRepositoryImpl) Create(ctx context.Context, history *entity.ChatHistory) error {
	m := r.mapper.ToModel(history)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*history = *r.mapper.ToEntity(m)
	return nil
}

func (r *ChatHistoryRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatHistory, error) {
	var models []*model.ChatHistory
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.ChatHistory, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *ChatHistoryRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.ChatHistory{}).Count(&count).Error
	return count, err
}

func (r *ChatHistoryRepositoryImpl) DeleteBySessionId(ctx context.Context, userId uuid.UUID, sessionId string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND session_id = ?", userId, sessionId).
		Delete(&model.ChatHistory{})
	return res.RowsAffected, res.Error
}

func (r *ChatHistoryRepositoryImpl) FindSessionIds(ctx context.Context, userId uuid.UUID) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.ChatHistory{}).
		Where("user_id = ?", userId).
		Group("session_id").
		Order("MAX(created_at) DESC").
		Pluck("session_id", &ids).Error
	return ids, err
}
