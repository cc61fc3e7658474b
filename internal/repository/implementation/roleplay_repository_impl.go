package implementation

import (
	"context"
	"errors"
	"time"

	"ragone-be/internal/entity"
	"ragone-be/internal/mapper"
	"ragone-be/internal/model"
	"ragone-be/internal/repository/contract"
	"ragone-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RolePlaySessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.RolePlaySessionMapper
}

func NewRolePlaySessionRepository(db *gorm.DB) contract.RolePlaySessionRepository {
	return &RolePlaySessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewRolePlaySessionMapper(),
	}
}

func (r *RolePlaySessionRepositoryImpl) Create(ctx context.Context, session *entity.RolePlaySession) error {
	m := r.mapper.ToModel(session)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*session = *r.mapper.ToEntity(m)
	return nil
}

func (r *RolePlaySessionRepositoryImpl) Update(ctx context.Context, session *entity.RolePlaySession) error {
	m := r.mapper.ToModel(session)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*session = *r.mapper.ToEntity(m)
	return nil
}

func (r *RolePlaySessionRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.RolePlaySession{}, id).Error
}

func (r *RolePlaySessionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.RolePlaySession, error) {
	var m model.RolePlaySession
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *RolePlaySessionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.RolePlaySession, error) {
	var models []*model.RolePlaySession
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.RolePlaySession, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *RolePlaySessionRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.RolePlaySession{}).Count(&count).Error
	return count, err
}

func (r *RolePlaySessionRepositoryImpl) RecordActivity(ctx context.Context, id uuid.UUID, tokens int64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.RolePlaySession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"message_count":    gorm.Expr("message_count + 1"),
			"total_tokens":     gorm.Expr("total_tokens + ?", tokens),
			"last_activity_at": at,
		}).Error
}

type RolePlayHistoryRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.RolePlayHistoryMapper
}

func NewRolePlayHistoryRepository(db *gorm.DB) contract.RolePlayHistoryRepository {
	return &RolePlayHistoryRepositoryImpl{
		db:     db,
		mapper: mapper.NewRolePlayHistoryMapper(),
	}
}

func (r *RolePlayHistoryRepositoryImpl) Create(ctx context.Context, history *entity.RolePlayHistory) error {
	m := r.mapper.ToModel(history)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*history = *r.mapper.ToEntity(m)
	return nil
}

func (r *RolePlayHistoryRepositoryImpl) Update(ctx context.Context, history *entity.RolePlayHistory) error {
	m := r.mapper.ToModel(history)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*history = *r.mapper.ToEntity(m)
	return nil
}

func (r *RolePlayHistoryRepositoryImpl) DeleteBySessionId(ctx context.Context, rolePlaySessionId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("role_play_session_id = ?", rolePlaySessionId).Delete(&model.RolePlayHistory{}).Error
}

func (r *RolePlayHistoryRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.RolePlayHistory, error) {
	var m model.RolePlayHistory
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *RolePlayHistoryRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.RolePlayHistory, error) {
	var models []*model.RolePlayHistory
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.RolePlayHistory, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *RolePlayHistoryRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.RolePlayHistory{}).Count(&count).Error
	return count, err
}
