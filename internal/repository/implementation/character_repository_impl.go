package implementation

import (
	"context"
	"errors"

	"ragone-be/internal/entity"
	"ragone-be/internal/mapper"
	"ragone-be/internal/model"
	"ragone-be/internal/repository/contract"
	"ragone-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CharacterRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CharacterMapper
}

func NewCharacterRepository(db *gorm.DB) contract.CharacterRepository {
	return &CharacterRepositoryImpl{
		db:     db,
		mapper: mapper.NewCharacterMapper(),
	}
}

func (r *CharacterRepositoryImpl) Create(ctx context.Context, character *entity.Character) error {
	m := r.mapper.ToModel(character)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	name := character.KnowledgeBaseName
	*character = *r.mapper.ToEntity(m)
	character.KnowledgeBaseName = name
	return nil
}

func (r *CharacterRepositoryImpl) Update(ctx context.Context, character *entity.Character) error {
	m := r.mapper.ToModel(character)
	if err := r.db.WithContext(ctx).Omit("KnowledgeBase").Save(m).Error; err != nil {
		return err
	}
	name := character.KnowledgeBaseName
	*character = *r.mapper.ToEntity(m)
	character.KnowledgeBaseName = name
	return nil
}

func (r *CharacterRepositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.CharacterStatus) error {
	return r.db.WithContext(ctx).
		Model(&model.Character{}).
		Where("id = ?", id).
		Update("status", string(status)).Error
}

func (r *CharacterRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Character{}, id).Error
}

func (r *CharacterRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Character, error) {
	var m model.Character
	query := applySpecifications(r.db.WithContext(ctx).Preload("KnowledgeBase"), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *CharacterRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Character, error) {
	var models []*model.Character
	query := applySpecifications(r.db.WithContext(ctx).Preload("KnowledgeBase"), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.Character, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *CharacterRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.Character{}).Count(&count).Error
	return count, err
}

type CharacterProfileRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CharacterProfileMapper
}

func NewCharacterProfileRepository(db *gorm.DB) contract.CharacterProfileRepository {
	return &CharacterProfileRepositoryImpl{
		db:     db,
		mapper: mapper.NewCharacterProfileMapper(),
	}
}

func (r *CharacterProfileRepositoryImpl) FindByCharacterId(ctx context.Context, characterId uuid.UUID) (*entity.CharacterProfile, error) {
	var m model.CharacterProfile
	if err := r.db.WithContext(ctx).Where("character_id = ?", characterId).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *CharacterProfileRepositoryImpl) Save(ctx context.Context, profile *entity.CharacterProfile) error {
	m := r.mapper.ToModel(profile)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "character_id"}},
			UpdateAll: true,
		}).
		Create(m).Error
	if err != nil {
		return err
	}
	*profile = *r.mapper.ToEntity(m)
	return nil
}

func (r *CharacterProfileRepositoryImpl) DeleteByCharacterId(ctx context.Context, characterId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("character_id = ?", characterId).Delete(&model.CharacterProfile{}).Error
}
