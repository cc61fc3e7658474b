package contract

import (
	"context"

	"ragone-be/internal/entity"
	"ragone-be/internal/repository/specification"

	"github.com/google/uuid"
)

type CharacterRepository interface {
	Create(ctx context.Context, character *entity.Character) error
	Update(ctx context.Context, character *entity.Character) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.CharacterStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Character, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Character, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}

type CharacterProfileRepository interface {
	FindByCharacterId(ctx context.Context, characterId uuid.UUID) (*entity.CharacterProfile, error)
	// Save inserts or overwrites the single profile row of a character.
	Save(ctx context.Context, profile *entity.CharacterProfile) error
	DeleteByCharacterId(ctx context.Context, characterId uuid.UUID) error
}
