package contract

import (
	"context"
	"time"

	"ragone-be/internal/entity"
	"ragone-be/internal/repository/specification"

	"github.com/google/uuid"
)

type RolePlaySessionRepository interface {
	Create(ctx context.Context, session *entity.RolePlaySession) error
	Update(ctx context.Context, session *entity.RolePlaySession) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.RolePlaySession, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.RolePlaySession, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// RecordActivity bumps message count and token total atomically.
	RecordActivity(ctx context.Context, id uuid.UUID, tokens int64, at time.Time) error
}

type RolePlayHistoryRepository interface {
	Create(ctx context.Context, history *entity.RolePlayHistory) error
	Update(ctx context.Context, history *entity.RolePlayHistory) error
	DeleteBySessionId(ctx context.Context, rolePlaySessionId uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.RolePlayHistory, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.RolePlayHistory, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
