package contract

import (
	"context"

	"ragone-be/internal/entity"
	"ragone-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ChatHistoryRepository interface {
	Create(ctx context.Context, history *entity.ChatHistory) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatHistory, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	DeleteBySessionId(ctx context.Context, userId uuid.UUID, sessionId string) (int64, error)
	// FindSessionIds lists the distinct session ids of a user, most recent first.
	FindSessionIds(ctx context.Context, userId uuid.UUID) ([]string, error)
}
