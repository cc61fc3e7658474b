package unitofwork

import (
	"context"

	"ragone-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	KnowledgeBaseRepository() contract.KnowledgeBaseRepository
	DocumentChunkRepository() contract.DocumentChunkRepository

	CharacterRepository() contract.CharacterRepository
	CharacterProfileRepository() contract.CharacterProfileRepository

	ChatHistoryRepository() contract.ChatHistoryRepository
	RolePlaySessionRepository() contract.RolePlaySessionRepository
	RolePlayHistoryRepository() contract.RolePlayHistoryRepository
}
