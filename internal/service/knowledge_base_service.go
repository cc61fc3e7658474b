package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ragone-be/internal/dto"
	"ragone-be/internal/entity"
	"ragone-be/internal/pkg/logger"
	"ragone-be/internal/repository/scope"
	"ragone-be/internal/repository/specification"
	"ragone-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

const knowledgeBaseModule = "KNOWLEDGE_BASE"

// IKnowledgeBaseService manages knowledge base metadata. Document upload and
// chunking happen elsewhere; chunks are only counted and removed here.
type IKnowledgeBaseService interface {
	Create(ctx context.Context, userId uuid.UUID, req *dto.CreateKnowledgeBaseRequest) (*dto.KnowledgeBaseResponse, error)
	List(ctx context.Context, userId uuid.UUID) ([]*dto.KnowledgeBaseResponse, error)
	Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.KnowledgeBaseResponse, error)
	Update(ctx context.Context, userId uuid.UUID, id uuid.UUID, req *dto.UpdateKnowledgeBaseRequest) (*dto.KnowledgeBaseResponse, error)
	Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error
}

type knowledgeBaseService struct {
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
}

func NewKnowledgeBaseService(uowFactory unitofwork.RepositoryFactory, log logger.ILogger) IKnowledgeBaseService {
	return &knowledgeBaseService{
		uowFactory: uowFactory,
		logger:     log,
	}
}

func (s *knowledgeBaseService) owned(ctx context.Context, uow unitofwork.UnitOfWork, userId, id uuid.UUID) (*entity.KnowledgeBase, error) {
	kb, err := uow.KnowledgeBaseRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if kb == nil {
		return nil, ErrKnowledgeBaseNotFound
	}
	return kb, nil
}

func (s *knowledgeBaseService) nameTaken(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID, name string, excludeId *uuid.UUID) (bool, error) {
	specs := []specification.Specification{
		specification.UserOwnedBy{UserID: userId},
		specification.ByName{Name: name},
	}
	if excludeId != nil {
		specs = append(specs, specification.ExcludeID{ID: *excludeId})
	}
	n, err := uow.KnowledgeBaseRepository().Count(ctx, specs...)
	return n > 0, err
}

func (s *knowledgeBaseService) Create(ctx context.Context, userId uuid.UUID, req *dto.CreateKnowledgeBaseRequest) (*dto.KnowledgeBaseResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	name := strings.TrimSpace(req.Name)
	taken, err := s.nameTaken(ctx, uow, userId, name, nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrDuplicateKnowledgeBase
	}

	kb := &entity.KnowledgeBase{
		Id:          uuid.New(),
		UserId:      userId,
		Name:        name,
		Description: req.Description,
		CreatedAt:   time.Now(),
	}
	if err := uow.KnowledgeBaseRepository().Create(ctx, kb); err != nil {
		return nil, fmt.Errorf("create knowledge base: %w", err)
	}

	s.logger.Info(knowledgeBaseModule, "Knowledge base created", map[string]interface{}{"knowledge_base_id": kb.Id, "user_id": userId})
	return &dto.KnowledgeBaseResponse{
		Id:          kb.Id,
		Name:        kb.Name,
		Description: kb.Description,
		CreatedAt:   kb.CreatedAt,
		UpdatedAt:   kb.UpdatedAt,
	}, nil
}

func (s *knowledgeBaseService) List(ctx context.Context, userId uuid.UUID) ([]*dto.KnowledgeBaseResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	kbs, err := uow.KnowledgeBaseRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.Scoped{Scope: scope.OrderByCreatedDesc},
	)
	if err != nil {
		return nil, err
	}

	out := make([]*dto.KnowledgeBaseResponse, 0, len(kbs))
	for _, kb := range kbs {
		res, err := s.toResponse(ctx, uow, kb)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

func (s *knowledgeBaseService) Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.KnowledgeBaseResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	kb, err := s.owned(ctx, uow, userId, id)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ctx, uow, kb)
}

// Update renames a knowledge base. Characters show the new name on their next read.
func (s *knowledgeBaseService) Update(ctx context.Context, userId uuid.UUID, id uuid.UUID, req *dto.UpdateKnowledgeBaseRequest) (*dto.KnowledgeBaseResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	kb, err := s.owned(ctx, uow, userId, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name != kb.Name {
		taken, err := s.nameTaken(ctx, uow, userId, name, &kb.Id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrDuplicateKnowledgeBase
		}
	}

	kb.Name = name
	kb.Description = req.Description
	if err := uow.KnowledgeBaseRepository().Update(ctx, kb); err != nil {
		return nil, fmt.Errorf("update knowledge base: %w", err)
	}
	return s.toResponse(ctx, uow, kb)
}

// Delete soft-deletes the knowledge base and its chunks. A knowledge base
// still bound to characters cannot be deleted.
func (s *knowledgeBaseService) Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	kb, err := s.owned(ctx, uow, userId, id)
	if err != nil {
		return err
	}

	characters, err := uow.CharacterRepository().Count(ctx, specification.ByKnowledgeBaseID{KnowledgeBaseID: kb.Id})
	if err != nil {
		return err
	}
	if characters > 0 {
		return ErrKnowledgeBaseInUse
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.DocumentChunkRepository().DeleteByKnowledgeBaseId(ctx, kb.Id); err != nil {
		return err
	}
	if err := uow.KnowledgeBaseRepository().Delete(ctx, kb.Id); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	s.logger.Info(knowledgeBaseModule, "Knowledge base deleted", map[string]interface{}{"knowledge_base_id": kb.Id})
	return nil
}

func (s *knowledgeBaseService) toResponse(ctx context.Context, uow unitofwork.UnitOfWork, kb *entity.KnowledgeBase) (*dto.KnowledgeBaseResponse, error) {
	byKB := specification.ByKnowledgeBaseID{KnowledgeBaseID: kb.Id}

	chunks, err := uow.DocumentChunkRepository().Count(ctx, byKB)
	if err != nil {
		return nil, err
	}
	characters, err := uow.CharacterRepository().Count(ctx, byKB)
	if err != nil {
		return nil, err
	}

	return &dto.KnowledgeBaseResponse{
		Id:             kb.Id,
		Name:           kb.Name,
		Description:    kb.Description,
		ChunkCount:     chunks,
		CharacterCount: characters,
		CreatedAt:      kb.CreatedAt,
		UpdatedAt:      kb.UpdatedAt,
	}, nil
}
