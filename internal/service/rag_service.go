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
	"ragone-be/pkg/llm"
	"ragone-be/pkg/rag/session"
	"ragone-be/pkg/store"

	"github.com/google/uuid"
)

const ragModule = "RAG"

const (
	noRelevantInfoAnswer = "Sorry, no relevant information was found in your knowledge base."
	ragFailureAnswer     = "Sorry, an error occurred while processing your question. Please try again later."
	recentHistoryLimit   = 50
)

type IRagService interface {
	CreateSession(ctx context.Context, userId uuid.UUID, kbId uuid.UUID) (*dto.ChatSessionResponse, error)
	GetSession(ctx context.Context, userId uuid.UUID, sessionId string) (*dto.ChatSessionResponse, error)
	AskQuestion(ctx context.Context, userId uuid.UUID, req *dto.AskQuestionRequest) (*dto.AskQuestionResponse, error)
	// GetHistory returns a session's exchanges oldest first, or the user's
	// latest exchanges when sessionId is empty.
	GetHistory(ctx context.Context, userId uuid.UUID, sessionId string) ([]*dto.ChatHistoryResponse, error)
	ListSessions(ctx context.Context, userId uuid.UUID) ([]string, error)
	// DeleteSession drops the cached conversation only.
	DeleteSession(ctx context.Context, userId uuid.UUID, sessionId string) error
	// PurgeHistory deletes the permanent exchanges of a session.
	PurgeHistory(ctx context.Context, userId uuid.UUID, sessionId string) (*dto.PurgeHistoryResponse, error)
}

type ragService struct {
	uowFactory unitofwork.RepositoryFactory
	searcher   KnowledgeSearcher
	llm        llm.LLMProvider
	sessions   *session.Manager
	logger     logger.ILogger
}

func NewRagService(
	uowFactory unitofwork.RepositoryFactory,
	searcher KnowledgeSearcher,
	llmProvider llm.LLMProvider,
	sessions *session.Manager,
	log logger.ILogger,
) IRagService {
	return &ragService{
		uowFactory: uowFactory,
		searcher:   searcher,
		llm:        llmProvider,
		sessions:   sessions,
		logger:     log,
	}
}

func (s *ragService) ownedKnowledgeBase(ctx context.Context, userId, kbId uuid.UUID) (*entity.KnowledgeBase, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	kb, err := uow.KnowledgeBaseRepository().FindOne(ctx,
		specification.ByID{ID: kbId},
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

func (s *ragService) CreateSession(ctx context.Context, userId uuid.UUID, kbId uuid.UUID) (*dto.ChatSessionResponse, error) {
	kb, err := s.ownedKnowledgeBase(ctx, userId, kbId)
	if err != nil {
		return nil, err
	}

	id := s.sessions.CreateSession(ctx, userId.String(), kb.Id.String(), kb.Name)
	return &dto.ChatSessionResponse{
		SessionId:         id,
		KnowledgeBaseId:   kb.Id.String(),
		KnowledgeBaseName: kb.Name,
		CreatedAt:         time.Now(),
	}, nil
}

func (s *ragService) GetSession(ctx context.Context, userId uuid.UUID, sessionId string) (*dto.ChatSessionResponse, error) {
	sess, ok := s.sessions.GetSession(ctx, sessionId)
	if !ok || sess.OwnerID != userId.String() {
		return nil, ErrSessionNotFound
	}

	lastActive := sess.LastActiveAt
	return &dto.ChatSessionResponse{
		SessionId:         sess.ID,
		KnowledgeBaseId:   sess.KnowledgeBaseID,
		KnowledgeBaseName: sess.KnowledgeBaseName,
		TurnCount:         len(sess.Turns),
		CreatedAt:         sess.CreatedAt,
		LastActiveAt:      &lastActive,
	}, nil
}

func (s *ragService) AskQuestion(ctx context.Context, userId uuid.UUID, req *dto.AskQuestionRequest) (*dto.AskQuestionResponse, error) {
	kb, err := s.ownedKnowledgeBase(ctx, userId, req.KnowledgeBaseId)
	if err != nil {
		return nil, err
	}

	sessionId := req.SessionId
	if sessionId == "" {
		sessionId = s.sessions.CreateSession(ctx, userId.String(), kb.Id.String(), kb.Name)
	} else if sess, ok := s.sessions.GetSession(ctx, sessionId); ok {
		if sess.OwnerID != userId.String() {
			return nil, ErrSessionNotFound
		}
	} else {
		s.sessions.Ensure(ctx, sessionId, userId.String(), kb.Id.String(), kb.Name)
	}

	history := s.sessions.RenderHistory(ctx, sessionId)
	results := capResults(s.searcher.HybridSearch(ctx, req.Question, kb.Id), maxContextChunks)

	res := &dto.AskQuestionResponse{SessionId: sessionId, Sources: []dto.SourceResponse{}}

	if len(results) == 0 {
		res.Answer = noRelevantInfoAnswer
		s.record(ctx, userId, kb.Id, sessionId, req.Question, res.Answer, nil, 0)
		return res, nil
	}

	knowledge := store.Contents(store.Candidates(results), maxContextChunks)

	start := time.Now()
	answer, err := s.llm.Generate(ctx, buildRagPrompt(strings.Join(knowledge, "\n\n"), req.Question, history))
	elapsed := time.Since(start).Milliseconds()
	if err != nil || strings.TrimSpace(answer) == "" {
		fields := map[string]interface{}{"session_id": sessionId, "knowledge_base_id": kb.Id}
		if err != nil {
			fields["error"] = err.Error()
		}
		s.logger.Error(ragModule, "Answer generation failed", fields)
		res.Answer = ragFailureAnswer
		return res, nil
	}

	refs := chunkRefs(results)
	res.Answer = answer
	res.Sources = toSources(refs, results)
	res.ResponseTimeMs = elapsed
	s.record(ctx, userId, kb.Id, sessionId, req.Question, answer, refs, elapsed)

	s.logger.Info(ragModule, "Question answered", map[string]interface{}{
		"session_id":        sessionId,
		"knowledge_base_id": kb.Id,
		"chunks":            len(results),
		"response_time_ms":  elapsed,
	})
	return res, nil
}

// record appends the exchange to the cached conversation and the permanent
// history. Failures are logged and never surface to the caller.
func (s *ragService) record(ctx context.Context, userId, kbId uuid.UUID, sessionId, question, answer string, refs []entity.ContextChunkRef, elapsed int64) {
	if err := s.sessions.AppendUserTurn(ctx, sessionId, question); err != nil {
		s.logger.Warn(ragModule, "Failed to cache user turn", map[string]interface{}{"session_id": sessionId, "error": err.Error()})
	}
	if err := s.sessions.AppendAssistantTurn(ctx, sessionId, answer, chunkRefsJSON(refs)); err != nil {
		s.logger.Warn(ragModule, "Failed to cache assistant turn", map[string]interface{}{"session_id": sessionId, "error": err.Error()})
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	err := uow.ChatHistoryRepository().Create(ctx, &entity.ChatHistory{
		Id:                uuid.New(),
		SessionId:         sessionId,
		UserId:            userId,
		KnowledgeBaseId:   kbId,
		UserMessage:       question,
		AssistantResponse: answer,
		ContextChunks:     refs,
		ResponseTimeMs:    elapsed,
		CreatedAt:         time.Now(),
	})
	if err != nil {
		s.logger.Error(ragModule, "Failed to persist chat history", map[string]interface{}{"session_id": sessionId, "error": err.Error()})
	}
}

func buildRagPrompt(knowledge, question, history string) string {
	var b strings.Builder
	b.WriteString("Answer the user's question based on the knowledge base content and chat history below. ")
	b.WriteString("If the knowledge base has no relevant information, say so clearly.\n\n")

	if strings.TrimSpace(history) != "" {
		b.WriteString("Chat history:\n")
		b.WriteString(history)
		b.WriteString("\n\n")
	}

	b.WriteString("Knowledge base content:\n")
	b.WriteString(knowledge)
	b.WriteString("\n\n")

	b.WriteString("User question: ")
	b.WriteString(question)
	b.WriteString("\n\n")

	b.WriteString("Give an accurate, helpful answer that takes the chat history into account:")
	return b.String()
}

func (s *ragService) GetHistory(ctx context.Context, userId uuid.UUID, sessionId string) ([]*dto.ChatHistoryResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	specs := []specification.Specification{specification.UserOwnedBy{UserID: userId}}
	if sessionId != "" {
		specs = append(specs,
			specification.BySessionID{SessionID: sessionId},
			specification.Scoped{Scope: scope.OrderByCreatedAsc},
		)
	} else {
		specs = append(specs,
			specification.Scoped{Scope: scope.OrderByCreatedDesc},
			specification.Pagination{Limit: recentHistoryLimit},
		)
	}

	histories, err := uow.ChatHistoryRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, fmt.Errorf("load chat history: %w", err)
	}

	out := make([]*dto.ChatHistoryResponse, len(histories))
	for i, h := range histories {
		out[i] = &dto.ChatHistoryResponse{
			Id:                h.Id,
			SessionId:         h.SessionId,
			UserMessage:       h.UserMessage,
			AssistantResponse: h.AssistantResponse,
			Sources:           toSources(h.ContextChunks, nil),
			ResponseTimeMs:    h.ResponseTimeMs,
			CreatedAt:         h.CreatedAt,
		}
	}
	return out, nil
}

// ListSessions reads the cache index, or the persisted history when the
// cache is disabled.
func (s *ragService) ListSessions(ctx context.Context, userId uuid.UUID) ([]string, error) {
	if s.sessions.Enabled() {
		s.sessions.CleanupExpiredSessions(ctx, userId.String())
		return s.sessions.ListSessions(ctx, userId.String()), nil
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.ChatHistoryRepository().FindSessionIds(ctx, userId)
}

func (s *ragService) DeleteSession(ctx context.Context, userId uuid.UUID, sessionId string) error {
	if sess, ok := s.sessions.GetSession(ctx, sessionId); ok && sess.OwnerID != userId.String() {
		return ErrSessionNotFound
	}
	s.sessions.DeleteSession(ctx, sessionId)
	return nil
}

func (s *ragService) PurgeHistory(ctx context.Context, userId uuid.UUID, sessionId string) (*dto.PurgeHistoryResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	n, err := uow.ChatHistoryRepository().DeleteBySessionId(ctx, userId, sessionId)
	if err != nil {
		return nil, fmt.Errorf("purge chat history: %w", err)
	}
	if n == 0 {
		return nil, ErrHistoryNotFound
	}

	s.logger.Info(ragModule, "Chat history purged", map[string]interface{}{"session_id": sessionId, "deleted": n})
	return &dto.PurgeHistoryResponse{SessionId: sessionId, Deleted: n}, nil
}
