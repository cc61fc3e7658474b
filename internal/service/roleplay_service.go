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
	"ragone-be/pkg/events"
	"ragone-be/pkg/llm"
	pktNats "ragone-be/pkg/nats"
	"ragone-be/pkg/rag/session"
	"ragone-be/pkg/store"

	"github.com/google/uuid"
)

const roleplayModule = "ROLEPLAY"

const (
	recentRolePlayTurns = 10
	retrievalUserTurns  = 3
)

func defaultSessionConfig() entity.RolePlaySessionConfig {
	return entity.RolePlaySessionConfig{
		MaxHistoryLength: 20,
		UseRAG:           true,
		Temperature:      0.7,
		MaxTokens:        1000,
	}
}

type IRolePlayService interface {
	CreateSession(ctx context.Context, userId uuid.UUID, req *dto.CreateRolePlaySessionRequest) (*dto.RolePlaySessionResponse, error)
	SendMessage(ctx context.Context, userId uuid.UUID, sessionId string, req *dto.SendRolePlayMessageRequest) (*dto.RolePlayMessageResponse, error)
	GetSession(ctx context.Context, userId uuid.UUID, sessionId string) (*dto.RolePlaySessionResponse, error)
	ListSessions(ctx context.Context, userId uuid.UUID, page dto.PageRequest) (*dto.PageResponse[*dto.RolePlaySessionResponse], error)
	GetSessionHistory(ctx context.Context, userId uuid.UUID, sessionId string, page dto.PageRequest) (*dto.PageResponse[*dto.RolePlayHistoryResponse], error)
	EndSession(ctx context.Context, userId uuid.UUID, sessionId string) error
	DeleteSession(ctx context.Context, userId uuid.UUID, sessionId string) error
	RateConversation(ctx context.Context, userId uuid.UUID, req *dto.RateConversationRequest) error
	CharacterStats(ctx context.Context, userId uuid.UUID, characterId uuid.UUID) (*dto.CharacterStatsResponse, error)
}

type rolePlayService struct {
	uowFactory     unitofwork.RepositoryFactory
	searcher       KnowledgeSearcher
	llm            llm.LLMProvider
	sessions       *session.Manager
	eventPublisher *pktNats.Publisher
	logger         logger.ILogger
}

func NewRolePlayService(
	uowFactory unitofwork.RepositoryFactory,
	searcher KnowledgeSearcher,
	llmProvider llm.LLMProvider,
	sessions *session.Manager,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
) IRolePlayService {
	return &rolePlayService{
		uowFactory:     uowFactory,
		searcher:       searcher,
		llm:            llmProvider,
		sessions:       sessions,
		eventPublisher: eventPublisher,
		logger:         log,
	}
}

func (s *rolePlayService) CreateSession(ctx context.Context, userId uuid.UUID, req *dto.CreateRolePlaySessionRequest) (*dto.RolePlaySessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	ch, err := uow.CharacterRepository().FindOne(ctx,
		specification.ByID{ID: req.CharacterId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, ErrCharacterNotFound
	}
	if ch.Status != entity.CharacterStatusActive {
		return nil, ErrCharacterNotActive
	}

	prof, err := uow.CharacterProfileRepository().FindByCharacterId(ctx, ch.Id)
	if err != nil {
		return nil, err
	}
	if prof == nil || prof.Status != entity.ProfileStatusCompleted {
		return nil, ErrProfileNotCompleted
	}

	name := strings.TrimSpace(req.SessionName)
	if name == "" {
		name = "Conversation with " + ch.Name
	}

	now := time.Now()
	rs := &entity.RolePlaySession{
		Id:             uuid.New(),
		SessionId:      s.sessions.CreateSession(ctx, userId.String(), ch.KnowledgeBaseId.String(), ch.KnowledgeBaseName),
		SessionName:    name,
		UserId:         userId,
		CharacterId:    ch.Id,
		Status:         entity.RolePlaySessionActive,
		Config:         defaultSessionConfig(),
		LastActivityAt: &now,
		CreatedAt:      now,
	}
	if err := uow.RolePlaySessionRepository().Create(ctx, rs); err != nil {
		return nil, fmt.Errorf("create role-play session: %w", err)
	}

	s.publish(ctx, events.RolePlaySessionStarted, rs)
	s.logger.Info(roleplayModule, "Role-play session created", map[string]interface{}{
		"session_id":   rs.SessionId,
		"character_id": ch.Id,
	})
	return toSessionResponse(rs, ch.Name), nil
}

func (s *rolePlayService) ownedSession(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID, sessionId string) (*entity.RolePlaySession, error) {
	rs, err := uow.RolePlaySessionRepository().FindOne(ctx,
		specification.BySessionID{SessionID: sessionId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if rs == nil {
		return nil, ErrSessionNotFound
	}
	return rs, nil
}

func (s *rolePlayService) SendMessage(ctx context.Context, userId uuid.UUID, sessionId string, req *dto.SendRolePlayMessageRequest) (*dto.RolePlayMessageResponse, error) {
	start := time.Now()
	uow := s.uowFactory.NewUnitOfWork(ctx)

	rs, err := s.ownedSession(ctx, uow, userId, sessionId)
	if err != nil {
		return nil, err
	}
	if rs.Status != entity.RolePlaySessionActive {
		return nil, ErrSessionNotActive
	}

	ch, err := uow.CharacterRepository().FindOne(ctx, specification.ByID{ID: rs.CharacterId})
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, ErrCharacterNotFound
	}
	prof, err := uow.CharacterProfileRepository().FindByCharacterId(ctx, ch.Id)
	if err != nil {
		return nil, err
	}
	if prof == nil {
		return nil, ErrProfileNotFound
	}

	limit := recentRolePlayTurns
	if rs.Config.MaxHistoryLength > 0 && rs.Config.MaxHistoryLength < limit {
		limit = rs.Config.MaxHistoryLength
	}
	recent, err := uow.RolePlayHistoryRepository().FindAll(ctx,
		specification.ByRolePlaySessionID{RolePlaySessionID: rs.Id},
		specification.OrderBy{Field: "turn_number", Desc: true},
		specification.Pagination{Limit: limit},
	)
	if err != nil {
		return nil, fmt.Errorf("load recent turns: %w", err)
	}
	turnNumber := 1
	if len(recent) > 0 {
		turnNumber = recent[0].TurnNumber + 1
	}
	// oldest first from here on
	for i, j := 0, len(recent)-1; i < j; i, j = i+1, j-1 {
		recent[i], recent[j] = recent[j], recent[i]
	}

	var results []store.FusedResult
	if rs.Config.UseRAG {
		results = capResults(s.searcher.HybridSearch(ctx, retrievalQuery(req.Message, recent), ch.KnowledgeBaseId), maxContextChunks)
	}

	conversation := buildConversationContext(ch, prof, recent, results, req.Message)
	reply := s.generateReply(ctx, ch, prof, conversation, rs.Config)

	promptTokens := EstimateTokens(conversation)
	completionTokens := EstimateTokens(reply)
	refs := chunkRefs(results)

	history := &entity.RolePlayHistory{
		Id:                   uuid.New(),
		RolePlaySessionId:    rs.Id,
		UserId:               userId,
		CharacterId:          ch.Id,
		UserMessage:          req.Message,
		CharacterResponse:    reply,
		ContextChunks:        refs,
		SystemPromptUsed:     prof.SystemPrompt,
		ResponseTimeMs:       time.Since(start).Milliseconds(),
		TokenUsage:           entity.TokenUsage{PromptTokens: promptTokens, CompletionTokens: completionTokens, TotalTokens: promptTokens + completionTokens},
		TurnNumber:           turnNumber,
		UsedRag:              len(results) > 0,
		RetrievedChunksCount: len(results),
		CreatedAt:            time.Now(),
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.RolePlayHistoryRepository().Create(ctx, history); err != nil {
		return nil, fmt.Errorf("save role-play turn: %w", err)
	}
	if err := uow.RolePlaySessionRepository().RecordActivity(ctx, rs.Id, int64(history.TokenUsage.TotalTokens), history.CreatedAt); err != nil {
		return nil, fmt.Errorf("update session activity: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.mirrorTurns(ctx, rs.SessionId, req.Message, reply, refs)

	s.logger.Info(roleplayModule, "Message processed", map[string]interface{}{
		"session_id": sessionId,
		"turn":       turnNumber,
		"chunks":     len(results),
	})

	return &dto.RolePlayMessageResponse{
		HistoryId:         history.Id,
		SessionId:         rs.SessionId,
		TurnNumber:        turnNumber,
		CharacterName:     ch.Name,
		CharacterResponse: reply,
		UsedRag:           history.UsedRag,
		RetrievedChunks:   history.RetrievedChunksCount,
		ResponseTimeMs:    history.ResponseTimeMs,
		TokenUsage:        toTokenUsage(history.TokenUsage),
	}, nil
}

// mirrorTurns keeps the cached conversation in step with the persisted turns.
func (s *rolePlayService) mirrorTurns(ctx context.Context, sessionId, message, reply string, refs []entity.ContextChunkRef) {
	if !s.sessions.Enabled() {
		return
	}
	if err := s.sessions.AppendUserTurn(ctx, sessionId, message); err != nil {
		s.logger.Debug(roleplayModule, "Cached turn skipped", map[string]interface{}{"session_id": sessionId, "error": err.Error()})
		return
	}
	_ = s.sessions.AppendAssistantTurn(ctx, sessionId, reply, chunkRefsJSON(refs))
}

func (s *rolePlayService) generateReply(ctx context.Context, ch *entity.Character, prof *entity.CharacterProfile, conversation string, cfg entity.RolePlaySessionConfig) string {
	var opts []llm.Option
	if cfg.Temperature > 0 {
		opts = append(opts, llm.WithTemperature(cfg.Temperature))
	}
	if cfg.MaxTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(cfg.MaxTokens))
	}

	reply, err := s.llm.Generate(ctx, buildRolePlayPrompt(conversation, prof), opts...)
	if err != nil || strings.TrimSpace(reply) == "" {
		fields := map[string]interface{}{"character_id": ch.Id}
		if err != nil {
			fields["error"] = err.Error()
		}
		s.logger.Error(roleplayModule, "Reply generation failed, using fallback", fields)
		return fallbackReply(ch.Name)
	}
	return strings.TrimSpace(reply)
}

func fallbackReply(name string) string {
	return fmt.Sprintf("[%s] Sorry, I'm a bit confused right now, could you ask me another way?", name)
}

// retrievalQuery is the message followed by the user side of the latest turns.
func retrievalQuery(message string, recent []*entity.RolePlayHistory) string {
	parts := []string{message}
	from := len(recent) - retrievalUserTurns
	if from < 0 {
		from = 0
	}
	for _, h := range recent[from:] {
		parts = append(parts, h.UserMessage)
	}
	return strings.Join(parts, " ")
}

func buildConversationContext(ch *entity.Character, prof *entity.CharacterProfile, recent []*entity.RolePlayHistory, results []store.FusedResult, message string) string {
	var b strings.Builder

	b.WriteString("System prompt:\n")
	b.WriteString(prof.SystemPrompt)
	b.WriteString("\n\n")

	if prof.BackgroundStory != "" {
		b.WriteString("Character background:\n")
		b.WriteString(prof.BackgroundStory)
		b.WriteString("\n\n")
	}

	if len(results) > 0 {
		b.WriteString("Relevant knowledge base content:\n")
		for _, r := range results {
			b.WriteString("- ")
			b.WriteString(r.Content)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(recent) > 0 {
		b.WriteString("Conversation history:\n")
		for _, h := range recent {
			fmt.Fprintf(&b, "User: %s\n%s: %s\n", h.UserMessage, ch.Name, h.CharacterResponse)
		}
		b.WriteString("\n")
	}

	b.WriteString("Current user message:\n")
	b.WriteString(message)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Reply to the user as %s.", ch.Name)
	if prof.SpeakingStyle != "" {
		b.WriteString(" Speaking style: ")
		b.WriteString(prof.SpeakingStyle)
	}
	return b.String()
}

func buildRolePlayPrompt(conversation string, prof *entity.CharacterProfile) string {
	var b strings.Builder

	b.WriteString("# Character setting\n")
	b.WriteString(prof.SystemPrompt)
	b.WriteString("\n\n")

	for _, sec := range []struct{ title, body string }{
		{"## Personality", prof.PersonalityTraits},
		{"## Speaking style", prof.SpeakingStyle},
		{"## Background story", prof.BackgroundStory},
		{"## Restrictions", prof.Restrictions},
	} {
		if sec.body == "" {
			continue
		}
		b.WriteString(sec.title)
		b.WriteString("\n")
		b.WriteString(sec.body)
		b.WriteString("\n\n")
	}

	b.WriteString("# Conversation context\n")
	b.WriteString(conversation)
	b.WriteString("\n\n")

	b.WriteString("# Instructions\n")
	b.WriteString("Reply strictly according to the character setting above and stay in character. ")
	b.WriteString("Keep the reply natural and never mention being an AI or role-playing. ")
	b.WriteString("Reply directly as the character without a name prefix.\n")
	return b.String()
}

// EstimateTokens approximates 1.5 CJK ideographs or 4 other characters per token.
func EstimateTokens(text string) int {
	var cjk, other int
	for _, r := range text {
		if r >= 0x4e00 && r <= 0x9fff {
			cjk++
		} else {
			other++
		}
	}
	return int(float64(cjk)/1.5 + float64(other)/4.0)
}

func (s *rolePlayService) GetSession(ctx context.Context, userId uuid.UUID, sessionId string) (*dto.RolePlaySessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	rs, err := s.ownedSession(ctx, uow, userId, sessionId)
	if err != nil {
		return nil, err
	}
	ch, err := uow.CharacterRepository().FindOne(ctx, specification.ByID{ID: rs.CharacterId})
	if err != nil {
		return nil, err
	}

	name := ""
	if ch != nil {
		name = ch.Name
	}
	return toSessionResponse(rs, name), nil
}

func (s *rolePlayService) ListSessions(ctx context.Context, userId uuid.UUID, page dto.PageRequest) (*dto.PageResponse[*dto.RolePlaySessionResponse], error) {
	page = page.Normalize()
	uow := s.uowFactory.NewUnitOfWork(ctx)

	owned := specification.UserOwnedBy{UserID: userId}
	total, err := uow.RolePlaySessionRepository().Count(ctx, owned)
	if err != nil {
		return nil, err
	}
	sessions, err := uow.RolePlaySessionRepository().FindAll(ctx,
		owned,
		specification.Scoped{Scope: scope.NewestFirst},
		specification.Pagination{Limit: page.Size, Offset: page.Offset()},
	)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(sessions))
	for _, rs := range sessions {
		ids = append(ids, rs.CharacterId)
	}
	names := make(map[uuid.UUID]string)
	if len(ids) > 0 {
		characters, err := uow.CharacterRepository().FindAll(ctx, specification.ByIDs{IDs: ids})
		if err != nil {
			return nil, err
		}
		for _, ch := range characters {
			names[ch.Id] = ch.Name
		}
	}

	items := make([]*dto.RolePlaySessionResponse, len(sessions))
	for i, rs := range sessions {
		items[i] = toSessionResponse(rs, names[rs.CharacterId])
	}
	return &dto.PageResponse[*dto.RolePlaySessionResponse]{Items: items, Page: page.Page, Size: page.Size, Total: total}, nil
}

func (s *rolePlayService) GetSessionHistory(ctx context.Context, userId uuid.UUID, sessionId string, page dto.PageRequest) (*dto.PageResponse[*dto.RolePlayHistoryResponse], error) {
	page = page.Normalize()
	uow := s.uowFactory.NewUnitOfWork(ctx)

	rs, err := s.ownedSession(ctx, uow, userId, sessionId)
	if err != nil {
		return nil, err
	}

	bySession := specification.ByRolePlaySessionID{RolePlaySessionID: rs.Id}
	total, err := uow.RolePlayHistoryRepository().Count(ctx, bySession)
	if err != nil {
		return nil, err
	}
	histories, err := uow.RolePlayHistoryRepository().FindAll(ctx,
		bySession,
		specification.OrderBy{Field: "turn_number"},
		specification.Pagination{Limit: page.Size, Offset: page.Offset()},
	)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.RolePlayHistoryResponse, len(histories))
	for i, h := range histories {
		items[i] = &dto.RolePlayHistoryResponse{
			Id:                h.Id,
			TurnNumber:        h.TurnNumber,
			UserMessage:       h.UserMessage,
			CharacterResponse: h.CharacterResponse,
			Sources:           toSources(h.ContextChunks, nil),
			UsedRag:           h.UsedRag,
			ResponseTimeMs:    h.ResponseTimeMs,
			TokenUsage:        toTokenUsage(h.TokenUsage),
			UserRating:        h.UserRating,
			UserFeedback:      h.UserFeedback,
			CreatedAt:         h.CreatedAt,
		}
	}
	return &dto.PageResponse[*dto.RolePlayHistoryResponse]{Items: items, Page: page.Page, Size: page.Size, Total: total}, nil
}

func (s *rolePlayService) EndSession(ctx context.Context, userId uuid.UUID, sessionId string) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	rs, err := s.ownedSession(ctx, uow, userId, sessionId)
	if err != nil {
		return err
	}
	if rs.Status == entity.RolePlaySessionEnded {
		return nil
	}

	now := time.Now()
	rs.Status = entity.RolePlaySessionEnded
	rs.UpdatedAt = &now
	if err := uow.RolePlaySessionRepository().Update(ctx, rs); err != nil {
		return fmt.Errorf("end session: %w", err)
	}

	s.publish(ctx, events.RolePlaySessionEnded, rs)
	s.logger.Info(roleplayModule, "Role-play session ended", map[string]interface{}{"session_id": sessionId})
	return nil
}

// DeleteSession removes the session, its turns and the cached conversation.
func (s *rolePlayService) DeleteSession(ctx context.Context, userId uuid.UUID, sessionId string) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	rs, err := s.ownedSession(ctx, uow, userId, sessionId)
	if err != nil {
		return err
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.RolePlayHistoryRepository().DeleteBySessionId(ctx, rs.Id); err != nil {
		return err
	}
	if err := uow.RolePlaySessionRepository().Delete(ctx, rs.Id); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	s.sessions.DeleteSession(ctx, rs.SessionId)
	s.logger.Info(roleplayModule, "Role-play session deleted", map[string]interface{}{"session_id": sessionId})
	return nil
}

func (s *rolePlayService) RateConversation(ctx context.Context, userId uuid.UUID, req *dto.RateConversationRequest) error {
	if req.Rating < 1 || req.Rating > 5 {
		return ErrInvalidRating
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	h, err := uow.RolePlayHistoryRepository().FindOne(ctx,
		specification.ByID{ID: req.HistoryId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return err
	}
	if h == nil {
		return ErrHistoryNotFound
	}

	rating := req.Rating
	h.UserRating = &rating
	h.UserFeedback = req.Feedback
	if err := uow.RolePlayHistoryRepository().Update(ctx, h); err != nil {
		return fmt.Errorf("rate conversation: %w", err)
	}
	return nil
}

func (s *rolePlayService) CharacterStats(ctx context.Context, userId uuid.UUID, characterId uuid.UUID) (*dto.CharacterStatsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	ch, err := uow.CharacterRepository().FindOne(ctx,
		specification.ByID{ID: characterId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, ErrCharacterNotFound
	}

	byCharacter := specification.ByCharacterID{CharacterID: ch.Id}
	stats := &dto.CharacterStatsResponse{CharacterId: ch.Id}

	if stats.TotalSessions, err = uow.RolePlaySessionRepository().Count(ctx, byCharacter); err != nil {
		return nil, err
	}
	if stats.ActiveSessions, err = uow.RolePlaySessionRepository().Count(ctx, byCharacter,
		specification.ByStatus{Status: string(entity.RolePlaySessionActive)}); err != nil {
		return nil, err
	}
	if stats.TotalConversations, err = uow.RolePlayHistoryRepository().Count(ctx, byCharacter); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *rolePlayService) publish(ctx context.Context, eventType string, rs *entity.RolePlaySession) {
	if s.eventPublisher == nil {
		return
	}
	evt := events.New(eventType, map[string]interface{}{
		"session_id":    rs.SessionId,
		"user_id":       rs.UserId.String(),
		"character_id":  rs.CharacterId.String(),
		"message_count": rs.MessageCount,
	})
	if err := s.eventPublisher.Publish(ctx, evt); err != nil {
		s.logger.Warn(roleplayModule, "Failed to publish event", map[string]interface{}{"event": eventType, "error": err.Error()})
	}
}

func toSessionResponse(rs *entity.RolePlaySession, characterName string) *dto.RolePlaySessionResponse {
	return &dto.RolePlaySessionResponse{
		Id:            rs.Id,
		SessionId:     rs.SessionId,
		SessionName:   rs.SessionName,
		CharacterId:   rs.CharacterId,
		CharacterName: characterName,
		Status:        string(rs.Status),
		Config: dto.RolePlaySessionConfigResponse{
			MaxHistoryLength: rs.Config.MaxHistoryLength,
			UseRAG:           rs.Config.UseRAG,
			Temperature:      rs.Config.Temperature,
			MaxTokens:        rs.Config.MaxTokens,
		},
		MessageCount:   rs.MessageCount,
		TotalTokens:    rs.TotalTokens,
		LastActivityAt: rs.LastActivityAt,
		CreatedAt:      rs.CreatedAt,
	}
}

func toTokenUsage(u entity.TokenUsage) dto.TokenUsageResponse {
	return dto.TokenUsageResponse{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}
