package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ragone-be/internal/dto"
	"ragone-be/internal/entity"
	"ragone-be/internal/pkg/logger"
	"ragone-be/internal/repository/memory"
	"ragone-be/pkg/rag/session"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rolePlayFixture struct {
	db        *fakeDB
	svc       IRolePlayService
	llm       *recordingLLM
	searcher  *stubSearcher
	sessions  *session.Manager
	userId    uuid.UUID
	character *entity.Character
}

func newRolePlayFixture(t *testing.T) *rolePlayFixture {
	t.Helper()

	db := newFakeDB()
	userId := uuid.New()
	kb := &entity.KnowledgeBase{Id: uuid.New(), UserId: userId, Name: "Lab notes"}
	db.kbs[kb.Id] = kb

	ch := &entity.Character{
		Id:                uuid.New(),
		UserId:            userId,
		KnowledgeBaseId:   kb.Id,
		KnowledgeBaseName: kb.Name,
		Name:              "Ada",
		Status:            entity.CharacterStatusActive,
	}
	db.characters[ch.Id] = ch
	db.profiles[ch.Id] = &entity.CharacterProfile{
		Id:            uuid.New(),
		CharacterId:   ch.Id,
		SystemPrompt:  "You are Ada, a meticulous engineer.",
		SpeakingStyle: "formal",
		Status:        entity.ProfileStatusCompleted,
		Version:       1,
	}

	sessions := session.NewManager(memory.NewCacheStore(), session.DefaultConfig(), logger.NewNopLogger())
	searcher := &stubSearcher{results: fusedResults("engines compute", "notes on the analytical engine")}
	model := &recordingLLM{reply: "  Good day.  "}

	return &rolePlayFixture{
		db:        db,
		svc:       NewRolePlayService(db, searcher, model, sessions, nil, logger.NewNopLogger()),
		llm:       model,
		searcher:  searcher,
		sessions:  sessions,
		userId:    userId,
		character: ch,
	}
}

func (f *rolePlayFixture) createSession(t *testing.T) *dto.RolePlaySessionResponse {
	t.Helper()
	rs, err := f.svc.CreateSession(context.Background(), f.userId, &dto.CreateRolePlaySessionRequest{CharacterId: f.character.Id})
	require.NoError(t, err)
	return rs
}

func TestRolePlayService_CreateSession(t *testing.T) {
	f := newRolePlayFixture(t)

	rs := f.createSession(t)
	assert.Equal(t, "Conversation with Ada", rs.SessionName)
	assert.Equal(t, "ACTIVE", rs.Status)
	assert.Equal(t, "Ada", rs.CharacterName)
	assert.Equal(t, 20, rs.Config.MaxHistoryLength)
	assert.True(t, rs.Config.UseRAG)
	assert.Equal(t, 0.7, rs.Config.Temperature)
	assert.Equal(t, 1000, rs.Config.MaxTokens)

	_, ok := f.sessions.GetSession(context.Background(), rs.SessionId)
	assert.True(t, ok)
}

func TestRolePlayService_CreateSessionPreconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("inactive character", func(t *testing.T) {
		f := newRolePlayFixture(t)
		f.db.characters[f.character.Id].Status = entity.CharacterStatusDraft

		_, err := f.svc.CreateSession(ctx, f.userId, &dto.CreateRolePlaySessionRequest{CharacterId: f.character.Id})
		assert.ErrorIs(t, err, ErrCharacterNotActive)
	})

	t.Run("profile not completed", func(t *testing.T) {
		f := newRolePlayFixture(t)
		f.db.profiles[f.character.Id].Status = entity.ProfileStatusFailed

		_, err := f.svc.CreateSession(ctx, f.userId, &dto.CreateRolePlaySessionRequest{CharacterId: f.character.Id})
		assert.ErrorIs(t, err, ErrProfileNotCompleted)
	})

	t.Run("someone else's character", func(t *testing.T) {
		f := newRolePlayFixture(t)

		_, err := f.svc.CreateSession(ctx, uuid.New(), &dto.CreateRolePlaySessionRequest{CharacterId: f.character.Id})
		assert.ErrorIs(t, err, ErrCharacterNotFound)
	})
}

func TestRolePlayService_SendMessage(t *testing.T) {
	ctx := context.Background()
	f := newRolePlayFixture(t)
	rs := f.createSession(t)

	first, err := f.svc.SendMessage(ctx, f.userId, rs.SessionId, &dto.SendRolePlayMessageRequest{Message: "tell me about engines"})
	require.NoError(t, err)
	assert.Equal(t, 1, first.TurnNumber)
	assert.Equal(t, "Good day.", first.CharacterResponse)
	assert.True(t, first.UsedRag)
	assert.Equal(t, 2, first.RetrievedChunks)
	assert.Positive(t, first.TokenUsage.PromptTokens)
	assert.Equal(t, first.TokenUsage.PromptTokens+first.TokenUsage.CompletionTokens, first.TokenUsage.TotalTokens)

	prompt := f.llm.lastPrompt()
	assert.Contains(t, prompt, "You are Ada, a meticulous engineer.")
	assert.Contains(t, prompt, "- notes on the analytical engine")
	assert.Contains(t, prompt, "Speaking style: formal")

	second, err := f.svc.SendMessage(ctx, f.userId, rs.SessionId, &dto.SendRolePlayMessageRequest{Message: "and the punch cards?"})
	require.NoError(t, err)
	assert.Equal(t, 2, second.TurnNumber)
	assert.Contains(t, f.llm.lastPrompt(), "User: tell me about engines\nAda: Good day.")
	assert.Equal(t, "and the punch cards? tell me about engines", f.searcher.queries[1])

	stored := f.db.rpSessions[rs.Id]
	assert.Equal(t, 2, stored.MessageCount)
	assert.Equal(t, int64(first.TokenUsage.TotalTokens+second.TokenUsage.TotalTokens), stored.TotalTokens)
	assert.Equal(t, 2, f.db.activityCalls)

	cached, ok := f.sessions.GetSession(ctx, rs.SessionId)
	require.True(t, ok)
	assert.Len(t, cached.Turns, 4)
}

func TestRolePlayService_SendMessageFallsBackWhenModelFails(t *testing.T) {
	ctx := context.Background()
	f := newRolePlayFixture(t)
	f.llm.err = errors.New("model timeout")
	rs := f.createSession(t)

	out, err := f.svc.SendMessage(ctx, f.userId, rs.SessionId, &dto.SendRolePlayMessageRequest{Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, fallbackReply("Ada"), out.CharacterResponse)
	require.Len(t, f.db.rpHistories, 1)
	assert.Equal(t, fallbackReply("Ada"), f.db.rpHistories[0].CharacterResponse)
}

func TestRolePlayService_SendMessageWithoutRetrieval(t *testing.T) {
	ctx := context.Background()
	f := newRolePlayFixture(t)
	rs := f.createSession(t)
	f.db.rpSessions[rs.Id].Config.UseRAG = false

	out, err := f.svc.SendMessage(ctx, f.userId, rs.SessionId, &dto.SendRolePlayMessageRequest{Message: "hello"})
	require.NoError(t, err)
	assert.False(t, out.UsedRag)
	assert.Zero(t, out.RetrievedChunks)
	assert.Empty(t, f.searcher.queries)
	assert.NotContains(t, f.llm.lastPrompt(), "Relevant knowledge base content")
}

func TestRolePlayService_SendMessageRejectsUnavailableSession(t *testing.T) {
	ctx := context.Background()
	f := newRolePlayFixture(t)
	rs := f.createSession(t)

	_, err := f.svc.SendMessage(ctx, uuid.New(), rs.SessionId, &dto.SendRolePlayMessageRequest{Message: "hi"})
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, f.svc.EndSession(ctx, f.userId, rs.SessionId))
	require.NoError(t, f.svc.EndSession(ctx, f.userId, rs.SessionId))

	_, err = f.svc.SendMessage(ctx, f.userId, rs.SessionId, &dto.SendRolePlayMessageRequest{Message: "hi"})
	assert.ErrorIs(t, err, ErrSessionNotActive)
	assert.Empty(t, f.llm.prompts)
}

func TestRolePlayService_RateConversation(t *testing.T) {
	ctx := context.Background()

	for _, rating := range []int{-1, 0, 6} {
		factory := &failingFactory{}
		svc := NewRolePlayService(factory, nil, nil, nil, nil, logger.NewNopLogger())

		err := svc.RateConversation(ctx, uuid.New(), &dto.RateConversationRequest{HistoryId: uuid.New(), Rating: rating})
		assert.ErrorIs(t, err, ErrInvalidRating)
		assert.False(t, factory.touched, "rating %d reached the repository", rating)
	}

	f := newRolePlayFixture(t)
	rs := f.createSession(t)
	out, err := f.svc.SendMessage(ctx, f.userId, rs.SessionId, &dto.SendRolePlayMessageRequest{Message: "hello"})
	require.NoError(t, err)

	err = f.svc.RateConversation(ctx, uuid.New(), &dto.RateConversationRequest{HistoryId: out.HistoryId, Rating: 4})
	assert.ErrorIs(t, err, ErrHistoryNotFound)

	require.NoError(t, f.svc.RateConversation(ctx, f.userId, &dto.RateConversationRequest{HistoryId: out.HistoryId, Rating: 5, Feedback: "lovely"}))
	require.NotNil(t, f.db.rpHistories[0].UserRating)
	assert.Equal(t, 5, *f.db.rpHistories[0].UserRating)
	assert.Equal(t, "lovely", f.db.rpHistories[0].UserFeedback)
}

func TestRolePlayService_DeleteSession(t *testing.T) {
	ctx := context.Background()
	f := newRolePlayFixture(t)
	rs := f.createSession(t)
	_, err := f.svc.SendMessage(ctx, f.userId, rs.SessionId, &dto.SendRolePlayMessageRequest{Message: "hello"})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteSession(ctx, f.userId, rs.SessionId))
	assert.Empty(t, f.db.rpSessions)
	assert.Empty(t, f.db.rpHistories)
	_, ok := f.sessions.GetSession(ctx, rs.SessionId)
	assert.False(t, ok)

	assert.ErrorIs(t, f.svc.DeleteSession(ctx, f.userId, rs.SessionId), ErrSessionNotFound)
}

func TestRolePlayService_CharacterStats(t *testing.T) {
	ctx := context.Background()
	f := newRolePlayFixture(t)
	a := f.createSession(t)
	f.createSession(t)
	_, err := f.svc.SendMessage(ctx, f.userId, a.SessionId, &dto.SendRolePlayMessageRequest{Message: "hello"})
	require.NoError(t, err)
	require.NoError(t, f.svc.EndSession(ctx, f.userId, a.SessionId))

	stats, err := f.svc.CharacterStats(ctx, f.userId, f.character.Id)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalSessions)
	assert.Equal(t, int64(1), stats.ActiveSessions)
	assert.Equal(t, int64(1), stats.TotalConversations)
}

func TestRetrievalQuery(t *testing.T) {
	var recent []*entity.RolePlayHistory
	for _, m := range []string{"one", "two", "three", "four"} {
		recent = append(recent, &entity.RolePlayHistory{UserMessage: m})
	}
	assert.Equal(t, "now two three four", retrievalQuery("now", recent))
	assert.Equal(t, "now", retrievalQuery("now", nil))
}

func TestBuildRolePlayPrompt_SkipsEmptySections(t *testing.T) {
	prof := &entity.CharacterProfile{SystemPrompt: "You are Ada.", PersonalityTraits: "curious"}

	prompt := buildRolePlayPrompt("context here", prof)
	assert.True(t, strings.HasPrefix(prompt, "# Character setting\nYou are Ada."))
	assert.Contains(t, prompt, "## Personality\ncurious")
	assert.NotContains(t, prompt, "## Restrictions")
	assert.NotContains(t, prompt, "## Background story")
	assert.Contains(t, prompt, "# Conversation context\ncontext here")
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"abcdefgh", 2},
		{"你好你", 2},
		{"你好ab", 1},
		{strings.Repeat("x", 401), 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EstimateTokens(tt.text), "%q", tt.text)
	}
}

func TestToSessionResponse(t *testing.T) {
	now := time.Now()
	rs := &entity.RolePlaySession{
		Id:             uuid.New(),
		SessionId:      "s-1",
		Status:         entity.RolePlaySessionPaused,
		Config:         defaultSessionConfig(),
		LastActivityAt: &now,
	}
	out := toSessionResponse(rs, "Ada")
	assert.Equal(t, "PAUSED", out.Status)
	assert.Equal(t, "Ada", out.CharacterName)
	assert.Equal(t, &now, out.LastActivityAt)
}
