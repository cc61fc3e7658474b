package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"ragone-be/internal/entity"
	"ragone-be/internal/repository/contract"
	"ragone-be/internal/repository/specification"
	"ragone-be/internal/repository/unitofwork"
	"ragone-be/pkg/llm"
	"ragone-be/pkg/store"

	"github.com/google/uuid"
)

var errTestBackend = errors.New("backend unavailable")

// filter is the subset of specifications the fakes understand.
type filter struct {
	id          *uuid.UUID
	ids         []uuid.UUID
	userId      *uuid.UUID
	sessionId   *string
	name        *string
	exclude     *uuid.UUID
	status      *string
	characterId *uuid.UUID
	rpSessionId *uuid.UUID
	kbId        *uuid.UUID
	keyword     string
	publicOnly  bool
	orderField  string
	orderDesc   bool
	limit       int
	offset      int
}

func parseSpecs(specs []specification.Specification) filter {
	var f filter
	for _, s := range specs {
		switch v := s.(type) {
		case specification.ByID:
			f.id = &v.ID
		case specification.ByIDs:
			f.ids = v.IDs
		case specification.UserOwnedBy:
			f.userId = &v.UserID
		case specification.BySessionID:
			f.sessionId = &v.SessionID
		case specification.ByName:
			f.name = &v.Name
		case specification.ExcludeID:
			f.exclude = &v.ID
		case specification.ByStatus:
			f.status = &v.Status
		case specification.ByCharacterID:
			f.characterId = &v.CharacterID
		case specification.ByRolePlaySessionID:
			f.rpSessionId = &v.RolePlaySessionID
		case specification.ByKnowledgeBaseID:
			f.kbId = &v.KnowledgeBaseID
		case specification.MatchesKeyword:
			f.keyword = strings.ToLower(v.Keyword)
		case specification.PublicOnly:
			f.publicOnly = true
		case specification.OrderBy:
			f.orderField, f.orderDesc = v.Field, v.Desc
		case specification.Pagination:
			f.limit, f.offset = v.Limit, v.Offset
		}
	}
	return f
}

func (f filter) matchID(id uuid.UUID) bool {
	if f.id != nil && *f.id != id {
		return false
	}
	if f.exclude != nil && *f.exclude == id {
		return false
	}
	if f.ids != nil {
		for _, x := range f.ids {
			if x == id {
				return true
			}
		}
		return false
	}
	return true
}

func (f filter) matchUser(id uuid.UUID) bool { return f.userId == nil || *f.userId == id }

func (f filter) matchKB(id uuid.UUID) bool { return f.kbId == nil || *f.kbId == id }

func page[T any](items []T, f filter) []T {
	if f.offset > 0 {
		if f.offset >= len(items) {
			return nil
		}
		items = items[f.offset:]
	}
	if f.limit > 0 && len(items) > f.limit {
		items = items[:f.limit]
	}
	return items
}

type fakeDB struct {
	mu sync.Mutex

	kbs           map[uuid.UUID]*entity.KnowledgeBase
	chunks        []*entity.DocumentChunk
	characters    map[uuid.UUID]*entity.Character
	profiles      map[uuid.UUID]*entity.CharacterProfile
	chatHistories []*entity.ChatHistory
	rpSessions    map[uuid.UUID]*entity.RolePlaySession
	rpHistories   []*entity.RolePlayHistory

	failChatHistory bool
	activityCalls   int
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		kbs:        make(map[uuid.UUID]*entity.KnowledgeBase),
		characters: make(map[uuid.UUID]*entity.Character),
		profiles:   make(map[uuid.UUID]*entity.CharacterProfile),
		rpSessions: make(map[uuid.UUID]*entity.RolePlaySession),
	}
}

func (db *fakeDB) NewUnitOfWork(context.Context) unitofwork.UnitOfWork { return &fakeUoW{db: db} }

type fakeUoW struct {
	unitofwork.UnitOfWork
	db *fakeDB
}

func (u *fakeUoW) Begin(context.Context) error { return nil }
func (u *fakeUoW) Commit() error               { return nil }
func (u *fakeUoW) Rollback() error             { return nil }

func (u *fakeUoW) KnowledgeBaseRepository() contract.KnowledgeBaseRepository {
	return &fakeKBRepo{db: u.db}
}
func (u *fakeUoW) DocumentChunkRepository() contract.DocumentChunkRepository {
	return &fakeChunkRepo{db: u.db}
}
func (u *fakeUoW) CharacterRepository() contract.CharacterRepository {
	return &fakeCharacterRepo{db: u.db}
}
func (u *fakeUoW) CharacterProfileRepository() contract.CharacterProfileRepository {
	return &fakeProfileRepo{db: u.db}
}
func (u *fakeUoW) ChatHistoryRepository() contract.ChatHistoryRepository {
	return &fakeChatHistoryRepo{db: u.db}
}
func (u *fakeUoW) RolePlaySessionRepository() contract.RolePlaySessionRepository {
	return &fakeRPSessionRepo{db: u.db}
}
func (u *fakeUoW) RolePlayHistoryRepository() contract.RolePlayHistoryRepository {
	return &fakeRPHistoryRepo{db: u.db}
}

type fakeKBRepo struct {
	contract.KnowledgeBaseRepository
	db *fakeDB
}

func (r *fakeKBRepo) match(specs []specification.Specification) []*entity.KnowledgeBase {
	f := parseSpecs(specs)
	var out []*entity.KnowledgeBase
	for _, kb := range r.db.kbs {
		if !f.matchID(kb.Id) || !f.matchUser(kb.UserId) {
			continue
		}
		if f.name != nil && *f.name != kb.Name {
			continue
		}
		cp := *kb
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, f)
}

func (r *fakeKBRepo) Create(_ context.Context, kb *entity.KnowledgeBase) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *kb
	r.db.kbs[kb.Id] = &cp
	return nil
}

func (r *fakeKBRepo) Update(ctx context.Context, kb *entity.KnowledgeBase) error {
	return r.Create(ctx, kb)
}

func (r *fakeKBRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.kbs, id)
	return nil
}

func (r *fakeKBRepo) Count(_ context.Context, specs ...specification.Specification) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return int64(len(r.match(specs))), nil
}

func (r *fakeKBRepo) FindOne(_ context.Context, specs ...specification.Specification) (*entity.KnowledgeBase, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if found := r.match(specs); len(found) > 0 {
		return found[0], nil
	}
	return nil, nil
}

func (r *fakeKBRepo) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.KnowledgeBase, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.match(specs), nil
}

type fakeChunkRepo struct {
	contract.DocumentChunkRepository
	db *fakeDB
}

func (r *fakeChunkRepo) Count(_ context.Context, specs ...specification.Specification) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	f := parseSpecs(specs)
	var n int64
	for _, c := range r.db.chunks {
		if f.matchID(c.Id) && f.matchKB(c.KnowledgeBaseId) {
			n++
		}
	}
	return n, nil
}

func (r *fakeChunkRepo) DeleteByKnowledgeBaseId(_ context.Context, kbId uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var kept []*entity.DocumentChunk
	for _, c := range r.db.chunks {
		if c.KnowledgeBaseId != kbId {
			kept = append(kept, c)
		}
	}
	r.db.chunks = kept
	return nil
}

type fakeCharacterRepo struct {
	contract.CharacterRepository
	db *fakeDB
}

func (r *fakeCharacterRepo) match(specs []specification.Specification) []*entity.Character {
	f := parseSpecs(specs)
	var out []*entity.Character
	for _, ch := range r.db.characters {
		if !f.matchID(ch.Id) || !f.matchUser(ch.UserId) || !f.matchKB(ch.KnowledgeBaseId) {
			continue
		}
		if f.name != nil && *f.name != ch.Name {
			continue
		}
		if f.status != nil && *f.status != string(ch.Status) {
			continue
		}
		if f.publicOnly && !ch.IsPublic {
			continue
		}
		if f.keyword != "" && !strings.Contains(strings.ToLower(ch.Name+" "+ch.Description), f.keyword) {
			continue
		}
		cp := *ch
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return page(out, f)
}

func (r *fakeCharacterRepo) Create(_ context.Context, ch *entity.Character) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *ch
	r.db.characters[ch.Id] = &cp
	return nil
}

func (r *fakeCharacterRepo) Update(_ context.Context, ch *entity.Character) error {
	return r.Create(context.Background(), ch)
}

func (r *fakeCharacterRepo) UpdateStatus(_ context.Context, id uuid.UUID, status entity.CharacterStatus) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.characters[id].Status = status
	return nil
}

func (r *fakeCharacterRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.characters, id)
	return nil
}

func (r *fakeCharacterRepo) FindOne(_ context.Context, specs ...specification.Specification) (*entity.Character, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if found := r.match(specs); len(found) > 0 {
		return found[0], nil
	}
	return nil, nil
}

func (r *fakeCharacterRepo) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.Character, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.match(specs), nil
}

func (r *fakeCharacterRepo) Count(_ context.Context, specs ...specification.Specification) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return int64(len(r.match(specs))), nil
}

type fakeProfileRepo struct {
	contract.CharacterProfileRepository
	db *fakeDB
}

func (r *fakeProfileRepo) FindByCharacterId(_ context.Context, id uuid.UUID) (*entity.CharacterProfile, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.profiles[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProfileRepo) Save(_ context.Context, p *entity.CharacterProfile) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *p
	r.db.profiles[p.CharacterId] = &cp
	return nil
}

func (r *fakeProfileRepo) DeleteByCharacterId(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.profiles, id)
	return nil
}

type fakeChatHistoryRepo struct {
	contract.ChatHistoryRepository
	db *fakeDB
}

func (r *fakeChatHistoryRepo) Create(_ context.Context, h *entity.ChatHistory) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.failChatHistory {
		return errTestBackend
	}
	cp := *h
	r.db.chatHistories = append(r.db.chatHistories, &cp)
	return nil
}

func (r *fakeChatHistoryRepo) DeleteBySessionId(_ context.Context, userId uuid.UUID, sessionId string) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var kept []*entity.ChatHistory
	var n int64
	for _, h := range r.db.chatHistories {
		if h.UserId == userId && h.SessionId == sessionId {
			n++
			continue
		}
		kept = append(kept, h)
	}
	r.db.chatHistories = kept
	return n, nil
}

type fakeRPSessionRepo struct {
	contract.RolePlaySessionRepository
	db *fakeDB
}

func (r *fakeRPSessionRepo) match(specs []specification.Specification) []*entity.RolePlaySession {
	f := parseSpecs(specs)
	var out []*entity.RolePlaySession
	for _, s := range r.db.rpSessions {
		if !f.matchID(s.Id) || !f.matchUser(s.UserId) {
			continue
		}
		if f.sessionId != nil && *f.sessionId != s.SessionId {
			continue
		}
		if f.characterId != nil && *f.characterId != s.CharacterId {
			continue
		}
		if f.status != nil && *f.status != string(s.Status) {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	return page(out, f)
}

func (r *fakeRPSessionRepo) Create(_ context.Context, s *entity.RolePlaySession) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *s
	r.db.rpSessions[s.Id] = &cp
	return nil
}

func (r *fakeRPSessionRepo) Update(ctx context.Context, s *entity.RolePlaySession) error {
	return r.Create(ctx, s)
}

func (r *fakeRPSessionRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.rpSessions, id)
	return nil
}

func (r *fakeRPSessionRepo) FindOne(_ context.Context, specs ...specification.Specification) (*entity.RolePlaySession, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if found := r.match(specs); len(found) > 0 {
		return found[0], nil
	}
	return nil, nil
}

func (r *fakeRPSessionRepo) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.RolePlaySession, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.match(specs), nil
}

func (r *fakeRPSessionRepo) Count(_ context.Context, specs ...specification.Specification) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return int64(len(r.match(specs))), nil
}

func (r *fakeRPSessionRepo) RecordActivity(_ context.Context, id uuid.UUID, tokens int64, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s := r.db.rpSessions[id]
	s.MessageCount++
	s.TotalTokens += tokens
	s.LastActivityAt = &at
	r.db.activityCalls++
	return nil
}

type fakeRPHistoryRepo struct {
	contract.RolePlayHistoryRepository
	db *fakeDB
}

func (r *fakeRPHistoryRepo) match(specs []specification.Specification) []*entity.RolePlayHistory {
	f := parseSpecs(specs)
	var out []*entity.RolePlayHistory
	for _, h := range r.db.rpHistories {
		if !f.matchID(h.Id) || !f.matchUser(h.UserId) {
			continue
		}
		if f.rpSessionId != nil && *f.rpSessionId != h.RolePlaySessionId {
			continue
		}
		if f.characterId != nil && *f.characterId != h.CharacterId {
			continue
		}
		cp := *h
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if f.orderField == "turn_number" && f.orderDesc {
			return out[i].TurnNumber > out[j].TurnNumber
		}
		return out[i].TurnNumber < out[j].TurnNumber
	})
	return page(out, f)
}

func (r *fakeRPHistoryRepo) Create(_ context.Context, h *entity.RolePlayHistory) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *h
	r.db.rpHistories = append(r.db.rpHistories, &cp)
	return nil
}

func (r *fakeRPHistoryRepo) Update(_ context.Context, h *entity.RolePlayHistory) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i, x := range r.db.rpHistories {
		if x.Id == h.Id {
			cp := *h
			r.db.rpHistories[i] = &cp
		}
	}
	return nil
}

func (r *fakeRPHistoryRepo) DeleteBySessionId(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var kept []*entity.RolePlayHistory
	for _, h := range r.db.rpHistories {
		if h.RolePlaySessionId != id {
			kept = append(kept, h)
		}
	}
	r.db.rpHistories = kept
	return nil
}

func (r *fakeRPHistoryRepo) FindOne(_ context.Context, specs ...specification.Specification) (*entity.RolePlayHistory, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if found := r.match(specs); len(found) > 0 {
		return found[0], nil
	}
	return nil, nil
}

func (r *fakeRPHistoryRepo) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.RolePlayHistory, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.match(specs), nil
}

func (r *fakeRPHistoryRepo) Count(_ context.Context, specs ...specification.Specification) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return int64(len(r.match(specs))), nil
}

// failingFactory flags any repository access.
type failingFactory struct {
	touched bool
}

func (f *failingFactory) NewUnitOfWork(context.Context) unitofwork.UnitOfWork {
	f.touched = true
	return nil
}

type stubSearcher struct {
	mu      sync.Mutex
	results []store.FusedResult
	queries []string
}

func (s *stubSearcher) HybridSearch(_ context.Context, q string, _ uuid.UUID) []store.FusedResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)
	return s.results
}

type recordingLLM struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (l *recordingLLM) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	return l.Generate(ctx, history[len(history)-1].Content, opts...)
}

func (l *recordingLLM) Generate(_ context.Context, prompt string, _ ...llm.Option) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prompts = append(l.prompts, prompt)
	return l.reply, l.err
}

func (l *recordingLLM) lastPrompt() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.prompts) == 0 {
		return ""
	}
	return l.prompts[len(l.prompts)-1]
}

func fusedResults(contents ...string) []store.FusedResult {
	out := make([]store.FusedResult, len(contents))
	for i, c := range contents {
		out[i] = store.FusedResult{
			Candidate:   store.Candidate{ID: uuid.New(), DocumentID: uuid.New(), Content: c, ChunkPosition: i},
			FusionScore: 1 - float64(i)/10,
		}
	}
	return out
}
